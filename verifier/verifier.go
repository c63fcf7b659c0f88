// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package verifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/imprint-io/imprint/database"
	"github.com/imprint-io/imprint/fingerprint"
	"github.com/imprint-io/imprint/provenance"
	"github.com/imprint-io/imprint/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMinFlagDescriptionLen is the minimum misuse report length enforced
// on the read/write façade rather than the ledger
const DefaultMinFlagDescriptionLen = 10

// NearDuplicatePolicy controls how registration treats an incoming image
// whose fingerprint is within the similarity threshold of an existing
// record. Exact-duplicate rejection is always ledger-enforced regardless of
// this policy
type NearDuplicatePolicy string

const (
	// NearDuplicateOff skips the near-duplicate check entirely
	NearDuplicateOff NearDuplicatePolicy = "off"
	// NearDuplicateWarn registers anyway and reports the near matches
	NearDuplicateWarn NearDuplicatePolicy = "warn"
	// NearDuplicateBlock rejects the registration
	NearDuplicateBlock NearDuplicatePolicy = "block"
)

// ErrNearDuplicate is returned by RegisterImage under the block policy when
// a registered fingerprint is within the similarity threshold
var ErrNearDuplicate = errors.New(
	"near-duplicate of registered content",
)

// Config contains the configuration for a Verifier
type Config struct {
	Logger *slog.Logger
	Store  *registry.Store
	Walker *provenance.Walker
	// Database provides the candidate index for near-duplicate search
	Database            *database.Database
	SimilarityThreshold int
	NearDuplicate       NearDuplicatePolicy
	MinFlagDescription  int
}

// Verifier is the query/verification façade: exact lookup, chain-augmented
// lookup, near-duplicate search, and the validated write paths composed
// from image bytes
type Verifier struct {
	logger              *slog.Logger
	store               *registry.Store
	walker              *provenance.Walker
	db                  *database.Database
	tracer              trace.Tracer
	similarityThreshold int
	nearDuplicate       NearDuplicatePolicy
	minFlagDescription  int
}

// New creates a Verifier from the provided config
func New(cfg *Config) (*Verifier, error) {
	if cfg == nil || cfg.Store == nil {
		return nil, fmt.Errorf(
			"%w: no record store",
			registry.ErrLedgerMisconfigured,
		)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	v := &Verifier{
		logger:              logger,
		store:               cfg.Store,
		walker:              cfg.Walker,
		db:                  cfg.Database,
		tracer:              otel.Tracer("imprint/verifier"),
		similarityThreshold: cfg.SimilarityThreshold,
		nearDuplicate:       cfg.NearDuplicate,
		minFlagDescription:  cfg.MinFlagDescription,
	}
	if v.similarityThreshold <= 0 {
		v.similarityThreshold = fingerprint.DefaultSimilarityThreshold
	}
	if v.nearDuplicate == "" {
		v.nearDuplicate = NearDuplicateWarn
	}
	if v.minFlagDescription <= 0 {
		v.minFlagDescription = DefaultMinFlagDescriptionLen
	}
	if v.walker == nil {
		v.walker = provenance.NewWalker(logger, cfg.Store, 0)
	}
	return v, nil
}

// VerifyResult is the exact-lookup response
type VerifyResult struct {
	Record *registry.ContentRecord
	Found  bool
	// IsModification is true when the record links to a parent fingerprint
	IsModification bool
}

// Verify performs an exact fingerprint lookup
func (v *Verifier) Verify(
	ctx context.Context,
	fp fingerprint.Fingerprint,
) (VerifyResult, error) {
	ctx, span := v.tracer.Start(ctx, "Verify")
	defer span.End()
	span.SetAttributes(attribute.String("fingerprint", fp.String()))
	record, err := v.store.Verify(ctx, fp)
	if err != nil {
		return VerifyResult{}, err
	}
	if record == nil {
		return VerifyResult{}, nil
	}
	return VerifyResult{
		Found:          true,
		Record:         record,
		IsModification: !record.IsOriginal(),
	}, nil
}

// ChainVerifyResult augments an exact lookup with the full derivation
// history
type ChainVerifyResult struct {
	VerifyResult
	Chain []provenance.ChainStep
}

// VerifyWithChain performs an exact lookup and, when found, reconstructs
// the record's provenance chain
func (v *Verifier) VerifyWithChain(
	ctx context.Context,
	fp fingerprint.Fingerprint,
) (ChainVerifyResult, error) {
	ctx, span := v.tracer.Start(ctx, "VerifyWithChain")
	defer span.End()
	result, err := v.Verify(ctx, fp)
	if err != nil {
		return ChainVerifyResult{}, err
	}
	ret := ChainVerifyResult{VerifyResult: result}
	if !result.Found {
		return ret, nil
	}
	chain, err := v.walker.BuildChain(ctx, fp)
	if err != nil {
		return ChainVerifyResult{}, err
	}
	ret.Chain = chain
	return ret, nil
}

// Match is a near-duplicate search hit
type Match struct {
	Fingerprint fingerprint.Fingerprint
	Distance    int
}

// FindSimilar scans the candidate index for registered fingerprints within
// the given Hamming distance threshold, ordered nearest first. A threshold
// of zero or below selects the configured default
func (v *Verifier) FindSimilar(
	ctx context.Context,
	fp fingerprint.Fingerprint,
	threshold int,
) ([]Match, error) {
	ctx, span := v.tracer.Start(ctx, "FindSimilar")
	defer span.End()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if threshold <= 0 {
		threshold = v.similarityThreshold
	}
	if v.db == nil {
		return nil, fmt.Errorf(
			"%w: no candidate index",
			registry.ErrLedgerMisconfigured,
		)
	}
	candidates, err := v.db.Metadata().GetFingerprints(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", registry.ErrLedgerUnavailable, err)
	}
	var matches []Match
	for _, candidate := range candidates {
		candidateFp, err := fingerprint.ParseFingerprint(
			candidate.Fingerprint,
		)
		if err != nil {
			v.logger.Warn(
				"skipping corrupt index entry",
				"component", "verifier",
				"fingerprint", candidate.Fingerprint,
			)
			continue
		}
		if dist := fingerprint.Distance(fp, candidateFp); dist <= threshold {
			matches = append(
				matches,
				Match{Fingerprint: candidateFp, Distance: dist},
			)
		}
	}
	slices.SortStableFunc(matches, func(a, b Match) int {
		return a.Distance - b.Distance
	})
	span.SetAttributes(attribute.Int("matches", len(matches)))
	return matches, nil
}

// RegisterImageResult reports a registration made from raw image bytes
type RegisterImageResult struct {
	Fingerprint fingerprint.Fingerprint
	registry.RegisterResult
	// NearMatches lists similar registered fingerprints found under the
	// warn policy; empty otherwise
	NearMatches []Match
}

// RegisterImageParams describes a registration request made from raw image
// bytes
type RegisterImageParams struct {
	CreatorName       string
	CreatorIdentity   string
	Platform          string
	ParentFingerprint string
	DerivedBy         string
}

// RegisterImage fingerprints raw image bytes, applies the near-duplicate
// policy, and registers the result. Under the block policy a near match
// fails with ErrNearDuplicate; under warn the matches are reported
// alongside the committed registration
func (v *Verifier) RegisterImage(
	ctx context.Context,
	imageBytes []byte,
	params RegisterImageParams,
	stake registry.Stake,
) (RegisterImageResult, error) {
	ctx, span := v.tracer.Start(ctx, "RegisterImage")
	defer span.End()
	fp, err := fingerprint.Compute(imageBytes)
	if err != nil {
		return RegisterImageResult{}, err
	}
	span.SetAttributes(attribute.String("fingerprint", fp.String()))
	ret := RegisterImageResult{Fingerprint: fp}
	if v.nearDuplicate != NearDuplicateOff && v.db != nil {
		matches, err := v.FindSimilar(ctx, fp, v.similarityThreshold)
		if err != nil {
			return RegisterImageResult{}, err
		}
		if len(matches) > 0 {
			if v.nearDuplicate == NearDuplicateBlock {
				return RegisterImageResult{}, fmt.Errorf(
					"%w: nearest %s at distance %d",
					ErrNearDuplicate,
					matches[0].Fingerprint.String(),
					matches[0].Distance,
				)
			}
			ret.NearMatches = matches
		}
	}
	result, err := v.store.Register(
		ctx,
		registry.RegisterParams{
			Fingerprint:       fp,
			CreatorName:       params.CreatorName,
			CreatorIdentity:   params.CreatorIdentity,
			Platform:          params.Platform,
			ParentFingerprint: params.ParentFingerprint,
			DerivedBy:         params.DerivedBy,
		},
		stake,
	)
	if err != nil {
		return RegisterImageResult{}, err
	}
	ret.RegisterResult = result
	return ret, nil
}

// FlagMisuse validates and files a misuse report. Description length is a
// façade-level rule, not a ledger one
func (v *Verifier) FlagMisuse(
	ctx context.Context,
	fp fingerprint.Fingerprint,
	description string,
	stake registry.Stake,
) (registry.FlagResult, error) {
	ctx, span := v.tracer.Start(ctx, "FlagMisuse")
	defer span.End()
	if len(description) < v.minFlagDescription {
		return registry.FlagResult{}, fmt.Errorf(
			"%w: %d characters, minimum %d",
			registry.ErrDescriptionTooShort,
			len(description),
			v.minFlagDescription,
		)
	}
	return v.store.Flag(ctx, fp, description, stake)
}
