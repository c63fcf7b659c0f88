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

package provenance

import (
	"context"
	"io"
	"log/slog"
	"slices"

	"github.com/imprint-io/imprint/fingerprint"
	"github.com/imprint-io/imprint/registry"
)

// DefaultMaxDepth caps the number of hops a chain walk will follow. This is
// independent of the cycle guard: even a cycle-free but absurdly long chain
// must not consume unbounded time
const DefaultMaxDepth = 64

// RecordSource is the read-only record lookup the walker composes. The
// registry Store satisfies it
type RecordSource interface {
	Verify(
		ctx context.Context,
		fp fingerprint.Fingerprint,
	) (*registry.ContentRecord, error)
}

// ChainStep is one link in a derivation history
type ChainStep struct {
	Fingerprint  string
	CreatorName  string
	DerivedBy    string
	RegisteredAt int64
	IsOriginal   bool
}

// Walker reconstructs derivation histories by following parent links
// backward through the record store. It performs no writes
type Walker struct {
	logger   *slog.Logger
	source   RecordSource
	maxDepth int
}

// NewWalker creates a Walker over the given record source. A maxDepth of
// zero selects DefaultMaxDepth
func NewWalker(
	logger *slog.Logger,
	source RecordSource,
	maxDepth int,
) *Walker {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Walker{
		logger:   logger,
		source:   source,
		maxDepth: maxDepth,
	}
}

// BuildChain walks parent links backward from the given fingerprint and
// returns the derivation history ordered oldest ancestor first, queried
// node last. The walk is defensive: a missing record, an unparsable or
// already-visited parent link (cycle), or a lookup failure truncates the
// chain rather than failing the whole call, and an unregistered starting
// fingerprint yields an empty chain
func (w *Walker) BuildChain(
	ctx context.Context,
	fp fingerprint.Fingerprint,
) ([]ChainStep, error) {
	steps := []ChainStep{}
	visited := make(map[string]bool)
	current := fp.String()
	for range w.maxDepth {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if visited[current] {
			// A cycle means corrupted or adversarial parent links. Stop
			// rather than loop; the chain collected so far is still valid
			w.logger.Warn(
				"provenance cycle detected",
				"component", "provenance",
				"fingerprint", current,
			)
			break
		}
		visited[current] = true
		currentFp, err := fingerprint.ParseFingerprint(current)
		if err != nil {
			w.logger.Warn(
				"unparsable parent link, truncating chain",
				"component", "provenance",
				"fingerprint", current,
			)
			break
		}
		record, err := w.source.Verify(ctx, currentFp)
		if err != nil {
			// A failed hop truncates the chain; earlier hops were each
			// read from their own consistent snapshot and remain usable
			w.logger.Warn(
				"record lookup failed, truncating chain",
				"component", "provenance",
				"fingerprint", current,
				"error", err,
			)
			break
		}
		if record == nil {
			break
		}
		steps = append(steps, ChainStep{
			Fingerprint:  record.Fingerprint,
			CreatorName:  record.CreatorName,
			DerivedBy:    record.DerivedBy,
			RegisteredAt: record.RegisteredAt,
			IsOriginal:   record.IsOriginal(),
		})
		if record.ParentFingerprint == "" {
			break
		}
		current = record.ParentFingerprint
	}
	// Visitation order is newest first; callers read oldest first
	slices.Reverse(steps)
	return steps, nil
}
