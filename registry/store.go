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

package registry

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/imprint-io/imprint/database"
	"github.com/imprint-io/imprint/database/models"
	"github.com/imprint-io/imprint/event"
	"github.com/imprint-io/imprint/fingerprint"
	"github.com/prometheus/client_golang/prometheus"
)

// Default stake minimums, in the ledger's smallest value unit. Stakes cover
// storage cost and deter spam registrations
const (
	DefaultMinRegisterStake uint64 = 100_000
	DefaultMinFlagStake     uint64 = 50_000
)

// Stake is a caller-supplied value-bearing authorization for a write
// operation
type Stake struct {
	Payer  string
	Amount uint64
}

// Config contains the configuration for a Store. All state is explicit;
// there is no process-global configuration
type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	EventBus     *event.EventBus
	Database     *database.Database
	// Authority is the identity that retains management authority over
	// minted credentials
	Authority        string
	MinRegisterStake uint64
	MinFlagStake     uint64
	Retry            RetryPolicy
}

// Store is the ledger record store. It owns the ContentRecord and
// MisuseFlag entities exclusively: registration and flag filing are
// expressed as single atomic transactions keyed by fingerprint, relying on
// the underlying store's serializable per-key transactions for race safety
type Store struct {
	logger           *slog.Logger
	db               *database.Database
	eventBus         *event.EventBus
	metrics          *storeMetrics
	authority        string
	minRegisterStake uint64
	minFlagStake     uint64
	retry            RetryPolicy
}

// NewStore creates a Store from the provided config. Missing required
// configuration is reported as ErrLedgerMisconfigured: this is fatal at
// startup, not something to surface per-request
func NewStore(cfg *Config) (*Store, error) {
	if cfg == nil || cfg.Database == nil {
		return nil, fmt.Errorf("%w: no ledger database", ErrLedgerMisconfigured)
	}
	if cfg.Authority == "" {
		return nil, fmt.Errorf(
			"%w: no credential authority identity",
			ErrLedgerMisconfigured,
		)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s := &Store{
		logger:           logger,
		db:               cfg.Database,
		eventBus:         cfg.EventBus,
		authority:        cfg.Authority,
		minRegisterStake: cfg.MinRegisterStake,
		minFlagStake:     cfg.MinFlagStake,
		retry:            cfg.Retry,
	}
	if s.minRegisterStake == 0 {
		s.minRegisterStake = DefaultMinRegisterStake
	}
	if s.minFlagStake == 0 {
		s.minFlagStake = DefaultMinFlagStake
	}
	if s.retry.MaxAttempts == 0 {
		s.retry = DefaultRetryPolicy()
	}
	if cfg.PromRegistry != nil {
		s.initMetrics(cfg.PromRegistry)
	}
	return s, nil
}

// RegisterParams describes a registration request
type RegisterParams struct {
	Fingerprint     fingerprint.Fingerprint
	CreatorName     string
	CreatorIdentity string
	Platform        string
	// ParentFingerprint links a derivative back to the fingerprint it was
	// derived from; empty marks an original
	ParentFingerprint string
	DerivedBy         string
}

// RegisterResult reports a committed registration
type RegisterResult struct {
	CommitId     string
	CredentialId uint64
	RegisteredAt int64
}

// Register writes a new content record and mints its soulbound credential
// in a single atomic transaction: both commit together or neither does.
// A record that already exists for the fingerprint fails with
// ErrDuplicateFingerprint and leaves the stored record untouched; this is
// the core defense against backdating and overwrite attacks
func (s *Store) Register(
	ctx context.Context,
	params RegisterParams,
	stake Stake,
) (RegisterResult, error) {
	ret := RegisterResult{}
	if stake.Amount < s.minRegisterStake {
		s.countFailure("register", "insufficient_stake")
		return ret, fmt.Errorf(
			"%w: %d below minimum %d",
			ErrInsufficientStake,
			stake.Amount,
			s.minRegisterStake,
		)
	}
	// The whole transaction re-runs on conflict retry, so the duplicate
	// check is re-evaluated against current state on every attempt
	err := s.retry.Do(ctx, func() error {
		txn := s.db.Transaction(true)
		return txn.Do(func(txn *database.Txn) error {
			blob := s.db.Blob()
			recordKey := RecordKey(params.Fingerprint)
			_, err := blob.Get(txn.Blob(), recordKey)
			if err == nil {
				return ErrDuplicateFingerprint
			}
			if !errors.Is(err, database.ErrKeyNotFound) {
				return err
			}
			registeredAt := time.Now().Unix()
			credId, err := s.issueCredential(
				txn,
				params.CreatorIdentity,
				registeredAt,
			)
			if err != nil {
				return err
			}
			record := ContentRecord{
				Fingerprint:       params.Fingerprint.String(),
				CreatorName:       params.CreatorName,
				CreatorIdentity:   params.CreatorIdentity,
				Platform:          params.Platform,
				RegisteredAt:      registeredAt,
				CredentialId:      credId,
				FlagCount:         0,
				ParentFingerprint: params.ParentFingerprint,
				DerivedBy:         params.DerivedBy,
			}
			recordData, err := json.Marshal(&record)
			if err != nil {
				return err
			}
			if err := blob.Set(txn.Blob(), recordKey, recordData); err != nil {
				return err
			}
			if err := s.incrementTotalRegistrations(txn); err != nil {
				return err
			}
			// Candidate index row for near-duplicate search
			if err := s.db.Metadata().SetFingerprint(
				models.FingerprintIndex{
					Fingerprint:  record.Fingerprint,
					Parent:       record.ParentFingerprint,
					RegisteredAt: registeredAt,
				},
				txn.Metadata(),
			); err != nil {
				return err
			}
			ret.CredentialId = credId
			ret.RegisteredAt = registeredAt
			ret.CommitId = commitId(recordKey, recordData)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateFingerprint) {
			s.countFailure("register", "duplicate")
		} else {
			s.countFailure("register", "ledger")
		}
		return RegisterResult{}, err
	}
	if s.metrics != nil {
		s.metrics.registrationsTotal.Inc()
	}
	s.logger.Info(
		"registered content",
		"component", "registry",
		"fingerprint", params.Fingerprint.String(),
		"credential_id", ret.CredentialId,
		"commit_id", ret.CommitId,
	)
	if s.eventBus != nil {
		s.eventBus.Publish(
			event.RegistrationEventType,
			event.NewEvent(
				event.RegistrationEventType,
				event.RegistrationEvent{
					Fingerprint:       params.Fingerprint.String(),
					CreatorName:       params.CreatorName,
					Platform:          params.Platform,
					ParentFingerprint: params.ParentFingerprint,
					CredentialId:      ret.CredentialId,
					CommitId:          ret.CommitId,
					RegisteredAt:      time.Unix(ret.RegisteredAt, 0),
				},
			),
		)
	}
	return ret, nil
}

// Verify looks up a content record by fingerprint. This is a pure read with
// no side effects and no stake requirement. Returns nil with no error when
// the fingerprint has never been registered
func (s *Store) Verify(
	ctx context.Context,
	fp fingerprint.Fingerprint,
) (*ContentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.verifiesTotal.Inc()
	}
	txn := s.db.BlobTxn(false)
	defer txn.Release()
	data, err := s.db.Blob().Get(txn.Blob(), RecordKey(fp))
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}
	var record ContentRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf(
			"corrupt record for fingerprint %s: %w",
			fp.String(),
			err,
		)
	}
	return &record, nil
}

// FlagResult reports a committed misuse flag
type FlagResult struct {
	CommitId string
	Index    uint64
	FiledAt  int64
}

// Flag files an immutable misuse report against a registered content item.
// The flag's index is read from the record's current flag count and the
// count incremented in the same transaction, so concurrent filings are
// serialized by the store and can never produce duplicate indices
func (s *Store) Flag(
	ctx context.Context,
	fp fingerprint.Fingerprint,
	description string,
	stake Stake,
) (FlagResult, error) {
	ret := FlagResult{}
	if stake.Amount < s.minFlagStake {
		s.countFailure("flag", "insufficient_stake")
		return ret, fmt.Errorf(
			"%w: %d below minimum %d",
			ErrInsufficientStake,
			stake.Amount,
			s.minFlagStake,
		)
	}
	err := s.retry.Do(ctx, func() error {
		txn := s.db.BlobTxn(true)
		return txn.Do(func(txn *database.Txn) error {
			blob := s.db.Blob()
			recordKey := RecordKey(fp)
			recordData, err := blob.Get(txn.Blob(), recordKey)
			if err != nil {
				if errors.Is(err, database.ErrKeyNotFound) {
					return ErrNotRegistered
				}
				return err
			}
			var record ContentRecord
			if err := json.Unmarshal(recordData, &record); err != nil {
				return fmt.Errorf(
					"corrupt record for fingerprint %s: %w",
					fp.String(),
					err,
				)
			}
			filedAt := time.Now().Unix()
			flag := MisuseFlag{
				Fingerprint: fp.String(),
				Index:       record.FlagCount,
				Description: description,
				FiledAt:     filedAt,
			}
			flagData, err := json.Marshal(&flag)
			if err != nil {
				return err
			}
			flagKey := FlagKey(fp, flag.Index)
			if err := blob.Set(txn.Blob(), flagKey, flagData); err != nil {
				return err
			}
			record.FlagCount++
			newRecordData, err := json.Marshal(&record)
			if err != nil {
				return err
			}
			if err := blob.Set(txn.Blob(), recordKey, newRecordData); err != nil {
				return err
			}
			ret.Index = flag.Index
			ret.FiledAt = filedAt
			ret.CommitId = commitId(flagKey, flagData)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotRegistered) {
			s.countFailure("flag", "not_registered")
		} else {
			s.countFailure("flag", "ledger")
		}
		return FlagResult{}, err
	}
	if s.metrics != nil {
		s.metrics.flagsTotal.Inc()
	}
	s.logger.Info(
		"flagged misuse",
		"component", "registry",
		"fingerprint", fp.String(),
		"flag_index", ret.Index,
		"commit_id", ret.CommitId,
	)
	if s.eventBus != nil {
		s.eventBus.Publish(
			event.FlagEventType,
			event.NewEvent(
				event.FlagEventType,
				event.FlagEvent{
					Fingerprint: fp.String(),
					Index:       ret.Index,
					Description: description,
					CommitId:    ret.CommitId,
					FiledAt:     time.Unix(ret.FiledAt, 0),
				},
			),
		)
	}
	return ret, nil
}

// GetFlag retrieves a misuse flag by fingerprint and index. This is a pure
// read; an index with no stored flag fails with ErrFlagNotFound
func (s *Store) GetFlag(
	ctx context.Context,
	fp fingerprint.Fingerprint,
	index uint64,
) (MisuseFlag, error) {
	ret := MisuseFlag{}
	if err := ctx.Err(); err != nil {
		return ret, err
	}
	txn := s.db.BlobTxn(false)
	defer txn.Release()
	data, err := s.db.Blob().Get(txn.Blob(), FlagKey(fp, index))
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return ret, ErrFlagNotFound
		}
		return ret, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}
	if err := json.Unmarshal(data, &ret); err != nil {
		return MisuseFlag{}, fmt.Errorf(
			"corrupt flag %s[%d]: %w",
			fp.String(),
			index,
			err,
		)
	}
	return ret, nil
}

// TotalRegistrations returns the number of content records ever committed
func (s *Store) TotalRegistrations() (uint64, error) {
	txn := s.db.BlobTxn(false)
	defer txn.Release()
	data, err := s.db.Blob().Get(txn.Blob(), []byte(statsTotalKey))
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf(
			"corrupt registration counter: %d bytes",
			len(data),
		)
	}
	return binary.BigEndian.Uint64(data), nil
}

func (s *Store) incrementTotalRegistrations(txn *database.Txn) error {
	blob := s.db.Blob()
	var total uint64
	data, err := blob.Get(txn.Blob(), []byte(statsTotalKey))
	if err != nil {
		if !errors.Is(err, database.ErrKeyNotFound) {
			return err
		}
	} else if len(data) == 8 {
		total = binary.BigEndian.Uint64(data)
	}
	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, total+1)
	return blob.Set(txn.Blob(), []byte(statsTotalKey), val)
}

// commitId derives the commit reference returned to callers as a receipt
// for a committed write
func commitId(key, value []byte) string {
	h := sha256.New()
	h.Write(key)
	h.Write(value)
	return hex.EncodeToString(h.Sum(nil))[:32]
}
