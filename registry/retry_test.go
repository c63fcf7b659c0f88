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

package registry_test

import (
	"context"
	"errors"
	"testing"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/imprint-io/imprint/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryTransientError(t *testing.T) {
	policy := registry.RetryPolicy{
		Retryable:   registry.IsRetryable,
		MaxAttempts: 3,
	}
	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return badger.ErrConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryTerminalError(t *testing.T) {
	policy := registry.DefaultRetryPolicy()
	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return registry.ErrDuplicateFingerprint
	})
	assert.ErrorIs(t, err, registry.ErrDuplicateFingerprint)
	assert.Equal(t, 1, calls)
}

func TestRetryAttemptsBounded(t *testing.T) {
	policy := registry.RetryPolicy{
		Retryable:   registry.IsRetryable,
		MaxAttempts: 4,
	}
	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return badger.ErrConflict
	})
	assert.ErrorIs(t, err, badger.ErrConflict)
	assert.Equal(t, 4, calls)
}

func TestRetryZeroAttemptsRunsOnce(t *testing.T) {
	policy := registry.RetryPolicy{}
	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return registry.ErrLedgerUnavailable
	})
	assert.ErrorIs(t, err, registry.ErrLedgerUnavailable)
	assert.Equal(t, 1, calls)
}

func TestRetryContextCanceled(t *testing.T) {
	policy := registry.DefaultRetryPolicy()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := policy.Do(ctx, func() error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestRetryCancelBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := registry.RetryPolicy{
		Retryable:   registry.IsRetryable,
		MaxAttempts: 5,
		Backoff:     registry.DefaultRetryBackoff,
	}
	calls := 0
	err := policy.Do(ctx, func() error {
		calls++
		cancel()
		return badger.ErrConflict
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, registry.IsRetryable(badger.ErrConflict))
	assert.True(t, registry.IsRetryable(registry.ErrLedgerUnavailable))
	assert.True(t, registry.IsRetryable(context.DeadlineExceeded))
	assert.False(t, registry.IsRetryable(registry.ErrDuplicateFingerprint))
	assert.False(t, registry.IsRetryable(registry.ErrInsufficientStake))
	assert.False(t, registry.IsRetryable(errors.New("boom")))
	// Wrapped transient errors still match
	assert.True(
		t,
		registry.IsRetryable(
			errors.Join(errors.New("attempt failed"), badger.ErrConflict),
		),
	)
}
