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
	"errors"
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

const (
	DefaultRetryMaxAttempts = 3
	DefaultRetryBackoff     = 100 * time.Millisecond
)

// RetryPolicy wraps a write operation with bounded retries. Only errors the
// Retryable predicate accepts are retried; terminal errors (duplicate,
// insufficient stake, malformed input) surface immediately. The wrapped
// function must re-check its preconditions on every attempt, since a
// conflict retry re-runs the whole transaction
type RetryPolicy struct {
	Retryable   func(error) bool
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy returns the retry policy used for ledger writes when
// none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultRetryMaxAttempts,
		Backoff:     DefaultRetryBackoff,
		Retryable:   IsRetryable,
	}
}

// IsRetryable reports whether an error is a known-transient ledger failure
func IsRetryable(err error) bool {
	return errors.Is(err, badger.ErrConflict) ||
		errors.Is(err, ErrLedgerUnavailable) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Do runs fn with bounded retries and exponential backoff, respecting
// context cancellation between attempts
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	backoff := p.Backoff
	var lastErr error
	for attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt < attempts-1 && backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return lastErr
}
