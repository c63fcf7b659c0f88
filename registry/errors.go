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

import "errors"

var (
	// ErrDuplicateFingerprint is returned when registering a fingerprint
	// that already has a record. Once registered, a fingerprint's origin
	// claim is permanent; callers should treat this as "already certified"
	// rather than a generic failure
	ErrDuplicateFingerprint = errors.New(
		"content fingerprint has already been registered",
	)

	// ErrInsufficientStake is returned when the caller-supplied stake does
	// not meet the configured minimum for the operation
	ErrInsufficientStake = errors.New("stake below required minimum")

	// ErrNotRegistered is returned when an operation requires an existing
	// content record and none exists
	ErrNotRegistered = errors.New("content not registered")

	// ErrFlagNotFound is returned when a flag lookup names an index with no
	// stored flag
	ErrFlagNotFound = errors.New("flag not found at the specified index")

	// ErrDescriptionTooShort is returned when a misuse report description
	// does not meet the minimum length
	ErrDescriptionTooShort = errors.New("flag description too short")

	// ErrLedgerUnavailable wraps transient ledger failures (conflicts,
	// timeouts). Reads may always be retried; writes are retried only by
	// the store's bounded retry policy, which re-checks preconditions on
	// each attempt
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// ErrLedgerMisconfigured is returned at construction time when required
	// ledger configuration is missing. This is fatal at startup, not a
	// per-request error
	ErrLedgerMisconfigured = errors.New("ledger misconfigured")
)
