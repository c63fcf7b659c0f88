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

package event

import "time"

// RegistrationEventType is the event type for completed content registrations
const RegistrationEventType = EventType("registry.registration")

// RegistrationEvent is emitted after a content record and its soulbound
// credential have committed to the ledger
type RegistrationEvent struct {
	// Fingerprint is the registered perceptual hash, as 16 hex characters
	Fingerprint string
	// CreatorName is the display name recorded for the creator
	CreatorName string
	// Platform is the originating tool tag
	Platform string
	// ParentFingerprint is the fingerprint this content derives from, if any
	ParentFingerprint string
	// CredentialId is the id of the minted soulbound credential
	CredentialId uint64
	// CommitId is the ledger commit reference
	CommitId string
	// RegisteredAt is the ledger-assigned registration time
	RegisteredAt time.Time
}

// FlagEventType is the event type for filed misuse flags
const FlagEventType = EventType("registry.flag")

// FlagEvent is emitted after a misuse flag has committed to the ledger
type FlagEvent struct {
	// Fingerprint is the flagged content's perceptual hash
	Fingerprint string
	// Index is the zero-based flag index assigned by the ledger
	Index uint64
	// Description is the filed report text
	Description string
	// CommitId is the ledger commit reference
	CommitId string
	// FiledAt is the ledger-assigned filing time
	FiledAt time.Time
}
