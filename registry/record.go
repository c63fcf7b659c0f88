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
	"encoding/binary"

	"github.com/imprint-io/imprint/fingerprint"
)

// Ledger key namespaces. Records and flags live in separate namespaces of
// the same keyspace; the flag key carries the index as a fixed-width
// big-endian suffix, which makes flag lookup O(1) without a secondary index
const (
	recordKeyPrefix     = "reg_"
	flagKeyPrefix       = "flg_"
	credentialKeyPrefix = "crd_"
	credentialSeqKey    = "crd_seq"
	statsTotalKey       = "stat_total_registrations"
)

// ContentRecord is the immutable registration record for a single content
// item, stored in the ledger keyed by its perceptual hash. FlagCount is the
// only field that changes after creation, and only via Flag()
type ContentRecord struct {
	Fingerprint       string `json:"fingerprint"`
	CreatorName       string `json:"creator_name"`
	CreatorIdentity   string `json:"creator_identity"`
	Platform          string `json:"platform"`
	RegisteredAt      int64  `json:"registered_at"`
	CredentialId      uint64 `json:"credential_id"`
	FlagCount         uint64 `json:"flag_count"`
	ParentFingerprint string `json:"parent_fingerprint,omitempty"`
	DerivedBy         string `json:"derived_by,omitempty"`
}

// IsOriginal returns true when the record has no parent link
func (r *ContentRecord) IsOriginal() bool {
	return r.ParentFingerprint == ""
}

// MisuseFlag is an immutable misuse report filed against a registered
// content item. Flags are indexed sequentially from zero per fingerprint
type MisuseFlag struct {
	Fingerprint string `json:"fingerprint"`
	Index       uint64 `json:"index"`
	Description string `json:"description"`
	FiledAt     int64  `json:"filed_at"`
}

// Credential is the on-ledger soulbound registration receipt. All authority
// fields name the issuing store, never the holder, so the credential can
// never be transferred or revoked by the registrant
type Credential struct {
	Id        uint64 `json:"id"`
	Holder    string `json:"holder"`
	Authority string `json:"authority"`
	Frozen    bool   `json:"frozen"`
	IssuedAt  int64  `json:"issued_at"`
}

// RecordKey returns the ledger key for a content record
func RecordKey(fp fingerprint.Fingerprint) []byte {
	return []byte(recordKeyPrefix + fp.String())
}

// FlagKey returns the ledger key for a misuse flag
func FlagKey(fp fingerprint.Fingerprint, index uint64) []byte {
	key := make([]byte, 0, len(flagKeyPrefix)+fingerprint.HexLength+8)
	key = append(key, []byte(flagKeyPrefix)...)
	key = append(key, []byte(fp.String())...)
	key = binary.BigEndian.AppendUint64(key, index)
	return key
}

// CredentialKey returns the ledger key for a soulbound credential
func CredentialKey(id uint64) []byte {
	key := make([]byte, 0, len(credentialKeyPrefix)+8)
	key = append(key, []byte(credentialKeyPrefix)...)
	key = binary.BigEndian.AppendUint64(key, id)
	return key
}
