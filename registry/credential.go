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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/imprint-io/imprint/database"
)

// issueCredential mints one soulbound credential inside an open read-write
// transaction: a sequence-numbered, indivisible receipt whose authority is
// retained by the store. There is no transfer operation anywhere in this
// package, and the stored authority field names the store's configured
// identity, so the registrant can never move or revoke the credential.
// The mint commits together with the content record or not at all
func (s *Store) issueCredential(
	txn *database.Txn,
	holder string,
	issuedAt int64,
) (uint64, error) {
	blob := s.db.Blob()
	// Next id from the mint sequence
	var nextId uint64 = 1
	seqRaw, err := blob.Get(txn.Blob(), []byte(credentialSeqKey))
	if err != nil {
		if !errors.Is(err, database.ErrKeyNotFound) {
			return 0, err
		}
	} else {
		if len(seqRaw) != 8 {
			return 0, fmt.Errorf(
				"corrupt credential sequence: %d bytes",
				len(seqRaw),
			)
		}
		nextId = binary.BigEndian.Uint64(seqRaw) + 1
	}
	seqVal := make([]byte, 8)
	binary.BigEndian.PutUint64(seqVal, nextId)
	if err := blob.Set(txn.Blob(), []byte(credentialSeqKey), seqVal); err != nil {
		return 0, err
	}
	cred := Credential{
		Id:        nextId,
		Holder:    holder,
		Authority: s.authority,
		Frozen:    true,
		IssuedAt:  issuedAt,
	}
	credData, err := json.Marshal(&cred)
	if err != nil {
		return 0, err
	}
	if err := blob.Set(txn.Blob(), CredentialKey(nextId), credData); err != nil {
		return 0, err
	}
	return nextId, nil
}

// GetCredential looks up a minted credential by id. Returns nil when no
// credential exists with the given id
func (s *Store) GetCredential(id uint64) (*Credential, error) {
	txn := s.db.BlobTxn(false)
	defer txn.Release()
	data, err := s.db.Blob().Get(txn.Blob(), CredentialKey(id))
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("corrupt credential %d: %w", id, err)
	}
	return &cred, nil
}
