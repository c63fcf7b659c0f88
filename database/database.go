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

package database

import (
	"errors"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrKeyNotFound is returned when a requested ledger key does not exist
var ErrKeyNotFound = errors.New("key not found")

// Config contains the configuration for a Database instance
type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	DataDir      string
}

// Database combines the ledger blob store, which is the authoritative
// append-only record of registrations and flags, with a metadata index used
// for candidate enumeration during near-duplicate search. The blob store
// provides serializable per-key transactions; the metadata index is derived
// data and can be rebuilt from the blob store.
type Database struct {
	logger   *slog.Logger
	blob     *BlobStore
	metadata *MetadataStore
	dataDir  string
}

// New creates a new database instance with optional persistence using the
// provided data directory. An empty data directory selects in-memory
// storage for both stores
func New(cfg *Config) (*Database, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	blobDb, err := NewBlobStore(cfg.DataDir, logger, cfg.PromRegistry)
	if err != nil {
		return nil, err
	}
	metadataDb, err := NewMetadataStore(cfg.DataDir, logger)
	if err != nil {
		// Don't leave the blob store open on partial init
		blobErr := blobDb.Close()
		return nil, errors.Join(err, blobErr)
	}
	db := &Database{
		logger:   logger,
		blob:     blobDb,
		metadata: metadataDb,
		dataDir:  cfg.DataDir,
	}
	return db, nil
}

// Blob returns the underlying blob store instance
func (d *Database) Blob() *BlobStore {
	return d.blob
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() *MetadataStore {
	return d.metadata
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Transaction starts a new database transaction spanning both stores and
// returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// BlobTxn starts a new transaction against the blob store only
func (d *Database) BlobTxn(readWrite bool) *Txn {
	return NewBlobOnlyTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	metadataErr := d.metadata.Close()
	err = errors.Join(err, metadataErr)
	blobErr := d.blob.Close()
	err = errors.Join(err, blobErr)
	return err
}
