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
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/prometheus/client_golang/prometheus"
)

const blobGcInterval = 5 * time.Minute

// BlobStore is the badger-backed ledger store. Badger transactions are
// serializable, which is what guarantees that two concurrent writes against
// the same record key cannot both commit: the loser fails with
// badger.ErrConflict and is retried by the caller's retry policy.
type BlobStore struct {
	promRegistry prometheus.Registerer
	db           *badger.DB
	logger       *slog.Logger
	gcTicker     *time.Ticker
	gcStopCh     chan struct{}
	gcWg         sync.WaitGroup
	dataDir      string
	gcEnabled    bool
}

// NewBlobStore creates a new blob store. An empty dataDir selects an
// in-memory badger instance, used for tests and ephemeral runs
func NewBlobStore(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*BlobStore, error) {
	store := &BlobStore{
		dataDir:      dataDir,
		logger:       logger,
		promRegistry: promRegistry,
		// GC only makes sense for disk-backed value logs
		gcEnabled: dataDir != "",
	}
	var blobDb *badger.DB
	var err error
	if dataDir == "" {
		badgerOpts := badger.DefaultOptions("").
			WithLogger(NewBadgerLogger(logger)).
			// The default INFO logging is a bit verbose
			WithLoggingLevel(badger.WARNING).
			WithInMemory(true)
		blobDb, err = badger.Open(badgerOpts)
		if err != nil {
			return nil, err
		}
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		blobDir := filepath.Join(dataDir, "blob")
		badgerOpts := badger.DefaultOptions(blobDir).
			WithLogger(NewBadgerLogger(logger)).
			WithLoggingLevel(badger.WARNING).
			WithCompression(options.Snappy)
		blobDb, err = badger.Open(badgerOpts)
		if err != nil {
			return nil, err
		}
	}
	store.db = blobDb
	store.init()
	return store, nil
}

func (b *BlobStore) init() {
	if b.promRegistry != nil {
		b.registerBlobMetrics()
	}
	if b.gcEnabled {
		b.gcTicker = time.NewTicker(blobGcInterval)
		b.gcStopCh = make(chan struct{})
		b.gcWg.Add(1)
		go b.blobGc(b.gcTicker, b.gcStopCh)
	}
}

func (b *BlobStore) blobGc(t *time.Ticker, stop <-chan struct{}) {
	defer b.gcWg.Done()
	for {
		select {
		case <-t.C:
		again:
			err := b.db.RunValueLogGC(0.5)
			if err != nil {
				// Log any actual errors
				if !errors.Is(err, badger.ErrNoRewrite) {
					b.logger.Warn(
						fmt.Sprintf("blob DB: GC failure: %s", err),
						"component", "database",
					)
				}
			} else {
				// Run it again if it just ran successfully
				goto again
			}
		case <-stop:
			return
		}
	}
}

// DB returns the database handle
func (b *BlobStore) DB() *badger.DB {
	return b.db
}

// NewTransaction creates a new badger transaction
func (b *BlobStore) NewTransaction(update bool) *badger.Txn {
	return b.db.NewTransaction(update)
}

// Get retrieves a value within a transaction. A missing key is reported as
// ErrKeyNotFound
func (b *BlobStore) Get(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Set stores a key-value pair within a transaction
func (b *BlobStore) Set(txn *badger.Txn, key, val []byte) error {
	return txn.Set(key, val)
}

// Close stops the GC goroutine and closes the database
func (b *BlobStore) Close() error {
	if b.gcTicker != nil {
		b.gcTicker.Stop()
		if b.gcStopCh != nil {
			close(b.gcStopCh)
			b.gcStopCh = nil
		}
		// Wait for GC goroutine to finish
		b.gcWg.Wait()
		b.gcTicker = nil
	}
	return b.db.Close()
}
