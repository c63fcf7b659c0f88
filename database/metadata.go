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

	"github.com/glebarez/sqlite"
	"github.com/imprint-io/imprint/database/models"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// MetadataStore is a SQLite-backed index over registered fingerprints. It
// provides the candidate set for near-duplicate search
type MetadataStore struct {
	db      *gorm.DB
	logger  *slog.Logger
	dataDir string
}

// NewMetadataStore creates a SQLite metadata store. Uses an in-memory
// database if dataDir is empty
func NewMetadataStore(
	dataDir string,
	logger *slog.Logger,
) (*MetadataStore, error) {
	var metadataDb *gorm.DB
	var err error
	if dataDir == "" {
		// Use in-memory database when no data directory is specified, useful for testing
		// cache=shared allows multiple connections to share the same in-memory database
		metadataDb, err = gorm.Open(
			sqlite.Open("file::memory:?cache=shared"),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
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
		metadataDbPath := filepath.Join(dataDir, "metadata.sqlite")
		// WAL journal mode, disable sync on write
		metadataConnOpts := "_pragma=journal_mode(WAL)&_pragma=sync(OFF)"
		metadataDb, err = gorm.Open(
			sqlite.Open(
				fmt.Sprintf("file:%s?%s", metadataDbPath, metadataConnOpts),
			),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, err
		}
	}
	store := &MetadataStore{
		db:      metadataDb,
		dataDir: dataDir,
		logger:  logger,
	}
	// Configure tracing for GORM
	if err := store.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	// Create table schemas
	for _, model := range models.MigrateModels {
		store.logger.Debug(fmt.Sprintf("creating table: %#v", model))
		if err := store.db.AutoMigrate(model); err != nil {
			return store, err
		}
	}
	return store, nil
}

// DB returns the database handle
func (m *MetadataStore) DB() *gorm.DB {
	return m.db
}

// Transaction starts a new metadata transaction
func (m *MetadataStore) Transaction() *gorm.DB {
	return m.db.Begin()
}

// SetFingerprint upserts a fingerprint index row within a transaction
func (m *MetadataStore) SetFingerprint(
	row models.FingerprintIndex,
	txn *gorm.DB,
) error {
	tmpDb := m.db
	if txn != nil {
		tmpDb = txn
	}
	if result := tmpDb.Save(&row); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetFingerprints returns all fingerprint index rows. This is the candidate
// set scanned by near-duplicate search
func (m *MetadataStore) GetFingerprints(
	txn *gorm.DB,
) ([]models.FingerprintIndex, error) {
	tmpDb := m.db
	if txn != nil {
		tmpDb = txn
	}
	var ret []models.FingerprintIndex
	if result := tmpDb.Order("registered_at").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// Close closes the underlying database connection
func (m *MetadataStore) Close() error {
	sqlDb, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}
