/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package storage

import (
	"encoding/json"
	"errors"
	"path/filepath"

	"github.com/tech7infopro-dev/AHMEDTECH/internal/entity"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Keys of the durable blobs the panel keeps next to the entity tables.
// The moral equivalent of the old localStorage keys.
const (
	KeyEncryptedLogs = "encrypted_logs"
	KeyLogKey        = "log_encryption_key"
	KeySyncQueue     = "sync_queue"
	KeySmartDelay    = "smart_delay"
	RatePrefix       = "rate_" // One blob per rate-limited identifier
)

// Blob is one durable keyed value
type Blob struct {
	Key   string `gorm:"primaryKey"`
	Value []byte
}

// Store is a small durable key/value surface. Everything that is not an
// entity collection (queues, counters, the encrypted log) goes through here.
type Store interface {
	Get(key string) ([]byte, bool, error)           // Retrieves a value, the bool telling whether it existed
	Put(key string, value []byte) error             // Inserts or replaces a value
	Delete(key string) error                        // Removes a value, absent is fine
	GetJSON(key string, out any) (bool, error)      // Get plus json decoding into out
	PutJSON(key string, v any) error                // Put of the json encoding of v
	Keys(prefix string) ([]string, error)           // All keys starting with prefix
}

// Implementation of the store using a SQLite DB
type SQLiteStore struct {
	db *gorm.DB
}

func NewSQLiteStore(db *gorm.DB) Store {
	return &SQLiteStore{db}
}

func (s *SQLiteStore) Get(key string) ([]byte, bool, error) {
	var blob Blob
	err := s.db.First(&blob, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return blob.Value, true, nil
}

func (s *SQLiteStore) Put(key string, value []byte) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&Blob{Key: key, Value: value}).Error
}

func (s *SQLiteStore) Delete(key string) error {
	return s.db.Delete(&Blob{}, "key = ?", key).Error
}

func (s *SQLiteStore) GetJSON(key string, out any) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, err
	}
	return true, nil
}

func (s *SQLiteStore) PutJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(key, raw)
}

func (s *SQLiteStore) Keys(prefix string) ([]string, error) {
	var keys []string
	err := s.db.Model(&Blob{}).Where("key LIKE ?", prefix+"%").Pluck("key", &keys).Error
	return keys, err
}

// Open opens (or creates) the panel database under dir and migrates every table.
// When successful, error is nil
func Open(dir string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "panel.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenMemory opens a throwaway in-memory database, used by the tests
func OpenMemory() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the entity tables and the blob table
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.FreeMAC{},
		&entity.FreeXtream{},
		&entity.Ticket{},
		&entity.App{},
		&entity.TelegramLinks{},
		&Blob{},
	)
}
