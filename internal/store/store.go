// Package store implements the Settings Store (§4.1): the single source of
// truth for desired camera state, backed by SQLite through GORM. All
// mutations are atomic and observable by later reads within the same
// process; no other component is permitted to hold desired state across a
// reconcile tick.
package store

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ravensperch/internal/errs"
	"ravensperch/internal/model"
)

// Store is the Settings Store. All exported methods are safe for concurrent
// use: each one holds the Store's own mutex for its whole duration, so
// calls are serialized one at a time. No method opens a transaction.
type Store struct {
	db *gorm.DB
	mu sync.Mutex
}

// Open creates the data directory if needed, opens (or creates) the SQLite
// database at dbPath, and migrates the schema idempotently. A malformed
// existing database surfaces as errs.Corruption, which is fatal to the
// Reconciler per §4.8/§7.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errs.Wrap(errs.Corruption, err, "cannot create data directory")
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errs.Wrap(errs.Corruption, err, "cannot open settings store")
	}

	if err := db.AutoMigrate(&cameraRow{}, &settingRow{}, &logRow{}); err != nil {
		return nil, errs.Wrap(errs.Corruption, err, "schema migration failed")
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Get returns the camera record for uid, or errs.NotFound.
func (s *Store) Get(uid string) (model.Camera, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row cameraRow
	if err := s.db.First(&row, "uid = ?", uid).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return model.Camera{}, errs.New(errs.NotFound, "camera not found: "+uid)
		}
		return model.Camera{}, errs.Wrap(errs.Transient, err, "get camera failed")
	}
	return fromRow(row)
}

// List returns every camera record, in no particular order beyond stable
// primary-key ordering.
func (s *Store) List() ([]model.Camera, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []cameraRow
	if err := s.db.Order("uid").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(errs.Transient, err, "list cameras failed")
	}
	cameras := make([]model.Camera, 0, len(rows))
	for _, row := range rows {
		c, err := fromRow(row)
		if err != nil {
			return nil, errs.Wrap(errs.ProtocolError, err, "decode camera row failed")
		}
		cameras = append(cameras, c)
	}
	return cameras, nil
}

// Upsert atomically creates or replaces the camera record keyed by UID.
func (s *Store) Upsert(c model.Camera) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if c.CreatedAt.IsZero() {
		var existing cameraRow
		if err := s.db.First(&existing, "uid = ?", c.UID).Error; err == nil {
			c.CreatedAt = existing.CreatedAt
		} else {
			c.CreatedAt = now
		}
	}
	c.UpdatedAt = now

	row, err := toRow(c)
	if err != nil {
		return errs.Wrap(errs.ProtocolError, err, "encode camera row failed")
	}
	if err := s.db.Save(&row).Error; err != nil {
		return errs.Wrap(errs.Transient, err, "upsert camera failed")
	}
	return nil
}

// Delete removes the camera record for uid. Deleting an absent UID is not
// an error; callers that need to distinguish should Get first.
func (s *Store) Delete(uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Delete(&cameraRow{}, "uid = ?", uid).Error; err != nil {
		return errs.Wrap(errs.Transient, err, "delete camera failed")
	}
	return nil
}

// GetSetting returns the scalar setting value for key, or "" if unset.
func (s *Store) GetSetting(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row settingRow
	if err := s.db.First(&row, "key = ?", key).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", errs.Wrap(errs.Transient, err, "get setting failed")
	}
	return row.Value, nil
}

// SetSetting atomically sets a scalar setting value.
func (s *Store) SetSetting(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := settingRow{Key: key, Value: value}
	if err := s.db.Save(&row).Error; err != nil {
		return errs.Wrap(errs.Transient, err, "set setting failed")
	}
	return nil
}

// AppendLog writes an append-only log row for web-UI / diagnostic display.
func (s *Store) AppendLog(level, message string, cameraUID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := logRow{Level: level, Message: message, CameraUID: cameraUID}
	if err := s.db.Create(&row).Error; err != nil {
		return errs.Wrap(errs.Transient, err, "append log failed")
	}
	return nil
}
