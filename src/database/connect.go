package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrUnreachable means the database file cannot be opened or fails the
// engine's native integrity check.
var ErrUnreachable = errors.New("database unreachable")

// Connect opens the database at path with foreign-key enforcement
// enabled and verifies it with the engine's native integrity check.
// The migration tooling holds exactly one connection for its run.
func Connect(path string, cfg Config) (*gorm.DB, error) {
	dsn := path
	if !strings.HasPrefix(path, "file:") {
		// In-memory DSNs used by tests are passed through untouched.
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("%w: resolve path %s: %v", ErrUnreachable, path, err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return nil, fmt.Errorf("%w: create database directory: %v", ErrUnreachable, err)
		}
		dsn = "file:" + abs
	}
	if strings.Contains(dsn, "?") {
		dsn += "&_foreign_keys=on"
	} else {
		dsn += "?_foreign_keys=on"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.LogLevel(cfg.GormLogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnreachable, path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: unwrap sql.DB: %v", ErrUnreachable, err)
	}
	// One writer, exclusive run window. Keep the pool at a single
	// connection so PRAGMAs and transactions see the same session.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	if defects := IntegrityDefects(db); len(defects) > 0 {
		return nil, fmt.Errorf("%w: integrity check: %s", ErrUnreachable, strings.Join(defects, "; "))
	}

	logrus.WithField("path", path).Info("[database] connection established")
	return db, nil
}

// IntegrityDefects runs PRAGMA integrity_check and returns the defect
// lines, empty when the file is structurally sound.
func IntegrityDefects(db *gorm.DB) []string {
	var results []string
	if err := db.Raw("PRAGMA integrity_check").Scan(&results).Error; err != nil {
		return []string{fmt.Sprintf("integrity_check query failed: %v", err)}
	}
	if len(results) == 1 && results[0] == "ok" {
		return nil
	}
	return results
}
