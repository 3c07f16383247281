package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/manav03panchal/medtime/internal/logging"
)

// IntegrityStatus is the result of a database health check.
type IntegrityStatus struct {
	Healthy    bool      `json:"healthy"`
	LastCheck  time.Time `json:"last_check"`
	KeysRead   int       `json:"keys_read"`
	ErrorCount int       `json:"error_count"`
	Errors     []string  `json:"errors,omitempty"`
}

// CheckIntegrity reads up to limit values and reports any that fail.
func CheckIntegrity(db *DB, limit int) *IntegrityStatus {
	status := &IntegrityStatus{
		LastCheck: time.Now(),
		Healthy:   true,
	}

	if db == nil || db.db == nil {
		status.Healthy = false
		status.Errors = append(status.Errors, "database not initialized")
		return status
	}

	err := db.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 10
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid() && status.KeysRead < limit; it.Next() {
			item := it.Item()
			if err := item.Value(func([]byte) error { return nil }); err != nil {
				status.Errors = append(status.Errors, fmt.Sprintf("unreadable value at key: %s", item.Key()))
				status.ErrorCount++
			}
			status.KeysRead++
		}
		return nil
	})
	if err != nil {
		status.Errors = append(status.Errors, fmt.Sprintf("iteration error: %v", err))
		status.ErrorCount++
	}

	status.Healthy = status.ErrorCount == 0
	return status
}

// CreateBackup writes a full badger backup stream into dir and returns
// the file path.
func CreateBackup(db *DB, dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("backup directory is empty")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("medtime-%s.bak", time.Now().Format("20060102-150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer f.Close()

	if _, err := db.db.Backup(f, 0); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	logging.Info("database backup created", logging.KeyOperation, "backup", "path", path)
	return path, nil
}

// DefaultBackupDir returns the backups directory beside the database.
func DefaultBackupDir(dbPath string) string {
	if dbPath == "" {
		dbPath = DefaultPath()
	}
	return filepath.Join(filepath.Dir(dbPath), "backups")
}
