package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"inkboard/src/pkg/log"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

var sqlitePragmas = []string{
	"PRAGMA synchronous = NORMAL",
	"PRAGMA cache_size = 5000",
	"PRAGMA busy_timeout = 5000",
}

// SQLiteDatabase implements the Database interface for SQLite
type SQLiteDatabase struct {
	BaseDatabase
}

// Open opens a connection to the SQLite database. The pool is limited to one
// connection so that in-memory databases and open transactions are shared by
// every query.
func (s *SQLiteDatabase) Open(dataSourceName string) error {
	ctx := context.Background()
	s.logger.Info(ctx, "Opening SQLite database", log.Fields{"dbPath": filepath.Base(dataSourceName)})

	dsn := dataSourceName
	if dataSourceName != MemoryDSN {
		dbDir := filepath.Dir(dataSourceName)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			s.logger.Error(ctx, "Failed to create database directory", log.Fields{"error": err, "directory": dbDir})
			return fmt.Errorf("failed to create database directory '%s': %w", dbDir, err)
		}
		dsn += "?_foreign_keys=on&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		s.logger.Error(ctx, "Failed to open SQLite database", log.Fields{"error": err})
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range sqlitePragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			s.logger.Error(ctx, "Failed to set SQLite pragma", log.Fields{"error": err, "pragma": pragma})
			return fmt.Errorf("failed to set SQLite pragma %q: %w", pragma, err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		s.logger.Error(ctx, "Failed to verify database connection", log.Fields{"error": err})
		return fmt.Errorf("failed to verify database connection: %w", err)
	}

	s.db = db
	s.logger.Info(ctx, "SQLite database opened successfully", nil)
	return nil
}

// Close closes the connection to the SQLite database
func (s *SQLiteDatabase) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error(context.Background(), "Failed to close SQLite database", log.Fields{"error": err})
		return fmt.Errorf("failed to close SQLite database: %w", err)
	}
	s.db = nil
	s.logger.Info(context.Background(), "SQLite database closed", nil)
	return nil
}
