// FILE: lanchess/internal/storage/storage.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	writeQueueSize  = 1000
	writerDrainWait = 2 * time.Second
)

// Store handles SQLite database operations. Anything authoritative
// (accounts, game rows, outcome + rating application) is written
// synchronously in a transaction; append-only display data (move
// history rows) goes through a buffered async writer.
type Store struct {
	db      *sql.DB
	path    string
	queue   chan func(*sql.Tx) error
	healthy atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewStore opens the database and starts the async writer.
func NewStore(dataSourceName string, devMode bool) (*Store, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Foreign keys always; WAL only in development, where concurrent
	// readers are the common case.
	pragmas := []string{"PRAGMA foreign_keys = ON"}
	if devMode {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		db:     db,
		path:   dataSourceName,
		queue:  make(chan func(*sql.Tx) error, writeQueueSize),
		cancel: cancel,
	}
	s.healthy.Store(true)

	s.wg.Add(1)
	go s.runWriter(ctx)

	return s, nil
}

// IsHealthy returns true if the storage is operational
func (s *Store) IsHealthy() bool {
	return s.healthy.Load()
}

// runWriter applies queued writes until the store closes, then flushes
// whatever is still pending.
func (s *Store) runWriter(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case fn := <-s.queue:
			s.apply(fn)
		case <-ctx.Done():
			s.flushQueue()
			return
		}
	}
}

// flushQueue drains pending writes at shutdown. The deadline keeps a
// wedged database from blocking process exit.
func (s *Store) flushQueue() {
	deadline := time.Now().Add(writerDrainWait)
	for time.Now().Before(deadline) {
		select {
		case fn := <-s.queue:
			s.apply(fn)
		default:
			return
		}
	}
}

// apply runs one queued write in its own transaction. The first failed
// write flips the store to degraded; later queued writes are discarded
// until the process restarts against a working database.
func (s *Store) apply(fn func(*sql.Tx) error) {
	if !s.healthy.Load() {
		return
	}

	err := func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	}()
	if err != nil {
		log.Printf("Storage degraded: async write failed: %v", err)
		s.healthy.Store(false)
	}
}

// enqueue submits an async write; writes are dropped with a log line
// when the queue is full or the store is degraded. Callers must only
// enqueue non-authoritative data.
func (s *Store) enqueue(label string, fn func(*sql.Tx) error) {
	if !s.healthy.Load() {
		return
	}
	select {
	case s.queue <- fn:
	default:
		log.Printf("Storage write queue full, dropping %s", label)
	}
}

// Close stops the writer, waits for the final flush, and closes the
// database. Safe to call once.
func (s *Store) Close() error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(writerDrainWait):
		log.Printf("Warning: storage writer shutdown timeout, some writes may be lost")
	}

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitDB creates the database schema
func (s *Store) InitDB() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return tx.Commit()
}

// DeleteDB removes the database file
func (s *Store) DeleteDB() error {
	if err := s.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete database file: %w", err)
	}

	return nil
}
