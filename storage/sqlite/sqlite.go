// Package sqlite is a durable Store on a single sqlite table.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/defistate/clamm-engine/storage"
	"github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS words (
	key   BLOB PRIMARY KEY,
	value BLOB NOT NULL
)`

type Store struct {
	db *sql.DB
}

// Open opens the database named by dsn, creating the words table if needed.
// ":memory:" gives a private in-memory database.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", dsn, err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(key common.Hash) (common.Hash, error) {
	var v []byte
	err := s.db.QueryRow("SELECT value FROM words WHERE key = ?", key.Bytes()).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return common.Hash{}, nil
	}
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(v), nil
}

// Write applies batch in one transaction.
func (s *Store) Write(batch storage.Batch) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	upsert, err := tx.Prepare("INSERT INTO words (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value")
	if err != nil {
		return err
	}
	defer upsert.Close()
	del, err := tx.Prepare("DELETE FROM words WHERE key = ?")
	if err != nil {
		return err
	}
	defer del.Close()

	for k, v := range batch {
		if v == (common.Hash{}) {
			_, err = del.Exec(k.Bytes())
		} else {
			_, err = upsert.Exec(k.Bytes(), v.Bytes())
		}
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Len returns the number of stored words.
func (s *Store) Len() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM words").Scan(&n)
	return n, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
