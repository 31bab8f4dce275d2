// Package leveldb is a durable Store on goleveldb.
package leveldb

import (
	"errors"
	"fmt"

	"github.com/defistate/clamm-engine/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/syndtr/goleveldb/leveldb"
	lvlstorage "github.com/syndtr/goleveldb/leveldb/storage"
)

type Store struct {
	db *leveldb.DB
}

// Open opens or creates a database in dir.
func Open(dir string) (*Store, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// NewMemory returns a Store backed by goleveldb's in-memory storage.
func NewMemory() (*Store, error) {
	db, err := leveldb.Open(lvlstorage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(key common.Hash) (common.Hash, error) {
	v, err := s.db.Get(key[:], nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return common.Hash{}, nil
	}
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(v), nil
}

func (s *Store) Write(batch storage.Batch) error {
	b := new(leveldb.Batch)
	for k, v := range batch {
		if v == (common.Hash{}) {
			b.Delete(k[:])
			continue
		}
		b.Put(k[:], v[:])
	}
	return s.db.Write(b, nil)
}

func (s *Store) Close() error {
	return s.db.Close()
}
