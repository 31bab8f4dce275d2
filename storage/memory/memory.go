// Package memory is a Store held in process memory.
package memory

import (
	"sync"

	"github.com/defistate/clamm-engine/storage"
	"github.com/ethereum/go-ethereum/common"
)

// Store is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	words map[common.Hash]common.Hash
}

func New() *Store {
	return &Store{words: make(map[common.Hash]common.Hash)}
}

func (s *Store) Get(key common.Hash) (common.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.words[key], nil
}

func (s *Store) Write(batch storage.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range batch {
		if v == (common.Hash{}) {
			delete(s.words, k)
			continue
		}
		s.words[k] = v
	}
	return nil
}

// Len returns the number of nonzero words held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}

func (s *Store) Close() error {
	return nil
}
