package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Journal stages writes over a Store until Commit.
// Reads see the staged words first. A Journal is not safe for concurrent use.
type Journal struct {
	store Store
	dirty Batch
}

// NewJournal returns an empty journal over store.
func NewJournal(store Store) *Journal {
	return &Journal{
		store: store,
		dirty: make(Batch),
	}
}

func (j *Journal) Get(key common.Hash) (common.Hash, error) {
	if v, ok := j.dirty[key]; ok {
		return v, nil
	}
	return j.store.Get(key)
}

// Write stages batch. Nothing reaches the underlying store until Commit.
func (j *Journal) Write(batch Batch) error {
	for k, v := range batch {
		j.dirty[k] = v
	}
	return nil
}

// Dirty returns the number of staged words.
func (j *Journal) Dirty() int {
	return len(j.dirty)
}

// Commit writes every staged word to the store in one batch and resets the journal.
func (j *Journal) Commit() error {
	if len(j.dirty) == 0 {
		return nil
	}
	if err := j.store.Write(j.dirty); err != nil {
		return fmt.Errorf("failed to commit %d words: %w", len(j.dirty), err)
	}
	j.dirty = make(Batch)
	return nil
}

// Discard drops every staged word.
func (j *Journal) Discard() {
	j.dirty = make(Batch)
}
