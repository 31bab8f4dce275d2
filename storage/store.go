// Package storage is the persistence layer pool state is written through.
//
// A Store holds 32-byte words under 32-byte keys. Typed records are laid out over
// consecutive blake3-derived slots by a WordMap, and a Journal stages the words one
// engine operation writes so they reach the Store as a single batch or not at all.
package storage

import "github.com/ethereum/go-ethereum/common"

// Store is a flat key-value store of 32-byte words.
// A missing key reads as the zero word, and writing the zero word deletes the key.
type Store interface {
	Get(key common.Hash) (common.Hash, error)
	Write(batch Batch) error
}

// Batch is a set of word writes applied together.
type Batch map[common.Hash]common.Hash
