package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// List is an append-only sequence of records in a Store.
// Its length lives in a word of its own next to the entries.
type List[V any] struct {
	store   Store
	length  common.Hash
	entries *WordMap[uint64, V]
}

func NewList[V any](store Store, namespace []byte, codec Codec[V]) *List[V] {
	return &List[V]{
		store:   store,
		length:  Slot(namespace, []byte("len"), 0),
		entries: NewWordMap[uint64, V](store, namespace, Uint64Key, codec),
	}
}

func (l *List[V]) Len() (uint64, error) {
	w, err := l.store.Get(l.length)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(w[24:]), nil
}

// At returns the i-th entry. An entry whose words are all zero reads as the zero value.
func (l *List[V]) At(i uint64) (V, error) {
	n, err := l.Len()
	if err != nil {
		var zero V
		return zero, err
	}
	if i >= n {
		var zero V
		return zero, fmt.Errorf("index %d out of range for list of %d", i, n)
	}
	v, _, err := l.entries.Get(i)
	return v, err
}

func (l *List[V]) Append(v V) error {
	n, err := l.Len()
	if err != nil {
		return err
	}
	if err := l.entries.Set(n, v); err != nil {
		return err
	}
	var w common.Hash
	binary.BigEndian.PutUint64(w[24:], n+1)
	return l.store.Write(Batch{l.length: w})
}

// All returns every entry in order.
func (l *List[V]) All() ([]V, error) {
	n, err := l.Len()
	if err != nil {
		return nil, err
	}
	out := make([]V, 0, n)
	for i := uint64(0); i < n; i++ {
		v, _, err := l.entries.Get(i)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// AddressCodec stores an address in the low 20 bytes of a word.
type AddressCodec struct{}

func (AddressCodec) Words() int { return 1 }

func (AddressCodec) Encode(a common.Address) []common.Hash {
	return []common.Hash{common.BytesToHash(a.Bytes())}
}

func (AddressCodec) Decode(words []common.Hash) (common.Address, error) {
	return common.BytesToAddress(words[0][12:]), nil
}

// Uint64Codec stores a uint64 in the low eight bytes of a word.
type Uint64Codec struct{}

func (Uint64Codec) Words() int { return 1 }

func (Uint64Codec) Encode(x uint64) []common.Hash {
	var w common.Hash
	binary.BigEndian.PutUint64(w[24:], x)
	return []common.Hash{w}
}

func (Uint64Codec) Decode(words []common.Hash) (uint64, error) {
	return binary.BigEndian.Uint64(words[0][24:]), nil
}
