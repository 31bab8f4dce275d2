package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeebo/blake3"
)

// Codec lays a record out over a fixed number of words.
// A record whose words are all zero is indistinguishable from a missing one.
type Codec[V any] interface {
	Words() int
	Encode(v V) []common.Hash
	Decode(words []common.Hash) (V, error)
}

// KeyFunc encodes a map key into bytes that are unique within a namespace.
type KeyFunc[K any] func(K) []byte

// WordMap is a Map whose records live in a Store.
type WordMap[K comparable, V any] struct {
	store     Store
	namespace []byte
	key       KeyFunc[K]
	codec     Codec[V]
}

func NewWordMap[K comparable, V any](store Store, namespace []byte, key KeyFunc[K], codec Codec[V]) *WordMap[K, V] {
	return &WordMap[K, V]{
		store:     store,
		namespace: namespace,
		key:       key,
		codec:     codec,
	}
}

func (m *WordMap[K, V]) Get(key K) (V, bool, error) {
	var zero V
	id := m.key(key)
	words := make([]common.Hash, m.codec.Words())
	present := false
	for i := range words {
		w, err := m.store.Get(Slot(m.namespace, id, i))
		if err != nil {
			return zero, false, err
		}
		words[i] = w
		present = present || w != (common.Hash{})
	}
	if !present {
		return zero, false, nil
	}
	v, err := m.codec.Decode(words)
	if err != nil {
		return zero, false, fmt.Errorf("failed to decode record %x: %w", id, err)
	}
	return v, true, nil
}

func (m *WordMap[K, V]) Set(key K, value V) error {
	words := m.codec.Encode(value)
	if len(words) != m.codec.Words() {
		return fmt.Errorf("codec produced %d words, want %d", len(words), m.codec.Words())
	}
	id := m.key(key)
	batch := make(Batch, len(words))
	for i, w := range words {
		batch[Slot(m.namespace, id, i)] = w
	}
	return m.store.Write(batch)
}

func (m *WordMap[K, V]) Delete(key K) error {
	id := m.key(key)
	batch := make(Batch, m.codec.Words())
	for i := 0; i < m.codec.Words(); i++ {
		batch[Slot(m.namespace, id, i)] = common.Hash{}
	}
	return m.store.Write(batch)
}

// Slot derives the key of the index-th word of record id.
func Slot(namespace, id []byte, index int) common.Hash {
	h := blake3.New()
	h.Write(namespace)
	h.Write(id)
	h.Write([]byte{byte(index)})
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

// Namespace joins a four-byte tag and an owner address into a WordMap namespace.
func Namespace(tag string, owner common.Address) []byte {
	return append([]byte(tag), owner.Bytes()...)
}

func Int16Key(k int16) []byte {
	return binary.BigEndian.AppendUint16(nil, uint16(k))
}

func Int32Key(k int32) []byte {
	return binary.BigEndian.AppendUint32(nil, uint32(k))
}

func Uint64Key(k uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, k)
}

func AddressKey(k common.Address) []byte {
	return k.Bytes()
}
