package storage

// Map is a typed dictionary. A missing key reports ok == false and the zero value.
type Map[K comparable, V any] interface {
	Get(key K) (value V, ok bool, err error)
	Set(key K, value V) error
	Delete(key K) error
}

// MemoryMap is a Map held in a Go map.
type MemoryMap[K comparable, V any] struct {
	m map[K]V
}

func NewMemoryMap[K comparable, V any]() *MemoryMap[K, V] {
	return &MemoryMap[K, V]{m: make(map[K]V)}
}

func (m *MemoryMap[K, V]) Get(key K) (V, bool, error) {
	v, ok := m.m[key]
	return v, ok, nil
}

func (m *MemoryMap[K, V]) Set(key K, value V) error {
	m.m[key] = value
	return nil
}

func (m *MemoryMap[K, V]) Delete(key K) error {
	delete(m.m, key)
	return nil
}

// Len returns the number of entries.
func (m *MemoryMap[K, V]) Len() int {
	return len(m.m)
}

// Range calls fn for every entry until fn returns false. Order is unspecified.
func (m *MemoryMap[K, V]) Range(fn func(K, V) bool) {
	for k, v := range m.m {
		if !fn(k, v) {
			return
		}
	}
}

// Overlay buffers writes over a base Map until Flush.
type Overlay[K comparable, V any] struct {
	base    Map[K, V]
	writes  map[K]V
	deleted map[K]struct{}
}

func NewOverlay[K comparable, V any](base Map[K, V]) *Overlay[K, V] {
	return &Overlay[K, V]{
		base:    base,
		writes:  make(map[K]V),
		deleted: make(map[K]struct{}),
	}
}

func (o *Overlay[K, V]) Get(key K) (V, bool, error) {
	if _, gone := o.deleted[key]; gone {
		var zero V
		return zero, false, nil
	}
	if v, ok := o.writes[key]; ok {
		return v, true, nil
	}
	return o.base.Get(key)
}

func (o *Overlay[K, V]) Set(key K, value V) error {
	delete(o.deleted, key)
	o.writes[key] = value
	return nil
}

func (o *Overlay[K, V]) Delete(key K) error {
	delete(o.writes, key)
	o.deleted[key] = struct{}{}
	return nil
}

// Flush applies the buffered writes to the base map and empties the overlay.
func (o *Overlay[K, V]) Flush() error {
	for k := range o.deleted {
		if err := o.base.Delete(k); err != nil {
			return err
		}
	}
	for k, v := range o.writes {
		if err := o.base.Set(k, v); err != nil {
			return err
		}
	}
	o.Discard()
	return nil
}

// Discard drops the buffered writes.
func (o *Overlay[K, V]) Discard() {
	clear(o.writes)
	clear(o.deleted)
}
