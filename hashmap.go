package memlayout

import (
	"encoding/binary"

	"github.com/alexhholmes/memlayout/internal/errs"
)

const (
	slotEmpty     uint32 = 0x0000_0000
	slotTombstone uint32 = 0x7fff_ffff
	slotHashBit   uint32 = 0x8000_0000
)

// SpecializedMap is the open-addressed hash table of spec §4.F: linear
// probing, soft-delete tombstones, auto-rehash at 50% load, one
// contiguous slot array `{u32 hash; K key; V value}` laid out by the
// Layout Engine so keys and values sit contiguously with each other
// (spec §3: "A slot is a struct {hash: u32, key: K, value: V} laid out
// by the Layout Engine"). Because the slot's TypeDescriptor is built the
// same way any other Struct is, the value field's padding and alignment
// come from its own child layout — the value_alignment bug the original
// source carried (reusing the key layout's alignment when padding before
// value) cannot occur here: computeStruct always asks each field for its
// own alignment.
type SpecializedMap[K comparable, V any] struct {
	keyAccess *Accessor[K]
	valAccess *Accessor[V]

	slotLayout  *ComputedLayout
	slotSize    uint64
	hashOffset  uint64
	keyOffset   uint64
	valueOffset uint64

	alloc Allocator
	buf   Buffer

	capacity uint64
	size     uint64
	modCount uint64

	hashFn func(K) (uint32, error)
	logger *telemetry
}

// MapOption configures a SpecializedMap at construction time.
type MapOption[K comparable, V any] func(*mapOpts[K, V])

type mapOpts[K comparable, V any] struct {
	presize uint64
	hashFn  func(K) (uint32, error)
	logger  *telemetry
}

// WithMapPresize hints the initial capacity; rounded up to
// max(2, next_pow2(presize)).
func WithMapPresize[K comparable, V any](n uint64) MapOption[K, V] {
	return func(o *mapOpts[K, V]) { o.presize = n }
}

// WithHasher overrides the default structural hash (Accessor.HashCode)
// with a user-supplied function, e.g. for keys that should hash on a
// logical identity narrower than their full encoded bytes.
func WithHasher[K comparable, V any](fn func(K) (uint32, error)) MapOption[K, V] {
	return func(o *mapOpts[K, V]) { o.hashFn = fn }
}

// WithMapLogger attaches a structured logger (spec §4.G); the default is
// a no-op.
func WithMapLogger[K comparable, V any](l *Logger) MapOption[K, V] {
	return func(o *mapOpts[K, V]) { o.logger = newTelemetry(l) }
}

// NewSpecializedMap builds an empty map over keys described by
// keyAccess and values described by valAccess, backed by buffers from
// alloc.
func NewSpecializedMap[K comparable, V any](keyAccess *Accessor[K], valAccess *Accessor[V], alloc Allocator, opts ...MapOption[K, V]) (*SpecializedMap[K, V], error) {
	const op = "NewSpecializedMap"

	o := mapOpts[K, V]{presize: 2, logger: newTelemetry(nil)}
	for _, f := range opts {
		f(&o)
	}
	if o.hashFn == nil {
		o.hashFn = keyAccess.HashCode
	}

	slotDesc := Struct([]FieldDescriptor{
		Field("hash", Primitive(KU32)),
		Field("key", keyAccess.desc),
		Field("value", valAccess.desc),
	})
	slotLayout, err := LayoutOf(slotDesc)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidLayout, op, err)
	}

	hashM, err := slotLayout.FindMember("hash")
	if err != nil {
		return nil, err
	}
	keyM, err := slotLayout.FindMember("key")
	if err != nil {
		return nil, err
	}
	valM, err := slotLayout.FindMember("value")
	if err != nil {
		return nil, err
	}

	capacity := nextPow2(o.presize)
	if capacity < 2 {
		capacity = 2
	}

	buf, err := alloc.Allocate(capacity*slotLayout.Size, slotLayout.Alignment)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, op, err)
	}

	m := &SpecializedMap[K, V]{
		keyAccess:   keyAccess,
		valAccess:   valAccess,
		slotLayout:  slotLayout,
		slotSize:    slotLayout.Size,
		hashOffset:  hashM.Offset,
		keyOffset:   keyM.Offset,
		valueOffset: valM.Offset,
		alloc:       alloc,
		buf:         buf,
		capacity:    capacity,
		hashFn:      o.hashFn,
		logger:      o.logger,
	}
	return m, nil
}

// Len returns the number of live entries.
func (m *SpecializedMap[K, V]) Len() uint64 { return m.size }

// Cap returns the current slot capacity.
func (m *SpecializedMap[K, V]) Cap() uint64 { return m.capacity }

func (m *SpecializedMap[K, V]) slot(i uint64) []byte {
	start := i * m.slotSize
	return m.buf.Bytes[start : start+m.slotSize]
}

func (m *SpecializedMap[K, V]) slotHash(s []byte) uint32 {
	return binary.NativeEndian.Uint32(s[m.hashOffset:])
}

func (m *SpecializedMap[K, V]) setSlotHash(s []byte, h uint32) {
	binary.NativeEndian.PutUint32(s[m.hashOffset:], h)
}

func (m *SpecializedMap[K, V]) slotKey(s []byte) (K, error) {
	return m.keyAccess.Get(Buffer{Bytes: s[m.keyOffset:]})
}

func (m *SpecializedMap[K, V]) setSlotKey(s []byte, k K) error {
	return m.keyAccess.Set(Buffer{Bytes: s[m.keyOffset:]}, k)
}

func (m *SpecializedMap[K, V]) slotValue(s []byte) (V, error) {
	return m.valAccess.Get(Buffer{Bytes: s[m.valueOffset:]})
}

func (m *SpecializedMap[K, V]) setSlotValue(s []byte, v V) error {
	return m.valAccess.Set(Buffer{Bytes: s[m.valueOffset:]}, v)
}

// tagHash ORs the high bit into h, the canonical "occupied" encoding
// (spec §4.F: "Any value with the high bit set ... is stored as
// user_hash | 0x8000_0000").
func tagHash(h uint32) uint32 { return h | slotHashBit }

func (m *SpecializedMap[K, V]) idx(h uint32) uint64 {
	return uint64(h) & (m.capacity - 1)
}

// probe walks the slot array starting at idx(tagged) looking for key.
// It returns the slot index and true if an occupied slot holding an
// equal key was found; otherwise it returns the first available slot
// (EMPTY or TOMBSTONE) encountered along the way and false, or
// (0, false, errs...) only on a genuine encode/decode failure.
func (m *SpecializedMap[K, V]) probe(op string, key K, tagged uint32) (foundIdx uint64, found bool, firstFree uint64, hasFree bool, err error) {
	start := m.idx(tagged)
	for step := uint64(0); step < m.capacity; step++ {
		i := (start + step) % m.capacity
		s := m.slot(i)
		h := m.slotHash(s)

		switch {
		case h == slotEmpty:
			if !hasFree {
				firstFree, hasFree = i, true
			}
			return 0, false, firstFree, hasFree, nil

		case h == slotTombstone:
			if !hasFree {
				firstFree, hasFree = i, true
			}

		case h == tagged:
			sk, derr := m.slotKey(s)
			if derr != nil {
				return 0, false, 0, false, errs.Wrap(errs.InvalidArgument, op, derr)
			}
			eq, eerr := m.keyAccess.Equal(sk, key)
			if eerr != nil {
				return 0, false, 0, false, errs.Wrap(errs.InvalidArgument, op, eerr)
			}
			if eq {
				return i, true, 0, false, nil
			}
		}
	}
	return 0, false, firstFree, hasFree, nil
}

// Get returns the value stored for key, if any.
func (m *SpecializedMap[K, V]) Get(key K) (V, bool, error) {
	const op = "SpecializedMap.Get"
	var zero V
	h, err := m.hashFn(key)
	if err != nil {
		return zero, false, errs.Wrap(errs.InvalidArgument, op, err)
	}
	tagged := tagHash(h)
	i, found, _, _, err := m.probe(op, key, tagged)
	if err != nil {
		return zero, false, err
	}
	if !found {
		return zero, false, nil
	}
	v, err := m.slotValue(m.slot(i))
	return v, true, err
}

// ContainsKey reports whether key has an entry.
func (m *SpecializedMap[K, V]) ContainsKey(key K) (bool, error) {
	_, ok, err := m.Get(key)
	return ok, err
}

// ContainsValue reports whether any entry's value equals val.
func (m *SpecializedMap[K, V]) ContainsValue(val V) (bool, error) {
	for i := uint64(0); i < m.capacity; i++ {
		s := m.slot(i)
		if m.slotHash(s)&slotHashBit == 0 {
			continue
		}
		sv, err := m.slotValue(s)
		if err != nil {
			return false, err
		}
		eq, err := m.valAccess.Equal(sv, val)
		if err != nil {
			return false, err
		}
		if eq {
			return true, nil
		}
	}
	return false, nil
}

// Put inserts or overwrites key -> value, returning the previous value
// and whether one existed.
func (m *SpecializedMap[K, V]) Put(key K, value V) (V, bool, error) {
	const op = "SpecializedMap.Put"
	var zero V

	h, err := m.hashFn(key)
	if err != nil {
		return zero, false, errs.Wrap(errs.InvalidArgument, op, err)
	}
	tagged := tagHash(h)

	i, found, firstFree, hasFree, err := m.probe(op, key, tagged)
	if err != nil {
		return zero, false, err
	}

	if found {
		s := m.slot(i)
		old, err := m.slotValue(s)
		if err != nil {
			return zero, false, err
		}
		if err := m.setSlotValue(s, value); err != nil {
			return zero, false, err
		}
		return old, true, nil
	}

	if !hasFree {
		// Table is completely full of tombstones/occupied slots with no
		// free slot found in one full cycle; force a rehash and retry
		// once against the freshly-grown table.
		if err := m.rehash(op); err != nil {
			return zero, false, err
		}
		return m.Put(key, value)
	}

	s := m.slot(firstFree)
	m.setSlotHash(s, tagged)
	if err := m.setSlotKey(s, key); err != nil {
		return zero, false, err
	}
	if err := m.setSlotValue(s, value); err != nil {
		return zero, false, err
	}
	m.size++
	m.modCount++

	if m.size == m.capacity/2 {
		if err := m.rehash(op); err != nil {
			return zero, false, err
		}
	}

	return zero, false, nil
}

// PutIfAbsent inserts key -> value only if key has no entry yet,
// returning the value already present when it does (carried from the
// original source's MemoryMap, absent from the distilled operation
// list).
func (m *SpecializedMap[K, V]) PutIfAbsent(key K, value V) (V, bool, error) {
	if existing, ok, err := m.Get(key); err != nil {
		var zero V
		return zero, false, err
	} else if ok {
		return existing, true, nil
	}
	_, _, err := m.Put(key, value)
	var zero V
	return zero, false, err
}

// Remove deletes key's entry, if any, returning its value.
func (m *SpecializedMap[K, V]) Remove(key K) (V, bool, error) {
	const op = "SpecializedMap.Remove"
	var zero V

	h, err := m.hashFn(key)
	if err != nil {
		return zero, false, errs.Wrap(errs.InvalidArgument, op, err)
	}
	tagged := tagHash(h)

	i, found, _, _, err := m.probe(op, key, tagged)
	if err != nil {
		return zero, false, err
	}
	if !found {
		return zero, false, nil
	}

	s := m.slot(i)
	v, err := m.slotValue(s)
	if err != nil {
		return zero, false, err
	}
	m.setSlotHash(s, slotTombstone)
	m.size--
	m.modCount++
	return v, true, nil
}

// rehash doubles capacity and re-probes every occupied slot into a fresh
// buffer, dropping tombstones (spec §4.F "Rehash").
func (m *SpecializedMap[K, V]) rehash(op string) error {
	newCap := m.capacity * 2
	if newCap > maxI32+1 {
		return errs.New(errs.CapacityExceeded, op, "rehash would exceed i32::MAX capacity")
	}

	newBuf, err := m.alloc.Allocate(newCap*m.slotSize, m.slotLayout.Alignment)
	if err != nil {
		return err
	}

	oldCap := m.capacity
	oldBuf := m.buf

	for i := uint64(0); i < oldCap; i++ {
		s := oldBuf.Bytes[i*m.slotSize : (i+1)*m.slotSize]
		h := m.slotHash(s)
		if h&slotHashBit == 0 {
			continue
		}
		start := uint64(h) & (newCap - 1)
		for step := uint64(0); step < newCap; step++ {
			j := (start + step) % newCap
			dst := newBuf.Bytes[j*m.slotSize : (j+1)*m.slotSize]
			if m.slotHash(dst) == slotEmpty {
				copy(dst, s)
				break
			}
		}
	}

	m.buf = newBuf
	m.capacity = newCap
	m.alloc.Release(oldBuf)
	m.logger.Rehash(op, oldCap, newCap, m.size)
	return nil
}

// MapIterator walks a snapshot of a SpecializedMap's entries taken at
// iterator-creation time (spec §4.F "Iteration (entry set)").
type MapIterator[K comparable, V any] struct {
	m            *SpecializedMap[K, V]
	buf          Buffer
	capacity     uint64
	modCount     uint64
	cursor       uint64
	lastReturned int64 // -1 if none returned yet, or consumed by Remove
}

// Iterator snapshots the map's buffer, capacity, and mod_count.
func (m *SpecializedMap[K, V]) Iterator() *MapIterator[K, V] {
	return &MapIterator[K, V]{
		m:            m,
		buf:          m.buf,
		capacity:     m.capacity,
		modCount:     m.modCount,
		lastReturned: -1,
	}
}

func (it *MapIterator[K, V]) advanceToOccupied() {
	for it.cursor < it.capacity {
		start := it.cursor * it.m.slotSize
		s := it.buf.Bytes[start : start+it.m.slotSize]
		if it.m.slotHash(s)&slotHashBit != 0 {
			return
		}
		it.cursor++
	}
}

// HasNext reports whether another entry remains.
func (it *MapIterator[K, V]) HasNext() bool {
	it.advanceToOccupied()
	return it.cursor < it.capacity
}

// Next returns the next (key, value) pair, failing with
// ConcurrentModification if the map has been structurally modified
// since the iterator (or the last Remove through it) was taken.
func (it *MapIterator[K, V]) Next() (K, V, error) {
	const op = "MapIterator.Next"
	var zk K
	var zv V

	if it.modCount != it.m.modCount {
		it.m.logger.ConcurrentModification(op)
		return zk, zv, errs.New(errs.ConcurrentModification, op, "map modified during iteration")
	}

	it.advanceToOccupied()
	if it.cursor >= it.capacity {
		return zk, zv, errs.New(errs.NotFound, op, "iterator exhausted")
	}

	start := it.cursor * it.m.slotSize
	s := it.buf.Bytes[start : start+it.m.slotSize]
	k, err := it.m.slotKey(s)
	if err != nil {
		return zk, zv, err
	}
	v, err := it.m.slotValue(s)
	if err != nil {
		return zk, zv, err
	}

	it.lastReturned = int64(it.cursor)
	it.cursor++
	return k, v, nil
}

// Remove deletes the most recently returned entry, updating both the
// map's and the iterator's mod_count so iteration may continue (spec
// §4.F "Iterator remove").
func (it *MapIterator[K, V]) Remove() error {
	const op = "MapIterator.Remove"
	if it.lastReturned < 0 {
		return errs.New(errs.InvalidArgument, op, "Next has not been called, or Remove already called for it")
	}
	start := uint64(it.lastReturned) * it.m.slotSize
	s := it.buf.Bytes[start : start+it.m.slotSize]
	it.m.setSlotHash(s, slotTombstone)
	it.m.size--
	it.m.modCount++
	it.modCount = it.m.modCount
	it.lastReturned = -1
	return nil
}
