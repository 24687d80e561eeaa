package memlayout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strAccessor(t *testing.T) *Accessor[uint32] {
	t.Helper()
	acc, err := NewAccessor[uint32](Primitive(KU32))
	require.NoError(t, err)
	return acc
}

func newTestMap(t *testing.T, opts ...MapOption[uint32, uint32]) *SpecializedMap[uint32, uint32] {
	t.Helper()
	k := strAccessor(t)
	v := strAccessor(t)
	m, err := NewSpecializedMap[uint32, uint32](k, v, NewGoAllocator(), opts...)
	require.NoError(t, err)
	return m
}

func TestMapPutGet(t *testing.T) {
	m := newTestMap(t)

	old, existed, err := m.Put(1, 100)
	require.NoError(t, err)
	require.False(t, existed)
	require.Zero(t, old)

	v, ok, err := m.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(100), v)

	_, ok, err = m.Get(2)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMapPutOverwritesAndReturnsPrevious(t *testing.T) {
	m := newTestMap(t)
	_, existed, err := m.Put(1, 100)
	require.NoError(t, err)
	require.False(t, existed)

	old, existed, err := m.Put(1, 200)
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, uint32(100), old)

	v, ok, err := m.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(200), v)
}

func TestMapContainsKeyAndValue(t *testing.T) {
	m := newTestMap(t)
	_, _, err := m.Put(1, 100)
	require.NoError(t, err)

	ok, err := m.ContainsKey(1)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.ContainsKey(2)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = m.ContainsValue(100)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.ContainsValue(999)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMapPutIfAbsent(t *testing.T) {
	m := newTestMap(t)
	_, existed, err := m.PutIfAbsent(1, 100)
	require.NoError(t, err)
	require.False(t, existed)

	existing, existed, err := m.PutIfAbsent(1, 200)
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, uint32(100), existing)

	v, ok, err := m.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(100), v)
}

func TestMapRemove(t *testing.T) {
	m := newTestMap(t)
	_, _, err := m.Put(1, 100)
	require.NoError(t, err)

	v, ok, err := m.Remove(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(100), v)

	_, ok, err = m.Get(1)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, uint64(0), m.Len())

	_, ok, err = m.Remove(1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMapTombstoneReuse(t *testing.T) {
	m := newTestMap(t, WithMapPresize[uint32, uint32](4))
	_, _, err := m.Put(1, 100)
	require.NoError(t, err)
	_, ok, err := m.Remove(1)
	require.NoError(t, err)
	require.True(t, ok)

	_, existed, err := m.Put(2, 200)
	require.NoError(t, err)
	require.False(t, existed)
	v, ok, err := m.Get(2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(200), v)
}

func TestMapRehashOnLoad(t *testing.T) {
	m := newTestMap(t, WithMapPresize[uint32, uint32](2))
	startCap := m.Cap()

	for i := uint32(0); i < 20; i++ {
		_, _, err := m.Put(i, i*10)
		require.NoError(t, err)
	}

	require.Greater(t, m.Cap(), startCap)
	require.Equal(t, uint64(20), m.Len())

	for i := uint32(0); i < 20; i++ {
		v, ok, err := m.Get(i)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, i*10, v)
	}
}

func TestMapIteratorVisitsAllEntries(t *testing.T) {
	m := newTestMap(t)
	want := map[uint32]uint32{1: 10, 2: 20, 3: 30}
	for k, v := range want {
		_, _, err := m.Put(k, v)
		require.NoError(t, err)
	}

	got := map[uint32]uint32{}
	it := m.Iterator()
	for it.HasNext() {
		k, v, err := it.Next()
		require.NoError(t, err)
		got[k] = v
	}
	require.Equal(t, want, got)
}

func TestMapIteratorRemoveDoesNotTriggerConcurrentModification(t *testing.T) {
	m := newTestMap(t)
	_, _, err := m.Put(1, 100)
	require.NoError(t, err)
	_, _, err = m.Put(2, 200)
	require.NoError(t, err)

	it := m.Iterator()
	require.True(t, it.HasNext())
	_, _, err = it.Next()
	require.NoError(t, err)
	require.NoError(t, it.Remove())

	require.True(t, it.HasNext())
	_, _, err = it.Next()
	require.NoError(t, err)

	require.Equal(t, uint64(1), m.Len())
}

func TestMapIteratorRemoveBeforeNextFails(t *testing.T) {
	m := newTestMap(t)
	_, _, err := m.Put(1, 100)
	require.NoError(t, err)
	it := m.Iterator()
	require.Error(t, it.Remove())
}

func TestMapIteratorConcurrentModificationFromExternalPut(t *testing.T) {
	m := newTestMap(t, WithMapPresize[uint32, uint32](8))
	_, _, err := m.Put(1, 100)
	require.NoError(t, err)

	it := m.Iterator()
	require.True(t, it.HasNext())

	_, _, err = m.Put(2, 200)
	require.NoError(t, err)

	_, _, err = it.Next()
	require.Error(t, err)
	kind, ok := ErrorKindOf(err)
	require.True(t, ok)
	require.Equal(t, ConcurrentModification, kind)
}

func TestMapIteratorConcurrentModificationFromExternalRemove(t *testing.T) {
	m := newTestMap(t, WithMapPresize[uint32, uint32](8))
	_, _, err := m.Put(1, 100)
	require.NoError(t, err)
	_, _, err = m.Put(2, 200)
	require.NoError(t, err)

	it := m.Iterator()
	require.True(t, it.HasNext())

	_, _, err = m.Remove(1)
	require.NoError(t, err)

	_, _, err = it.Next()
	require.Error(t, err)
	kind, ok := ErrorKindOf(err)
	require.True(t, ok)
	require.Equal(t, ConcurrentModification, kind)
}

func TestMapWithHasherOverride(t *testing.T) {
	calls := 0
	hashFn := func(k uint32) (uint32, error) {
		calls++
		return k % 4, nil
	}
	m := newTestMap(t, WithHasher[uint32, uint32](hashFn))

	_, _, err := m.Put(1, 100)
	require.NoError(t, err)
	_, ok, err := m.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Greater(t, calls, 0)
}
