package cache

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"
	"time"
)

func TestStoreEvictsLeastRecentlyUsed(t *testing.T) {
	store := newMemoryStore(t, 2)
	for _, key := range []string{"a", "b", "c"} {
		mustCompute(t, store, key, key+"-value")
	}

	if got := store.Keys(); !reflect.DeepEqual(got, []string{"c", "b"}) {
		t.Fatalf("unexpected keys after overflow: %v", got)
	}

	mustCompute(t, store, "b", "unused")
	mustCompute(t, store, "d", "d-value")

	if got := store.Keys(); !reflect.DeepEqual(got, []string{"d", "b"}) {
		t.Fatalf("expected {b,d} after promoting b, got %v", got)
	}
	if store.Contains("c") {
		t.Fatalf("c should have been evicted")
	}
}

func TestStoreEvictsFirstInsertedKey(t *testing.T) {
	const capacity = 4
	store := newMemoryStore(t, capacity)
	for i := 0; i <= capacity; i++ {
		mustCompute(t, store, "key-"+strconv.Itoa(i), i)
	}
	if store.Len() != capacity {
		t.Fatalf("memory tier exceeded capacity: %d", store.Len())
	}
	if store.Contains("key-0") {
		t.Fatalf("first inserted key should be evicted")
	}
	for i := 1; i <= capacity; i++ {
		if !store.Contains("key-" + strconv.Itoa(i)) {
			t.Fatalf("key-%d should remain cached", i)
		}
	}
	if stats := store.Stats(); stats.Evictions != 1 {
		t.Fatalf("expected one eviction, got %d", stats.Evictions)
	}
}

func TestStoreStatsDoesNotWaitForCompute(t *testing.T) {
	store := newMemoryStore(t, 2)
	mustCompute(t, store, "a", "a-value")

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := GetOrCompute(store, "slow", decodeString, encodeString, func() (string, error) {
			close(started)
			<-release
			return "slow-value", nil
		})
		done <- err
	}()
	<-started

	statsCh := make(chan Stats, 1)
	go func() { statsCh <- store.Stats() }()
	select {
	case stats := <-statsCh:
		if stats.Entries != 1 || stats.Misses != 2 {
			t.Fatalf("unexpected stats during compute: %+v", stats)
		}
	case <-time.After(500 * time.Millisecond):
		close(release)
		t.Fatalf("Stats blocked behind an in-flight compute")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("slow compute failed: %v", err)
	}
	if stats := store.Stats(); stats.Entries != 2 {
		t.Fatalf("expected 2 entries after compute, got %d", stats.Entries)
	}
	if err := store.Forget("slow"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if stats := store.Stats(); stats.Entries != 1 {
		t.Fatalf("expected 1 entry after forget, got %d", stats.Entries)
	}
}

func TestStoreMemoryHitSkipsCompute(t *testing.T) {
	store := newMemoryStore(t, 2)
	mustCompute(t, store, "a", "first")

	calls := 0
	h, err := GetOrCompute(store, "a", decodeString, encodeString, func() (string, error) {
		calls++
		return "second", nil
	})
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if calls != 0 {
		t.Fatalf("compute should not run on memory hit")
	}
	if h.Value() != "first" {
		t.Fatalf("unexpected value: %s", h.Value())
	}
}

func TestStoreDoesNotCacheFailures(t *testing.T) {
	store := newMemoryStore(t, 2)
	boom := errors.New("boom")

	calls := 0
	compute := func() (string, error) {
		calls++
		if calls == 1 {
			return "", boom
		}
		return "ok", nil
	}

	if _, err := GetOrCompute(store, "k", decodeString, encodeString, compute); !errors.Is(err, boom) {
		t.Fatalf("expected compute error verbatim, got %v", err)
	}
	if store.Contains("k") {
		t.Fatalf("failed compute must not be cached")
	}

	h, err := GetOrCompute(store, "k", decodeString, encodeString, compute)
	if err != nil {
		t.Fatalf("retry error: %v", err)
	}
	if calls != 2 || h.Value() != "ok" {
		t.Fatalf("expected recompute on retry, calls=%d value=%s", calls, h.Value())
	}
}

func TestStoreTypeMismatch(t *testing.T) {
	store := newMemoryStore(t, 2)
	mustCompute(t, store, "k", "text")

	_, err := GetOrCompute(store, "k",
		func([]byte) (int, error) { return 0, nil },
		func(int) ([]byte, error) { return nil, nil },
		func() (int, error) { return 1, nil },
	)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	var mismatch *TypeMismatchError
	if !errors.As(err, &mismatch) || mismatch.Key != "k" {
		t.Fatalf("expected TypeMismatchError for k, got %#v", err)
	}
}

func TestStoreDiskFallbackAfterEviction(t *testing.T) {
	store := newDiskStore(t, 1)
	mustCompute(t, store, "a", "alpha")
	mustCompute(t, store, "b", "beta")
	if store.Contains("a") {
		t.Fatalf("a should be evicted from memory")
	}

	h, err := GetOrCompute(store, "a", decodeString, encodeString, func() (string, error) {
		t.Fatalf("compute must not run when the disk copy exists")
		return "", nil
	})
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if h.Value() != "alpha" {
		t.Fatalf("unexpected disk value: %s", h.Value())
	}
	if stats := store.Stats(); stats.DiskHits != 1 {
		t.Fatalf("expected one disk hit, got %d", stats.DiskHits)
	}
}

func TestStoreZeroCapacityUsesDiskOnly(t *testing.T) {
	store := newDiskStore(t, 0)
	mustCompute(t, store, "a", "alpha")
	if store.Len() != 0 {
		t.Fatalf("capacity 0 must keep memory empty, got %d", store.Len())
	}

	h, err := GetOrCompute(store, "a", decodeString, encodeString, func() (string, error) {
		return "recomputed", nil
	})
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if h.Value() != "alpha" {
		t.Fatalf("expected disk value, got %s", h.Value())
	}
	if store.Len() != 0 {
		t.Fatalf("disk hit must not populate memory with capacity 0")
	}
}

func TestStorePersistsBeforeMemoryInsert(t *testing.T) {
	store := newDiskStore(t, 2)
	mustCompute(t, store, "https://example.test/api/v2/item/1?x=y", "potion")

	path := filepath.Join(store.Stats().Dir, EncodeKey("https://example.test/api/v2/item/1?x=y"))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected disk copy: %v", err)
	}
	if string(data) != "potion" {
		t.Fatalf("unexpected disk payload: %s", data)
	}

	entries, err := store.DiskEntries()
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(entries) != 1 || entries[0].Key != "https://example.test/api/v2/item/1?x=y" {
		t.Fatalf("unexpected disk entries: %+v", entries)
	}
}

func TestStoreCorruptDiskEntryIsRecomputed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, EncodeKey("k")), []byte("{"), 0o644); err != nil {
		t.Fatalf("seed error: %v", err)
	}
	store, err := NewStore(Options{Capacity: 2, Dir: dir})
	if err != nil {
		t.Fatalf("store error: %v", err)
	}

	calls := 0
	codec := JSONCodec[map[string]int]()
	h, err := GetOrCompute(store, "k", codec.Decode, codec.Encode, func() (map[string]int, error) {
		calls++
		return map[string]int{"n": 1}, nil
	})
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if calls != 1 || h.Value()["n"] != 1 {
		t.Fatalf("corrupt entry should trigger compute, calls=%d", calls)
	}
}

func TestStoreUnwritableDirDegradesToMemory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed error: %v", err)
	}
	store, err := NewStore(Options{Capacity: 2, Dir: filepath.Join(blocker, "cache")})
	if err != nil {
		t.Fatalf("store error: %v", err)
	}

	h := mustCompute(t, store, "a", "alpha")
	if h.Value() != "alpha" || !store.Contains("a") {
		t.Fatalf("value should still be cached in memory")
	}
	if stats := store.Stats(); stats.PersistFailures != 1 {
		t.Fatalf("expected persist failure to be counted, got %d", stats.PersistFailures)
	}
}

func TestStoreForgetRemovesBothTiers(t *testing.T) {
	store := newDiskStore(t, 2)
	mustCompute(t, store, "a", "alpha")
	if err := store.Forget("a"); err != nil {
		t.Fatalf("forget error: %v", err)
	}
	if store.Contains("a") {
		t.Fatalf("forget should drop memory entry")
	}

	h := mustCompute(t, store, "a", "again")
	if h.Value() != "again" {
		t.Fatalf("forget should drop disk entry, got %s", h.Value())
	}
	mustCompute(t, store, "b", "beta")
	if got := store.Keys(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("unexpected order after slot reuse: %v", got)
	}
}

func TestStoreFlushWritesMemoryEntries(t *testing.T) {
	store := newDiskStore(t, 2)
	mustCompute(t, store, "a", "alpha")
	if err := os.Remove(filepath.Join(store.Stats().Dir, EncodeKey("a"))); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("flush error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Stats().Dir, EncodeKey("a"))); err != nil {
		t.Fatalf("flush should restore disk copy: %v", err)
	}
}

func TestHandleReferenceCounting(t *testing.T) {
	store := newMemoryStore(t, 1)
	first := mustCompute(t, store, "a", "alpha")
	if first.Refs() != 2 {
		t.Fatalf("store + caller should hold refs, got %d", first.Refs())
	}
	second := mustCompute(t, store, "a", "alpha")
	if second.Refs() != 3 {
		t.Fatalf("expected 3 refs, got %d", second.Refs())
	}

	second.Release()
	second.Release()
	if first.Refs() != 2 {
		t.Fatalf("double release must be a no-op, got %d", first.Refs())
	}

	mustCompute(t, store, "b", "beta")
	if first.Refs() != 1 {
		t.Fatalf("eviction should drop the store reference, got %d", first.Refs())
	}
	if first.Value() != "alpha" {
		t.Fatalf("evicted value must stay readable through its handle")
	}
}

func TestStoreReinsertPanics(t *testing.T) {
	store := newMemoryStore(t, 2)
	mustCompute(t, store, "a", "alpha")

	defer func() {
		if recover() == nil {
			t.Fatalf("re-inserting an indexed key must panic")
		}
	}()
	store.mu.Lock()
	defer store.mu.Unlock()
	store.insert("a", box("again", encodeString))
}

func decodeString(data []byte) (string, error) { return string(data), nil }

func encodeString(v string) ([]byte, error) { return []byte(v), nil }

func mustCompute[T any](t *testing.T, store *Store, key string, value T) *Handle[T] {
	t.Helper()
	codec := JSONCodec[T]()
	var (
		decode = codec.Decode
		encode = codec.Encode
	)
	if _, ok := any(value).(string); ok {
		decode = any(decodeString).(func([]byte) (T, error))
		encode = any(encodeString).(func(T) ([]byte, error))
	}
	h, err := GetOrCompute(store, key, decode, encode, func() (T, error) { return value, nil })
	if err != nil {
		t.Fatalf("compute %s: %v", key, err)
	}
	return h
}

// newMemoryStore returns a Store without a disk tier.
func newMemoryStore(t *testing.T, capacity int) *Store {
	t.Helper()
	store, err := NewStore(Options{Capacity: capacity})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

// newDiskStore returns a Store backed by a temporary directory.
func newDiskStore(t *testing.T, capacity int) *Store {
	t.Helper()
	store, err := NewStore(Options{Capacity: capacity, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}
