package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// DefaultCapacity 是未显式配置时内存层保留的条目数。
const DefaultCapacity = 128

// ErrTypeMismatch 表示同一个 key 被以不兼容的类型复用，属于调用方契约错误。
var ErrTypeMismatch = errors.New("cached value has a different type")

// TypeMismatchError 携带冲突的 key 与两侧类型，errors.Is 可匹配 ErrTypeMismatch。
type TypeMismatchError struct {
	Key    string
	Stored reflect.Type
	Wanted reflect.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("cache key %q holds %v, requested %v", e.Key, e.Stored, e.Wanted)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// Options 控制 Store 的构造参数。Dir 为空时关闭磁盘层，缓存完全驻留内存。
type Options struct {
	Capacity int
	Dir      string
	Logger   logrus.FieldLogger
}

// Stats 是 Store 的计数快照，供诊断接口输出。
type Stats struct {
	Entries         int    `json:"entries"`
	Capacity        int    `json:"capacity"`
	DiskEnabled     bool   `json:"disk_enabled"`
	Dir             string `json:"dir,omitempty"`
	Hits            uint64 `json:"hits"`
	DiskHits        uint64 `json:"disk_hits"`
	Misses          uint64 `json:"misses"`
	Evictions       uint64 `json:"evictions"`
	PersistFailures uint64 `json:"persist_failures"`
}

// Store 是内存 LRU + 磁盘回退的混合缓存。index 与 lru 只能在持有 mu 时修改，
// 一次 GetOrCompute（查找、淘汰、插入）全程处于同一临界区。
// 计数器为原子值，Stats 不获取 mu，不会被进行中的 compute 阻塞。
type Store struct {
	mu       sync.Mutex
	capacity int
	index    map[string]int
	lru      *lruList
	disk     *diskTier
	logger   logrus.FieldLogger
	counters counters
}

type counters struct {
	entries         atomic.Int64
	hits            atomic.Uint64
	diskHits        atomic.Uint64
	misses          atomic.Uint64
	evictions       atomic.Uint64
	persistFailures atomic.Uint64
}

// DefaultDir 返回默认磁盘缓存目录 ~/.pkmn-cache。
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pkmn-cache"), nil
}

// NewStore 构建混合缓存。Capacity 为 0 时内存层不保存任何条目，只使用磁盘层。
func NewStore(opts Options) (*Store, error) {
	if opts.Capacity < 0 {
		return nil, fmt.Errorf("cache capacity must not be negative: %d", opts.Capacity)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Store{
		capacity: opts.Capacity,
		index:    make(map[string]int, opts.Capacity),
		lru:      newLRUList(opts.Capacity),
		logger:   logger,
	}

	if opts.Dir != "" {
		disk, err := newDiskTier(opts.Dir)
		if err != nil {
			return nil, err
		}
		s.disk = disk
	}
	return s, nil
}

// GetOrCompute 依次查找内存层、磁盘层，最后调用 compute。
//
// compute 失败时错误原样返回且不写入任何层，下一次调用会重新计算。
// 计算成功的值会先写入磁盘（失败仅记录日志），再放入内存层。
func GetOrCompute[T any](
	s *Store,
	key string,
	decode func([]byte) (T, error),
	encode func(T) ([]byte, error),
	compute func() (T, error),
) (*Handle[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.index[key]; ok {
		s.lru.moveToFront(idx)
		p := s.lru.nodes[idx].value
		if want := reflect.TypeFor[T](); p.typeTag() != want {
			return nil, &TypeMismatchError{Key: key, Stored: p.typeTag(), Wanted: want}
		}
		s.counters.hits.Add(1)
		return handleOf[T](p), nil
	}

	if value, ok := unearth(s, key, decode); ok {
		s.counters.diskHits.Add(1)
		return insertValue(s, key, value, encode), nil
	}

	s.counters.misses.Add(1)
	value, err := compute()
	if err != nil {
		return nil, err
	}
	s.bury(key, func() ([]byte, error) { return encode(value) })
	return insertValue(s, key, value, encode), nil
}

// unearth 尝试从磁盘层读取并解码；文件损坏时删除并视为未命中。
func unearth[T any](s *Store, key string, decode func([]byte) (T, error)) (T, bool) {
	var zero T
	if s.disk == nil {
		return zero, false
	}

	data, err := s.disk.read(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.WithError(err).WithField("key", key).Debug("cache_disk_read_failed")
		}
		return zero, false
	}

	value, err := decode(data)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache_disk_decode_failed")
		_ = s.disk.remove(key)
		return zero, false
	}
	return value, true
}

func insertValue[T any](s *Store, key string, value T, encode func(T) ([]byte, error)) *Handle[T] {
	p := box(value, encode)
	h := handleOf[T](p)
	if !s.insert(key, p) {
		p.drop()
	}
	return h
}

// insert 将 payload 放入内存层；capacity 为 0 时返回 false。
// 内存满时复用最久未使用的槽位，被覆盖的值不会回写磁盘。
func (s *Store) insert(key string, p payload) bool {
	if s.capacity == 0 {
		return false
	}
	if _, exists := s.index[key]; exists {
		panic(fmt.Sprintf("cache: re-insert of already cached key %q", key))
	}

	var idx int
	if len(s.index) >= s.capacity {
		idx = s.lru.back()
		old := &s.lru.nodes[idx]
		delete(s.index, old.key)
		old.value.drop()
		old.key = key
		old.value = p
		s.lru.detach(idx)
		s.counters.evictions.Add(1)
	} else {
		idx = s.lru.alloc(key, p)
		s.counters.entries.Add(1)
	}

	s.lru.attachFront(idx)
	s.index[key] = idx
	return true
}

// bury 尽力写入磁盘层，任何失败都只记录日志。
func (s *Store) bury(key string, encode func() ([]byte, error)) {
	if s.disk == nil {
		return
	}
	data, err := encode()
	if err == nil {
		err = s.disk.write(key, data)
	}
	if err != nil {
		s.counters.persistFailures.Add(1)
		s.logger.WithError(err).WithField("key", key).Debug("cache_persist_failed")
	}
}

// Len 返回内存层条目数。
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// Contains 判断 key 是否位于内存层，不影响 LRU 顺序。
func (s *Store) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[key]
	return ok
}

// Keys 返回内存层的 key，按 MRU → LRU 排列。
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.index))
	s.lru.walk(func(idx int) bool {
		keys = append(keys, s.lru.nodes[idx].key)
		return true
	})
	return keys
}

// Forget 将 key 从内存层和磁盘层移除，下次访问会重新计算。
func (s *Store) Forget(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.index[key]; ok {
		s.lru.nodes[idx].value.drop()
		s.lru.detach(idx)
		s.lru.release(idx)
		delete(s.index, key)
		s.counters.entries.Add(-1)
	}
	if s.disk == nil {
		return nil
	}
	return s.disk.remove(key)
}

// DiskEntries 列出磁盘层的全部条目；磁盘层关闭时返回 nil。
func (s *Store) DiskEntries() ([]DiskEntry, error) {
	if s.disk == nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disk.list()
}

// Stats 返回计数快照。各计数器独立读取，快照之间不保证严格一致。
func (s *Store) Stats() Stats {
	stats := Stats{
		Entries:         int(s.counters.entries.Load()),
		Capacity:        s.capacity,
		DiskEnabled:     s.disk != nil,
		Hits:            s.counters.hits.Load(),
		DiskHits:        s.counters.diskHits.Load(),
		Misses:          s.counters.misses.Load(),
		Evictions:       s.counters.evictions.Load(),
		PersistFailures: s.counters.persistFailures.Load(),
	}
	if s.disk != nil {
		stats.Dir = s.disk.root
	}
	return stats
}

// Flush 将内存层的全部条目写入磁盘层，返回第一个写入错误。
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disk == nil {
		return nil
	}

	var firstErr error
	s.lru.walk(func(idx int) bool {
		n := s.lru.nodes[idx]
		data, err := n.value.encode()
		if err == nil {
			err = s.disk.write(n.key, data)
		}
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("flush %q: %w", n.key, err)
		}
		return true
	})
	return firstErr
}

// Close 在退出前刷盘。
func (s *Store) Close() error {
	return s.Flush()
}
