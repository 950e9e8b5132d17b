package kind

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DefaultPageSize 是未指定时列表请求的 limit 参数。
const DefaultPageSize = 64

// Metadata 描述一种资源类型。
type Metadata struct {
	// Key 是配置与 HTTP 路由中使用的名字。
	Key         string
	Description string
	// Endpoint 是上游 URL 中的路径段，例如 pokemon-species。
	Endpoint string
	PageSize int
	// Download 表示完整下载（-download）时是否包含该类型。
	Download bool
}

var globalRegistry = newRegistry()

type registry struct {
	mu    sync.RWMutex
	kinds map[string]Metadata
}

func newRegistry() *registry {
	return &registry{kinds: make(map[string]Metadata)}
}

// Register 将类型加入全局注册表，重复键会返回错误。
func Register(meta Metadata) error {
	return globalRegistry.register(meta)
}

// MustRegister 在注册失败时 panic，适合 init() 中调用。
func MustRegister(meta Metadata) {
	if err := Register(meta); err != nil {
		panic(err)
	}
}

// Resolve 返回指定键的类型元数据。
func Resolve(key string) (Metadata, bool) {
	return globalRegistry.resolve(key)
}

// List 返回按键排序的类型列表。
func List() []Metadata {
	return globalRegistry.list()
}

// Keys 返回所有已注册类型的键。
func Keys() []string {
	items := List()
	result := make([]string, len(items))
	for i, meta := range items {
		result[i] = meta.Key
	}
	return result
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (r *registry) register(meta Metadata) error {
	key := normalizeKey(meta.Key)
	if key == "" {
		return fmt.Errorf("kind key is required")
	}
	meta.Key = key
	if meta.Endpoint == "" {
		meta.Endpoint = key
	}
	if meta.PageSize <= 0 {
		meta.PageSize = DefaultPageSize
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[key]; exists {
		return fmt.Errorf("kind %s already registered", key)
	}
	r.kinds[key] = meta
	return nil
}

func (r *registry) resolve(key string) (Metadata, bool) {
	normalized := normalizeKey(key)
	if normalized == "" {
		return Metadata{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.kinds[normalized]
	return meta, ok
}

func (r *registry) list() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.kinds) == 0 {
		return nil
	}

	keys := make([]string, 0, len(r.kinds))
	for key := range r.kinds {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]Metadata, 0, len(keys))
	for _, key := range keys {
		result = append(result, r.kinds[key])
	}
	return result
}
