// Package cache implements the hybrid memory/disk store that memoizes catalog
// fetches. The memory tier is a bounded LRU kept in an index-linked arena;
// values evicted from it survive as <Dir>/<base64url(key)> files written when
// the value was first computed, so later lookups fall back to disk before
// recomputing. Stored payloads are type-erased and carry a reflect.Type tag
// that is checked on retrieval. Memo wraps the store with encode/decode
// codecs so API clients can express "compute once, reuse many" in one call.
package cache
