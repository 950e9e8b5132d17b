package api

import (
	"context"

	"github.com/pkdex/pkdex/internal/cache"
	"github.com/pkdex/pkdex/internal/model"
)

// Lazy 是尚未加载的 T 的地址。
type Lazy[T any] struct {
	URL string
}

// LazyOf 把实体间的超链接转换成 Lazy。
func LazyOf[T any](r model.NamedResource) Lazy[T] {
	return Lazy[T]{URL: r.URL}
}

// Load 通过客户端获取 T。
func (l Lazy[T]) Load(ctx context.Context, c *Client) (*cache.Handle[T], error) {
	return RequestJSON[T](ctx, c, l.URL)
}

// Blob 是二进制资源（例如精灵图）的地址。
type Blob struct {
	URL string
}

// Load 获取原始字节。
func (b Blob) Load(ctx context.Context, c *Client) (*cache.Handle[[]byte], error) {
	return c.RequestBlob(ctx, b.URL)
}
