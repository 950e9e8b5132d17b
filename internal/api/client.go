package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pkdex/pkdex/internal/cache"
	"github.com/pkdex/pkdex/internal/config"
	"github.com/pkdex/pkdex/internal/kind"
	"github.com/pkdex/pkdex/internal/version"
)

// Options 控制 Client 的构造。零值字段使用默认值：公共 PokéAPI、
// 默认超时的 http.Client、只有内存层的缓存。
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Store      *cache.Store
	Logger     logrus.FieldLogger
}

// Client 是带缓存的目录服务客户端，可被多个 goroutine 共享。
type Client struct {
	base   string
	http   *http.Client
	memo   *cache.Memo
	logger logrus.FieldLogger
}

// New 构建客户端。
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = config.DefaultBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(nil)
	}

	store := opts.Store
	if store == nil {
		var err error
		store, err = cache.NewStore(cache.Options{Capacity: cache.DefaultCapacity, Logger: opts.Logger})
		if err != nil {
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Client{
		base:   base,
		http:   httpClient,
		memo:   cache.NewMemo(store),
		logger: logger,
	}, nil
}

// BaseURL 返回去掉末尾斜杠的上游地址。
func (c *Client) BaseURL() string { return c.base }

// Memo 返回底层 memo，供诊断接口读取缓存统计。
func (c *Client) Memo() *cache.Memo { return c.memo }

// URLFor 拼出 <base>/<endpoint>/<name>。
func (c *Client) URLFor(endpoint, name string) string {
	return fmt.Sprintf("%s/%s/%s", c.base, endpoint, url.PathEscape(name))
}

// ListURL 拼出首页列表地址 <base>/<endpoint>?limit=N。
func (c *Client) ListURL(endpoint string, perPage int) string {
	return fmt.Sprintf("%s/%s?limit=%d", c.base, endpoint, perPage)
}

// RequestJSON 以 url 为缓存键获取并解码 T。
func RequestJSON[T any](ctx context.Context, c *Client, url string) (*cache.Handle[T], error) {
	if err := c.owns(url); err != nil {
		return nil, err
	}
	return cache.Load(c.memo, url, cache.JSONCodec[T](), func() (T, error) {
		var v T
		body, err := c.get(ctx, url)
		if err != nil {
			return v, err
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return v, fmt.Errorf("%w: %s: %v", ErrDecode, url, err)
		}
		return v, nil
	})
}

// RequestBlob 获取原始字节（例如图片），同样经过缓存。
func (c *Client) RequestBlob(ctx context.Context, url string) (*cache.Handle[[]byte], error) {
	return cache.Load(c.memo, url, cache.BytesCodec(), func() ([]byte, error) {
		return c.get(ctx, url)
	})
}

// Endpoint 是可以直接按名字请求的实体类型，Kind 的返回值必须已在 kind 注册表中。
type Endpoint interface {
	Kind() string
}

// ByName 获取类型 T 中名为 name 的资源。
func ByName[T Endpoint](ctx context.Context, c *Client, name string) (*cache.Handle[T], error) {
	meta, err := endpointOf[T]()
	if err != nil {
		return nil, err
	}
	return RequestJSON[T](ctx, c, c.URLFor(meta.Endpoint, name))
}

func endpointOf[T Endpoint]() (kind.Metadata, error) {
	var zero T
	meta, ok := kind.Resolve(zero.Kind())
	if !ok {
		return kind.Metadata{}, fmt.Errorf("%w: unregistered kind %q", ErrAPIMismatch, zero.Kind())
	}
	return meta, nil
}

func (c *Client) owns(url string) error {
	if url == c.base || strings.HasPrefix(url, c.base+"/") || strings.HasPrefix(url, c.base+"?") {
		return nil
	}
	return fmt.Errorf("%w: %s (base %s)", ErrAPIMismatch, url, c.base)
}

// get 执行一次 GET 并读取完整响应体，不做重试。
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	started := time.Now()
	fields := logrus.Fields{"action": "upstream_fetch", "url": url}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WithFields(fields).WithError(err).Warn("upstream_unreachable")
		return nil, fmt.Errorf("%w: GET %s: %v", ErrTransport, url, err)
	}
	defer resp.Body.Close()

	fields["status"] = resp.StatusCode
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logger.WithFields(fields).Warn("upstream_status")
		return nil, &StatusError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrTransport, url, err)
	}
	c.logger.WithFields(fields).Debug("upstream_fetched")
	return body, nil
}
