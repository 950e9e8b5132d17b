package api

import (
	"context"

	"github.com/pkdex/pkdex/internal/model"
)

// Listing 逐页遍历某类资源的全部条目，由调用方驱动翻页。
// 单个 Listing 不是并发安全的。
type Listing[T Endpoint] struct {
	client  *Client
	perPage int
	page    *model.Page
	started bool
}

// NewListing 创建一个尚未发出请求的列表。
func NewListing[T Endpoint](c *Client, perPage int) *Listing[T] {
	if perPage <= 0 {
		perPage = 1
	}
	return &Listing[T]{client: c, perPage: perPage}
}

// Advance 请求下一页。第一次请求 <base>/<endpoint>?limit=N，之后跟随 next。
// 已无下一页时返回 (nil, false, nil)。
func (l *Listing[T]) Advance(ctx context.Context) ([]model.NamedResource, bool, error) {
	var url string
	switch {
	case !l.started:
		meta, err := endpointOf[T]()
		if err != nil {
			return nil, false, err
		}
		url = l.client.ListURL(meta.Endpoint, l.perPage)
	case l.page != nil && l.page.Next != nil:
		url = *l.page.Next
	default:
		return nil, false, nil
	}

	h, err := RequestJSON[model.Page](ctx, l.client, url)
	if err != nil {
		return nil, false, err
	}
	defer h.Release()

	page := h.Value()
	l.page = &page
	l.started = true
	return page.Results, true, nil
}

// Current 返回当前页的结果，尚未请求时为 nil。
func (l *Listing[T]) Current() []model.NamedResource {
	if l.page == nil {
		return nil
	}
	return l.page.Results
}

// EstimateLen 返回上游报告的总数，尚未请求时第二个返回值为 false。
func (l *Listing[T]) EstimateLen() (int, bool) {
	if l.page == nil {
		return 0, false
	}
	return l.page.Count, true
}

// Names 翻完全部页并返回名字，每完成一页回调一次 onPage（可为 nil）。
func (l *Listing[T]) Names(ctx context.Context, onPage func(names []string)) ([]string, error) {
	var all []string
	for {
		results, more, err := l.Advance(ctx)
		if err != nil {
			return all, err
		}
		if !more {
			return all, nil
		}
		names := model.Page{Results: results}.Names()
		all = append(all, names...)
		if onPage != nil {
			onPage(names)
		}
	}
}
