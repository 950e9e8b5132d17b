package dex

import (
	"context"

	"github.com/pkdex/pkdex/internal/api"
	"github.com/pkdex/pkdex/internal/cache"
	"github.com/pkdex/pkdex/internal/config"
	"github.com/pkdex/pkdex/internal/kind"
	"github.com/pkdex/pkdex/internal/loader"
	"github.com/pkdex/pkdex/internal/model"
)

// binding 擦除实体类型，使 Dex 可以按字符串键统一访问各类型。
type binding interface {
	metadata() kind.Metadata
	lookup(name string) Result
	retry(name string) bool
	listing() *loader.Listing
	wait()
	// pages 逐页遍历上游列表，供完整下载使用。
	pages(ctx context.Context, fn func(count int, page []model.NamedResource) error) error
	// warm 将一个条目加载进缓存。
	warm(ctx context.Context, name string) error
}

type typedBinding[T api.Endpoint] struct {
	meta   kind.Metadata
	client *api.Client
	table  *loader.Table[*cache.Handle[T]]
	list   *loader.Listing
}

func bind[T api.Endpoint](d *Dex, cfg *config.Config) (*loader.Table[*cache.Handle[T]], error) {
	var zero T
	meta, ok := kind.Resolve(zero.Kind())
	if !ok {
		return nil, ErrUnknownKind
	}
	meta = cfg.EffectiveKind(meta)

	opts := loader.TableOptions{Kind: meta.Key, Errors: d.errors, Logger: d.logger}
	client := d.client
	b := &typedBinding[T]{
		meta:   meta,
		client: client,
		table: loader.NewTable(func(ctx context.Context, name string) (*cache.Handle[T], error) {
			return api.ByName[T](ctx, client, name)
		}, opts),
		list: loader.NewListing(func(ctx context.Context, page func([]string)) ([]string, error) {
			return api.NewListing[T](client, meta.PageSize).Names(ctx, page)
		}, opts),
	}
	d.bindings[meta.Key] = b
	return b.table, nil
}

func (b *typedBinding[T]) metadata() kind.Metadata { return b.meta }

func (b *typedBinding[T]) lookup(name string) Result {
	if h, ok := b.table.Request(name); ok {
		return Result{State: loader.SlotReady, Value: h.Value()}
	}
	state, err := b.table.State(name)
	return Result{State: state, Err: err}
}

func (b *typedBinding[T]) retry(name string) bool { return b.table.Retry(name) }

func (b *typedBinding[T]) listing() *loader.Listing { return b.list }

func (b *typedBinding[T]) wait() {
	b.table.Wait()
	b.list.Wait()
}

func (b *typedBinding[T]) pages(ctx context.Context, fn func(int, []model.NamedResource) error) error {
	listing := api.NewListing[T](b.client, b.meta.PageSize)
	for {
		results, more, err := listing.Advance(ctx)
		if err != nil || !more {
			return err
		}
		count, _ := listing.EstimateLen()
		if err := fn(count, results); err != nil {
			return err
		}
	}
}

func (b *typedBinding[T]) warm(ctx context.Context, name string) error {
	h, err := api.ByName[T](ctx, b.client, name)
	if err != nil {
		return err
	}
	h.Release()
	return nil
}
