// Package dex holds one deduplicating loader table and one listing per
// resource kind, all backed by the same catalog client and sharing a single
// error sink. Pollers (the HTTP surface, the terminal UI) call into a Dex
// every tick and never block on the network.
package dex

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/pkdex/pkdex/internal/api"
	"github.com/pkdex/pkdex/internal/cache"
	"github.com/pkdex/pkdex/internal/config"
	"github.com/pkdex/pkdex/internal/kind"
	"github.com/pkdex/pkdex/internal/loader"
	"github.com/pkdex/pkdex/internal/model"
)

// ErrUnknownKind 表示请求了未注册或未接入 Dex 的资源类型。
var ErrUnknownKind = errors.New("unknown resource kind")

// Options 配置 Dex。Config 为 nil 时使用注册表默认值。
type Options struct {
	Client *api.Client
	Config *config.Config
	Logger logrus.FieldLogger
}

// Result 是一次 Lookup 的结果，Value 仅在 State 为 SlotReady 时有效。
type Result struct {
	State loader.SlotState
	Value any
	Err   error
}

// Dex 聚合各类型的加载表。
type Dex struct {
	client   *api.Client
	errors   *loader.ErrorSink
	logger   logrus.FieldLogger
	bindings map[string]binding

	Species  *loader.Table[*cache.Handle[model.Species]]
	Pokemon  *loader.Table[*cache.Handle[model.Pokemon]]
	Items    *loader.Table[*cache.Handle[model.Item]]
	Moves    *loader.Table[*cache.Handle[model.Move]]
	Location *loader.Table[*cache.Handle[model.Location]]
}

// New 为每个内置类型创建加载表与列表。
func New(opts Options) (*Dex, error) {
	if opts.Client == nil {
		return nil, errors.New("dex requires a catalog client")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	d := &Dex{
		client:   opts.Client,
		errors:   loader.NewErrorSink(),
		logger:   logger,
		bindings: make(map[string]binding),
	}

	var err error
	if d.Species, err = bind[model.Species](d, opts.Config); err != nil {
		return nil, err
	}
	if d.Pokemon, err = bind[model.Pokemon](d, opts.Config); err != nil {
		return nil, err
	}
	if d.Items, err = bind[model.Item](d, opts.Config); err != nil {
		return nil, err
	}
	if d.Moves, err = bind[model.Move](d, opts.Config); err != nil {
		return nil, err
	}
	if d.Location, err = bind[model.Location](d, opts.Config); err != nil {
		return nil, err
	}
	return d, nil
}

// Client 返回 Dex 使用的客户端。
func (d *Dex) Client() *api.Client { return d.client }

// Errors 返回共享错误队列。
func (d *Dex) Errors() *loader.ErrorSink { return d.errors }

// Kinds 返回已接入的类型元数据（已合并配置覆盖），按键排序。
func (d *Dex) Kinds() []kind.Metadata {
	out := make([]kind.Metadata, 0, len(d.bindings))
	for _, b := range d.bindings {
		out = append(out, b.metadata())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Lookup 请求 key 类型中的 name，不阻塞；首次调用会启动后台加载。
func (d *Dex) Lookup(key, name string) (Result, error) {
	b, err := d.binding(key)
	if err != nil {
		return Result{}, err
	}
	return b.lookup(name), nil
}

// Retry 重新加载一个失败的条目，返回是否启动了新的 worker。
func (d *Dex) Retry(key, name string) (bool, error) {
	b, err := d.binding(key)
	if err != nil {
		return false, err
	}
	return b.retry(name), nil
}

// Listing 返回 key 类型的列表加载器。
func (d *Dex) Listing(key string) (*loader.Listing, error) {
	b, err := d.binding(key)
	if err != nil {
		return nil, err
	}
	return b.listing(), nil
}

// Wait 等待全部已启动的 worker 结束，供 CLI 单次查询与测试使用。
func (d *Dex) Wait() {
	for _, b := range d.bindings {
		b.wait()
	}
}

func (d *Dex) binding(key string) (binding, error) {
	meta, ok := kind.Resolve(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, key)
	}
	b, ok := d.bindings[meta.Key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, key)
	}
	return b, nil
}
