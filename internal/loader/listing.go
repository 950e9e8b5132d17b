package loader

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/pkdex/pkdex/internal/logging"
)

// ListFunc 逐页拉取某类资源的全部名字；page 在每页完成后回调，可用于进度展示。
type ListFunc func(ctx context.Context, page func(names []string)) ([]string, error)

// Listing 保证同一时刻至多一个“列出全部名字”的 worker。
// inFlight 为无锁标志，结果槽由互斥锁保护；轮询方只做 TryLock。
type Listing struct {
	list   ListFunc
	kind   string
	errors *ErrorSink
	logger logrus.FieldLogger

	inFlight atomic.Bool
	fetched  atomic.Int64

	mu    sync.Mutex
	names []string
	ready bool

	wg sync.WaitGroup
}

// NewListing 构建列表加载器，opts 与 Table 共用。
func NewListing(list ListFunc, opts TableOptions) *Listing {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Listing{
		list:   list,
		kind:   opts.Kind,
		errors: opts.Errors,
		logger: logger,
	}
}

// Request 在没有进行中的拉取时启动 worker，返回是否启动。
func (l *Listing) Request() bool {
	if !l.inFlight.CompareAndSwap(false, true) {
		return false
	}
	l.fetched.Store(0)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.inFlight.Store(false)
		l.run()
	}()
	return true
}

// InFlight 返回是否有拉取正在进行。
func (l *Listing) InFlight() bool {
	return l.inFlight.Load()
}

// Fetched 返回当前拉取已累计的名字数量。
func (l *Listing) Fetched() int {
	return int(l.fetched.Load())
}

// Names 返回最近一次完成的列表。拿不到锁或尚无结果时返回 false，调用方下一帧再试。
func (l *Listing) Names() ([]string, bool) {
	if !l.mu.TryLock() {
		return nil, false
	}
	defer l.mu.Unlock()
	if !l.ready {
		return nil, false
	}
	return l.names, true
}

// Wait 等待进行中的 worker 结束。
func (l *Listing) Wait() {
	l.wg.Wait()
}

func (l *Listing) run() {
	fields := logging.FetchFields(l.kind, "", "")
	l.logger.WithFields(fields).Debug("listing_started")

	names, err := l.list(context.Background(), func(page []string) {
		l.fetched.Add(int64(len(page)))
	})
	if err != nil {
		l.logger.WithFields(fields).WithError(err).Warn("listing_failed")
		l.errors.Report(&FetchError{Kind: l.kind, Err: err})
		return
	}

	l.mu.Lock()
	l.names = names
	l.ready = true
	l.mu.Unlock()

	fields["count"] = len(names)
	l.logger.WithFields(fields).Debug("listing_ready")
}
