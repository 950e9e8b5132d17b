// Package loader deduplicates background fetches for a render loop that polls
// every frame. A Table maps resource names to slots and guarantees that at
// most one worker goroutine resolves a given name; a Listing does the same for
// the single paginated "list every name" operation of a resource kind.
package loader

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/pkdex/pkdex/internal/logging"
)

// SlotState 描述某个名字在表中的状态。
type SlotState int

const (
	SlotAbsent SlotState = iota
	SlotPending
	SlotReady
	SlotFailed
)

func (s SlotState) String() string {
	switch s {
	case SlotPending:
		return "pending"
	case SlotReady:
		return "ready"
	case SlotFailed:
		return "failed"
	default:
		return "absent"
	}
}

// FetchFunc 执行真正的网络请求，只会在 worker goroutine 中调用。
type FetchFunc[T any] func(ctx context.Context, name string) (T, error)

// TableOptions 配置 Table 的附属依赖。
type TableOptions struct {
	// Kind 仅用于日志与错误信息。
	Kind   string
	Errors *ErrorSink
	Logger logrus.FieldLogger
}

type outcome[T any] struct {
	value T
	err   error
}

// slot 的 outcome 为 nil 表示 Pending；worker 只会写入一次，Retry 通过 CAS 清空。
type slot[T any] struct {
	outcome atomic.Pointer[outcome[T]]
}

// Table 是按名字去重的加载表。槽位创建后不会被删除。
type Table[T any] struct {
	fetch  FetchFunc[T]
	kind   string
	errors *ErrorSink
	logger logrus.FieldLogger
	slots  sync.Map // name -> *slot[T]
	wg     sync.WaitGroup
}

// NewTable 构建加载表。
func NewTable[T any](fetch FetchFunc[T], opts TableOptions) *Table[T] {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Table[T]{
		fetch:  fetch,
		kind:   opts.Kind,
		errors: opts.Errors,
		logger: logger,
	}
}

// Request 返回已就绪的值；首次请求会先写入 Pending 再启动 worker，并返回 false。
// 该方法从不阻塞，可在每一帧调用。
func (t *Table[T]) Request(name string) (T, bool) {
	var zero T
	fresh := &slot[T]{}
	value, loaded := t.slots.LoadOrStore(name, fresh)
	if !loaded {
		t.spawn(name, fresh)
		return zero, false
	}

	o := value.(*slot[T]).outcome.Load()
	if o == nil || o.err != nil {
		return zero, false
	}
	return o.value, true
}

// State 返回名字当前的状态，Failed 时附带最后一次错误。
func (t *Table[T]) State(name string) (SlotState, error) {
	value, ok := t.slots.Load(name)
	if !ok {
		return SlotAbsent, nil
	}
	o := value.(*slot[T]).outcome.Load()
	switch {
	case o == nil:
		return SlotPending, nil
	case o.err != nil:
		return SlotFailed, o.err
	default:
		return SlotReady, nil
	}
}

// Retry 将 Failed 槽位重新置为 Pending 并启动一个新的 worker。
// 只有成功完成状态切换的调用者会启动 worker，返回值表示是否启动。
func (t *Table[T]) Retry(name string) bool {
	value, ok := t.slots.Load(name)
	if !ok {
		return false
	}
	s := value.(*slot[T])
	o := s.outcome.Load()
	if o == nil || o.err == nil {
		return false
	}
	if !s.outcome.CompareAndSwap(o, nil) {
		return false
	}
	t.spawn(name, s)
	return true
}

// Len 返回已创建的槽位数量。
func (t *Table[T]) Len() int {
	n := 0
	t.slots.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Wait 等待当前已启动的 worker 全部结束，仅供 CLI 单次查询与测试使用。
func (t *Table[T]) Wait() {
	t.wg.Wait()
}

func (t *Table[T]) spawn(name string, s *slot[T]) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.resolve(name, s)
	}()
}

func (t *Table[T]) resolve(name string, s *slot[T]) {
	fields := logging.FetchFields(t.kind, name, "")
	t.logger.WithFields(fields).Debug("loader_fetch_started")

	value, err := t.fetch(context.Background(), name)
	if err != nil {
		t.logger.WithFields(fields).WithError(err).Warn("loader_fetch_failed")
		t.errors.Report(&FetchError{Kind: t.kind, Name: name, Err: err})
		s.outcome.Store(&outcome[T]{err: err})
		return
	}
	s.outcome.Store(&outcome[T]{value: value})
	t.logger.WithFields(fields).Debug("loader_fetch_ready")
}
