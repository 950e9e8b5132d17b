// Package task provides a single-result background computation whose caller
// polls for completion instead of blocking. While the worker runs, each poll
// returns a Progress snapshot: the latest status message, the errors queued
// since the previous poll, and completed/total work counters. Once the worker
// delivers its value, every later poll returns that value.
package task

import (
	"sync"
	"sync/atomic"
)

type state int

const (
	stateNotStarted state = iota
	statePending
	stateDone
)

// Progress 是一次轮询得到的进度快照，每次轮询都会重新生成。
type Progress[E any] struct {
	// Message 是 worker 最近一次发送的状态消息，未发送过时为空。
	Message string
	// HasMessage 区分“没有消息”与“空消息”。
	HasMessage bool
	// Errors 为上次轮询以来累积的错误，取出后即清空。
	Errors []E
	// Completed/Total 单调不减。
	Completed int
	Total     int
}

// Fraction 返回完成比例，Total 为 0 时返回 0。
func (p Progress[E]) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	f := float64(p.Completed) / float64(p.Total)
	if f > 1 {
		return 1
	}
	return f
}

// sinks 由 Task 与同一次 Start 派生的全部 Notifier 共享。
type sinks[E any] struct {
	message   atomic.Pointer[string]
	mu        sync.Mutex
	errors    []E
	completed atomic.Int64
	total     atomic.Int64
}

func (s *sinks[E]) drainErrors() []E {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errors) == 0 {
		return nil
	}
	out := s.errors
	s.errors = nil
	return out
}

// Notifier 是交给 worker 的写端句柄，按值复制后仍指向同一组 sink。
type Notifier[E any] struct {
	s *sinks[E]
}

// SendMessage 更新最新状态消息，覆盖旧值。
func (n Notifier[E]) SendMessage(msg string) {
	n.s.message.Store(&msg)
}

// SendError 追加一个可恢复错误，轮询方会在下一次快照中取出。该调用从不阻塞。
func (n Notifier[E]) SendError(err E) {
	n.s.mu.Lock()
	n.s.errors = append(n.s.errors, err)
	n.s.mu.Unlock()
}

// IncCompleted 原子地增加已完成的工作单元数。delta <= 0 时忽略，计数只增不减。
func (n Notifier[E]) IncCompleted(delta int) {
	if delta <= 0 {
		return
	}
	n.s.completed.Add(int64(delta))
}

// IncTotal 原子地增加工作单元总数。delta <= 0 时忽略。
func (n Notifier[E]) IncTotal(delta int) {
	if delta <= 0 {
		return
	}
	n.s.total.Add(int64(delta))
}

// Task 是 NotStarted → Pending → Done 的单结果后台任务。
//
// Start 与 TryFinish 由同一个轮询方调用（例如渲染循环），二者互斥。
type Task[T, E any] struct {
	mu     sync.Mutex
	state  state
	sinks  *sinks[E]
	result chan T
	value  T
}

// New 创建一个尚未启动的任务。
func New[T, E any]() *Task[T, E] {
	return &Task[T, E]{}
}

// Start 在新的 goroutine 中运行 body。重复调用不会再次启动。
func (t *Task[T, E]) Start(body func(Notifier[E]) T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != stateNotStarted {
		return
	}

	s := &sinks[E]{}
	out := make(chan T, 1)
	t.sinks = s
	t.result = out
	t.state = statePending

	go func() {
		out <- body(Notifier[E]{s: s})
	}()
}

// Started 返回任务是否已经启动。
func (t *Task[T, E]) Started() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state != stateNotStarted
}

// Done 返回是否已经观察到结果。
func (t *Task[T, E]) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == stateDone
}

// TryFinish 非阻塞地检查任务。完成时返回结果指针（此后每次都返回同一指针），
// 否则返回 nil 与进度快照；未启动时返回空快照。
func (t *Task[T, E]) TryFinish() (*T, Progress[E]) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case stateDone:
		return &t.value, Progress[E]{}
	case stateNotStarted:
		return nil, Progress[E]{}
	}

	select {
	case v := <-t.result:
		t.value = v
		t.state = stateDone
		t.result = nil
		return &t.value, Progress[E]{}
	default:
	}

	p := Progress[E]{
		Errors:    t.sinks.drainErrors(),
		Completed: int(t.sinks.completed.Load()),
		Total:     int(t.sinks.total.Load()),
	}
	if msg := t.sinks.message.Load(); msg != nil {
		p.Message = *msg
		p.HasMessage = true
	}
	return nil, p
}

// DrainErrors 取出仍在队列中的错误，用于任务完成后补收最后一批错误。
func (t *Task[T, E]) DrainErrors() []E {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sinks == nil {
		return nil
	}
	return t.sinks.drainErrors()
}
