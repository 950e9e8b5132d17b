package loader

import (
	"fmt"
	"sync"
)

// FetchError 记录后台 worker 的失败，Kind/Name 用于定位资源。
type FetchError struct {
	Kind string
	Name string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s listing: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Kind, e.Name, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ErrorSink 汇集后台 worker 无法直接返回的错误，轮询方通过 Drain 取走。
// 队列无界，Report 从不阻塞。
type ErrorSink struct {
	mu   sync.Mutex
	errs []error
}

// NewErrorSink 创建空的错误队列。
func NewErrorSink() *ErrorSink {
	return &ErrorSink{}
}

// Report 追加一个错误。
func (s *ErrorSink) Report(err error) {
	if s == nil || err == nil {
		return
	}
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
}

// Drain 取出并清空已累积的错误。
func (s *ErrorSink) Drain() []error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.errs
	s.errs = nil
	return out
}

// Len 返回尚未取出的错误数量。
func (s *ErrorSink) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs)
}
