package cache

import (
	"reflect"
	"sync/atomic"
)

// payload 是内存层存放的类型擦除值：既能报告自身类型，也能在不知道具体类型
// 的情况下复制出一个新的共享引用。
type payload interface {
	typeTag() reflect.Type
	duplicate() payload
	encode() ([]byte, error)
	drop()
}

// shared 是 payload 与调用方 Handle 共同持有的规范副本。
type shared[T any] struct {
	value T
	refs  atomic.Int64
}

type boxed[T any] struct {
	s   *shared[T]
	enc func(T) ([]byte, error)
}

// box 创建一个引用计数为 1 的 payload（由内存层持有）。
func box[T any](value T, enc func(T) ([]byte, error)) boxed[T] {
	s := &shared[T]{value: value}
	s.refs.Store(1)
	return boxed[T]{s: s, enc: enc}
}

func (b boxed[T]) typeTag() reflect.Type { return reflect.TypeFor[T]() }

func (b boxed[T]) duplicate() payload {
	b.s.refs.Add(1)
	return b
}

func (b boxed[T]) encode() ([]byte, error) {
	return b.enc(b.s.value)
}

func (b boxed[T]) drop() {
	b.s.refs.Add(-1)
}

// Handle 是调用方拿到的共享引用。多个 Handle 指向同一份值，Release 后计数减一。
type Handle[T any] struct {
	s        *shared[T]
	released atomic.Bool
}

// NewHandle 包装一个不经过缓存的值，常用于测试或磁盘层关闭时的直通路径。
func NewHandle[T any](value T) *Handle[T] {
	s := &shared[T]{value: value}
	s.refs.Store(1)
	return &Handle[T]{s: s}
}

func handleOf[T any](p payload) *Handle[T] {
	b := p.duplicate().(boxed[T])
	return &Handle[T]{s: b.s}
}

// Value 返回共享值。调用方不应修改引用类型字段（切片、map）的内容。
func (h *Handle[T]) Value() T {
	return h.s.value
}

// Retain 产出一个指向同一值的新 Handle。
func (h *Handle[T]) Retain() *Handle[T] {
	h.s.refs.Add(1)
	return &Handle[T]{s: h.s}
}

// Release 放弃当前引用，重复调用无副作用。
func (h *Handle[T]) Release() {
	if h.released.CompareAndSwap(false, true) {
		h.s.refs.Add(-1)
	}
}

// Refs 返回当前存活的引用数（包括缓存自身持有的一份）。
func (h *Handle[T]) Refs() int64 {
	return h.s.refs.Load()
}
