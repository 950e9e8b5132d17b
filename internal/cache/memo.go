package cache

import "encoding/json"

// Codec 描述一个值在磁盘层的编解码方式，Encode 与 Decode 必须互逆。
type Codec[T any] struct {
	Encode func(T) ([]byte, error)
	Decode func([]byte) (T, error)
}

// JSONCodec 使用 encoding/json 编解码，适用于 API 返回的结构体。
func JSONCodec[T any]() Codec[T] {
	return Codec[T]{
		Encode: func(v T) ([]byte, error) { return json.Marshal(v) },
		Decode: func(data []byte) (T, error) {
			var v T
			err := json.Unmarshal(data, &v)
			return v, err
		},
	}
}

// BytesCodec 原样保存字节，用于图片等二进制 blob。
func BytesCodec() Codec[[]byte] {
	return Codec[[]byte]{
		Encode: func(v []byte) ([]byte, error) { return v, nil },
		Decode: func(data []byte) ([]byte, error) {
			return append([]byte(nil), data...), nil
		},
	}
}

// Memo 把 Store 包装成“一次计算，多次复用”的调用形式。
type Memo struct {
	store *Store
}

// NewMemo 绑定一个 Store。
func NewMemo(store *Store) *Memo {
	return &Memo{store: store}
}

// Store 返回底层缓存，便于诊断接口读取统计。
func (m *Memo) Store() *Store {
	return m.store
}

// Load 返回 key 对应值的共享引用，必要时调用 compute 并填充内存与磁盘层。
func Load[T any](m *Memo, key string, codec Codec[T], compute func() (T, error)) (*Handle[T], error) {
	return GetOrCompute(m.store, key, codec.Decode, codec.Encode, compute)
}
