package api

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport 覆盖网络错误与非 2xx 响应。
	ErrTransport = errors.New("catalog transport failure")
	// ErrDecode 表示响应体不是预期的 JSON。
	ErrDecode = errors.New("catalog response is malformed")
	// ErrAPIMismatch 表示请求的 URL 不在客户端的 BaseURL 之下。
	ErrAPIMismatch = errors.New("url does not belong to the configured catalog")
)

// StatusError 描述上游返回的非 2xx 状态码，errors.Is 可匹配 ErrTransport。
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: upstream status %d", e.URL, e.Status)
}

func (e *StatusError) Unwrap() error { return ErrTransport }

// NotFound 判断错误是否为上游 404。
func NotFound(err error) bool {
	var status *StatusError
	return errors.As(err, &status) && status.Status == 404
}
