package domain

import "fmt"

// FetchReason classifies a snapshot failure.
type FetchReason string

const (
	FetchNetwork   FetchReason = "network"
	FetchStatus    FetchReason = "status"
	FetchRateLimit FetchReason = "rate_limit"
	FetchMalformed FetchReason = "malformed"
)

// FetchError 快照加载失败（网络、状态码、限频、响应格式）
type FetchError struct {
	Selection Selection
	Reason    FetchReason
	Status    int
	Err       error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %s (http %d): %v", e.Selection, e.Reason, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.Selection, e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ConnectionError 推送流握手失败或连接中断，属于可自愈的瞬时错误
type ConnectionError struct {
	URL string
	Op  string // "dial" | "read"
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("stream %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// MalformedMessageError 单条推送消息无法解析，调用方丢弃后继续
type MalformedMessageError struct {
	Kind  MessageKind
	Field string
	Err   error
}

func (e *MalformedMessageError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("malformed %s message: field %q: %v", e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("malformed %s message: %v", e.Kind, e.Err)
}

func (e *MalformedMessageError) Unwrap() error { return e.Err }
