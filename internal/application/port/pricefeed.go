package port

import (
	"context"
	"errors"
	"time"

	"xfeed/internal/domain"
)

// RawMessage 推送流上的一条原始消息，Kind 由订阅的流决定
type RawMessage struct {
	Kind       domain.MessageKind
	Data       []byte
	ReceivedAt time.Time
}

// StreamEventType distinguishes state transitions from payload messages.
type StreamEventType int

const (
	EventState StreamEventType = iota + 1
	EventMessage
)

// StreamEvent 状态变化与消息共用一个通道，保证单连接内的顺序
type StreamEvent struct {
	Type    StreamEventType
	State   domain.ConnectionState
	Err     error // *domain.ConnectionError on Disconnected / Failed
	Message RawMessage
}

// SnapshotLoader 一次性加载历史快照，失败返回 *domain.FetchError，不重试
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, sel domain.Selection, limit int) (domain.Series, error)
}

// Stream 一个推送连接句柄
type Stream interface {
	// Events 按连接顺序投递状态变化和消息；Close 之后通道会被关闭
	Events() <-chan StreamEvent
	State() domain.ConnectionState
	// Close 取消重连等待并关闭底层连接，可重复调用
	Close() error
}

// StreamConnector 为某个 Selection 打开推送流，不阻塞在握手上
type StreamConnector interface {
	Open(ctx context.Context, sel domain.Selection) (Stream, error)
}

// ErrSkipMessage 控制类消息（订阅回执、pong 等），不是价格更新
var ErrSkipMessage = errors.New("not a price update")

// Normalizer 将原始消息转换为统一更新，失败返回 *domain.MalformedMessageError；
// 非价格消息返回 ErrSkipMessage
type Normalizer interface {
	Normalize(msg RawMessage) (domain.CanonicalUpdate, error)
}

// NormalizerFunc adapts a plain function to Normalizer.
type NormalizerFunc func(msg RawMessage) (domain.CanonicalUpdate, error)

func (f NormalizerFunc) Normalize(msg RawMessage) (domain.CanonicalUpdate, error) { return f(msg) }

// FeedSource 一个交易所提供的完整数据源
type FeedSource struct {
	Name       string
	Loader     SnapshotLoader
	Connector  StreamConnector
	Normalizer Normalizer
}
