package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
)

// Config WebSocket 推送流配置
type Config struct {
	ReconnectDelay time.Duration // 固定重连间隔（不做指数退避）
	PingInterval   time.Duration // 心跳间隔
	ReadTimeout    time.Duration // 读超时，收到消息或 pong 时顺延
	BufferSize     int           // 事件通道缓冲
	Dialer         *gws.Dialer   // 为空时使用 gorilla 默认 Dialer
	// OnConnect 握手成功后、开始读取前调用（例如发送订阅请求）；返回错误按拨号失败处理
	OnConnect func(conn *gws.Conn) error
}

// DefaultConfig 默认配置
var DefaultConfig = Config{
	ReconnectDelay: 3 * time.Second,
	PingInterval:   25 * time.Second,
	ReadTimeout:    60 * time.Second,
	BufferSize:     1024,
}

func (c Config) withDefaults() Config {
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultConfig.ReconnectDelay
	}
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultConfig.PingInterval
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultConfig.ReadTimeout
	}
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultConfig.BufferSize
	}
	if c.Dialer == nil {
		c.Dialer = gws.DefaultDialer
	}
	return c
}

// Stream 管理一个推送连接的完整生命周期：连接、读取、断线检测、固定延迟重连
//
// 任意时刻最多只有一个底层连接：上一个连接关闭且读协程退出后才会重新拨号。
type Stream struct {
	name string
	url  string
	kind domain.MessageKind
	cfg  Config

	events chan port.StreamEvent
	state  atomic.Int32

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Open 启动连接协程后立即返回，状态与消息通过 Events() 异步投递
func Open(ctx context.Context, name, url string, kind domain.MessageKind, cfg Config) *Stream {
	cfg = cfg.withDefaults()
	cctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		name:   name,
		url:    url,
		kind:   kind,
		cfg:    cfg,
		events: make(chan port.StreamEvent, cfg.BufferSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.state.Store(int32(domain.ConnIdle))
	go s.run(cctx)
	return s
}

func (s *Stream) Events() <-chan port.StreamEvent { return s.events }

func (s *Stream) State() domain.ConnectionState { return domain.ConnectionState(s.state.Load()) }

func (s *Stream) URL() string { return s.url }

// Close 取消重连等待、关闭连接，并等待所有读协程退出后返回
// 返回后 Events() 中不再残留任何未消费的事件
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		for range s.events {
		}
	})
	return nil
}

func (s *Stream) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.events)
	defer s.state.Store(int32(domain.ConnIdle))

	for {
		log.Info().Str("feed", s.name).Str("url", s.url).Msg("ws connecting")
		s.emitState(ctx, domain.ConnConnecting, nil)

		conn, _, err := s.cfg.Dialer.DialContext(ctx, s.url, nil)
		if err == nil && s.cfg.OnConnect != nil {
			if err = s.cfg.OnConnect(conn); err != nil {
				_ = conn.Close()
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Str("feed", s.name).Err(err).Msg("ws dial failed")
			s.emitState(ctx, domain.ConnFailed, &domain.ConnectionError{URL: s.url, Op: "dial", Err: err})
		} else {
			log.Info().Str("feed", s.name).Msg("ws connected")
			s.emitState(ctx, domain.ConnConnected, nil)

			err = s.readLoop(ctx, conn)
			if ctx.Err() != nil {
				return
			}
			log.Warn().Str("feed", s.name).Err(err).Dur("delay", s.cfg.ReconnectDelay).Msg("ws disconnected, reconnecting")
			s.emitState(ctx, domain.ConnDisconnected, &domain.ConnectionError{URL: s.url, Op: "read", Err: err})
		}

		if !sleepCtx(ctx, s.cfg.ReconnectDelay) {
			return
		}
	}
}

// readLoop 返回时连接已关闭、读协程已退出
func (s *Stream) readLoop(ctx context.Context, conn *gws.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	pingTicker := time.NewTicker(s.cfg.PingInterval)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
			ok := s.emit(ctx, port.StreamEvent{
				Type: port.EventMessage,
				Message: port.RawMessage{
					Kind:       s.kind,
					Data:       b,
					ReceivedAt: time.Now(),
				},
			})
			if !ok {
				errCh <- ctx.Err()
				return
			}
		}
	}()

	var err error
loop:
	for {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break loop
		case err = <-errCh:
			break loop
		case <-pingTicker.C:
			_ = conn.WriteControl(gws.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		}
	}

	_ = conn.Close()
	<-readerDone
	return err
}

func (s *Stream) emitState(ctx context.Context, st domain.ConnectionState, err error) {
	s.state.Store(int32(st))
	s.emit(ctx, port.StreamEvent{Type: port.EventState, State: st, Err: err})
}

// emit 在 ctx 取消后不再投递任何事件
func (s *Stream) emit(ctx context.Context, ev port.StreamEvent) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

var _ port.Stream = (*Stream)(nil)
