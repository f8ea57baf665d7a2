package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"xfeed/internal/application/port"
	"xfeed/internal/application/service"
	"xfeed/internal/domain"
)

type ControllerDeps struct {
	Source      port.FeedSource
	Preferences *service.PreferenceService // 可为空：不读写偏好
	Broadcaster *Broadcaster               // 可为空：只通过 View() 读取

	Instrument       string
	HistoryLimit     int
	ThrottleInterval time.Duration
}

type commandKind int

const (
	cmdSelect commandKind = iota + 1
	cmdRestart
)

type command struct {
	kind commandKind
	sel  domain.Selection
	done chan error
}

type snapshotResult struct {
	gen    uint64
	sel    domain.Selection
	series domain.Series
	err    error
}

// Controller 同步控制器：快照加载、推送流、合并、节流发布
//
// 所有流水线状态只由 loop 协程持有；外部通过命令通道驱动，
// 通过 View()/Selection() 读取最近一次状态。
type Controller struct {
	deps     ControllerDeps
	throttle *Throttle[domain.View]

	view      atomic.Pointer[domain.View]
	selection atomic.Pointer[domain.Selection]

	cmds      chan command
	snapshots chan snapshotResult

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}

	now        func() time.Time
	newSession func() string

	// loop 协程独占
	p   pipeline
	gen uint64
}

func NewController(deps ControllerDeps) *Controller {
	if deps.HistoryLimit <= 0 {
		deps.HistoryLimit = domain.DefaultCapacity
	}
	if deps.Instrument == "" {
		deps.Instrument = domain.DefaultInstrument
	}
	c := &Controller{
		deps:       deps,
		cmds:       make(chan command),
		snapshots:  make(chan snapshotResult),
		done:       make(chan struct{}),
		now:        time.Now,
		newSession: uuid.NewString,
	}
	c.throttle = NewThrottle(deps.ThrottleInterval, c.broadcast)

	sel := domain.Selection{
		Instrument:  domain.NormalizeInstrument(deps.Instrument),
		Granularity: domain.DefaultGranularity,
	}
	c.selection.Store(&sel)
	v := domain.NewView(domain.ViewInput{Selection: sel, Sync: domain.SyncUninitialized, Now: c.now()})
	c.view.Store(&v)
	return c
}

// Start 读取偏好粒度并启动第一条流水线；ctx 取消等同于 Close
func (c *Controller) Start(ctx context.Context) error {
	g := domain.DefaultGranularity
	if c.deps.Preferences != nil {
		g = c.deps.Preferences.Granularity(ctx)
	}
	sel, err := domain.NewSelection(c.deps.Instrument, g)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.started {
		return ErrAlreadyStarted
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.started = true
	c.cancel = cancel

	log.Info().
		Str("feed", c.deps.Source.Name).
		Str("selection", sel.String()).
		Int("history_limit", c.deps.HistoryLimit).
		Msg("sync controller started")

	go c.loop(loopCtx, sel)
	return nil
}

// Select 切换 Selection：关闭旧流、丢弃旧序列、重新加载快照，并保存粒度偏好
// 与当前 Selection 相同时不做任何事
func (c *Controller) Select(ctx context.Context, sel domain.Selection) error {
	sel, err := domain.NewSelection(sel.Instrument, sel.Granularity)
	if err != nil {
		return err
	}
	if err := c.send(ctx, command{kind: cmdSelect, sel: sel}); err != nil {
		return err
	}
	if c.deps.Preferences != nil {
		if err := c.deps.Preferences.SaveGranularity(ctx, sel.Granularity); err != nil {
			log.Warn().Err(err).Str("granularity", sel.Granularity.String()).Msg("save preference failed")
		}
	}
	return nil
}

// Restart 以当前 Selection 重建流水线；快照加载中时忽略
func (c *Controller) Restart(ctx context.Context) error {
	return c.send(ctx, command{kind: cmdRestart})
}

func (c *Controller) Selection() domain.Selection { return *c.selection.Load() }

// View 返回最新状态（不经过节流）
func (c *Controller) View() domain.View { return *c.view.Load() }

// Close 关闭推送流、作废进行中的快照请求，返回后不会再有任何发布；可重复调用
func (c *Controller) Close() error {
	c.mu.Lock()
	started := c.started
	first := !c.closed
	c.closed = true
	cancel := c.cancel
	c.mu.Unlock()

	if started {
		cancel()
		<-c.done
		return nil
	}
	if first {
		c.throttle.Stop()
		v := c.View()
		v.Sync = domain.SyncTornDown
		c.view.Store(&v)
	}
	return nil
}

func (c *Controller) send(ctx context.Context, cmd command) error {
	c.mu.Lock()
	started, closed := c.started, c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if !started {
		return ErrNotStarted
	}

	cmd.done = make(chan error, 1)
	select {
	case c.cmds <- cmd:
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) loop(ctx context.Context, initial domain.Selection) {
	defer close(c.done)
	defer c.shutdown()

	c.activate(ctx, initial)
	for {
		var events <-chan port.StreamEvent
		if c.p.stream != nil {
			events = c.p.stream.Events()
		}

		select {
		case <-ctx.Done():
			return

		case cmd := <-c.cmds:
			cmd.done <- c.handle(ctx, cmd)

		case res := <-c.snapshots:
			c.onSnapshot(ctx, res)

		case ev, ok := <-events:
			if !ok {
				c.p.stream = nil
				continue
			}
			c.onStreamEvent(ev)
		}
	}
}

func (c *Controller) handle(ctx context.Context, cmd command) error {
	switch cmd.kind {
	case cmdSelect:
		if cmd.sel == c.p.sel {
			return nil
		}
		log.Info().
			Str("from", c.p.sel.String()).
			Str("to", cmd.sel.String()).
			Msg("selection changed")
		c.activate(ctx, cmd.sel)
	case cmdRestart:
		if c.p.fetching {
			log.Debug().Str("session", c.p.session).Msg("restart ignored, snapshot in flight")
			return nil
		}
		log.Info().Str("selection", c.p.sel.String()).Msg("restart requested")
		c.activate(ctx, c.p.sel)
	}
	return nil
}

// activate 先拆除旧流水线，再开始新一轮快照加载
func (c *Controller) activate(ctx context.Context, sel domain.Selection) {
	c.teardown()

	c.gen++
	c.p.reset(sel, c.gen, c.newSession(), c.deps.HistoryLimit)
	c.selection.Store(&sel)

	fetchCtx, cancel := context.WithCancel(ctx)
	c.p.cancelFetch = cancel
	c.p.fetching = true

	log.Info().
		Str("session", c.p.session).
		Str("selection", sel.String()).
		Uint64("gen", c.gen).
		Msg("loading snapshot")
	c.publish()

	gen, limit, loader := c.gen, c.deps.HistoryLimit, c.deps.Source.Loader
	go func() {
		s, err := loader.LoadSnapshot(fetchCtx, sel, limit)
		select {
		case c.snapshots <- snapshotResult{gen: gen, sel: sel, series: s, err: err}:
		case <-fetchCtx.Done():
		}
	}()
}

func (c *Controller) onSnapshot(ctx context.Context, res snapshotResult) {
	if res.gen != c.p.gen {
		log.Debug().
			Uint64("gen", res.gen).
			Uint64("current", c.p.gen).
			Str("selection", res.sel.String()).
			Msg("stale snapshot ignored")
		return
	}
	c.p.fetching = false
	if c.p.cancelFetch != nil {
		c.p.cancelFetch()
		c.p.cancelFetch = nil
	}

	if res.err != nil {
		log.Error().Err(res.err).Str("session", c.p.session).Msg("snapshot load failed")
		c.p.sync = domain.SyncDegraded
		c.p.err = res.err
		c.publish()
		return
	}

	c.p.applySnapshot(res.series)
	log.Info().
		Str("session", c.p.session).
		Int("points", res.series.Len()).
		Str("baseline", c.p.baseline).
		Msg("snapshot loaded")

	stream, err := c.deps.Source.Connector.Open(ctx, c.p.sel)
	if err != nil {
		log.Error().Err(err).Str("session", c.p.session).Msg("open stream failed")
		c.p.sync = domain.SyncDegraded
		c.p.err = err
		c.publish()
		return
	}
	c.p.stream = stream
	c.publish()
}

func (c *Controller) onStreamEvent(ev port.StreamEvent) {
	switch ev.Type {
	case port.EventState:
		c.p.applyConnection(ev.State, ev.Err)
		log.Debug().
			Str("session", c.p.session).
			Str("conn", ev.State.String()).
			Str("sync", c.p.sync.String()).
			Msg("stream state")
		c.publish()

	case port.EventMessage:
		u, err := c.deps.Source.Normalizer.Normalize(ev.Message)
		if errors.Is(err, port.ErrSkipMessage) {
			return
		}
		if err != nil {
			log.Warn().Err(err).Str("session", c.p.session).Msg("malformed message dropped")
			return
		}
		if res := c.p.applyUpdate(u); res == domain.MergeStale {
			log.Debug().Int64("time", u.Time).Str("session", c.p.session).Msg("stale update dropped")
			return
		}
		c.publish()
	}
}

// teardown 关闭当前流（等待其读协程退出）并作废进行中的快照请求
func (c *Controller) teardown() {
	if c.p.stream != nil {
		_ = c.p.stream.Close()
		c.p.stream = nil
	}
	if c.p.cancelFetch != nil {
		c.p.cancelFetch()
		c.p.cancelFetch = nil
	}
	c.p.fetching = false
}

func (c *Controller) shutdown() {
	c.teardown()
	c.throttle.Stop()
	c.p.sync = domain.SyncTornDown
	c.p.conn = domain.ConnIdle
	v := c.p.view(c.now())
	c.view.Store(&v)
	log.Info().Str("session", c.p.session).Msg("sync controller torn down")
}

func (c *Controller) publish() {
	v := c.p.view(c.now())
	c.view.Store(&v)
	c.throttle.Offer(v)
}

func (c *Controller) broadcast(v domain.View) {
	if c.deps.Broadcaster != nil {
		c.deps.Broadcaster.Publish(v)
	}
}
