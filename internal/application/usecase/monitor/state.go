package monitor

import (
	"context"
	"time"

	"xfeed/internal/application/port"
	"xfeed/internal/domain"
)

// pipeline 一次激活（Selection + generation）的全部可变状态，只由控制器协程访问
type pipeline struct {
	gen     uint64
	session string
	sel     domain.Selection

	sync   domain.SyncState
	conn   domain.ConnectionState
	series domain.Series
	err    error

	baseline  string
	previous  string
	lastTrade *domain.LastTrade

	stream      port.Stream
	cancelFetch context.CancelFunc
	fetching    bool
}

// reset 丢弃上一条流水线的序列与状态
func (p *pipeline) reset(sel domain.Selection, gen uint64, session string, capacity int) {
	*p = pipeline{
		gen:     gen,
		session: session,
		sel:     sel,
		sync:    domain.SyncLoading,
		conn:    domain.ConnIdle,
		series:  domain.NewSeries(capacity),
	}
}

// applySnapshot 基准价取快照第一个点
func (p *pipeline) applySnapshot(s domain.Series) {
	p.series = s
	p.previous = ""
	p.baseline = ""
	if first, ok := s.First(); ok {
		p.baseline = first.Price
	}
}

// applyUpdate 合并一条增量，返回合并结果；Stale 时状态不变
func (p *pipeline) applyUpdate(u domain.CanonicalUpdate) domain.MergeResult {
	next, res := p.series.Merge(u)
	if res == domain.MergeStale {
		return res
	}
	if last, ok := p.series.Last(); ok {
		p.previous = last.Price
	}
	p.series = next
	if p.baseline == "" {
		if first, ok := next.First(); ok {
			p.baseline = first.Price
		}
	}
	lt := u.LastTrade()
	p.lastTrade = &lt
	return res
}

// applyConnection 连接状态映射到同步状态
func (p *pipeline) applyConnection(st domain.ConnectionState, err error) {
	p.conn = st
	switch st {
	case domain.ConnConnected:
		p.sync = domain.SyncStreaming
		p.err = nil
	case domain.ConnDisconnected, domain.ConnFailed:
		p.sync = domain.SyncReconnectPending
		if err != nil {
			p.err = err
		}
	}
}

func (p *pipeline) view(now time.Time) domain.View {
	return domain.NewView(domain.ViewInput{
		Selection:     p.sel,
		Session:       p.session,
		Sync:          p.sync,
		Connection:    p.conn,
		Series:        p.series,
		BaselinePrice: p.baseline,
		PreviousPrice: p.previous,
		LastTrade:     p.lastTrade,
		Err:           p.err,
		Now:           now,
	})
}
