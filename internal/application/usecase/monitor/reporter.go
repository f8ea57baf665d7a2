package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"xfeed/internal/application/port"
	"xfeed/internal/application/service"
	"xfeed/internal/domain"
)

const persistTimeout = 3 * time.Second

type ReporterDeps struct {
	Sink       port.Sink
	Prices     *service.PriceService    // 可为空
	Snapshots  *service.SnapshotService // 可为空
	PrintEvery time.Duration            // <=0 不输出周期快照
	Color      bool
}

// Reporter 控制台观察者：实时行覆盖刷新，周期性输出快照行并归档
type Reporter struct {
	deps ReporterDeps
	fmt  *Formatter

	mu        sync.Mutex
	last      domain.View
	has       bool
	lastPrice string
}

func NewReporter(deps ReporterDeps) *Reporter {
	return &Reporter{
		deps: deps,
		fmt:  NewFormatter(deps.Color),
	}
}

// OnView 在广播协程中调用
func (r *Reporter) OnView(v domain.View) {
	r.mu.Lock()
	r.last = v
	r.has = true
	priceChanged := v.CurrentPrice != "" && v.CurrentPrice != r.lastPrice
	if priceChanged {
		r.lastPrice = v.CurrentPrice
	}
	r.mu.Unlock()

	_ = r.deps.Sink.WriteLive(r.fmt.Render(v, RenderLive))

	if priceChanged && r.deps.Prices != nil {
		last, _ := v.Series.Last()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := r.deps.Prices.UpdatePrice(ctx, v.Selection.Instrument, v.CurrentPrice, last.Time); err != nil {
			log.Warn().Err(err).Str("instrument", v.Selection.Instrument).Msg("persist latest price failed")
		}
	}
}

// Run 周期快照循环，ctx 取消时返回
func (r *Reporter) Run(ctx context.Context) error {
	if r.deps.PrintEvery <= 0 {
		<-ctx.Done()
		_ = r.deps.Sink.NewLine()
		return ctx.Err()
	}

	snapTicker := time.NewTicker(r.deps.PrintEvery)
	defer snapTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = r.deps.Sink.NewLine()
			return ctx.Err()

		case now := <-snapTicker.C:
			r.snapshot(ctx, now)
		}
	}
}

func (r *Reporter) snapshot(ctx context.Context, now time.Time) {
	r.mu.Lock()
	v, ok := r.last, r.has
	r.mu.Unlock()
	if !ok {
		return
	}

	_ = r.deps.Sink.WriteSnapshot(now, r.fmt.Render(v, RenderSnapshot))
	if r.deps.Snapshots != nil {
		if err := r.deps.Snapshots.SaveSnapshot(ctx, now.UnixMilli(), v); err != nil {
			log.Warn().Err(err).Msg("persist snapshot failed")
		}
	}
}
