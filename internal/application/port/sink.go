package port

import (
	"time"

	"xfeed/internal/domain"
)

type Sink interface {
	// Live line: overwrite last line (no newline)
	WriteLive(line string) error
	// Snapshot line: append a historical line with timestamp, then leave an empty line for future live updates
	WriteSnapshot(ts time.Time, line string) error
	// Normal newline (for logs)
	NewLine() error
}

// Observer 订阅节流后发布的 View
type Observer interface {
	OnView(v domain.View)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(v domain.View)

func (f ObserverFunc) OnView(v domain.View) { f(v) }
