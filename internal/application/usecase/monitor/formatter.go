package monitor

import (
	"strconv"
	"strings"

	"xfeed/internal/domain"
)

const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

func colorize(s, c string) string { return c + s + ansiReset }

type Formatter struct {
	Color bool
}

func NewFormatter(color bool) *Formatter {
	return &Formatter{Color: color}
}

type RenderMode int

const (
	RenderLive RenderMode = iota
	RenderSnapshot
)

func (f *Formatter) paint(s, c string) string {
	if !f.Color {
		return s
	}
	return colorize(s, c)
}

func dirColor(d domain.Direction) string {
	switch d {
	case domain.DirectionUp:
		return ansiGreen
	case domain.DirectionDown:
		return ansiRed
	default:
		return ansiYellow
	}
}

// Render 例: [XFEED] BTCUSDT@1m 65000.10 Δ=+12.5 (+0.02%) n=100 streaming/connected
func (f *Formatter) Render(v domain.View, mode RenderMode) string {
	var sb strings.Builder
	if mode == RenderLive {
		sb.WriteString("\r")
	}

	sb.WriteString(f.paint("[XFEED] ", ansiDim))
	sb.WriteString(v.Selection.String())
	sb.WriteString(" ")

	price := "--"
	if v.CurrentPrice != "" {
		price = v.CurrentPrice
	}
	col := dirColor(v.Direction)
	sb.WriteString(f.paint(price, col))

	change := "Δ=--"
	if v.Change != "" {
		change = "Δ=" + signed(v.Change)
		if v.ChangePercent != "" {
			change += " (" + signed(v.ChangePercent) + "%)"
		}
		col = ansiYellow
		switch {
		case strings.HasPrefix(v.Change, "-"):
			col = ansiRed
		case v.Change != "0":
			col = ansiGreen
		}
	}
	sb.WriteString(" ")
	sb.WriteString(f.paint(change, col))

	sb.WriteString(" ")
	sb.WriteString(f.paint("n="+strconv.Itoa(v.Series.Len()), ansiDim))
	sb.WriteString(" ")
	sb.WriteString(f.paint(v.Sync.String()+"/"+v.Connection.String(), ansiDim))

	if v.Error != "" && v.Sync == domain.SyncDegraded {
		sb.WriteString(" ")
		sb.WriteString(f.paint("err="+v.Error, ansiRed))
	}

	if mode == RenderLive {
		sb.WriteString(ansiClearEOL)
	}
	return sb.String()
}

func signed(s string) string {
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return s
	}
	return "+" + s
}
