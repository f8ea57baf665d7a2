package domain

import (
	"fmt"
	"strings"
)

// Granularity 时间粒度：15s 为逐笔成交流，其余为 K 线
type Granularity string

const (
	GranularityTick   Granularity = "15s"
	GranularityMinute Granularity = "1m"
	GranularityHour   Granularity = "1h"
	GranularityDay    Granularity = "1d"
)

// DefaultGranularity 未保存偏好或偏好无效时使用
const DefaultGranularity = GranularityMinute

// DefaultInstrument 默认交易对
const DefaultInstrument = "BTCUSDT"

var granularities = []Granularity{GranularityTick, GranularityMinute, GranularityHour, GranularityDay}

// Granularities 返回全部支持的粒度（按从细到粗排序）
func Granularities() []Granularity {
	out := make([]Granularity, len(granularities))
	copy(out, granularities)
	return out
}

// ParseGranularity 解析粒度字符串，大小写与首尾空白不敏感
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	if g.Valid() {
		return g, nil
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}

func (g Granularity) Valid() bool {
	for _, v := range granularities {
		if g == v {
			return true
		}
	}
	return false
}

// IsTick 逐笔成交粒度：每条消息都是新的、已确定的点
func (g Granularity) IsTick() bool { return g == GranularityTick }

// KlineInterval 返回 K 线接口使用的 interval 参数；tick 粒度没有对应值
func (g Granularity) KlineInterval() (string, bool) {
	switch g {
	case GranularityMinute, GranularityHour, GranularityDay:
		return string(g), true
	default:
		return "", false
	}
}

// MessageKind 推送消息类型
func (g Granularity) MessageKind() MessageKind {
	if g.IsTick() {
		return MessageTrade
	}
	return MessageBar
}

func (g Granularity) String() string { return string(g) }

// Selection 决定加载哪个快照、订阅哪条流
type Selection struct {
	Instrument  string      `json:"instrument"`
	Granularity Granularity `json:"granularity"`
}

// NewSelection normalizes the instrument (upper case, no separators) and
// validates the granularity.
func NewSelection(instrument string, g Granularity) (Selection, error) {
	inst := NormalizeInstrument(instrument)
	if inst == "" {
		return Selection{}, fmt.Errorf("instrument is empty")
	}
	if !g.Valid() {
		return Selection{}, fmt.Errorf("unknown granularity %q", string(g))
	}
	return Selection{Instrument: inst, Granularity: g}, nil
}

// NormalizeInstrument 例: "btc/usdt" -> "BTCUSDT", " eth-usdt " -> "ETHUSDT"
func NormalizeInstrument(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("/", "", "-", "", "_", "", " ", "").Replace(s)
}

func (s Selection) String() string {
	return s.Instrument + "@" + string(s.Granularity)
}
