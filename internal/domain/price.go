package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Direction represents the price movement direction
type Direction int

const (
	DirectionSame Direction = 0
	DirectionUp   Direction = +1
	DirectionDown Direction = -1
)

// PricePoint 序列中的一个价格点
// Price 保留交易所原始字符串，Time 为毫秒时间戳
type PricePoint struct {
	Price string `json:"price"`
	Time  int64  `json:"time"`
}

var errEmptyPrice = errors.New("empty price")

// ParsePrice 校验价格字符串：必须是有限、非负的十进制数
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errEmptyPrice
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %q", s)
	}
	return d, nil
}

// CompareDirection 比较前后两个价格的方向，任一方无法解析时返回 DirectionSame
func CompareDirection(prev, cur string) Direction {
	p, err := ParsePrice(prev)
	if err != nil {
		return DirectionSame
	}
	c, err := ParsePrice(cur)
	if err != nil {
		return DirectionSame
	}
	switch c.Cmp(p) {
	case 1:
		return DirectionUp
	case -1:
		return DirectionDown
	default:
		return DirectionSame
	}
}
