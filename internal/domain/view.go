package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// View is the read-only snapshot handed to the presentation layer.
type View struct {
	Selection  Selection       `json:"selection"`
	Session    string          `json:"session"`
	Sync       SyncState       `json:"sync"`
	Connection ConnectionState `json:"connection"`
	Series     Series          `json:"series"`

	CurrentPrice  string     `json:"current_price"`
	BaselinePrice string     `json:"baseline_price"`
	Change        string     `json:"change"`
	ChangePercent string     `json:"change_percent"`
	Direction     Direction  `json:"direction"`
	LastTrade     *LastTrade `json:"last_trade,omitempty"`

	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ViewInput 构造 View 所需的控制器状态
type ViewInput struct {
	Selection     Selection
	Session       string
	Sync          SyncState
	Connection    ConnectionState
	Series        Series
	BaselinePrice string
	PreviousPrice string
	LastTrade     *LastTrade
	Err           error
	Now           time.Time
}

var hundred = decimal.NewFromInt(100)

// NewView 计算当前价、相对基准价的涨跌额与涨跌幅
func NewView(in ViewInput) View {
	v := View{
		Selection:     in.Selection,
		Session:       in.Session,
		Sync:          in.Sync,
		Connection:    in.Connection,
		Series:        in.Series,
		BaselinePrice: in.BaselinePrice,
		LastTrade:     in.LastTrade,
		UpdatedAt:     in.Now,
	}
	if in.Err != nil {
		v.Error = in.Err.Error()
	}

	last, ok := in.Series.Last()
	if !ok {
		return v
	}
	v.CurrentPrice = last.Price
	v.Direction = CompareDirection(in.PreviousPrice, last.Price)

	base, err := ParsePrice(in.BaselinePrice)
	if err != nil {
		return v
	}
	cur, err := ParsePrice(last.Price)
	if err != nil {
		return v
	}
	change := cur.Sub(base)
	v.Change = change.String()
	if base.IsPositive() {
		v.ChangePercent = change.Div(base).Mul(hundred).StringFixed(2)
	}
	return v
}
