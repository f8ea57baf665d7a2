package domain

// MessageKind tags a raw push message with the shape it is expected to have.
type MessageKind int

const (
	MessageTrade MessageKind = iota + 1
	MessageBar
)

func (k MessageKind) String() string {
	switch k {
	case MessageTrade:
		return "trade"
	case MessageBar:
		return "bar"
	default:
		return "unknown"
	}
}

// CanonicalUpdate 统一后的增量更新，与交易所消息格式无关
//
// IsFinal=false 表示该 K 线仍在变化，后续同一 Time 的更新会原地替换；
// 成交和已收盘 K 线为 true。
type CanonicalUpdate struct {
	Price   string
	Time    int64
	IsFinal bool

	// 成交详情（K 线更新时 Quantity 为成交量，BuyerMaker 恒为 false）
	Quantity   string
	BuyerMaker bool
}

// LastTrade 最近一次被合并的更新
type LastTrade struct {
	Price      string `json:"price"`
	Quantity   string `json:"quantity"`
	Time       int64  `json:"time"`
	BuyerMaker bool   `json:"is_buyer_maker"`
	Final      bool   `json:"final"`
}

func (u CanonicalUpdate) LastTrade() LastTrade {
	return LastTrade{
		Price:      u.Price,
		Quantity:   u.Quantity,
		Time:       u.Time,
		BuyerMaker: u.BuyerMaker,
		Final:      u.IsFinal,
	}
}
