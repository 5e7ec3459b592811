// 包 行情服务的领域模型：不可变订单簿快照与微观结构指标计算
package domain

import (
	"sort"
	"time"

	"github.com/wyfcoding/papertrading/internal/fixedpoint"
	trading "github.com/wyfcoding/papertrading/internal/trading/domain"
)

// 微观结构指标的默认参数
const (
	// DefaultImbalanceLevels 失衡指标默认统计档位数
	DefaultImbalanceLevels = 5
	// DefaultWeightedImbalanceLevels 加权失衡指标默认统计档位数
	DefaultWeightedImbalanceLevels = 10
)

// DefaultImbalanceDecay 加权失衡指标的档位衰减系数
var DefaultImbalanceDecay = fixedpoint.MustFromString("0.9")

var (
	two           = fixedpoint.FromInt(2)
	bpsMultiplier = fixedpoint.FromInt(10000)
)

// PriceLevel 订单簿单个价格档位
type PriceLevel struct {
	Price    fixedpoint.Decimal
	Quantity fixedpoint.Decimal
}

// OrderBookSnapshot 不可变订单簿快照。整体构造、整体替换，构造后不再修改，
// 因此可被任意多个 goroutine 并发读取而无需加锁。
// Bids 按价格降序，Asks 按价格升序。
type OrderBookSnapshot struct {
	Symbol     trading.Symbol
	Timestamp  time.Time
	SequenceID uint64
	Bids       []PriceLevel
	Asks       []PriceLevel
}

// NewOrderBookSnapshot 构造订单簿快照。入参档位会被复制并排序，
// 保证 Bids 降序、Asks 升序的结构不变式。
func NewOrderBookSnapshot(symbol trading.Symbol, timestamp time.Time, sequenceID uint64, bids, asks []PriceLevel) *OrderBookSnapshot {
	sortedBids := make([]PriceLevel, len(bids))
	copy(sortedBids, bids)
	sort.SliceStable(sortedBids, func(i, j int) bool {
		return sortedBids[i].Price.GreaterThan(sortedBids[j].Price)
	})

	sortedAsks := make([]PriceLevel, len(asks))
	copy(sortedAsks, asks)
	sort.SliceStable(sortedAsks, func(i, j int) bool {
		return sortedAsks[i].Price.LessThan(sortedAsks[j].Price)
	})

	return &OrderBookSnapshot{
		Symbol:     symbol,
		Timestamp:  timestamp,
		SequenceID: sequenceID,
		Bids:       sortedBids,
		Asks:       sortedAsks,
	}
}

// BestBid 最优买价档位
func (s *OrderBookSnapshot) BestBid() (PriceLevel, bool) {
	if len(s.Bids) == 0 {
		return PriceLevel{}, false
	}
	return s.Bids[0], true
}

// BestAsk 最优卖价档位
func (s *OrderBookSnapshot) BestAsk() (PriceLevel, bool) {
	if len(s.Asks) == 0 {
		return PriceLevel{}, false
	}
	return s.Asks[0], true
}

// MidPrice 中间价 = (最优买价 + 最优卖价) / 2，单边为空时不可用
func (s *OrderBookSnapshot) MidPrice() (fixedpoint.Decimal, bool) {
	bid, okBid := s.BestBid()
	ask, okAsk := s.BestAsk()
	if !okBid || !okAsk {
		return fixedpoint.Decimal{}, false
	}
	// 升到默认精度再取半，避免低精度输入在除法中截断
	mid, err := bid.Price.Add(ask.Price).Rescale(fixedpoint.DefaultScale).Div(two)
	if err != nil {
		return fixedpoint.Decimal{}, false
	}
	return mid, true
}

// SpreadBps 买卖价差（基点）= (ask - bid) / mid × 10000
func (s *OrderBookSnapshot) SpreadBps() (fixedpoint.Decimal, bool) {
	bid, okBid := s.BestBid()
	ask, okAsk := s.BestAsk()
	if !okBid || !okAsk {
		return fixedpoint.Decimal{}, false
	}
	mid, ok := s.MidPrice()
	if !ok || mid.IsZero() {
		return fixedpoint.Decimal{}, false
	}
	spread, err := ask.Price.Sub(bid.Price).Mul(bpsMultiplier).Div(mid)
	if err != nil {
		return fixedpoint.Decimal{}, false
	}
	return spread, true
}

// Imbalance 订单簿失衡 = (买量 - 卖量) / (买量 + 卖量)，统计前 levels 档。
// 取值范围 [-1, 1]，总量为零时不可用。
func (s *OrderBookSnapshot) Imbalance(levels int) (fixedpoint.Decimal, bool) {
	bidVolume := s.BidDepth(levels)
	askVolume := s.AskDepth(levels)
	total := bidVolume.Add(askVolume)
	if total.IsZero() {
		return fixedpoint.Decimal{}, false
	}
	imbalance, err := bidVolume.Sub(askVolume).Div(total)
	if err != nil {
		return fixedpoint.Decimal{}, false
	}
	return imbalance, true
}

// WeightedImbalance 档位加权失衡：第 i 档权重为 decay^i，靠近盘口的档位贡献更大。
// 取值范围 [-1, 1]，加权总量为零时不可用。
func (s *OrderBookSnapshot) WeightedImbalance(levels int, decay fixedpoint.Decimal) (fixedpoint.Decimal, bool) {
	weight := fixedpoint.MustFromString("1.00000000")
	weightedBid := fixedpoint.Zero(fixedpoint.DefaultScale)
	weightedAsk := fixedpoint.Zero(fixedpoint.DefaultScale)

	for i := 0; i < levels; i++ {
		if i < len(s.Bids) {
			weightedBid = weightedBid.Add(s.Bids[i].Quantity.Mul(weight))
		}
		if i < len(s.Asks) {
			weightedAsk = weightedAsk.Add(s.Asks[i].Quantity.Mul(weight))
		}
		weight = weight.Mul(decay)
	}

	total := weightedBid.Add(weightedAsk)
	if total.IsZero() {
		return fixedpoint.Decimal{}, false
	}
	imbalance, err := weightedBid.Sub(weightedAsk).Div(total)
	if err != nil {
		return fixedpoint.Decimal{}, false
	}
	return imbalance, true
}

// BidDepth 前 levels 档买量合计
func (s *OrderBookSnapshot) BidDepth(levels int) fixedpoint.Decimal {
	return sumQuantity(s.Bids, levels)
}

// AskDepth 前 levels 档卖量合计
// TotalBidDepth 全部买档数量合计
func (s *OrderBookSnapshot) TotalBidDepth() fixedpoint.Decimal {
	return sumQuantity(s.Bids, len(s.Bids))
}

// TotalAskDepth 全部卖档数量合计
func (s *OrderBookSnapshot) TotalAskDepth() fixedpoint.Decimal {
	return sumQuantity(s.Asks, len(s.Asks))
}

func (s *OrderBookSnapshot) AskDepth(levels int) fixedpoint.Decimal {
	return sumQuantity(s.Asks, levels)
}

// VWAP 按给定数量吃对手盘的成交量加权均价：买单吃卖盘，卖单吃买盘。
// 对手盘流动性不足以成交全部数量时不可用。
func (s *OrderBookSnapshot) VWAP(side trading.Side, size fixedpoint.Decimal) (fixedpoint.Decimal, bool) {
	if !size.IsPositive() {
		return fixedpoint.Decimal{}, false
	}

	levels := s.Asks
	if side == trading.SideSell {
		levels = s.Bids
	}

	remaining := size
	notional := fixedpoint.Zero(fixedpoint.DefaultScale)
	for _, level := range levels {
		if !remaining.IsPositive() {
			break
		}
		fill := fixedpoint.Min(remaining, level.Quantity)
		notional = notional.Add(level.Price.Mul(fill))
		remaining = remaining.Sub(fill)
	}
	if remaining.IsPositive() {
		return fixedpoint.Decimal{}, false
	}

	vwap, err := notional.Div(size)
	if err != nil {
		return fixedpoint.Decimal{}, false
	}
	return vwap, true
}

// EstimateSlippage 预估滑点（基点），以中间价为基准，不利成交为正：
// 买单 = (vwap - mid) / mid × 10000，卖单 = (mid - vwap) / mid × 10000。
func (s *OrderBookSnapshot) EstimateSlippage(side trading.Side, size fixedpoint.Decimal) (fixedpoint.Decimal, bool) {
	mid, ok := s.MidPrice()
	if !ok || mid.IsZero() {
		return fixedpoint.Decimal{}, false
	}
	vwap, ok := s.VWAP(side, size)
	if !ok {
		return fixedpoint.Decimal{}, false
	}

	diff := vwap.Sub(mid)
	if side == trading.SideSell {
		diff = mid.Sub(vwap)
	}
	slippage, err := diff.Mul(bpsMultiplier).Div(mid)
	if err != nil {
		return fixedpoint.Decimal{}, false
	}
	return slippage, true
}

func sumQuantity(levels []PriceLevel, count int) fixedpoint.Decimal {
	total := fixedpoint.Zero(fixedpoint.DefaultScale)
	for i := 0; i < count && i < len(levels); i++ {
		total = total.Add(levels[i].Quantity)
	}
	return total
}
