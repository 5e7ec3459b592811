package domain

import (
	"testing"
	"time"

	"github.com/wyfcoding/papertrading/internal/fixedpoint"
	trading "github.com/wyfcoding/papertrading/internal/trading/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func level(price, quantity string) PriceLevel {
	return PriceLevel{
		Price:    fixedpoint.MustFromString(price),
		Quantity: fixedpoint.MustFromString(quantity),
	}
}

func testSnapshot() *OrderBookSnapshot {
	return NewOrderBookSnapshot(
		trading.NewSymbol("BTC-USD"),
		time.Now(),
		100,
		[]PriceLevel{level("100", "2"), level("99", "1"), level("98", "3")},
		[]PriceLevel{level("101", "1"), level("102", "2"), level("103", "5")},
	)
}

func TestNewOrderBookSnapshotSortsLevels(t *testing.T) {
	// 乱序输入必须被整理为 bids 降序、asks 升序
	s := NewOrderBookSnapshot(
		trading.NewSymbol("BTC-USD"),
		time.Now(),
		1,
		[]PriceLevel{level("98", "3"), level("100", "2"), level("99", "1")},
		[]PriceLevel{level("103", "5"), level("101", "1"), level("102", "2")},
	)

	bid, ok := s.BestBid()
	require.True(t, ok)
	assert.Equal(t, "100", bid.Price.String())

	ask, ok := s.BestAsk()
	require.True(t, ok)
	assert.Equal(t, "101", ask.Price.String())
}

func TestMidPriceBetweenBestBidAndAsk(t *testing.T) {
	s := testSnapshot()

	mid, ok := s.MidPrice()
	require.True(t, ok)
	assert.Equal(t, "100.5", mid.String())

	bid, _ := s.BestBid()
	ask, _ := s.BestAsk()
	assert.True(t, !mid.LessThan(bid.Price))
	assert.True(t, !mid.GreaterThan(ask.Price))
}

func TestMidPriceUnavailableOnEmptySide(t *testing.T) {
	s := NewOrderBookSnapshot(trading.NewSymbol("BTC-USD"), time.Now(), 1,
		[]PriceLevel{level("100", "1")}, nil)

	_, ok := s.MidPrice()
	assert.False(t, ok)
	_, ok = s.SpreadBps()
	assert.False(t, ok)

	bid, ok := s.BestBid()
	require.True(t, ok)
	assert.Equal(t, "100", bid.Price.String())
	_, ok = s.BestAsk()
	assert.False(t, ok)
}

func TestSpreadBps(t *testing.T) {
	s := testSnapshot()

	spread, ok := s.SpreadBps()
	require.True(t, ok)
	// (101 - 100) / 100.5 * 10000
	assert.Equal(t, "99.50248756", spread.String())
}

func TestImbalance(t *testing.T) {
	s := testSnapshot()

	// 买量 6，卖量 8
	imbalance, ok := s.Imbalance(DefaultImbalanceLevels)
	require.True(t, ok)
	assert.Equal(t, "-0.14285714", imbalance.String())

	one := fixedpoint.FromInt(1)
	assert.True(t, !imbalance.GreaterThan(one))
	assert.True(t, !imbalance.LessThan(one.Neg()))
}

func TestImbalanceExtremesAndEmptyBook(t *testing.T) {
	bidOnly := NewOrderBookSnapshot(trading.NewSymbol("BTC-USD"), time.Now(), 1,
		[]PriceLevel{level("100", "5")}, nil)
	imbalance, ok := bidOnly.Imbalance(5)
	require.True(t, ok)
	assert.Equal(t, "1", imbalance.String())

	empty := NewOrderBookSnapshot(trading.NewSymbol("BTC-USD"), time.Now(), 1, nil, nil)
	_, ok = empty.Imbalance(5)
	assert.False(t, ok)
	_, ok = empty.WeightedImbalance(10, DefaultImbalanceDecay)
	assert.False(t, ok)
}

func TestWeightedImbalance(t *testing.T) {
	// 两侧对称时加权失衡为零
	symmetric := NewOrderBookSnapshot(trading.NewSymbol("BTC-USD"), time.Now(), 1,
		[]PriceLevel{level("100", "1"), level("99", "2")},
		[]PriceLevel{level("101", "1"), level("102", "2")},
	)
	imbalance, ok := symmetric.WeightedImbalance(DefaultWeightedImbalanceLevels, DefaultImbalanceDecay)
	require.True(t, ok)
	assert.True(t, imbalance.IsZero())

	// 盘口买量占优时为正
	s := NewOrderBookSnapshot(trading.NewSymbol("BTC-USD"), time.Now(), 1,
		[]PriceLevel{level("100", "5"), level("99", "1")},
		[]PriceLevel{level("101", "1"), level("102", "1")},
	)
	imbalance, ok = s.WeightedImbalance(DefaultWeightedImbalanceLevels, DefaultImbalanceDecay)
	require.True(t, ok)
	assert.True(t, imbalance.IsPositive())
}

func TestDepth(t *testing.T) {
	s := testSnapshot()
	assert.Equal(t, "3", s.BidDepth(2).String())
	assert.Equal(t, "6", s.BidDepth(10).String())
	assert.Equal(t, "8", s.AskDepth(3).String())
}

func TestTotalDepthSumsAllLevels(t *testing.T) {
	// 档位数超过失衡指标默认档数，全量深度必须覆盖全部档位
	bids := make([]PriceLevel, 0, 7)
	for i := 0; i < 7; i++ {
		bids = append(bids, PriceLevel{
			Price:    fixedpoint.FromInt(int64(100 - i)),
			Quantity: fixedpoint.FromInt(2),
		})
	}
	asks := make([]PriceLevel, 0, 6)
	for i := 0; i < 6; i++ {
		asks = append(asks, PriceLevel{
			Price:    fixedpoint.FromInt(int64(101 + i)),
			Quantity: fixedpoint.FromInt(3),
		})
	}
	s := NewOrderBookSnapshot(trading.NewSymbol("BTC-USD"), time.Now(), 1, bids, asks)

	assert.Equal(t, "14", s.TotalBidDepth().String())
	assert.Equal(t, "18", s.TotalAskDepth().String())

	// 按档数截断的深度仍然可用
	assert.Equal(t, "10", s.BidDepth(5).String())
	assert.Equal(t, "15", s.AskDepth(5).String())
}

func TestVWAPWalksOppositeSide(t *testing.T) {
	s := testSnapshot()

	// 买单吃卖盘：1@101 + 1@102
	vwap, ok := s.VWAP(trading.SideBuy, fixedpoint.MustFromString("2"))
	require.True(t, ok)
	assert.Equal(t, "101.5", vwap.String())

	// 卖单吃买盘：2@100 + 1@99
	vwap, ok = s.VWAP(trading.SideSell, fixedpoint.MustFromString("3"))
	require.True(t, ok)
	assert.Equal(t, "99.66666667", vwap.String())
}

func TestVWAPInsufficientLiquidity(t *testing.T) {
	s := testSnapshot()
	_, ok := s.VWAP(trading.SideBuy, fixedpoint.MustFromString("100"))
	assert.False(t, ok)

	_, ok = s.VWAP(trading.SideBuy, fixedpoint.Zero(8))
	assert.False(t, ok)
}

func TestEstimateSlippageAdverseIsPositive(t *testing.T) {
	s := testSnapshot()

	// 买单 VWAP 101.5 高于中间价 100.5
	slippage, ok := s.EstimateSlippage(trading.SideBuy, fixedpoint.MustFromString("2"))
	require.True(t, ok)
	assert.Equal(t, "99.50248756", slippage.String())

	// 卖单 VWAP 低于中间价，同样为正
	slippage, ok = s.EstimateSlippage(trading.SideSell, fixedpoint.MustFromString("3"))
	require.True(t, ok)
	assert.True(t, slippage.IsPositive())

	_, ok = s.EstimateSlippage(trading.SideBuy, fixedpoint.MustFromString("100"))
	assert.False(t, ok)
}
