package application

import (
	"context"
	"testing"

	"github.com/wyfcoding/papertrading/internal/fixedpoint"
	"github.com/wyfcoding/papertrading/internal/risk/domain"
	trading "github.com/wyfcoding/papertrading/internal/trading/domain"
	"github.com/wyfcoding/papertrading/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *RiskService {
	config := domain.Config{
		MaxPositionSize:     fixedpoint.MustFromString("1.0"),
		MaxTotalExposure:    fixedpoint.MustFromString("100000"),
		MaxDrawdownPct:      fixedpoint.MustFromString("0.05"),
		MaxLossPerTrade:     fixedpoint.MustFromString("500"),
		MaxOrdersPerMinute:  60,
		MinBalanceThreshold: fixedpoint.MustFromString("1000"),
	}
	return NewRiskService(config, fixedpoint.MustFromString("100000"), metrics.New("test"))
}

func checkCmd(quantity string) CheckOrderCommand {
	return CheckOrderCommand{
		Symbol:   trading.NewSymbol("BTC-USD"),
		Side:     trading.SideBuy,
		Quantity: fixedpoint.MustFromString(quantity),
	}
}

func TestCheckOrderApproved(t *testing.T) {
	s := newService()

	result, err := s.CheckOrder(context.Background(), checkCmd("0.5"))
	require.NoError(t, err)

	assert.True(t, result.Approved)
	assert.False(t, result.Adjusted)
	assert.Equal(t, "0.5", result.AdjustedQty)
	assert.Empty(t, result.Reason)
}

func TestCheckOrderAdjustedAgainstTrackedPosition(t *testing.T) {
	s := newService()
	ctx := context.Background()

	require.NoError(t, s.UpdatePosition(ctx, trading.NewSymbol("BTC-USD"),
		fixedpoint.MustFromString("0.8"), fixedpoint.MustFromString("100")))

	result, err := s.CheckOrder(ctx, checkCmd("0.5"))
	require.NoError(t, err)

	assert.True(t, result.Approved)
	assert.True(t, result.Adjusted)
	assert.Equal(t, "0.5", result.OriginalQty)
	assert.Equal(t, "0.2", result.AdjustedQty)
	assert.NotEmpty(t, result.Reason)
}

func TestCheckOrderValidatesInput(t *testing.T) {
	s := newService()
	ctx := context.Background()

	cmd := checkCmd("0.5")
	cmd.Symbol = trading.NewSymbol("")
	_, err := s.CheckOrder(ctx, cmd)
	assert.Error(t, err)

	cmd = checkCmd("0.5")
	cmd.Side = "HOLD"
	_, err = s.CheckOrder(ctx, cmd)
	assert.Error(t, err)

	_, err = s.CheckOrder(ctx, checkCmd("0"))
	assert.Error(t, err)
}

func TestUpdateAccountDrivesDrawdownRejection(t *testing.T) {
	s := newService()
	ctx := context.Background()

	// 权益跌破初始余额的 94%，回撤 6% 超过 5% 上限
	require.NoError(t, s.UpdateAccount(ctx, fixedpoint.MustFromString("94000"), fixedpoint.MustFromString("94000")))

	result, err := s.CheckOrder(ctx, checkCmd("0.1"))
	require.NoError(t, err)
	assert.False(t, result.Approved)
	assert.Contains(t, result.Reason, "drawdown")
}

func TestUpdateAccountRejectsOutOfBoundsValues(t *testing.T) {
	s := newService()
	ctx := context.Background()

	err := s.UpdateAccount(ctx, fixedpoint.MustFromString("100000000000"), fixedpoint.MustFromString("100000"))
	assert.Error(t, err)

	// 拒绝后账户状态不变，安全下单量仍按初始余额计算
	size, err := s.MaxOrderSize(trading.NewSymbol("BTC-USD"))
	require.NoError(t, err)
	assert.Equal(t, "1", size.String())
}

func TestUpdatePositionRejectsOutOfBoundsValues(t *testing.T) {
	s := newService()
	ctx := context.Background()
	symbol := trading.NewSymbol("BTC-USD")

	err := s.UpdatePosition(ctx, symbol, fixedpoint.MustFromString("0.5"), fixedpoint.MustFromString("92233720368.54"))
	assert.Error(t, err)

	err = s.UpdatePosition(ctx, symbol, fixedpoint.MustFromString("5000"), fixedpoint.MustFromString("100"))
	assert.Error(t, err)

	// 越界的持仓没有登记，订单校验不受影响
	result, err := s.CheckOrder(ctx, checkCmd("0.5"))
	require.NoError(t, err)
	assert.True(t, result.Approved)
}

func TestUpdatePositionZeroQuantityRemoves(t *testing.T) {
	s := newService()
	ctx := context.Background()
	symbol := trading.NewSymbol("BTC-USD")

	require.NoError(t, s.UpdatePosition(ctx, symbol,
		fixedpoint.MustFromString("1.0"), fixedpoint.MustFromString("100")))

	result, err := s.CheckOrder(ctx, checkCmd("0.1"))
	require.NoError(t, err)
	assert.False(t, result.Approved)

	require.NoError(t, s.UpdatePosition(ctx, symbol,
		fixedpoint.Zero(8), fixedpoint.Zero(8)))

	result, err = s.CheckOrder(ctx, checkCmd("0.1"))
	require.NoError(t, err)
	assert.True(t, result.Approved)
}

func TestSetCircuitBreaker(t *testing.T) {
	s := newService()
	ctx := context.Background()

	s.SetCircuitBreaker(ctx, true, "maintenance window")
	active, reason := s.BreakerState()
	assert.True(t, active)
	assert.Equal(t, "maintenance window", reason)

	result, err := s.CheckOrder(ctx, checkCmd("0.1"))
	require.NoError(t, err)
	assert.False(t, result.Approved)
	assert.Contains(t, result.Reason, "maintenance window")

	s.SetCircuitBreaker(ctx, false, "")
	active, reason = s.BreakerState()
	assert.False(t, active)
	assert.Empty(t, reason)
}

func TestRecordTradeResultTripsBreaker(t *testing.T) {
	s := newService()
	ctx := context.Background()

	s.RecordTradeResult(ctx, fixedpoint.MustFromString("-499"))
	active, _ := s.BreakerState()
	assert.False(t, active)

	s.RecordTradeResult(ctx, fixedpoint.MustFromString("-750.5"))
	active, reason := s.BreakerState()
	assert.True(t, active)
	assert.Contains(t, reason, "max loss per trade")
}

func TestMaxOrderSize(t *testing.T) {
	s := newService()
	ctx := context.Background()

	require.NoError(t, s.UpdatePosition(ctx, trading.NewSymbol("BTC-USD"),
		fixedpoint.MustFromString("0.3"), fixedpoint.MustFromString("100")))

	size, err := s.MaxOrderSize(trading.NewSymbol("BTC-USD"))
	require.NoError(t, err)
	assert.Equal(t, "0.7", size.String())

	_, err = s.MaxOrderSize(trading.NewSymbol(""))
	assert.Error(t, err)
}
