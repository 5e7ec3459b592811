package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/wyfcoding/papertrading/internal/fixedpoint"
	"github.com/wyfcoding/papertrading/internal/risk/domain"
	trading "github.com/wyfcoding/papertrading/internal/trading/domain"
	"github.com/wyfcoding/papertrading/pkg/logger"
	"github.com/wyfcoding/papertrading/pkg/metrics"
)

// CheckOrderCommand 订单校验请求
type CheckOrderCommand struct {
	Symbol   trading.Symbol
	Side     trading.Side
	Quantity fixedpoint.Decimal
	// 限价单价格；零值表示市价单
	Price fixedpoint.Decimal
}

// RiskService 风控应用服务。
// 引擎与账户/持仓视图共用一把互斥锁，保证校验-登记的原子性。
type RiskService struct {
	mu        sync.Mutex
	engine    *domain.Engine
	account   domain.AccountState
	positions map[trading.Symbol]domain.PositionState
	metrics   *metrics.Metrics
}

// NewRiskService 创建风控服务。账户余额与权益初始为配置的初始余额。
func NewRiskService(config domain.Config, initialBalance fixedpoint.Decimal, m *metrics.Metrics) *RiskService {
	return &RiskService{
		engine: domain.NewEngine(config),
		account: domain.AccountState{
			Balance:        initialBalance,
			Equity:         initialBalance,
			InitialBalance: initialBalance,
		},
		positions: make(map[trading.Symbol]domain.PositionState),
		metrics:   m,
	}
}

// CheckOrder 执行订单前置校验。放行（含缩量放行）的订单登记进限频窗口。
func (s *RiskService) CheckOrder(ctx context.Context, cmd CheckOrderCommand) (CheckResultDTO, error) {
	if cmd.Symbol.IsEmpty() {
		return CheckResultDTO{}, fmt.Errorf("symbol is required")
	}
	if !cmd.Side.IsValid() {
		return CheckResultDTO{}, fmt.Errorf("invalid side %q", cmd.Side)
	}
	if !cmd.Quantity.IsPositive() {
		return CheckResultDTO{}, fmt.Errorf("quantity must be positive, got %s", cmd.Quantity)
	}

	var order *trading.Order
	if cmd.Price.IsPositive() {
		order = trading.NewLimitOrder(cmd.Symbol, cmd.Side, cmd.Quantity, cmd.Price)
	} else {
		order = trading.NewMarketOrder(cmd.Symbol, cmd.Side, cmd.Quantity)
	}

	s.mu.Lock()
	positions := make([]domain.PositionState, 0, len(s.positions))
	for _, p := range s.positions {
		positions = append(positions, p)
	}
	current := s.positions[cmd.Symbol]

	result := s.engine.CheckOrder(order, s.account, positions, current)
	if result.IsAllowed() {
		s.engine.UpdateRateLimit()
	} else {
		order.MarkStatus(trading.OrderStatusRejected)
	}
	s.mu.Unlock()

	s.metrics.RiskChecksTotal.Inc()
	switch result.Status {
	case domain.StatusApproved:
		s.metrics.RiskApprovalsTotal.Inc()
	case domain.StatusRequiresAdjustment:
		s.metrics.RiskAdjustmentsTotal.Inc()
	case domain.StatusRejected:
		s.metrics.RiskRejectionsTotal.Inc()
	}

	logger.Info(ctx, "Order risk check completed",
		"order_id", order.ID,
		"symbol", cmd.Symbol,
		"side", cmd.Side,
		"quantity", cmd.Quantity,
		"order_status", order.Status,
		"status", result.Status,
		"reason", result.Reason,
	)
	return toCheckResultDTO(result), nil
}

// UpdateAccount 更新风控视角的账户余额与权益。金额超出合理边界时拒绝。
func (s *RiskService) UpdateAccount(ctx context.Context, balance, equity fixedpoint.Decimal) error {
	if err := trading.ValidateAccountValue(balance); err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	if err := trading.ValidateAccountValue(equity); err != nil {
		return fmt.Errorf("equity: %w", err)
	}

	s.mu.Lock()
	s.account.Balance = balance
	s.account.Equity = equity
	s.mu.Unlock()

	logger.Info(ctx, "Risk account state updated", "balance", balance, "equity", equity)
	return nil
}

// UpdatePosition 更新风控视角的单品种持仓。数量为零表示移除该持仓。
func (s *RiskService) UpdatePosition(ctx context.Context, symbol trading.Symbol, quantity, entryPrice fixedpoint.Decimal) error {
	if symbol.IsEmpty() {
		return fmt.Errorf("symbol is required")
	}
	if !quantity.IsZero() {
		if err := trading.ValidateQuantity(quantity.Abs()); err != nil {
			return err
		}
		if !entryPrice.IsZero() {
			if err := trading.ValidatePrice(entryPrice); err != nil {
				return err
			}
		}
	}

	s.mu.Lock()
	if quantity.IsZero() {
		delete(s.positions, symbol)
	} else {
		s.positions[symbol] = domain.PositionState{
			Symbol:        symbol,
			Quantity:      quantity,
			AvgEntryPrice: entryPrice,
		}
	}
	s.mu.Unlock()

	logger.Info(ctx, "Risk position state updated",
		"symbol", symbol,
		"quantity", quantity,
		"entry_price", entryPrice,
	)
	return nil
}

// SetCircuitBreaker 手动设置熔断状态
func (s *RiskService) SetCircuitBreaker(ctx context.Context, active bool, reason string) {
	s.mu.Lock()
	if active {
		s.engine.ActivateCircuitBreaker(reason)
	} else {
		s.engine.DeactivateCircuitBreaker()
	}
	s.mu.Unlock()

	s.updateBreakerGauge()
	logger.Warn(ctx, "Circuit breaker state changed", "active", active, "reason", reason)
}

// RecordTradeResult 登记平仓结果，大额亏损触发熔断。实现台账的 TradeResultRecorder。
func (s *RiskService) RecordTradeResult(ctx context.Context, netPnl fixedpoint.Decimal) {
	s.mu.Lock()
	wasActive, _ := s.engine.BreakerState()
	s.engine.RecordTradeResult(netPnl)
	active, reason := s.engine.BreakerState()
	s.mu.Unlock()

	s.updateBreakerGauge()
	if active && !wasActive {
		logger.Warn(ctx, "Circuit breaker tripped by trade loss", "net_pnl", netPnl, "reason", reason)
	}
}

// BreakerState 当前熔断状态
func (s *RiskService) BreakerState() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.BreakerState()
}

// MaxOrderSize 当前可安全提交的最大订单数量
func (s *RiskService) MaxOrderSize(symbol trading.Symbol) (fixedpoint.Decimal, error) {
	if symbol.IsEmpty() {
		return fixedpoint.Decimal{}, fmt.Errorf("symbol is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.MaxSafeOrderSize(s.account, s.positions[symbol]), nil
}

func (s *RiskService) updateBreakerGauge() {
	active, _ := s.BreakerState()
	if active {
		s.metrics.CircuitBreakerActive.Set(1)
	} else {
		s.metrics.CircuitBreakerActive.Set(0)
	}
}
