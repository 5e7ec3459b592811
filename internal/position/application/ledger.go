package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wyfcoding/papertrading/internal/fixedpoint"
	"github.com/wyfcoding/papertrading/internal/position/domain"
	trading "github.com/wyfcoding/papertrading/internal/trading/domain"
	"github.com/wyfcoding/papertrading/pkg/logger"
	"github.com/wyfcoding/papertrading/pkg/metrics"
)

// TradeResultRecorder 接收每笔平仓结果的下游（风控的亏损熔断依赖它）
type TradeResultRecorder interface {
	RecordTradeResult(ctx context.Context, netPnl fixedpoint.Decimal)
}

// RecordFillCommand 记录一笔模拟成交
type RecordFillCommand struct {
	Symbol    trading.Symbol
	Side      trading.Side
	Quantity  fixedpoint.Decimal
	Price     fixedpoint.Decimal
	Liquidity trading.Liquidity
	Timestamp time.Time
}

// LedgerService 持仓台账应用服务。
// 单写者：所有修改都经过同一把互斥锁，读查询返回副本。
type LedgerService struct {
	mu        sync.Mutex
	calc      *domain.PnLCalculator
	account   *domain.Account
	positions map[trading.Symbol]*domain.Position
	closed    []*domain.ClosedTrade
	recorder  TradeResultRecorder
	metrics   *metrics.Metrics
}

// NewLedgerService 创建台账服务。recorder 可为 nil，表示不上报平仓结果。
func NewLedgerService(initialBalance fixedpoint.Decimal, fees domain.FeeSchedule, recorder TradeResultRecorder, m *metrics.Metrics) *LedgerService {
	return &LedgerService{
		calc:      domain.NewPnLCalculator(fees),
		account:   domain.NewAccount(initialBalance),
		positions: make(map[trading.Symbol]*domain.Position),
		recorder:  recorder,
		metrics:   m,
	}
}

// RecordFill 将一笔成交记入台账：更新持仓、结算平仓盈亏、刷新余额，
// 并把平仓结果上报给风控。
func (s *LedgerService) RecordFill(ctx context.Context, cmd RecordFillCommand) (*FillResultDTO, error) {
	if cmd.Symbol.IsEmpty() {
		return nil, fmt.Errorf("fill symbol is required")
	}
	if err := trading.ValidateQuantity(cmd.Quantity); err != nil {
		return nil, fmt.Errorf("fill quantity: %w", err)
	}
	if err := trading.ValidatePrice(cmd.Price); err != nil {
		return nil, fmt.Errorf("fill price: %w", err)
	}
	if cmd.Timestamp.IsZero() {
		cmd.Timestamp = time.Now()
	}
	if cmd.Liquidity == "" {
		cmd.Liquidity = trading.LiquidityTaker
	}

	trade := trading.NewTrade(cmd.Symbol, cmd.Side, cmd.Quantity, cmd.Price, cmd.Liquidity, cmd.Timestamp)

	s.mu.Lock()
	position, ok := s.positions[cmd.Symbol]
	if !ok {
		position = domain.NewPosition(cmd.Symbol)
		s.positions[cmd.Symbol] = position
	}

	closed, err := s.calc.ApplyFill(position, trade)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	position.MarkToMarket(trade.Price)

	if closed != nil {
		s.account.Balance = s.account.Balance.Add(closed.NetPnl)
		s.closed = append(s.closed, closed)
	}

	result := &FillResultDTO{
		TradeID:  trade.ID,
		Position: toPositionDTO(position),
		Account:  s.accountDTOLocked(),
	}
	if closed != nil {
		result.ClosedPnl = closed.NetPnl.String()
	}
	openCount := s.openPositionCountLocked()
	s.mu.Unlock()

	s.metrics.FillsRecordedTotal.Inc()
	s.metrics.PositionsActive.Set(float64(openCount))

	if closed != nil && s.recorder != nil {
		s.recorder.RecordTradeResult(ctx, closed.NetPnl)
	}

	logger.Info(ctx, "Fill recorded",
		"trade_id", trade.ID,
		"symbol", cmd.Symbol,
		"side", cmd.Side,
		"quantity", cmd.Quantity,
		"price", cmd.Price,
	)
	return result, nil
}

// Position 查询单品种持仓副本，持仓不存在时返回空持仓
func (s *LedgerService) Position(symbol trading.Symbol) *domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.positions[symbol]; ok {
		snapshot := *p
		return &snapshot
	}
	return domain.NewPosition(symbol)
}

// Positions 查询全部持仓
func (s *LedgerService) Positions() []PositionDTO {
	s.mu.Lock()
	defer s.mu.Unlock()

	dtos := make([]PositionDTO, 0, len(s.positions))
	for _, p := range s.positions {
		dtos = append(dtos, toPositionDTO(p))
	}
	sort.Slice(dtos, func(i, j int) bool { return dtos[i].Symbol < dtos[j].Symbol })
	return dtos
}

// Account 查询账户汇总
func (s *LedgerService) Account() AccountDTO {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountDTOLocked()
}

// Performance 汇总已平仓交易的绩效
func (s *LedgerService) Performance() domain.PerformanceReport {
	s.mu.Lock()
	trades := make([]*domain.ClosedTrade, len(s.closed))
	copy(trades, s.closed)
	s.mu.Unlock()

	return domain.ComputePerformance(trades)
}

func (s *LedgerService) accountDTOLocked() AccountDTO {
	positions := make([]*domain.Position, 0, len(s.positions))
	realized := fixedpoint.Zero(fixedpoint.DefaultScale)
	unrealized := fixedpoint.Zero(fixedpoint.DefaultScale)
	for _, p := range s.positions {
		positions = append(positions, p)
		realized = realized.Add(p.RealizedPnl)
		unrealized = unrealized.Add(p.UnrealizedPnl)
	}
	return AccountDTO{
		Balance:        s.account.Balance.String(),
		Equity:         s.account.Equity(positions).String(),
		InitialBalance: s.account.InitialBalance.String(),
		RealizedPnl:    realized.String(),
		UnrealizedPnl:  unrealized.String(),
		OpenPositions:  s.openPositionCountLocked(),
	}
}

func (s *LedgerService) openPositionCountLocked() int {
	count := 0
	for _, p := range s.positions {
		if !p.IsFlat() {
			count++
		}
	}
	return count
}
