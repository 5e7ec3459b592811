// 包 持仓服务的领域模型：带符号持仓、账户权益与成交记账
package domain

import (
	"time"

	"github.com/wyfcoding/papertrading/internal/fixedpoint"
	trading "github.com/wyfcoding/papertrading/internal/trading/domain"
)

// Position 单品种持仓。Quantity 带符号：正为多头，负为空头。
// 持仓为平时 AvgEntryPrice 为陈旧值，不参与任何计算。
type Position struct {
	Symbol        trading.Symbol
	Quantity      fixedpoint.Decimal
	AvgEntryPrice fixedpoint.Decimal
	RealizedPnl   fixedpoint.Decimal
	UnrealizedPnl fixedpoint.Decimal
	// 当前持仓已支付的开仓手续费，平仓时按比例计入已实现盈亏
	EntryFees fixedpoint.Decimal
	OpenedAt  time.Time
	UpdatedAt time.Time
}

// NewPosition 创建空持仓
func NewPosition(symbol trading.Symbol) *Position {
	zero := fixedpoint.Zero(fixedpoint.DefaultScale)
	return &Position{
		Symbol:        symbol,
		Quantity:      zero,
		AvgEntryPrice: zero,
		RealizedPnl:   zero,
		UnrealizedPnl: zero,
		EntryFees:     zero,
	}
}

// IsFlat 是否为平仓状态
func (p *Position) IsFlat() bool {
	return p.Quantity.IsZero()
}

// IsLong 是否为多头
func (p *Position) IsLong() bool {
	return p.Quantity.IsPositive()
}

// Notional 持仓名义价值 = |数量| × 开仓均价
func (p *Position) Notional() fixedpoint.Decimal {
	if p.IsFlat() {
		return fixedpoint.Zero(fixedpoint.DefaultScale)
	}
	return p.Quantity.Abs().Mul(p.AvgEntryPrice)
}

// MarkToMarket 按给定市场价格刷新未实现盈亏。
// (price - avgEntry) × signedQty 对多空两个方向都成立。
func (p *Position) MarkToMarket(price fixedpoint.Decimal) {
	if p.IsFlat() {
		p.UnrealizedPnl = fixedpoint.Zero(fixedpoint.DefaultScale)
		return
	}
	p.UnrealizedPnl = price.Sub(p.AvgEntryPrice).Mul(p.Quantity)
}

// Account 模拟账户。权益由余额与各持仓未实现盈亏推导，不单独存储。
type Account struct {
	Balance        fixedpoint.Decimal
	InitialBalance fixedpoint.Decimal
	CreatedAt      time.Time
}

// NewAccount 创建账户
func NewAccount(initialBalance fixedpoint.Decimal) *Account {
	return &Account{
		Balance:        initialBalance,
		InitialBalance: initialBalance,
		CreatedAt:      time.Now(),
	}
}

// Equity 账户权益 = 余额 + Σ 未实现盈亏
func (a *Account) Equity(positions []*Position) fixedpoint.Decimal {
	equity := a.Balance
	for _, p := range positions {
		equity = equity.Add(p.UnrealizedPnl)
	}
	return equity
}
