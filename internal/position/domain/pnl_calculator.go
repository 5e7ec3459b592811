// 包 持仓服务的领域模型
package domain

import (
	"fmt"

	"github.com/wyfcoding/papertrading/internal/fixedpoint"
	trading "github.com/wyfcoding/papertrading/internal/trading/domain"
)

// FeeSchedule 手续费率表
type FeeSchedule struct {
	MakerRate fixedpoint.Decimal
	TakerRate fixedpoint.Decimal
}

// RateFor 按流动性角色返回费率
func (f FeeSchedule) RateFor(liquidity trading.Liquidity) fixedpoint.Decimal {
	if liquidity == trading.LiquidityMaker {
		return f.MakerRate
	}
	return f.TakerRate
}

// Fee 手续费 = 价格 × 数量 × 费率
func (f FeeSchedule) Fee(price, quantity fixedpoint.Decimal, liquidity trading.Liquidity) fixedpoint.Decimal {
	return price.Mul(quantity).Mul(f.RateFor(liquidity))
}

// PnLCalculator 盈亏计算器
// 将成交应用到持仓上：开仓、加仓加权均价、平仓结算与反手
type PnLCalculator struct {
	fees FeeSchedule
}

// NewPnLCalculator 创建盈亏计算器实例
func NewPnLCalculator(fees FeeSchedule) *PnLCalculator {
	return &PnLCalculator{fees: fees}
}

// ApplyFill 将一笔成交应用到持仓。
//   - 空仓：按成交价开仓；
//   - 同向：成交量加权更新开仓均价；
//   - 反向：先平掉 min(成交量, 持仓量)，已实现盈亏 = 价差盈亏 − 开仓手续费分摊 − 平仓手续费，
//     剩余数量按成交价反手开新仓。
//
// 返回本次成交产生的平仓记录，未发生平仓时为 nil。
func (c *PnLCalculator) ApplyFill(p *Position, trade *trading.Trade) (*ClosedTrade, error) {
	if !trade.Quantity.IsPositive() {
		return nil, fmt.Errorf("fill quantity must be positive, got %s", trade.Quantity)
	}
	if !trade.Side.IsValid() {
		return nil, fmt.Errorf("invalid fill side %q", trade.Side)
	}

	signed := trade.Quantity
	if trade.Side == trading.SideSell {
		signed = signed.Neg()
	}

	// 空仓：直接开仓
	if p.IsFlat() {
		c.open(p, signed, trade)
		return nil, nil
	}

	// 同向：加仓，更新加权均价
	if p.IsLong() == (trade.Side == trading.SideBuy) {
		totalQty := p.Quantity.Add(signed)
		totalCost := p.Quantity.Abs().Mul(p.AvgEntryPrice).Add(trade.Quantity.Mul(trade.Price))
		avg, err := totalCost.Div(totalQty.Abs())
		if err != nil {
			return nil, fmt.Errorf("update average entry: %w", err)
		}
		p.Quantity = totalQty
		p.AvgEntryPrice = avg
		p.EntryFees = p.EntryFees.Add(c.fees.Fee(trade.Price, trade.Quantity, trade.Liquidity))
		p.UpdatedAt = trade.ExecutedAt
		return nil, nil
	}

	// 反向：平仓结算
	absQty := p.Quantity.Abs()
	closeQty := fixedpoint.Min(trade.Quantity, absQty)

	gross := trade.Price.Sub(p.AvgEntryPrice).Mul(closeQty)
	if !p.IsLong() {
		gross = gross.Neg()
	}

	entryFeeShare, err := p.EntryFees.Mul(closeQty).Div(absQty)
	if err != nil {
		return nil, fmt.Errorf("prorate entry fees: %w", err)
	}
	exitFee := c.fees.Fee(trade.Price, closeQty, trade.Liquidity)
	fees := entryFeeShare.Add(exitFee)
	net := gross.Sub(fees)

	closed := &ClosedTrade{
		ID:         trade.ID,
		Symbol:     p.Symbol,
		Side:       trade.Side,
		Quantity:   closeQty,
		EntryPrice: p.AvgEntryPrice,
		ExitPrice:  trade.Price,
		GrossPnl:   gross,
		Fees:       fees,
		NetPnl:     net,
		OpenedAt:   p.OpenedAt,
		ClosedAt:   trade.ExecutedAt,
	}

	p.RealizedPnl = p.RealizedPnl.Add(net)
	p.EntryFees = p.EntryFees.Sub(entryFeeShare)
	if p.IsLong() {
		p.Quantity = p.Quantity.Sub(closeQty)
	} else {
		p.Quantity = p.Quantity.Add(closeQty)
	}
	p.UpdatedAt = trade.ExecutedAt

	// 剩余数量反手开新仓
	remaining := trade.Quantity.Sub(closeQty)
	if remaining.IsPositive() {
		flip := remaining
		if trade.Side == trading.SideSell {
			flip = flip.Neg()
		}
		c.openPortion(p, flip, remaining, trade)
	} else if p.IsFlat() {
		p.EntryFees = fixedpoint.Zero(fixedpoint.DefaultScale)
		p.UnrealizedPnl = fixedpoint.Zero(fixedpoint.DefaultScale)
	}

	return closed, nil
}

// open 全量开仓
func (c *PnLCalculator) open(p *Position, signed fixedpoint.Decimal, trade *trading.Trade) {
	c.openPortion(p, signed, trade.Quantity, trade)
}

// openPortion 以成交价开仓指定数量（开仓或反手的共用路径）
func (c *PnLCalculator) openPortion(p *Position, signed, quantity fixedpoint.Decimal, trade *trading.Trade) {
	p.Quantity = signed
	p.AvgEntryPrice = trade.Price
	p.EntryFees = c.fees.Fee(trade.Price, quantity, trade.Liquidity)
	p.OpenedAt = trade.ExecutedAt
	p.UpdatedAt = trade.ExecutedAt
}
