// 包 持仓服务的领域模型
package domain

import (
	"time"

	"github.com/wyfcoding/papertrading/internal/fixedpoint"
	trading "github.com/wyfcoding/papertrading/internal/trading/domain"
)

// ratioScale 胜率等比率指标的小数位数
const ratioScale int32 = 4

// ClosedTrade 一次平仓结算记录
type ClosedTrade struct {
	ID         string
	Symbol     trading.Symbol
	Side       trading.Side
	Quantity   fixedpoint.Decimal
	EntryPrice fixedpoint.Decimal
	ExitPrice  fixedpoint.Decimal
	GrossPnl   fixedpoint.Decimal
	Fees       fixedpoint.Decimal
	NetPnl     fixedpoint.Decimal
	OpenedAt   time.Time
	ClosedAt   time.Time
}

// HoldingTime 持仓时长
func (t *ClosedTrade) HoldingTime() time.Duration {
	return t.ClosedAt.Sub(t.OpenedAt)
}

// PerformanceReport 平仓交易的绩效汇总。
// GrossLoss 为亏损合计的绝对值；AvgLoss 与 LargestLoss 保留负号。
type PerformanceReport struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       fixedpoint.Decimal
	GrossProfit   fixedpoint.Decimal
	GrossLoss     fixedpoint.Decimal
	ProfitFactor  fixedpoint.Decimal
	NetPnl        fixedpoint.Decimal
	AvgWin        fixedpoint.Decimal
	AvgLoss       fixedpoint.Decimal
	LargestWin    fixedpoint.Decimal
	LargestLoss   fixedpoint.Decimal
	AvgHolding    time.Duration
}

// ComputePerformance 汇总平仓记录的绩效指标。
// 胜率 = 盈利笔数 / 总笔数；盈亏比 = 总盈利 / 总亏损，总亏损为零时记 0。
func ComputePerformance(trades []*ClosedTrade) PerformanceReport {
	zero := fixedpoint.Zero(fixedpoint.DefaultScale)
	report := PerformanceReport{
		WinRate:      fixedpoint.Zero(ratioScale),
		GrossProfit:  zero,
		GrossLoss:    zero,
		ProfitFactor: fixedpoint.Zero(ratioScale),
		NetPnl:       zero,
		AvgWin:       zero,
		AvgLoss:      zero,
		LargestWin:   zero,
		LargestLoss:  zero,
	}
	if len(trades) == 0 {
		return report
	}

	var totalHolding time.Duration
	for _, trade := range trades {
		report.TotalTrades++
		report.NetPnl = report.NetPnl.Add(trade.NetPnl)
		totalHolding += trade.HoldingTime()

		switch {
		case trade.NetPnl.IsPositive():
			report.WinningTrades++
			report.GrossProfit = report.GrossProfit.Add(trade.NetPnl)
			report.LargestWin = fixedpoint.Max(report.LargestWin, trade.NetPnl)
		case trade.NetPnl.IsNegative():
			report.LosingTrades++
			report.GrossLoss = report.GrossLoss.Add(trade.NetPnl.Abs())
			report.LargestLoss = fixedpoint.Min(report.LargestLoss, trade.NetPnl)
		}
	}

	if rate, err := fixedpoint.FromInt(int64(report.WinningTrades)).Rescale(ratioScale).
		Div(fixedpoint.FromInt(int64(report.TotalTrades))); err == nil {
		report.WinRate = rate
	}
	if report.GrossLoss.IsPositive() {
		if factor, err := report.GrossProfit.Div(report.GrossLoss); err == nil {
			report.ProfitFactor = factor
		}
	}
	if report.WinningTrades > 0 {
		if avg, err := report.GrossProfit.Div(fixedpoint.FromInt(int64(report.WinningTrades))); err == nil {
			report.AvgWin = avg
		}
	}
	if report.LosingTrades > 0 {
		if avg, err := report.GrossLoss.Neg().Div(fixedpoint.FromInt(int64(report.LosingTrades))); err == nil {
			report.AvgLoss = avg
		}
	}
	report.AvgHolding = totalHolding / time.Duration(report.TotalTrades)

	return report
}
