package application

import (
	"time"

	"github.com/wyfcoding/papertrading/internal/position/domain"
)

// PositionDTO 持仓查询响应
type PositionDTO struct {
	Symbol        string `json:"symbol"`
	Quantity      string `json:"quantity"`
	AvgEntryPrice string `json:"avg_entry_price"`
	RealizedPnl   string `json:"realized_pnl"`
	UnrealizedPnl string `json:"unrealized_pnl"`
	UpdatedAt     int64  `json:"updated_at"`
}

// AccountDTO 账户汇总响应
type AccountDTO struct {
	Balance        string `json:"balance"`
	Equity         string `json:"equity"`
	InitialBalance string `json:"initial_balance"`
	RealizedPnl    string `json:"realized_pnl"`
	UnrealizedPnl  string `json:"unrealized_pnl"`
	OpenPositions  int    `json:"open_positions"`
}

// FillResultDTO 记账结果响应
type FillResultDTO struct {
	TradeID   string      `json:"trade_id"`
	ClosedPnl string      `json:"closed_pnl,omitempty"`
	Position  PositionDTO `json:"position"`
	Account   AccountDTO  `json:"account"`
}

// PerformanceDTO 绩效汇总响应
type PerformanceDTO struct {
	TotalTrades       int    `json:"total_trades"`
	WinningTrades     int    `json:"winning_trades"`
	LosingTrades      int    `json:"losing_trades"`
	WinRate           string `json:"win_rate"`
	GrossProfit       string `json:"gross_profit"`
	GrossLoss         string `json:"gross_loss"`
	ProfitFactor      string `json:"profit_factor"`
	NetPnl            string `json:"net_pnl"`
	AvgWin            string `json:"avg_win"`
	AvgLoss           string `json:"avg_loss"`
	LargestWin        string `json:"largest_win"`
	LargestLoss       string `json:"largest_loss"`
	AvgHoldingSeconds int64  `json:"avg_holding_seconds"`
}

func toPositionDTO(p *domain.Position) PositionDTO {
	var updatedAt int64
	if !p.UpdatedAt.IsZero() {
		updatedAt = p.UpdatedAt.UnixMilli()
	}
	return PositionDTO{
		Symbol:        p.Symbol.String(),
		Quantity:      p.Quantity.String(),
		AvgEntryPrice: p.AvgEntryPrice.String(),
		RealizedPnl:   p.RealizedPnl.String(),
		UnrealizedPnl: p.UnrealizedPnl.String(),
		UpdatedAt:     updatedAt,
	}
}

// ToPerformanceDTO 将绩效报告转换为响应结构
func ToPerformanceDTO(report domain.PerformanceReport) PerformanceDTO {
	return PerformanceDTO{
		TotalTrades:       report.TotalTrades,
		WinningTrades:     report.WinningTrades,
		LosingTrades:      report.LosingTrades,
		WinRate:           report.WinRate.String(),
		GrossProfit:       report.GrossProfit.String(),
		GrossLoss:         report.GrossLoss.String(),
		ProfitFactor:      report.ProfitFactor.String(),
		NetPnl:            report.NetPnl.String(),
		AvgWin:            report.AvgWin.String(),
		AvgLoss:           report.AvgLoss.String(),
		LargestWin:        report.LargestWin.String(),
		LargestLoss:       report.LargestLoss.String(),
		AvgHoldingSeconds: int64(report.AvgHolding / time.Second),
	}
}
