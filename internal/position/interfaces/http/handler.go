package http

import (
	"net/http"
	"time"

	"github.com/wyfcoding/papertrading/internal/fixedpoint"
	"github.com/wyfcoding/papertrading/internal/position/application"
	trading "github.com/wyfcoding/papertrading/internal/trading/domain"
	"github.com/wyfcoding/papertrading/pkg/logger"
	"github.com/wyfcoding/papertrading/pkg/response"

	"github.com/gin-gonic/gin"
)

// PositionHandler 负责处理持仓台账相关的 HTTP 请求
type PositionHandler struct {
	ledger *application.LedgerService
}

// NewPositionHandler 创建 HTTP 处理器
func NewPositionHandler(ledger *application.LedgerService) *PositionHandler {
	return &PositionHandler{ledger: ledger}
}

// RegisterRoutes 注册路由
func (h *PositionHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/positions")
	{
		api.POST("/fills", h.RecordFill)
		api.GET("", h.GetPositions)
		api.GET("/account", h.GetAccount)
		api.GET("/performance", h.GetPerformance)
		api.GET("/:symbol", h.GetPosition)
	}
}

// RecordFillRequest 成交上报请求体
type RecordFillRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	Side     string `json:"side" binding:"required"`
	Quantity string `json:"quantity" binding:"required"`
	Price    string `json:"price" binding:"required"`
	// MAKER 或 TAKER，缺省按 TAKER 计费
	Liquidity string `json:"liquidity"`
	// 成交时间，Unix 毫秒；缺省取当前时间
	Timestamp int64 `json:"timestamp"`
}

// RecordFill 将一笔模拟成交记入台账
func (h *PositionHandler) RecordFill(c *gin.Context) {
	var req RecordFillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	side, err := trading.ParseSide(req.Side)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	quantity, err := fixedpoint.FromString(req.Quantity)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid quantity", err.Error())
		return
	}
	price, err := fixedpoint.FromString(req.Price)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid price", err.Error())
		return
	}

	cmd := application.RecordFillCommand{
		Symbol:   trading.NewSymbol(req.Symbol),
		Side:     side,
		Quantity: quantity,
		Price:    price,
	}
	switch req.Liquidity {
	case "":
	case string(trading.LiquidityMaker):
		cmd.Liquidity = trading.LiquidityMaker
	case string(trading.LiquidityTaker):
		cmd.Liquidity = trading.LiquidityTaker
	default:
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid liquidity", req.Liquidity)
		return
	}
	if req.Timestamp > 0 {
		cmd.Timestamp = time.UnixMilli(req.Timestamp)
	}

	dto, err := h.ledger.RecordFill(c.Request.Context(), cmd)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to record fill", "symbol", req.Symbol, "error", err)
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	response.Success(c, dto)
}

// GetPositions 获取全部持仓
func (h *PositionHandler) GetPositions(c *gin.Context) {
	response.Success(c, h.ledger.Positions())
}

// GetPosition 获取单品种持仓
func (h *PositionHandler) GetPosition(c *gin.Context) {
	symbol := trading.NewSymbol(c.Param("symbol"))
	if symbol.IsEmpty() {
		response.ErrorWithStatus(c, http.StatusBadRequest, "symbol is required", "")
		return
	}

	position := h.ledger.Position(symbol)
	response.Success(c, gin.H{
		"symbol":          position.Symbol.String(),
		"quantity":        position.Quantity.String(),
		"avg_entry_price": position.AvgEntryPrice.String(),
		"realized_pnl":    position.RealizedPnl.String(),
		"unrealized_pnl":  position.UnrealizedPnl.String(),
	})
}

// GetAccount 获取账户汇总
func (h *PositionHandler) GetAccount(c *gin.Context) {
	response.Success(c, h.ledger.Account())
}

// GetPerformance 获取已平仓交易的绩效汇总
func (h *PositionHandler) GetPerformance(c *gin.Context) {
	response.Success(c, application.ToPerformanceDTO(h.ledger.Performance()))
}
