package http

import (
	"net/http"

	"github.com/wyfcoding/papertrading/internal/fixedpoint"
	"github.com/wyfcoding/papertrading/internal/risk/application"
	trading "github.com/wyfcoding/papertrading/internal/trading/domain"
	"github.com/wyfcoding/papertrading/pkg/logger"
	"github.com/wyfcoding/papertrading/pkg/response"

	"github.com/gin-gonic/gin"
)

// RiskHandler 负责处理风控相关的 HTTP 请求
type RiskHandler struct {
	svc *application.RiskService
}

// NewRiskHandler 创建 HTTP 处理器
func NewRiskHandler(svc *application.RiskService) *RiskHandler {
	return &RiskHandler{svc: svc}
}

// RegisterRoutes 注册路由
func (h *RiskHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/risk")
	{
		api.GET("/health", h.Health)
		api.POST("/check-order", h.CheckOrder)
		api.POST("/account", h.UpdateAccount)
		api.POST("/positions", h.UpdatePosition)
		api.POST("/circuit-breaker", h.SetCircuitBreaker)
		api.GET("/max-order-size", h.MaxOrderSize)
	}
}

// CheckOrderRequest 订单校验请求体
type CheckOrderRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	Side     string `json:"side" binding:"required"`
	Quantity string `json:"quantity" binding:"required"`
	Price    string `json:"price"`
}

// UpdateAccountRequest 账户状态上报请求体
type UpdateAccountRequest struct {
	Balance string `json:"balance" binding:"required"`
	Equity  string `json:"equity" binding:"required"`
}

// UpdatePositionRequest 持仓状态上报请求体
type UpdatePositionRequest struct {
	Symbol     string `json:"symbol" binding:"required"`
	Quantity   string `json:"quantity" binding:"required"`
	EntryPrice string `json:"entry_price"`
}

// SetCircuitBreakerRequest 熔断开关请求体
type SetCircuitBreakerRequest struct {
	Active *bool  `json:"active" binding:"required"`
	Reason string `json:"reason"`
}

// Health 健康检查，附带熔断状态
func (h *RiskHandler) Health(c *gin.Context) {
	active, reason := h.svc.BreakerState()
	response.Success(c, gin.H{
		"status":                 "ok",
		"circuit_breaker_active": active,
		"circuit_breaker_reason": reason,
	})
}

// CheckOrder 订单前置校验
func (h *RiskHandler) CheckOrder(c *gin.Context) {
	var req CheckOrderRequest
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
	price := fixedpoint.Zero(fixedpoint.DefaultScale)
	if req.Price != "" {
		if price, err = fixedpoint.FromString(req.Price); err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "invalid price", err.Error())
			return
		}
	}

	dto, err := h.svc.CheckOrder(c.Request.Context(), application.CheckOrderCommand{
		Symbol:   trading.NewSymbol(req.Symbol),
		Side:     side,
		Quantity: quantity,
		Price:    price,
	})
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	response.Success(c, dto)
}

// UpdateAccount 上报账户余额与权益
func (h *RiskHandler) UpdateAccount(c *gin.Context) {
	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	balance, err := fixedpoint.FromString(req.Balance)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid balance", err.Error())
		return
	}
	equity, err := fixedpoint.FromString(req.Equity)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid equity", err.Error())
		return
	}

	if err := h.svc.UpdateAccount(c.Request.Context(), balance, equity); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	response.Success(c, gin.H{"balance": balance.String(), "equity": equity.String()})
}

// UpdatePosition 上报单品种持仓
func (h *RiskHandler) UpdatePosition(c *gin.Context) {
	var req UpdatePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	quantity, err := fixedpoint.FromString(req.Quantity)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid quantity", err.Error())
		return
	}
	entryPrice := fixedpoint.Zero(fixedpoint.DefaultScale)
	if req.EntryPrice != "" {
		if entryPrice, err = fixedpoint.FromString(req.EntryPrice); err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "invalid entry_price", err.Error())
			return
		}
	}

	if err := h.svc.UpdatePosition(c.Request.Context(), trading.NewSymbol(req.Symbol), quantity, entryPrice); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	response.Success(c, gin.H{"symbol": trading.NewSymbol(req.Symbol).String(), "quantity": quantity.String()})
}

// SetCircuitBreaker 设置熔断状态
func (h *RiskHandler) SetCircuitBreaker(c *gin.Context) {
	var req SetCircuitBreakerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	h.svc.SetCircuitBreaker(c.Request.Context(), *req.Active, req.Reason)
	active, reason := h.svc.BreakerState()
	response.Success(c, gin.H{"active": active, "reason": reason})
}

// MaxOrderSize 查询当前可安全提交的最大订单数量
func (h *RiskHandler) MaxOrderSize(c *gin.Context) {
	symbol := trading.NewSymbol(c.Query("symbol"))
	if symbol.IsEmpty() {
		response.ErrorWithStatus(c, http.StatusBadRequest, "symbol is required", "")
		return
	}
	if sideRaw := c.Query("side"); sideRaw != "" {
		if _, err := trading.ParseSide(sideRaw); err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
			return
		}
	}

	size, err := h.svc.MaxOrderSize(symbol)
	if err != nil {
		logger.Error(c.Request.Context(), "Failed to compute max order size", "symbol", symbol, "error", err)
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}

	response.Success(c, gin.H{"symbol": symbol.String(), "max_order_size": size.String()})
}
