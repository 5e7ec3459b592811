package http

import (
	"net/http"

	"github.com/wyfcoding/papertrading/internal/fixedpoint"
	"github.com/wyfcoding/papertrading/internal/marketdata/application"
	"github.com/wyfcoding/papertrading/internal/marketdata/domain"
	trading "github.com/wyfcoding/papertrading/internal/trading/domain"
	"github.com/wyfcoding/papertrading/pkg/response"

	"github.com/gin-gonic/gin"
)

// Handler 行情查询 HTTP 接口
type Handler struct {
	books *application.BookManager
}

// NewHandler 创建行情查询处理器
func NewHandler(books *application.BookManager) *Handler {
	return &Handler{books: books}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/marketdata")
	{
		api.GET("/symbols", h.ListSymbols)
		api.GET("/orderbook/:symbol", h.GetOrderBook)
		api.GET("/orderbook/:symbol/metrics", h.GetOrderBookMetrics)
	}
}

// PriceLevelDTO 档位响应结构
type PriceLevelDTO struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

// OrderBookDTO 订单簿快照响应结构
type OrderBookDTO struct {
	Symbol     string          `json:"symbol"`
	Timestamp  int64           `json:"timestamp"`
	SequenceID uint64          `json:"sequence_id"`
	Bids       []PriceLevelDTO `json:"bids"`
	Asks       []PriceLevelDTO `json:"asks"`
}

// BookMetricsDTO 微观结构指标响应结构，不可用的指标为 null
type BookMetricsDTO struct {
	Symbol            string  `json:"symbol"`
	SequenceID        uint64  `json:"sequence_id"`
	BestBid           *string `json:"best_bid"`
	BestAsk           *string `json:"best_ask"`
	MidPrice          *string `json:"mid_price"`
	SpreadBps         *string `json:"spread_bps"`
	Imbalance         *string `json:"imbalance"`
	WeightedImbalance *string `json:"weighted_imbalance"`
	BidDepth          string  `json:"bid_depth"`
	AskDepth          string  `json:"ask_depth"`
	BidLevels         int     `json:"bid_levels"`
	AskLevels         int     `json:"ask_levels"`
}

// ListSymbols 列出当前持有订单簿的品种
func (h *Handler) ListSymbols(c *gin.Context) {
	symbols := h.books.Symbols()
	names := make([]string, 0, len(symbols))
	for _, s := range symbols {
		names = append(names, s.String())
	}
	response.Success(c, gin.H{"symbols": names})
}

// GetOrderBook 查询指定品种的最新订单簿快照
func (h *Handler) GetOrderBook(c *gin.Context) {
	snapshot, ok := h.lookup(c)
	if !ok {
		return
	}

	response.Success(c, OrderBookDTO{
		Symbol:     snapshot.Symbol.String(),
		Timestamp:  snapshot.Timestamp.UnixMilli(),
		SequenceID: snapshot.SequenceID,
		Bids:       toLevelDTOs(snapshot.Bids),
		Asks:       toLevelDTOs(snapshot.Asks),
	})
}

// GetOrderBookMetrics 查询指定品种的微观结构指标
func (h *Handler) GetOrderBookMetrics(c *gin.Context) {
	snapshot, ok := h.lookup(c)
	if !ok {
		return
	}

	dto := BookMetricsDTO{
		Symbol:     snapshot.Symbol.String(),
		SequenceID: snapshot.SequenceID,
		BidDepth:   snapshot.TotalBidDepth().String(),
		AskDepth:   snapshot.TotalAskDepth().String(),
		BidLevels:  len(snapshot.Bids),
		AskLevels:  len(snapshot.Asks),
	}

	if bid, ok := snapshot.BestBid(); ok {
		dto.BestBid = decimalPtr(bid.Price)
	}
	if ask, ok := snapshot.BestAsk(); ok {
		dto.BestAsk = decimalPtr(ask.Price)
	}
	if mid, ok := snapshot.MidPrice(); ok {
		dto.MidPrice = decimalPtr(mid)
	}
	if spread, ok := snapshot.SpreadBps(); ok {
		dto.SpreadBps = decimalPtr(spread)
	}
	if imbalance, ok := snapshot.Imbalance(domain.DefaultImbalanceLevels); ok {
		dto.Imbalance = decimalPtr(imbalance)
	}
	if weighted, ok := snapshot.WeightedImbalance(domain.DefaultWeightedImbalanceLevels, domain.DefaultImbalanceDecay); ok {
		dto.WeightedImbalance = decimalPtr(weighted)
	}

	response.Success(c, dto)
}

func (h *Handler) lookup(c *gin.Context) (*domain.OrderBookSnapshot, bool) {
	symbol := trading.NewSymbol(c.Param("symbol"))
	if symbol.IsEmpty() {
		response.ErrorWithStatus(c, http.StatusBadRequest, "symbol is required", "")
		return nil, false
	}

	snapshot, ok := h.books.Get(symbol)
	if !ok {
		response.ErrorWithStatus(c, http.StatusNotFound, "no order book for symbol", symbol.String())
		return nil, false
	}
	return snapshot, true
}

func toLevelDTOs(levels []domain.PriceLevel) []PriceLevelDTO {
	dtos := make([]PriceLevelDTO, 0, len(levels))
	for _, level := range levels {
		dtos = append(dtos, PriceLevelDTO{
			Price:    level.Price.String(),
			Quantity: level.Quantity.String(),
		})
	}
	return dtos
}

func decimalPtr(d fixedpoint.Decimal) *string {
	s := d.String()
	return &s
}
