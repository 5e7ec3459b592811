package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wyfcoding/papertrading/internal/fixedpoint"
	"github.com/wyfcoding/papertrading/internal/marketdata/application"
	"github.com/wyfcoding/papertrading/internal/marketdata/domain"
	trading "github.com/wyfcoding/papertrading/internal/trading/domain"
	"github.com/wyfcoding/papertrading/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(books *application.BookManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(books).RegisterRoutes(&router.RouterGroup)
	return router
}

func seedBook(books *application.BookManager) {
	books.Apply(domain.NewOrderBookSnapshot(
		trading.NewSymbol("BTC-USD"),
		time.UnixMilli(1700000000000),
		42,
		[]domain.PriceLevel{
			{Price: fixedpoint.MustFromString("100"), Quantity: fixedpoint.MustFromString("2")},
		},
		[]domain.PriceLevel{
			{Price: fixedpoint.MustFromString("101"), Quantity: fixedpoint.MustFromString("1")},
		},
	))
}

func doGet(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dest))
}

func TestGetOrderBook(t *testing.T) {
	books := application.NewBookManager()
	seedBook(books)
	router := setupRouter(books)

	w := doGet(router, "/api/v1/marketdata/orderbook/btc-usd")
	require.Equal(t, http.StatusOK, w.Code)

	var dto OrderBookDTO
	decodeData(t, w, &dto)
	assert.Equal(t, "BTC-USD", dto.Symbol)
	assert.Equal(t, uint64(42), dto.SequenceID)
	assert.Equal(t, int64(1700000000000), dto.Timestamp)
	require.Len(t, dto.Bids, 1)
	assert.Equal(t, PriceLevelDTO{Price: "100", Quantity: "2"}, dto.Bids[0])
}

func TestGetOrderBookNotFound(t *testing.T) {
	router := setupRouter(application.NewBookManager())
	w := doGet(router, "/api/v1/marketdata/orderbook/ETH-USD")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetOrderBookMetrics(t *testing.T) {
	books := application.NewBookManager()
	seedBook(books)
	router := setupRouter(books)

	w := doGet(router, "/api/v1/marketdata/orderbook/BTC-USD/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	var dto BookMetricsDTO
	decodeData(t, w, &dto)
	require.NotNil(t, dto.MidPrice)
	assert.Equal(t, "100.5", *dto.MidPrice)
	require.NotNil(t, dto.Imbalance)
	assert.Equal(t, "0.33333333", *dto.Imbalance)
	assert.Equal(t, "2", dto.BidDepth)
	assert.Equal(t, 1, dto.BidLevels)
}

func TestGetOrderBookMetricsNullWhenUnavailable(t *testing.T) {
	books := application.NewBookManager()
	books.Apply(domain.NewOrderBookSnapshot(
		trading.NewSymbol("BTC-USD"), time.Now(), 1,
		[]domain.PriceLevel{{Price: fixedpoint.MustFromString("100"), Quantity: fixedpoint.MustFromString("1")}},
		nil,
	))
	router := setupRouter(books)

	w := doGet(router, "/api/v1/marketdata/orderbook/BTC-USD/metrics")
	require.Equal(t, http.StatusOK, w.Code)

	var dto BookMetricsDTO
	decodeData(t, w, &dto)
	assert.Nil(t, dto.MidPrice)
	assert.Nil(t, dto.BestAsk)
	assert.Nil(t, dto.SpreadBps)
	require.NotNil(t, dto.BestBid)
	assert.Equal(t, "100", *dto.BestBid)
}

func TestListSymbols(t *testing.T) {
	books := application.NewBookManager()
	seedBook(books)
	router := setupRouter(books)

	w := doGet(router, "/api/v1/marketdata/symbols")
	require.Equal(t, http.StatusOK, w.Code)

	var dto struct {
		Symbols []string `json:"symbols"`
	}
	decodeData(t, w, &dto)
	assert.Equal(t, []string{"BTC-USD"}, dto.Symbols)
}
