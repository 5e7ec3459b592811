package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wyfcoding/papertrading/internal/fixedpoint"
	"github.com/wyfcoding/papertrading/internal/position/application"
	"github.com/wyfcoding/papertrading/internal/position/domain"
	"github.com/wyfcoding/papertrading/pkg/metrics"
	"github.com/wyfcoding/papertrading/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup() *gin.Engine {
	gin.SetMode(gin.TestMode)
	fees := domain.FeeSchedule{
		MakerRate: fixedpoint.MustFromString("0.0005"),
		TakerRate: fixedpoint.MustFromString("0.001"),
	}
	ledger := application.NewLedgerService(fixedpoint.MustFromString("10000"), fees, nil, metrics.New("test"))

	router := gin.New()
	NewPositionHandler(ledger).RegisterRoutes(&router.RouterGroup)
	return router
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dest))
}

func TestRecordFillEndpoint(t *testing.T) {
	router := setup()

	w := doJSON(router, http.MethodPost, "/api/v1/positions/fills", RecordFillRequest{
		Symbol:   "btc-usd",
		Side:     "buy",
		Quantity: "1",
		Price:    "100",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var dto application.FillResultDTO
	decode(t, w, &dto)
	assert.NotEmpty(t, dto.TradeID)
	assert.Empty(t, dto.ClosedPnl)
	assert.Equal(t, "BTC-USD", dto.Position.Symbol)
	assert.Equal(t, "1", dto.Position.Quantity)
	assert.Equal(t, "100", dto.Position.AvgEntryPrice)
	assert.Equal(t, "10000", dto.Account.Balance)
}

func TestRecordFillRoundTrip(t *testing.T) {
	router := setup()

	w := doJSON(router, http.MethodPost, "/api/v1/positions/fills", RecordFillRequest{
		Symbol: "BTC-USD", Side: "BUY", Quantity: "1", Price: "100",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/positions/fills", RecordFillRequest{
		Symbol: "BTC-USD", Side: "SELL", Quantity: "1", Price: "110",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var dto application.FillResultDTO
	decode(t, w, &dto)
	assert.Equal(t, "9.79", dto.ClosedPnl)
	assert.Equal(t, "0", dto.Position.Quantity)
	assert.Equal(t, "10009.79", dto.Account.Balance)

	// 账户查询与记账结果一致
	w = doJSON(router, http.MethodGet, "/api/v1/positions/account", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var account application.AccountDTO
	decode(t, w, &account)
	assert.Equal(t, "10009.79", account.Balance)
	assert.Equal(t, "10009.79", account.Equity)
	assert.Equal(t, 0, account.OpenPositions)
}

func TestRecordFillValidation(t *testing.T) {
	router := setup()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/positions/fills", bytes.NewReader([]byte("{bad")))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/positions/fills", RecordFillRequest{
		Symbol: "BTC-USD", Side: "HOLD", Quantity: "1", Price: "100",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/positions/fills", RecordFillRequest{
		Symbol: "BTC-USD", Side: "BUY", Quantity: "abc", Price: "100",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/positions/fills", RecordFillRequest{
		Symbol: "BTC-USD", Side: "BUY", Quantity: "1", Price: "100", Liquidity: "BOTH",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPositionsSorted(t *testing.T) {
	router := setup()

	for _, symbol := range []string{"ETH-USD", "BTC-USD"} {
		w := doJSON(router, http.MethodPost, "/api/v1/positions/fills", RecordFillRequest{
			Symbol: symbol, Side: "BUY", Quantity: "1", Price: "100",
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(router, http.MethodGet, "/api/v1/positions", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var dtos []application.PositionDTO
	decode(t, w, &dtos)
	require.Len(t, dtos, 2)
	assert.Equal(t, "BTC-USD", dtos[0].Symbol)
	assert.Equal(t, "ETH-USD", dtos[1].Symbol)
}

func TestGetPositionBySymbol(t *testing.T) {
	router := setup()

	w := doJSON(router, http.MethodPost, "/api/v1/positions/fills", RecordFillRequest{
		Symbol: "BTC-USD", Side: "BUY", Quantity: "2", Price: "100",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/positions/BTC-USD", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var dto struct {
		Symbol   string `json:"symbol"`
		Quantity string `json:"quantity"`
	}
	decode(t, w, &dto)
	assert.Equal(t, "BTC-USD", dto.Symbol)
	assert.Equal(t, "2", dto.Quantity)

	// 未知品种返回空持仓而非 404
	w = doJSON(router, http.MethodGet, "/api/v1/positions/SOL-USD", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &dto)
	assert.Equal(t, "SOL-USD", dto.Symbol)
	assert.Equal(t, "0", dto.Quantity)
}

func TestGetPerformanceEndpoint(t *testing.T) {
	router := setup()

	fills := []RecordFillRequest{
		{Symbol: "BTC-USD", Side: "BUY", Quantity: "1", Price: "100"},
		{Symbol: "BTC-USD", Side: "SELL", Quantity: "1", Price: "110"},
		{Symbol: "BTC-USD", Side: "BUY", Quantity: "1", Price: "110"},
		{Symbol: "BTC-USD", Side: "SELL", Quantity: "1", Price: "100"},
	}
	for _, fill := range fills {
		w := doJSON(router, http.MethodPost, "/api/v1/positions/fills", fill)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(router, http.MethodGet, "/api/v1/positions/performance", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var dto application.PerformanceDTO
	decode(t, w, &dto)
	assert.Equal(t, 2, dto.TotalTrades)
	assert.Equal(t, 1, dto.WinningTrades)
	assert.Equal(t, 1, dto.LosingTrades)
	assert.Equal(t, "0.5", dto.WinRate)
}
