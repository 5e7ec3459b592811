package consumer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/wyfcoding/papertrading/internal/marketdata/application"
	trading "github.com/wyfcoding/papertrading/internal/trading/domain"
	"github.com/wyfcoding/papertrading/pkg/metrics"
	"github.com/wyfcoding/papertrading/pkg/mq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(t *testing.T, event OrderBookSnapshotEvent) *mq.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return &mq.Message{Topic: "marketdata.orderbook.snapshot", Value: payload}
}

func TestHandleAppliesSnapshot(t *testing.T) {
	books := application.NewBookManager()
	h := NewSnapshotHandler(books, metrics.New("test"))

	err := h.Handle(context.Background(), message(t, OrderBookSnapshotEvent{
		Symbol:     "btc-usd",
		Timestamp:  1700000000000,
		SequenceID: 7,
		Bids:       [][]string{{"100.5", "2"}, {"100.4", "1"}},
		Asks:       [][]string{{"100.6", "3"}},
	}))
	require.NoError(t, err)

	snapshot, ok := books.Get(trading.NewSymbol("BTC-USD"))
	require.True(t, ok)
	assert.Equal(t, uint64(7), snapshot.SequenceID)

	mid, ok := snapshot.MidPrice()
	require.True(t, ok)
	assert.Equal(t, "100.55", mid.String())
}

func TestHandleDropsStaleSnapshotWithoutError(t *testing.T) {
	books := application.NewBookManager()
	h := NewSnapshotHandler(books, metrics.New("test"))

	fresh := OrderBookSnapshotEvent{
		Symbol:     "BTC-USD",
		SequenceID: 10,
		Bids:       [][]string{{"100", "1"}},
		Asks:       [][]string{{"101", "1"}},
	}
	require.NoError(t, h.Handle(context.Background(), message(t, fresh)))

	stale := fresh
	stale.SequenceID = 9
	stale.Bids = [][]string{{"99", "1"}}
	require.NoError(t, h.Handle(context.Background(), message(t, stale)))

	snapshot, _ := books.Get(trading.NewSymbol("BTC-USD"))
	assert.Equal(t, uint64(10), snapshot.SequenceID)
	bid, _ := snapshot.BestBid()
	assert.Equal(t, "100", bid.Price.String())
}

func TestHandleRejectsMalformedPayloads(t *testing.T) {
	books := application.NewBookManager()
	h := NewSnapshotHandler(books, metrics.New("test"))

	err := h.Handle(context.Background(), &mq.Message{Value: []byte("not json")})
	assert.Error(t, err)

	err = h.Handle(context.Background(), message(t, OrderBookSnapshotEvent{
		SequenceID: 1,
		Bids:       [][]string{{"100", "1"}},
	}))
	assert.Error(t, err, "missing symbol")

	err = h.Handle(context.Background(), message(t, OrderBookSnapshotEvent{
		Symbol:     "BTC-USD",
		SequenceID: 1,
		Bids:       [][]string{{"100"}},
	}))
	assert.Error(t, err, "short level pair")

	err = h.Handle(context.Background(), message(t, OrderBookSnapshotEvent{
		Symbol:     "BTC-USD",
		SequenceID: 1,
		Asks:       [][]string{{"abc", "1"}},
	}))
	assert.Error(t, err, "bad price")
}
