package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/papertrading/internal/fixedpoint"
	"github.com/wyfcoding/papertrading/internal/marketdata/application"
	"github.com/wyfcoding/papertrading/internal/marketdata/domain"
	trading "github.com/wyfcoding/papertrading/internal/trading/domain"
	"github.com/wyfcoding/papertrading/pkg/logger"
	"github.com/wyfcoding/papertrading/pkg/metrics"
	"github.com/wyfcoding/papertrading/pkg/mq"
)

// OrderBookSnapshotEvent 上游行情服务发布的订单簿快照事件。
// 档位为 [price, quantity] 字符串对，保持十进制精度。
type OrderBookSnapshotEvent struct {
	Symbol     string     `json:"symbol"`
	Timestamp  int64      `json:"timestamp"` // unix 毫秒
	SequenceID uint64     `json:"sequence_id"`
	Bids       [][]string `json:"bids"`
	Asks       [][]string `json:"asks"`
}

// SnapshotHandler 消费订单簿快照事件并投递到 BookManager
type SnapshotHandler struct {
	books   *application.BookManager
	metrics *metrics.Metrics
}

// NewSnapshotHandler 创建快照消费处理器
func NewSnapshotHandler(books *application.BookManager, m *metrics.Metrics) *SnapshotHandler {
	return &SnapshotHandler{
		books:   books,
		metrics: m,
	}
}

// Handle 处理单条快照消息。解析失败返回错误，过期快照直接丢弃。
func (h *SnapshotHandler) Handle(ctx context.Context, msg *mq.Message) error {
	var event OrderBookSnapshotEvent
	if err := msg.UnmarshalPayload(&event); err != nil {
		logger.Error(ctx, "Failed to unmarshal order book snapshot",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		return fmt.Errorf("unmarshal snapshot event: %w", err)
	}

	symbol := trading.NewSymbol(event.Symbol)
	if symbol.IsEmpty() {
		return fmt.Errorf("snapshot event missing symbol at offset %d", msg.Offset)
	}

	bids, err := parseLevels(event.Bids)
	if err != nil {
		return fmt.Errorf("parse bids for %s: %w", symbol, err)
	}
	asks, err := parseLevels(event.Asks)
	if err != nil {
		return fmt.Errorf("parse asks for %s: %w", symbol, err)
	}

	snapshot := domain.NewOrderBookSnapshot(
		symbol,
		time.UnixMilli(event.Timestamp),
		event.SequenceID,
		bids,
		asks,
	)

	if !h.books.Apply(snapshot) {
		h.metrics.BookStaleDropsTotal.Inc()
		logger.Debug(ctx, "Discarded stale order book snapshot",
			"symbol", symbol,
			"sequence_id", event.SequenceID,
		)
		return nil
	}

	h.metrics.BookUpdatesTotal.Inc()
	logger.Debug(ctx, "Applied order book snapshot",
		"symbol", symbol,
		"sequence_id", event.SequenceID,
		"bids", len(bids),
		"asks", len(asks),
	)
	return nil
}

// parseLevels 解析 [price, quantity] 字符串对
func parseLevels(raw [][]string) ([]domain.PriceLevel, error) {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for i, pair := range raw {
		if len(pair) != 2 {
			return nil, fmt.Errorf("level %d: expected [price, quantity] pair, got %d elements", i, len(pair))
		}
		price, err := fixedpoint.FromString(pair[0])
		if err != nil {
			return nil, fmt.Errorf("level %d price: %w", i, err)
		}
		quantity, err := fixedpoint.FromString(pair[1])
		if err != nil {
			return nil, fmt.Errorf("level %d quantity: %w", i, err)
		}
		levels = append(levels, domain.PriceLevel{Price: price, Quantity: quantity})
	}
	return levels, nil
}
