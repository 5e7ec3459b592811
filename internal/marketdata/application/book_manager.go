package application

import (
	"sort"
	"sync"

	"github.com/wyfcoding/papertrading/internal/marketdata/domain"
	trading "github.com/wyfcoding/papertrading/internal/trading/domain"
)

// BookManager 维护各品种的最新订单簿快照。
// 快照本身不可变，替换是整体指针交换，读路径只在取指针时持读锁。
type BookManager struct {
	mu    sync.RWMutex
	books map[trading.Symbol]*domain.OrderBookSnapshot
}

// NewBookManager 创建订单簿管理器
func NewBookManager() *BookManager {
	return &BookManager{
		books: make(map[trading.Symbol]*domain.OrderBookSnapshot),
	}
}

// Apply 应用一个新的快照。sequence_id 不大于当前快照的视为过期数据，
// 丢弃并返回 false。
func (m *BookManager) Apply(snapshot *domain.OrderBookSnapshot) bool {
	if snapshot == nil || snapshot.Symbol.IsEmpty() {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.books[snapshot.Symbol]; ok && snapshot.SequenceID <= current.SequenceID {
		return false
	}
	m.books[snapshot.Symbol] = snapshot
	return true
}

// Get 获取指定品种的最新快照
func (m *BookManager) Get(symbol trading.Symbol) (*domain.OrderBookSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snapshot, ok := m.books[symbol]
	return snapshot, ok
}

// Symbols 返回当前持有快照的全部品种，按字典序排列
func (m *BookManager) Symbols() []trading.Symbol {
	m.mu.RLock()
	defer m.mu.RUnlock()

	symbols := make([]trading.Symbol, 0, len(m.books))
	for symbol := range m.books {
		symbols = append(symbols, symbol)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })
	return symbols
}
