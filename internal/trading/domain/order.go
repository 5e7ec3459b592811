// Package domain 交易基础领域模型：交易品种、买卖方向、订单与成交值对象，供各限界上下文共享
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/wyfcoding/papertrading/internal/fixedpoint"

	"github.com/google/uuid"
)

// Symbol 交易品种标识，统一为大写形式
type Symbol string

// NewSymbol 规范化品种标识：去除空白并转为大写
func NewSymbol(raw string) Symbol {
	return Symbol(strings.ToUpper(strings.TrimSpace(raw)))
}

func (s Symbol) String() string { return string(s) }

// IsEmpty 品种是否为空
func (s Symbol) IsEmpty() bool { return s == "" }

// Side 买卖方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide 解析买卖方向，大小写不敏感
func ParseSide(raw string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(SideBuy):
		return SideBuy, nil
	case string(SideSell):
		return SideSell, nil
	default:
		return "", fmt.Errorf("invalid side %q", raw)
	}
}

// Opposite 返回对手方向
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// IsValid 方向是否合法
func (s Side) IsValid() bool { return s == SideBuy || s == SideSell }

// OrderType 订单类型
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// TimeInForce 订单有效期策略
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
)

// Liquidity 成交流动性角色，决定费率档位
type Liquidity string

const (
	LiquidityMaker Liquidity = "MAKER"
	LiquidityTaker Liquidity = "TAKER"
)

// 外部输入的合理性边界。价格、数量或账户金额超出边界的请求在进入
// 任何名义价值计算之前即被拒绝。
var (
	MinOrderPrice    = fixedpoint.MustFromString("0.00000001")
	MaxOrderPrice    = fixedpoint.MustFromString("1000000")
	MaxOrderQuantity = fixedpoint.MustFromString("1000")
	MaxAccountValue  = fixedpoint.MustFromString("10000000000")
)

// ValidateQuantity 校验订单数量为正且不超过上限
func ValidateQuantity(quantity fixedpoint.Decimal) error {
	if !quantity.IsPositive() {
		return fmt.Errorf("quantity must be positive, got %s", quantity)
	}
	if quantity.GreaterThan(MaxOrderQuantity) {
		return fmt.Errorf("quantity %s exceeds maximum %s", quantity, MaxOrderQuantity)
	}
	return nil
}

// ValidatePrice 校验价格在上下限之间
func ValidatePrice(price fixedpoint.Decimal) error {
	if price.LessThan(MinOrderPrice) {
		return fmt.Errorf("price %s below minimum %s", price, MinOrderPrice)
	}
	if price.GreaterThan(MaxOrderPrice) {
		return fmt.Errorf("price %s exceeds maximum %s", price, MaxOrderPrice)
	}
	return nil
}

// ValidateAccountValue 校验账户金额的绝对值不超过上限
func ValidateAccountValue(value fixedpoint.Decimal) error {
	if value.Abs().GreaterThan(MaxAccountValue) {
		return fmt.Errorf("account value %s exceeds maximum magnitude %s", value, MaxAccountValue)
	}
	return nil
}

// OrderStatus 订单生命周期状态
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
)

// Order 待风控校验的订单意图。市价单 Price 为零值，不参与名义价值计算。
type Order struct {
	ID          string
	Symbol      Symbol
	Side        Side
	Type        OrderType
	Quantity    fixedpoint.Decimal
	Price       fixedpoint.Decimal
	TimeInForce TimeInForce
	Status      OrderStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewMarketOrder 创建市价单
func NewMarketOrder(symbol Symbol, side Side, quantity fixedpoint.Decimal) *Order {
	now := time.Now()
	return &Order{
		ID:          fmt.Sprintf("ORD-%s", uuid.New().String()),
		Symbol:      symbol,
		Side:        side,
		Type:        OrderTypeMarket,
		Quantity:    quantity,
		TimeInForce: TimeInForceIOC,
		Status:      OrderStatusNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewLimitOrder 创建限价单
func NewLimitOrder(symbol Symbol, side Side, quantity, price fixedpoint.Decimal) *Order {
	now := time.Now()
	return &Order{
		ID:          fmt.Sprintf("ORD-%s", uuid.New().String()),
		Symbol:      symbol,
		Side:        side,
		Type:        OrderTypeLimit,
		Quantity:    quantity,
		Price:       price,
		TimeInForce: TimeInForceGTC,
		Status:      OrderStatusNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MarkStatus 更新订单状态并刷新更新时间
func (o *Order) MarkStatus(status OrderStatus) {
	o.Status = status
	o.UpdatedAt = time.Now()
}

// Notional 订单名义价值 = 价格 × 数量，市价单无价格返回零
func (o *Order) Notional() fixedpoint.Decimal {
	if o.Type != OrderTypeLimit {
		return fixedpoint.Zero(o.Quantity.Scale())
	}
	return o.Price.Mul(o.Quantity)
}

// SignedQuantity 带符号数量：买为正，卖为负
func (o *Order) SignedQuantity() fixedpoint.Decimal {
	if o.Side == SideSell {
		return o.Quantity.Neg()
	}
	return o.Quantity
}

// Trade 已执行的模拟成交
type Trade struct {
	ID         string
	Symbol     Symbol
	Side       Side
	Quantity   fixedpoint.Decimal
	Price      fixedpoint.Decimal
	Liquidity  Liquidity
	ExecutedAt time.Time
}

// NewTrade 创建成交记录
func NewTrade(symbol Symbol, side Side, quantity, price fixedpoint.Decimal, liquidity Liquidity, executedAt time.Time) *Trade {
	return &Trade{
		ID:         fmt.Sprintf("TRD-%s", uuid.New().String()),
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		Liquidity:  liquidity,
		ExecutedAt: executedAt,
	}
}
