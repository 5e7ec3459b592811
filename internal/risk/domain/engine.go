// 包 风控服务的领域模型
package domain

import (
	"fmt"
	"time"

	"github.com/wyfcoding/papertrading/internal/fixedpoint"
	trading "github.com/wyfcoding/papertrading/internal/trading/domain"
)

// rateLimitWindow 下单限频的滑动窗口长度
const rateLimitWindow = time.Minute

// balanceSafetyFactor 安全下单量的余额折扣系数
var balanceSafetyFactor = fixedpoint.MustFromString("0.95")

// Config 风控限额配置
type Config struct {
	// 单品种最大持仓数量（绝对值）
	MaxPositionSize fixedpoint.Decimal
	// 全账户最大名义敞口
	MaxTotalExposure fixedpoint.Decimal
	// 最大回撤比例（相对初始余额）
	MaxDrawdownPct fixedpoint.Decimal
	// 单笔最大亏损，超出即触发熔断
	MaxLossPerTrade fixedpoint.Decimal
	// 每分钟最大下单数
	MaxOrdersPerMinute int
	// 最低余额阈值
	MinBalanceThreshold fixedpoint.Decimal
}

// AccountState 风控视角的账户状态
type AccountState struct {
	Balance        fixedpoint.Decimal
	Equity         fixedpoint.Decimal
	InitialBalance fixedpoint.Decimal
}

// PositionState 风控视角的单品种持仓
type PositionState struct {
	Symbol        trading.Symbol
	Quantity      fixedpoint.Decimal
	AvgEntryPrice fixedpoint.Decimal
}

// Notional 持仓名义价值 = |数量| × 开仓均价
func (p PositionState) Notional() fixedpoint.Decimal {
	return p.Quantity.Abs().Mul(p.AvgEntryPrice)
}

// Engine 订单前置风控引擎。
// 校验管线按固定顺序短路执行：输入边界 → 熔断器 → 限频 → 最低余额 → 回撤 → 总敞口 → 持仓上限。
// Engine 自身不做并发保护，由应用层持锁调用。
type Engine struct {
	config Config

	// 限频窗口状态
	ordersInWindow int
	windowStart    time.Time

	// 熔断器状态；reason 非空当且仅当 active
	breakerActive bool
	breakerReason string

	now func() time.Time
}

// NewEngine 创建风控引擎
func NewEngine(config Config) *Engine {
	return &Engine{
		config: config,
		now:    time.Now,
	}
}

// CheckOrder 对订单意图执行全部风控校验。
// currentPosition 为订单品种的当前持仓，positions 为全部持仓（用于敞口合计）。
func (e *Engine) CheckOrder(order *trading.Order, account AccountState, positions []PositionState, currentPosition PositionState) CheckResult {
	quantity := order.Quantity

	// 1. 输入边界：价格或数量超出合理范围的订单不进入任何名义价值计算
	if err := trading.ValidateQuantity(quantity); err != nil {
		return Rejected(err.Error(), quantity)
	}
	if order.Type == trading.OrderTypeLimit {
		if err := trading.ValidatePrice(order.Price); err != nil {
			return Rejected(err.Error(), quantity)
		}
	}

	// 2. 熔断器
	if e.breakerActive {
		return Rejected(fmt.Sprintf("circuit breaker active: %s", e.breakerReason), quantity)
	}

	// 3. 限频
	e.refreshWindow(e.now())
	if e.ordersInWindow >= e.config.MaxOrdersPerMinute {
		return Rejected(fmt.Sprintf("rate limit exceeded: %d orders in the last minute", e.ordersInWindow), quantity)
	}

	// 4. 最低余额
	if account.Balance.LessThan(e.config.MinBalanceThreshold) {
		return Rejected(fmt.Sprintf("balance %s below minimum threshold %s",
			account.Balance, e.config.MinBalanceThreshold), quantity)
	}

	// 5. 回撤
	if exceeded, drawdown := e.drawdownExceeded(account); exceeded {
		return Rejected(fmt.Sprintf("drawdown %s exceeds limit %s", drawdown, e.config.MaxDrawdownPct), quantity)
	}

	// 6. 总敞口：现有持仓名义价值 + 限价单新增名义价值
	exposure := order.Notional()
	for _, p := range positions {
		exposure = exposure.Add(p.Notional())
	}
	if exposure.GreaterThan(e.config.MaxTotalExposure) {
		return Rejected(fmt.Sprintf("total exposure %s exceeds limit %s", exposure, e.config.MaxTotalExposure), quantity)
	}

	// 7. 持仓上限：超限时尝试缩量到剩余额度
	projected := currentPosition.Quantity.Add(order.SignedQuantity()).Abs()
	if projected.GreaterThan(e.config.MaxPositionSize) {
		allowed := e.config.MaxPositionSize.Sub(currentPosition.Quantity.Abs())
		if allowed.IsPositive() {
			return RequiresAdjustment(fmt.Sprintf("position size capped at %s", e.config.MaxPositionSize),
				quantity, allowed)
		}
		return Rejected(fmt.Sprintf("position limit reached: %s of %s held",
			currentPosition.Quantity.Abs(), e.config.MaxPositionSize), quantity)
	}

	return Approved(quantity)
}

// UpdateRateLimit 在订单放行后登记一次下单。拒绝的订单不计入窗口。
func (e *Engine) UpdateRateLimit() {
	now := e.now()
	e.refreshWindow(now)
	if e.ordersInWindow == 0 {
		e.windowStart = now
	}
	e.ordersInWindow++
}

// refreshWindow 窗口起点距今超过窗口长度时清零计数。
// 窗口内的后续订单不顺延起点，起点只在清零后由下一单重新设定。
func (e *Engine) refreshWindow(now time.Time) {
	if now.Sub(e.windowStart) > rateLimitWindow {
		e.ordersInWindow = 0
		e.windowStart = now
	}
}

// ActivateCircuitBreaker 手动或由风控事件触发熔断。reason 为空时使用默认描述。
func (e *Engine) ActivateCircuitBreaker(reason string) {
	if reason == "" {
		reason = "manually engaged"
	}
	e.breakerActive = true
	e.breakerReason = reason
}

// DeactivateCircuitBreaker 解除熔断。熔断没有隐式过期，必须显式解除。
func (e *Engine) DeactivateCircuitBreaker() {
	e.breakerActive = false
	e.breakerReason = ""
}

// BreakerState 当前熔断状态
func (e *Engine) BreakerState() (bool, string) {
	return e.breakerActive, e.breakerReason
}

// RecordTradeResult 登记一笔平仓结果。净亏损超过单笔上限时触发熔断。
func (e *Engine) RecordTradeResult(netPnl fixedpoint.Decimal) {
	if !netPnl.IsNegative() {
		return
	}
	if netPnl.Abs().GreaterThan(e.config.MaxLossPerTrade) {
		e.ActivateCircuitBreaker(fmt.Sprintf("loss %s exceeds max loss per trade %s",
			netPnl.Abs(), e.config.MaxLossPerTrade))
	}
}

// MaxSafeOrderSize 当前可安全提交的最大订单数量：
// min(持仓剩余额度（下限 0）, 余额的 95%)。
func (e *Engine) MaxSafeOrderSize(account AccountState, currentPosition PositionState) fixedpoint.Decimal {
	headroom := e.config.MaxPositionSize.Sub(currentPosition.Quantity.Abs())
	if headroom.IsNegative() {
		headroom = fixedpoint.Zero(headroom.Scale())
	}
	return fixedpoint.Min(headroom, account.Balance.Mul(balanceSafetyFactor))
}

// drawdownExceeded 回撤 = (初始余额 - 当前权益) / 初始余额
func (e *Engine) drawdownExceeded(account AccountState) (bool, fixedpoint.Decimal) {
	zero := fixedpoint.Zero(fixedpoint.DefaultScale)
	if !account.InitialBalance.IsPositive() {
		return false, zero
	}
	loss := account.InitialBalance.Sub(account.Equity)
	if !loss.IsPositive() {
		return false, zero
	}
	drawdown, err := loss.Rescale(fixedpoint.DefaultScale).Div(account.InitialBalance)
	if err != nil {
		return false, zero
	}
	return drawdown.GreaterThan(e.config.MaxDrawdownPct), drawdown
}
