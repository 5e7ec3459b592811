// 包 风控服务的领域模型：订单前置校验管线、熔断器与限频窗口
package domain

import (
	"github.com/wyfcoding/papertrading/internal/fixedpoint"
)

// CheckStatus 校验结论
type CheckStatus string

const (
	// StatusApproved 按原始数量放行
	StatusApproved CheckStatus = "APPROVED"
	// StatusRejected 拒绝
	StatusRejected CheckStatus = "REJECTED"
	// StatusRequiresAdjustment 缩量后放行
	StatusRequiresAdjustment CheckStatus = "REQUIRES_ADJUSTMENT"
)

// CheckResult 校验结果。三种结论之一，消费方应对 Status 做穷尽分支处理：
//   - Approved：按 OriginalQty 放行，Reason 为空；
//   - Rejected：Reason 说明拒绝原因，AdjustedQty 无意义；
//   - RequiresAdjustment：按 AdjustedQty 放行，Reason 说明缩量原因。
type CheckResult struct {
	Status      CheckStatus
	Reason      string
	OriginalQty fixedpoint.Decimal
	AdjustedQty fixedpoint.Decimal
}

// Approved 构造放行结果
func Approved(quantity fixedpoint.Decimal) CheckResult {
	return CheckResult{
		Status:      StatusApproved,
		OriginalQty: quantity,
		AdjustedQty: quantity,
	}
}

// Rejected 构造拒绝结果
func Rejected(reason string, quantity fixedpoint.Decimal) CheckResult {
	return CheckResult{
		Status:      StatusRejected,
		Reason:      reason,
		OriginalQty: quantity,
		AdjustedQty: fixedpoint.Zero(quantity.Scale()),
	}
}

// RequiresAdjustment 构造缩量放行结果
func RequiresAdjustment(reason string, originalQty, adjustedQty fixedpoint.Decimal) CheckResult {
	return CheckResult{
		Status:      StatusRequiresAdjustment,
		Reason:      reason,
		OriginalQty: originalQty,
		AdjustedQty: adjustedQty,
	}
}

// IsAllowed 是否放行（含缩量放行）
func (r CheckResult) IsAllowed() bool {
	return r.Status == StatusApproved || r.Status == StatusRequiresAdjustment
}

// EffectiveQty 放行的有效数量：缩量时为调整后数量，拒绝时为零
func (r CheckResult) EffectiveQty() fixedpoint.Decimal {
	switch r.Status {
	case StatusApproved:
		return r.OriginalQty
	case StatusRequiresAdjustment:
		return r.AdjustedQty
	default:
		return fixedpoint.Zero(r.OriginalQty.Scale())
	}
}
