package application

import (
	"github.com/wyfcoding/papertrading/internal/risk/domain"
)

// CheckResultDTO 订单校验响应。approved 表示按原始或调整后数量放行。
type CheckResultDTO struct {
	Approved    bool   `json:"approved"`
	Adjusted    bool   `json:"adjusted"`
	OriginalQty string `json:"original_qty"`
	AdjustedQty string `json:"adjusted_qty"`
	Reason      string `json:"reason,omitempty"`
}

func toCheckResultDTO(result domain.CheckResult) CheckResultDTO {
	return CheckResultDTO{
		Approved:    result.IsAllowed(),
		Adjusted:    result.Status == domain.StatusRequiresAdjustment,
		OriginalQty: result.OriginalQty.String(),
		AdjustedQty: result.EffectiveQty().String(),
		Reason:      result.Reason,
	}
}
