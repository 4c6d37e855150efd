package planning

import (
	"github.com/zero-day-ai/cortex/internal/types"
)

const ErrCodePlanningDefaulted types.ErrorCode = "PLANNING_DEFAULTED"

// ErrPlanningDefaulted marks an extraction that fell back to the default
// plan. It never leaves the extractor; callers see QueryPlan.Defaulted.
var ErrPlanningDefaulted = types.NewError(ErrCodePlanningDefaulted, "query plan defaulted")

func defaulted(reason string, cause error) error {
	return types.WrapError(ErrCodePlanningDefaulted, "query plan defaulted: "+reason, cause)
}
