package ruleset

import (
	"context"
	"fmt"

	"github.com/solatis/importgate/internal/rules"
	"github.com/solatis/importgate/internal/types"
)

// Built-in aggregate functions available to rule set documents.
const (
	FuncAnyPresent = "any_present" // at least one field has a value
	FuncAllOrNone  = "all_or_none" // fields are filled together or not at all
	FuncDistinct   = "distinct"    // filled fields hold pairwise different values
	FuncSumMax     = "sum_max"     // numeric fields sum to at most limit
)

func aggregateFunction(name string, limit float64) (rules.AggregatePredicate, error) {
	switch name {
	case FuncAnyPresent:
		return func(_ context.Context, values []any) (bool, error) {
			for _, v := range values {
				if !rules.IsEmptyValue(v) {
					return true, nil
				}
			}
			return false, nil
		}, nil
	case FuncAllOrNone:
		return func(_ context.Context, values []any) (bool, error) {
			filled := 0
			for _, v := range values {
				if !rules.IsEmptyValue(v) {
					filled++
				}
			}
			return filled == 0 || filled == len(values), nil
		}, nil
	case FuncDistinct:
		return func(_ context.Context, values []any) (bool, error) {
			for i := range values {
				if rules.IsEmptyValue(values[i]) {
					continue
				}
				for j := i + 1; j < len(values); j++ {
					if rules.ValuesEqual(values[i], values[j]) {
						return false, nil
					}
				}
			}
			return true, nil
		}, nil
	case FuncSumMax:
		return func(_ context.Context, values []any) (bool, error) {
			var sum float64
			for i, v := range values {
				if rules.IsEmptyValue(v) {
					continue
				}
				n, err := rules.CoerceNumber(v)
				if err != nil {
					return false, fmt.Errorf("value %d (%v): %w", i, v, err)
				}
				sum += n
			}
			return sum <= limit, nil
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown aggregate function %q", types.ErrInvalidRule, name)
	}
}
