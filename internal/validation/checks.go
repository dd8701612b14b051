package validation

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/solatis/importgate/internal/rules"
	"github.com/solatis/importgate/internal/types"
)

/*
 * Rule kind checks.
 *
 * Each check returns nil on success or a single ValidationError carrying the
 * rule's type and severity. Values arrive as they were read from the record;
 * checks never mutate them.
 *
 * Nil handling per kind:
 *   - REQUIRED_FIELD: nil and missing fail
 *   - DATA_TYPE, FORMAT, RANGE: nil passes (absence is REQUIRED_FIELD's job)
 *   - ENUM: nil fails unless AllowNull
 *
 * A value that cannot be coerced to the type a check needs is a failed check
 * of that rule, never a panic.
 */

func checkField(c *rules.CompiledRule, value any) *types.ValidationError {
	rule := c.Rule
	switch p := rule.Params.(type) {
	case nil:
		return checkRequired(rule, rules.RequiredParams{}, value)
	case rules.RequiredParams:
		return checkRequired(rule, p, value)
	case rules.DataTypeParams:
		return checkDataType(rule, p, value)
	case rules.FormatParams:
		return checkFormat(rule, c, p, value)
	case rules.RangeParams:
		return checkRange(rule, p, value)
	case rules.EnumParams:
		return checkEnum(rule, p, value)
	default:
		return nil
	}
}

func failure(rule rules.ValidationRule, value any, defaultMessage string, expected any) *types.ValidationError {
	message := rule.Message
	if message == "" {
		message = defaultMessage
	}
	return &types.ValidationError{
		Field:         rule.Field,
		Type:          rule.Type,
		Severity:      rule.Severity,
		Message:       message,
		SuggestedFix:  rule.SuggestedFix,
		ActualValue:   value,
		ExpectedValue: expected,
	}
}

func checkRequired(rule rules.ValidationRule, p rules.RequiredParams, value any) *types.ValidationError {
	if value == nil {
		return failure(rule, nil, fmt.Sprintf("%s is required", rule.Field), "a value")
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" && !p.AllowEmpty {
		return failure(rule, value, fmt.Sprintf("%s must not be empty", rule.Field), "a non-empty value")
	}
	return nil
}

func checkDataType(rule rules.ValidationRule, p rules.DataTypeParams, value any) *types.ValidationError {
	if value == nil || matchesDataType(p, value) {
		return nil
	}
	return failure(rule, value, fmt.Sprintf("%s must be of type %s", rule.Field, p.Type), string(p.Type))
}

func matchesDataType(p rules.DataTypeParams, value any) bool {
	switch p.Type {
	case rules.DataTypeString:
		_, ok := value.(string)
		return ok
	case rules.DataTypeNumber:
		_, ok := numberOf(p, value)
		return ok
	case rules.DataTypeInteger:
		n, ok := numberOf(p, value)
		return ok && n == math.Trunc(n)
	case rules.DataTypeBoolean:
		if _, ok := value.(bool); ok {
			return true
		}
		if !p.Coerce {
			return false
		}
		_, err := rules.CoerceBool(value)
		return err == nil
	case rules.DataTypeDate:
		if _, ok := value.(time.Time); ok {
			return true
		}
		if !p.Coerce {
			return false
		}
		_, err := rules.CoerceTime(value)
		return err == nil
	default:
		return false
	}
}

// numberOf returns value as a finite float64. Numeric strings count only
// with coercion enabled.
func numberOf(p rules.DataTypeParams, value any) (float64, bool) {
	var n float64
	switch {
	case rules.IsNumber(value):
		n = cast.ToFloat64(value)
	case p.Coerce:
		coerced, err := rules.CoerceNumber(value)
		if err != nil {
			return 0, false
		}
		n = coerced
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func checkFormat(rule rules.ValidationRule, c *rules.CompiledRule, p rules.FormatParams, value any) *types.ValidationError {
	if value == nil {
		return nil
	}
	s, err := cast.ToStringE(value)
	if err != nil || !c.Pattern.MatchString(s) {
		return failure(rule, value, fmt.Sprintf("%s does not match the required format", rule.Field), p.Pattern)
	}
	return nil
}

func checkRange(rule rules.ValidationRule, p rules.RangeParams, value any) *types.ValidationError {
	if value == nil {
		return nil
	}
	expected := describeRange(p)
	n, err := rules.CoerceNumber(value)
	if err != nil || math.IsNaN(n) {
		return failure(rule, value, fmt.Sprintf("%s must be a number in %s", rule.Field, expected), expected)
	}

	below := p.Min != nil && (n < *p.Min || (p.ExclusiveMin && n == *p.Min))
	above := p.Max != nil && (n > *p.Max || (p.ExclusiveMax && n == *p.Max))
	if below || above {
		return failure(rule, value, fmt.Sprintf("%s must be in %s", rule.Field, expected), expected)
	}
	return nil
}

// describeRange renders bounds in interval notation, e.g. [1, 1000) or (0, inf).
func describeRange(p rules.RangeParams) string {
	lo, hi := "(-inf", "inf)"
	if p.Min != nil {
		bracket := "["
		if p.ExclusiveMin {
			bracket = "("
		}
		lo = bracket + cast.ToString(*p.Min)
	}
	if p.Max != nil {
		bracket := "]"
		if p.ExclusiveMax {
			bracket = ")"
		}
		hi = cast.ToString(*p.Max) + bracket
	}
	return lo + ", " + hi
}

func checkEnum(rule rules.ValidationRule, p rules.EnumParams, value any) *types.ValidationError {
	if value == nil {
		if p.AllowNull {
			return nil
		}
		return failure(rule, nil, fmt.Sprintf("%s must be one of %v", rule.Field, p.Values), p.Values)
	}
	for _, allowed := range p.Values {
		if enumMatch(value, allowed, p.CaseInsensitive) {
			return nil
		}
	}
	return failure(rule, value, fmt.Sprintf("%s must be one of %v", rule.Field, p.Values), p.Values)
}

func enumMatch(value, allowed any, caseInsensitive bool) bool {
	if caseInsensitive {
		vs, ok1 := value.(string)
		as, ok2 := allowed.(string)
		if ok1 && ok2 {
			return strings.EqualFold(vs, as)
		}
	}
	return rules.ValuesEqual(value, allowed)
}

// checkDelegate runs the cross-field or aggregate predicate a BUSINESS_RULE
// or FOREIGN_KEY rule points at. A predicate error is reported as a failed
// check and logged; it never aborts the record.
func (p *Plan) checkDelegate(ctx context.Context, c *rules.CompiledRule, record types.Record) *types.ValidationError {
	rule := c.Rule
	target := rule.Params.(rules.DelegateParams).RuleID

	if cf, ok := p.cross[target]; ok {
		outcome, err := cf.Predicate(ctx, record)
		if err != nil {
			p.logger.Warn("cross-field predicate failed",
				"rule_id", rule.ID, "delegate", target, "error", err)
			return delegateFailure(rule, cf.Severity, cf.Fields, nil,
				fmt.Sprintf("rule %s could not be evaluated: %v", target, err), "")
		}
		if outcome.Valid {
			return nil
		}
		message := firstNonEmpty(outcome.Message, rule.Message, fmt.Sprintf("record violates rule %s", target))
		return delegateFailure(rule, cf.Severity, cf.Fields, nil, message, outcome.SuggestedFix)
	}

	agg := p.aggregate[target]
	values := make([]any, len(agg.Fields))
	for i, field := range agg.Fields {
		values[i], _ = record.Lookup(field)
	}
	ok, err := agg.Predicate(ctx, values)
	if err != nil {
		p.logger.Warn("aggregate predicate failed",
			"rule_id", rule.ID, "delegate", target, "error", err)
		return delegateFailure(rule, agg.Severity, agg.Fields, values,
			fmt.Sprintf("rule %s could not be evaluated: %v", target, err), "")
	}
	if ok {
		return nil
	}
	message := firstNonEmpty(rule.Message, agg.Message, fmt.Sprintf("fields %v violate rule %s", agg.Fields, target))
	return delegateFailure(rule, agg.Severity, agg.Fields, values, message, "")
}

func delegateFailure(rule rules.ValidationRule, fallback types.Severity, fields []string, actual any, message, fix string) *types.ValidationError {
	severity := rule.Severity
	if severity == "" {
		severity = fallback
	}
	return &types.ValidationError{
		Field:        rule.Field,
		Fields:       append([]string(nil), fields...),
		Type:         rule.Type,
		Severity:     severity,
		Message:      message,
		SuggestedFix: firstNonEmpty(fix, rule.SuggestedFix),
		ActualValue:  actual,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
