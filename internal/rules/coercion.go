// internal/rules/coercion.go
package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

/*
 * Value coercion for condition and rule evaluation.
 *
 * Two modes, mirroring how records arrive from import drivers:
 *   - Strict (asNumber): only Go numeric kinds count as numbers. Used by
 *     equality and ordering so that "5" never equals 5.
 *   - Lenient (CoerceNumber/CoerceBool/CoerceTime): numeric strings, "true"
 *     and date strings are accepted. Used by DATA_TYPE rules with coercion
 *     enabled and by RANGE rules.
 *
 * Text coercion for string operators is always lenient: any scalar is
 * rendered with spf13/cast, time.Time via its String method.
 *
 * Key distinction: nil is never coerced. Callers check presence and nil
 * before coercing, so a coercion failure always means a wrong-typed value.
 */

// ErrCoercionFailed indicates a value cannot be represented as the requested type.
var ErrCoercionFailed = errors.New("type coercion failed")

// asNumber converts Go numeric kinds to float64. Strings and bools are rejected.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToFloat64(n), true
	default:
		return 0, false
	}
}

// IsNumber reports whether v is a Go numeric kind.
func IsNumber(v any) bool {
	_, ok := asNumber(v)
	return ok
}

// asText renders a scalar as a string for string operators.
func asText(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprintf("%v", v), true
	}
	return s, true
}

// IsEmptyValue reports whether v is nil or a string with no non-space characters.
func IsEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// CoerceNumber converts numbers and numeric strings to float64.
// Booleans are rejected; whitespace-only strings are not numbers.
func CoerceNumber(v any) (float64, error) {
	if n, ok := asNumber(v); ok {
		return n, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, ErrCoercionFailed
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrCoercionFailed
	}
	f, err := cast.ToFloat64E(s)
	if err != nil {
		return 0, ErrCoercionFailed
	}
	return f, nil
}

// CoerceBool accepts bools and the strings cast understands ("true", "0", "F", ...).
func CoerceBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := cast.ToBoolE(strings.TrimSpace(b))
		if err != nil {
			return false, ErrCoercionFailed
		}
		return parsed, nil
	default:
		return false, ErrCoercionFailed
	}
}

// CoerceTime accepts time.Time and date strings in the layouts cast recognises.
func CoerceTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return time.Time{}, ErrCoercionFailed
		}
		parsed, err := cast.ToTimeE(strings.TrimSpace(t))
		if err != nil {
			return time.Time{}, ErrCoercionFailed
		}
		return parsed, nil
	default:
		return time.Time{}, ErrCoercionFailed
	}
}
