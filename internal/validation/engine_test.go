package validation

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/importgate/internal/rules"
	"github.com/solatis/importgate/internal/types"
)

func newEngine(t *testing.T, defs ...rules.ValidationRule) *Engine {
	t.Helper()
	r := rules.NewRegistry()
	require.NoError(t, r.AddRules(defs))
	return NewEngine(r)
}

func rule(id, field string, kind types.ErrorType, params rules.Params) rules.ValidationRule {
	return rules.ValidationRule{
		ID:         id,
		EntityType: "PART",
		Field:      field,
		Type:       kind,
		Severity:   types.SeverityError,
		Params:     params,
	}
}

func TestValidateRecord_RequiredFieldNull(t *testing.T) {
	e := newEngine(t, rule("pn", "partNumber", types.ErrorTypeRequiredField, nil))

	res, err := e.ValidateRecord(context.Background(), types.Record{"partNumber": nil}, "PART")
	require.NoError(t, err)

	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, types.ErrorTypeRequiredField, res.Errors[0].Type)
	assert.Equal(t, "pn", res.Errors[0].RuleID)
	assert.Equal(t, 90, res.QualityScore)
}

func TestValidateRecord_RequiredFieldVariants(t *testing.T) {
	strict := rule("strict", "name", types.ErrorTypeRequiredField, rules.RequiredParams{})
	lenient := rule("lenient", "note", types.ErrorTypeRequiredField, rules.RequiredParams{AllowEmpty: true})
	e := newEngine(t, strict, lenient)

	tests := []struct {
		name   string
		record types.Record
		want   int
	}{
		{"both missing", types.Record{}, 2},
		{"whitespace name", types.Record{"name": "  ", "note": "x"}, 1},
		{"empty note allowed", types.Record{"name": "bolt", "note": ""}, 0},
		{"zero is a value", types.Record{"name": 0, "note": false}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.ValidateRecord(context.Background(), tt.record, "PART")
			require.NoError(t, err)
			assert.Len(t, res.Errors, tt.want)
		})
	}
}

func TestValidateRecord_RangeInclusive(t *testing.T) {
	e := newEngine(t, rule("qty", "quantity", types.ErrorTypeRange,
		rules.RangeParams{Min: rules.Float(1), Max: rules.Float(1000)}))

	res, err := e.ValidateRecord(context.Background(), types.Record{"quantity": 1000}, "PART")
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = e.ValidateRecord(context.Background(), types.Record{"quantity": 1001}, "PART")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, types.ErrorTypeRange, res.Errors[0].Type)
	assert.Equal(t, "[1, 1000]", res.Errors[0].ExpectedValue)
}

func TestValidateRecord_RangeExclusiveAndCoercion(t *testing.T) {
	e := newEngine(t, rule("price", "price", types.ErrorTypeRange,
		rules.RangeParams{Min: rules.Float(0), ExclusiveMin: true}))

	tests := []struct {
		value any
		valid bool
	}{
		{0, false},
		{0.01, true},
		{"12.5", true},
		{"abc", false},
		{"NaN", false},
		{math.NaN(), false},
		{nil, true},
	}
	for _, tt := range tests {
		res, err := e.ValidateRecord(context.Background(), types.Record{"price": tt.value}, "PART")
		require.NoError(t, err)
		assert.Equal(t, tt.valid, res.Valid, "price=%v", tt.value)
	}
}

func TestValidateRecord_DataType(t *testing.T) {
	tests := []struct {
		name   string
		params rules.DataTypeParams
		value  any
		valid  bool
	}{
		{"string ok", rules.DataTypeParams{Type: rules.DataTypeString}, "x", true},
		{"string rejects number", rules.DataTypeParams{Type: rules.DataTypeString}, 5, false},
		{"number ok", rules.DataTypeParams{Type: rules.DataTypeNumber}, 5.5, true},
		{"number string strict", rules.DataTypeParams{Type: rules.DataTypeNumber}, "5.5", false},
		{"number string coerced", rules.DataTypeParams{Type: rules.DataTypeNumber, Coerce: true}, "5.5", true},
		{"integer ok", rules.DataTypeParams{Type: rules.DataTypeInteger}, 4, true},
		{"integral float ok", rules.DataTypeParams{Type: rules.DataTypeInteger}, 4.0, true},
		{"integer rejects fraction", rules.DataTypeParams{Type: rules.DataTypeInteger}, 4.2, false},
		{"integer coerced fraction", rules.DataTypeParams{Type: rules.DataTypeInteger, Coerce: true}, "4.2", false},
		{"boolean ok", rules.DataTypeParams{Type: rules.DataTypeBoolean}, true, true},
		{"boolean string coerced", rules.DataTypeParams{Type: rules.DataTypeBoolean, Coerce: true}, "false", true},
		{"boolean garbage", rules.DataTypeParams{Type: rules.DataTypeBoolean, Coerce: true}, "perhaps", false},
		{"date string coerced", rules.DataTypeParams{Type: rules.DataTypeDate, Coerce: true}, "2024-02-29", true},
		{"date string strict", rules.DataTypeParams{Type: rules.DataTypeDate}, "2024-02-29", false},
		{"nil skipped", rules.DataTypeParams{Type: rules.DataTypeNumber}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, rule("dt", "f", types.ErrorTypeDataType, tt.params))
			res, err := e.ValidateRecord(context.Background(), types.Record{"f": tt.value}, "PART")
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid)
			if !tt.valid {
				assert.Equal(t, types.ErrorTypeDataType, res.Errors[0].Type)
			}
		})
	}
}

func TestValidateRecord_FormatAndEnum(t *testing.T) {
	e := newEngine(t,
		rule("fmt", "code", types.ErrorTypeFormat, rules.FormatParams{Pattern: `^[A-Z]{3}-\d+$`}),
		rule("uom", "uom", types.ErrorTypeEnum, rules.EnumParams{Values: []any{"EA", "KG"}, CaseInsensitive: true}),
		rule("prio", "priority", types.ErrorTypeEnum, rules.EnumParams{Values: []any{"LOW", "HIGH"}}),
		rule("lvl", "level", types.ErrorTypeEnum, rules.EnumParams{Values: []any{1, 2}, AllowNull: true}),
	)

	tests := []struct {
		name   string
		record types.Record
		failed []string
	}{
		{"all good", types.Record{"code": "ABC-12", "uom": "ea", "priority": "LOW", "level": 2.0}, nil},
		{"format mismatch", types.Record{"code": "abc-12"}, []string{"fmt"}},
		{"format numeric input", types.Record{"code": 123}, []string{"fmt"}},
		{"enum case sensitive", types.Record{"priority": "low"}, []string{"prio"}},
		{"enum null rejected", types.Record{"priority": nil}, []string{"prio"}},
		{"enum null allowed", types.Record{"level": nil}, nil},
		{"absent fields skipped", types.Record{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.ValidateRecord(context.Background(), tt.record, "PART")
			require.NoError(t, err)
			var got []string
			for _, verr := range res.Errors {
				got = append(got, verr.RuleID)
			}
			assert.Equal(t, tt.failed, got)
		})
	}
}

func TestValidateRecord_ConditionGatesRule(t *testing.T) {
	serial := rule("serial", "serialNumber", types.ErrorTypeRequiredField, nil)
	cond := rules.Leaf("isSerialized", rules.OpEquals, true)
	serial.Condition = &cond
	e := newEngine(t, serial)

	res, err := e.ValidateRecord(context.Background(), types.Record{"isSerialized": false}, "PART")
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = e.ValidateRecord(context.Background(), types.Record{"isSerialized": true}, "PART")
	require.NoError(t, err)
	assert.False(t, res.Valid)
}

func TestValidateRecord_WarningsKeepRecordValid(t *testing.T) {
	warn := rule("uom", "uom", types.ErrorTypeEnum, rules.EnumParams{Values: []any{"EA"}})
	warn.Severity = types.SeverityWarning
	e := newEngine(t, warn)

	res, err := e.ValidateRecord(context.Background(), types.Record{"uom": "BOX", "id": 77}, "PART")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, 98, res.QualityScore)
	assert.Equal(t, "77", res.RecordID)
	assert.Equal(t, "77", res.Warnings[0].RecordID)

	detail := res.Fields["uom"]
	require.NotNil(t, detail)
	assert.True(t, detail.Valid)
	assert.Equal(t, 1, detail.Warnings)
	assert.Equal(t, []string{"uom"}, detail.Rules)
}

func TestValidateRecord_DisabledRuleNeverFires(t *testing.T) {
	r := rules.NewRegistry()
	require.NoError(t, r.AddRule(rule("pn", "partNumber", types.ErrorTypeRequiredField, nil)))
	e := NewEngine(r)

	res, err := e.ValidateRecord(context.Background(), types.Record{}, "PART")
	require.NoError(t, err)
	assert.False(t, res.Valid)

	_, err = r.SetRuleEnabled("pn", false)
	require.NoError(t, err)

	res, err = e.ValidateRecord(context.Background(), types.Record{}, "PART")
	require.NoError(t, err)
	assert.True(t, res.Valid)

	ids := []string{}
	for _, md := range r.GetAllRuleMetadata() {
		ids = append(ids, md.ID)
	}
	assert.Contains(t, ids, "pn")
}

func TestValidateRecord_CrossFieldDelegate(t *testing.T) {
	r := rules.NewRegistry()
	require.NoError(t, r.AddCrossFieldRule(rules.CrossFieldRule{
		ID:       "dates",
		Fields:   []string{"start", "end"},
		Severity: types.SeverityWarning,
		Predicate: func(_ context.Context, rec types.Record) (rules.CrossFieldOutcome, error) {
			start, _ := rec["start"].(int)
			end, _ := rec["end"].(int)
			if end < start {
				return rules.CrossFieldOutcome{Message: "end before start", SuggestedFix: "swap the dates"}, nil
			}
			return rules.CrossFieldOutcome{Valid: true}, nil
		},
	}))
	require.NoError(t, r.AddRule(rules.ValidationRule{
		ID: "br-dates", EntityType: "WORK_ORDER", Type: types.ErrorTypeBusinessRule,
		Params: rules.DelegateParams{RuleID: "dates"},
	}))
	e := NewEngine(r)

	res, err := e.ValidateRecord(context.Background(), types.Record{"start": 5, "end": 3}, "WORK_ORDER")
	require.NoError(t, err)
	assert.True(t, res.Valid, "inherited WARNING severity keeps the record valid")
	require.Len(t, res.Warnings, 1)
	w := res.Warnings[0]
	assert.Equal(t, types.ErrorTypeBusinessRule, w.Type)
	assert.Empty(t, w.Field)
	assert.Equal(t, []string{"start", "end"}, w.Fields)
	assert.Equal(t, "end before start", w.Message)
	assert.Equal(t, "swap the dates", w.SuggestedFix)
}

func TestValidateRecord_AggregateDelegateAndPredicateError(t *testing.T) {
	r := rules.NewRegistry()
	require.NoError(t, r.AddAggregateRule(rules.AggregateRule{
		ID:     "supplier-exists",
		Fields: []string{"supplierCode"},
		Predicate: func(_ context.Context, values []any) (bool, error) {
			if values[0] == "BROKEN" {
				return false, errors.New("lookup unavailable")
			}
			return values[0] == "ACME", nil
		},
	}))
	require.NoError(t, r.AddRule(rules.ValidationRule{
		ID: "fk-supplier", EntityType: "PART", Type: types.ErrorTypeForeignKey,
		Severity: types.SeverityError, Params: rules.DelegateParams{RuleID: "supplier-exists"},
	}))
	e := NewEngine(r)

	res, err := e.ValidateRecord(context.Background(), types.Record{"supplierCode": "ACME"}, "PART")
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = e.ValidateRecord(context.Background(), types.Record{"supplierCode": "NOPE"}, "PART")
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, types.ErrorTypeForeignKey, res.Errors[0].Type)
	assert.Equal(t, []any{"NOPE"}, res.Errors[0].ActualValue)

	res, err = e.ValidateRecord(context.Background(), types.Record{"supplierCode": "BROKEN"}, "PART")
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, "lookup unavailable")
}

func TestValidateRecord_ConfigurationErrors(t *testing.T) {
	r := rules.NewRegistry()
	require.NoError(t, r.AddRule(rules.ValidationRule{
		ID: "br", EntityType: "PART", Type: types.ErrorTypeBusinessRule,
		Params: rules.DelegateParams{RuleID: "nowhere"},
	}))
	e := NewEngine(r)

	_, err := e.ValidateRecord(context.Background(), types.Record{}, "PART")
	assert.ErrorIs(t, err, types.ErrRuleNotFound)

	dep := rule("dep", "f", types.ErrorTypeRequiredField, nil)
	dep.EntityType = "OTHER"
	dep.Meta.Dependencies = []string{"missing"}
	require.NoError(t, r.AddRule(dep))
	_, err = e.ValidateRecord(context.Background(), types.Record{}, "OTHER")
	assert.ErrorIs(t, err, types.ErrMissingDependency)
}

func TestValidateRecord_Idempotent(t *testing.T) {
	e := newEngine(t,
		rule("pn", "partNumber", types.ErrorTypeRequiredField, nil),
		rule("qty", "quantity", types.ErrorTypeRange, rules.RangeParams{Max: rules.Float(10)}),
	)
	record := types.Record{"partNumber": "", "quantity": 11}

	first, err := e.ValidateRecord(context.Background(), record, "PART")
	require.NoError(t, err)
	second, err := e.ValidateRecord(context.Background(), record, "PART")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, types.Record{"partNumber": "", "quantity": 11}, record)
}

func TestValidateRecord_UnknownEntityHasNoRules(t *testing.T) {
	e := newEngine(t, rule("pn", "partNumber", types.ErrorTypeRequiredField, nil))
	res, err := e.ValidateRecordWithID(context.Background(), types.Record{}, "VENDOR", "v-1", 4)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, 100, res.QualityScore)
	assert.Equal(t, "v-1", res.RecordID)
	assert.Equal(t, 4, res.Row)
}
