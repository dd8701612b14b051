// internal/rules/coercion_test.go
package rules

import (
	"testing"
	"time"
)

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    float64
		wantErr bool
	}{
		{"int", 42, 42, false},
		{"uint8", uint8(7), 7, false},
		{"float", 3.5, 3.5, false},
		{"numeric string", "12.25", 12.25, false},
		{"padded string", "  8 ", 8, false},
		{"empty string", "   ", 0, true},
		{"text", "abc", 0, true},
		{"bool rejected", true, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoerceNumber(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CoerceNumber() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("CoerceNumber() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCoerceBool(t *testing.T) {
	tests := []struct {
		input   any
		want    bool
		wantErr bool
	}{
		{true, true, false},
		{"true", true, false},
		{"FALSE", false, false},
		{"1", true, false},
		{"maybe", false, true},
		{1, false, true},
	}

	for _, tt := range tests {
		got, err := CoerceBool(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("CoerceBool(%v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("CoerceBool(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestCoerceTime(t *testing.T) {
	got, err := CoerceTime("2024-01-15")
	if err != nil {
		t.Fatalf("CoerceTime() error = %v, want nil", err)
	}
	if got.Year() != 2024 || got.Month() != time.January || got.Day() != 15 {
		t.Errorf("CoerceTime() = %v, want 2024-01-15", got)
	}

	if _, err := CoerceTime("not a date"); err == nil {
		t.Errorf("CoerceTime(not a date) error = nil, want error")
	}
	if _, err := CoerceTime(20240115); err == nil {
		t.Errorf("CoerceTime(int) error = nil, want error")
	}
}

func TestIsEmptyValue(t *testing.T) {
	tests := []struct {
		input any
		want  bool
	}{
		{nil, true},
		{"", true},
		{" \t", true},
		{"x", false},
		{0, false},
		{false, false},
	}
	for _, tt := range tests {
		if got := IsEmptyValue(tt.input); got != tt.want {
			t.Errorf("IsEmptyValue(%#v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestValuesEqual(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"int float", 1, 1.0, true},
		{"int64 int", int64(3), 3, true},
		{"string number", "1", 1, false},
		{"strings", "a", "a", true},
		{"bools", true, true, true},
		{"times", now, now.UTC(), true},
		{"nil nil", nil, nil, true},
		{"nil value", nil, "a", false},
		{"mismatched kinds", true, "true", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValuesEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("ValuesEqual() = %v, want %v", got, tt.want)
			}
		})
	}
}
