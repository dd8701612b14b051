package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores c's local flags to their defaults. rootCmd keeps flag
// values between Execute calls and slice flags append once changed.
func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}

func TestParseRecords(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"array", `[{"partNumber": "A"}, {"partNumber": "B", "quantity": 3}]`, 2, false},
		{"records object", `{"records": [{"partNumber": "A"}]}`, 1, false},
		{"empty array", `[]`, 0, false},
		{"scalar element", `[1]`, 0, true},
		{"nested value", `[{"dims": {"w": 1}}]`, 0, true},
		{"object without records", `{"rows": []}`, 0, true},
		{"malformed", `[{`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRecords([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseRecords() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRecords() error = %v, want nil", err)
			}
			if len(got) != tt.want {
				t.Fatalf("parseRecords() returned %d records, want %d", len(got), tt.want)
			}
			for i, rec := range got {
				if rec.Row != i+1 {
					t.Errorf("record %d row = %d, want %d", i, rec.Row, i+1)
				}
			}
		})
	}
}

const testRules = `entity_type: WIDGET
validation_rules:
  - id: widget-code-required
    field: code
    type: REQUIRED_FIELD
  - id: widget-size-range
    field: size
    type: RANGE
    params:
      min: 1
      max: 10
`

const cliImportID = "0192f3a4-5b6c-7d8e-9f01-23456789abcd"

func TestValidateCommand(t *testing.T) {
	resetFlags(validateCmd)
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "widget.yaml")
	inputPath := filepath.Join(dir, "widgets.json")
	metricsPath := filepath.Join(dir, "metrics.prom")
	dbPath := filepath.Join(dir, "audit.db")
	require.NoError(t, os.WriteFile(rulesPath, []byte(testRules), 0o600))
	require.NoError(t, os.WriteFile(inputPath, []byte(`[
		{"code": "W-1", "size": 3},
		{"code": "W-2", "size": 30},
		{"size": 5}
	]`), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"validate", "--log-level", "error",
		"--entity", "WIDGET", "--input", inputPath,
		"--rules", rulesPath, "--builtin=false",
		"--strategy", "lenient", "--import-id", cliImportID,
		"--db-url", dbPath, "--record",
		"--metrics-file", metricsPath, "--output", "json",
	})
	err := Execute()
	require.NoError(t, err, "LENIENT with a valid record proceeds")

	var got validateOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, cliImportID, got.Statistics.ImportID)
	assert.Equal(t, 1, got.Statistics.ValidRecords)
	assert.Equal(t, 2, got.Statistics.InvalidRecords)
	assert.True(t, got.Statistics.CanProceed)

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "importgate_imports_total")

	out.Reset()
	rootCmd.SetArgs([]string{"imports", "list", "--db-url", dbPath, "--log-level", "error"})
	require.NoError(t, Execute())
	assert.True(t, strings.Contains(out.String(), cliImportID), out.String())

	out.Reset()
	rootCmd.SetArgs([]string{"imports", "show", cliImportID, "--db-url", dbPath, "--log-level", "error"})
	require.NoError(t, Execute())
	assert.Contains(t, out.String(), `"validRecords": 1`)
}

func TestValidateCommand_StrictExitCode(t *testing.T) {
	resetFlags(validateCmd)
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "widget.yaml")
	inputPath := filepath.Join(dir, "widgets.json")
	require.NoError(t, os.WriteFile(rulesPath, []byte(testRules), 0o600))
	require.NoError(t, os.WriteFile(inputPath, []byte(`{"records": [{"code": "W-1", "size": 11}]}`), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"validate", "--log-level", "error",
		"--entity", "WIDGET", "--input", inputPath,
		"--rules", rulesPath, "--builtin=false",
		"--strategy", "STRICT", "--output", "summary",
		"--db-url", "",
	})
	err := Execute()

	var exit *ExitError
	require.True(t, errors.As(err, &exit), "error = %v", err)
	assert.Equal(t, 2, exit.Code)
	assert.Contains(t, out.String(), "can proceed: false")
}

func TestImportIDMustBeUUID(t *testing.T) {
	resetFlags(validateCmd)
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "widgets.json")
	require.NoError(t, os.WriteFile(inputPath, []byte(`[{"code": "W-1"}]`), 0o600))

	rootCmd.SetArgs([]string{
		"validate", "--log-level", "error", "--db-url", "",
		"--entity", "WIDGET", "--input", inputPath, "--builtin=false",
		"--import-id", "batch-7",
	})
	err := Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid import id")

	rootCmd.SetArgs([]string{"imports", "show", "batch-7", "--log-level", "error"})
	err = Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid import id")
}
