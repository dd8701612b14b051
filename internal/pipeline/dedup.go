// internal/pipeline/dedup.go
package pipeline

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/solatis/importgate/internal/rules"
	"github.com/solatis/importgate/internal/types"
)

type duplicate struct {
	index int
	err   types.ValidationError
}

// findDuplicates reports every occurrence of a dedup key after its first.
// Records whose dedup fields are all absent or nil are never duplicates.
func findDuplicates(records []ImportRecord, fields []string) []duplicate {
	first := make(map[string]int, len(records))
	var out []duplicate
	for i, rec := range records {
		key, ok := dedupKey(rec.Data, fields)
		if !ok {
			continue
		}
		j, seen := first[key]
		if !seen {
			first[key] = i
			continue
		}
		out = append(out, duplicate{index: i, err: types.ValidationError{
			Fields:   dedupFieldsOf(rec.Data, fields),
			Type:     types.ErrorTypeDuplicateRecord,
			Severity: types.SeverityError,
			Message: fmt.Sprintf("record at row %d duplicates row %d on %s",
				rec.Row, records[j].Row, describeFields(fields)),
			SuggestedFix: "Remove the duplicate or correct its key fields",
			Row:          rec.Row,
			RecordID:     rec.ID,
		}})
	}
	return out
}

func dedupFieldsOf(record types.Record, fields []string) []string {
	if len(fields) > 0 {
		return append([]string(nil), fields...)
	}
	out := make([]string, 0, len(record))
	for f := range record {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func describeFields(fields []string) string {
	if len(fields) == 0 {
		return "all fields"
	}
	return strings.Join(fields, ", ")
}

// dedupKey encodes the compared values so that 5, 5.0 and int64(5) collide
// while "5" does not.
func dedupKey(record types.Record, fields []string) (string, bool) {
	names := dedupFieldsOf(record, fields)
	var b strings.Builder
	present := false
	for _, f := range names {
		v := record[f]
		if v != nil {
			present = true
		}
		b.WriteString(strconv.Quote(f))
		b.WriteByte('=')
		b.WriteString(encodeValue(v))
		b.WriteByte(';')
	}
	return b.String(), present
}

func encodeValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "n"
	case string:
		return "s:" + strconv.Quote(x)
	case bool:
		return "b:" + strconv.FormatBool(x)
	case time.Time:
		return "t:" + x.UTC().Format(time.RFC3339Nano)
	}
	if rules.IsNumber(v) {
		return "f:" + strconv.FormatFloat(cast.ToFloat64(v), 'g', -1, 64)
	}
	return fmt.Sprintf("v:%#v", v)
}
