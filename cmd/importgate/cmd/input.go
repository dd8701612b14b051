package cmd

import (
	"fmt"
	"io"
	"os"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/importgate/internal/pipeline"
	"github.com/solatis/importgate/internal/types"
)

// readRecords reads a JSON array of records, or an object with a "records"
// array, from path ("-" reads stdin).
func readRecords(path string, stdin io.Reader) ([]pipeline.ImportRecord, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return parseRecords(data)
}

func parseRecords(data []byte) ([]pipeline.ImportRecord, error) {
	var doc structpb.Value
	if err := protojson.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid input JSON: %w", err)
	}

	list := doc.GetListValue()
	if s := doc.GetStructValue(); s != nil {
		list = s.GetFields()["records"].GetListValue()
	}
	if list == nil {
		return nil, fmt.Errorf("input must be a JSON array of records or an object with a \"records\" array")
	}

	records, err := types.RecordsFromListValue(list)
	if err != nil {
		return nil, fmt.Errorf("invalid input record: %w", err)
	}
	out := make([]pipeline.ImportRecord, len(records))
	for i, rec := range records {
		out[i] = pipeline.ImportRecord{Row: i + 1, Data: rec}
	}
	return out, nil
}
