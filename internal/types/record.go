package types

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

/*
 * Protobuf record adapters.
 *
 * ETL drivers that speak protobuf hand records over as google.protobuf.Struct
 * (one per row) or a ListValue of Structs (one per batch). These adapters
 * flatten them into Records. Nested structs and lists are rejected: the core
 * only validates scalar fields.
 *
 * Numbers arrive as float64 (protobuf has a single number kind); integer
 * checks in the validation engine accept integral float64 values.
 */

// RecordFromStruct converts a protobuf Struct into a Record.
// Returns ErrNonScalarValue naming the first nested field encountered.
func RecordFromStruct(s *structpb.Struct) (Record, error) {
	record := make(Record, len(s.GetFields()))
	for name, v := range s.GetFields() {
		value, err := scalarFromValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		record[name] = value
	}
	return record, nil
}

// RecordsFromListValue converts a ListValue whose elements are Structs.
func RecordsFromListValue(list *structpb.ListValue) ([]Record, error) {
	records := make([]Record, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		s := v.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("element %d: %w", i, ErrNonScalarValue)
		}
		record, err := RecordFromStruct(s)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// scalarFromValue unwraps a protobuf Value holding a scalar.
func scalarFromValue(v *structpb.Value) (any, error) {
	switch k := v.GetKind().(type) {
	case nil, *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_NumberValue:
		return k.NumberValue, nil
	case *structpb.Value_StringValue:
		return k.StringValue, nil
	case *structpb.Value_BoolValue:
		return k.BoolValue, nil
	default:
		return nil, ErrNonScalarValue
	}
}
