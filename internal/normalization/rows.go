package normalization

import (
	"errors"
	"fmt"
)

// RawRow is one loosely-typed source row: header → cell value, as decoded
// from a spreadsheet sheet, a CSV record, or a JSON document.
type RawRow map[string]any

// ErrInputShape reports input that is not an enumerable collection of
// record-like values. Bad field content never raises it; content problems
// are handled by null propagation in Normalize.
var ErrInputShape = errors.New("input is not a sequence of records")

// RowsFromAny adapts decoded input of unknown shape into []RawRow.
// Accepted shapes: []RawRow, []map[string]any, and []any whose elements are
// record-like maps. Anything else fails with ErrInputShape.
func RowsFromAny(v any) ([]RawRow, error) {
	switch rows := v.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil input", ErrInputShape)
	case []RawRow:
		return rows, nil
	case []map[string]any:
		out := make([]RawRow, len(rows))
		for i, r := range rows {
			out[i] = RawRow(r)
		}
		return out, nil
	case []any:
		out := make([]RawRow, len(rows))
		for i, r := range rows {
			switch m := r.(type) {
			case map[string]any:
				out[i] = RawRow(m)
			case RawRow:
				out[i] = m
			default:
				return nil, fmt.Errorf("%w: element %d is %T, not a record", ErrInputShape, i, r)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrInputShape, v)
	}
}
