package dataset

import "strconv"

// inferSampleSize bounds how many rows type inference inspects.
const inferSampleSize = 100

// inferColumnType samples the first inferSampleSize rows of a column.
// Integer wins when every non-empty sampled value parses as an integer,
// then Real when every one parses as a float. Anything else, including
// an all-empty sample, is Text.
func inferColumnType(name string, rows []map[string]string) ColumnType {
	sample := rows
	if len(sample) > inferSampleSize {
		sample = sample[:inferSampleSize]
	}

	sawValue := false
	allInt := true
	allReal := true
	for _, row := range sample {
		v := row[name]
		if v == "" {
			continue
		}
		sawValue = true
		if allInt && !isInteger(v) {
			allInt = false
		}
		if allReal && !isReal(v) {
			allReal = false
			break
		}
	}

	switch {
	case sawValue && allInt:
		return TypeInteger
	case sawValue && allReal:
		return TypeReal
	default:
		return TypeText
	}
}

func isInteger(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isReal(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// Coerce converts a raw field value to the scalar its column type calls
// for. The boolean reports the fallback path: true means the value did
// not parse under the column type and the original text was kept.
// Empty values become nil regardless of type.
func Coerce(raw string, t ColumnType) (any, bool) {
	if raw == "" {
		return nil, false
	}
	switch t {
	case TypeInteger:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n, false
		}
		return raw, true
	case TypeReal:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f, false
		}
		return raw, true
	default:
		return raw, false
	}
}
