package scanner

import (
	"fmt"
	"math"
	"math/big"
	"time"
)

// normalizeValue converts a scanned DuckDB value into something the JSON
// encoder handles without surprises: timestamps become RFC 3339 strings,
// integer widths collapse to int64, byte slices become strings, and the
// float values JSON cannot represent become nil. Anything exotic falls back
// to its string form.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool, string, int64:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return fmt.Sprintf("%d", x)
		}
		return int64(x)
	case float32:
		return normalizeFloat(float64(x))
	case float64:
		return normalizeFloat(x)
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case *big.Int:
		if x == nil {
			return nil
		}
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func normalizeFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
