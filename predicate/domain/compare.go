package predicate

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// normalizeOperand checks that a comparison operand is a primitive and
// collapses json.Number into int64, uint64 or float64.
func normalizeOperand(value any) (any, error) {
	switch v := value.(type) {
	case nil, string, bool, time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		if u, err := strconv.ParseUint(v.String(), 10, 64); err == nil {
			return u, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, errors.Wrapf(ErrUnsupportedValue, "number %q", v)
		}
		return f, nil
	}
	if _, ok := toDecimal(value); ok {
		return value, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedValue, "operand of type %T", value)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// coerceTime reads date strings coming from untyped subjects (JSON
// documents) as instants. Anything else is returned unchanged.
func coerceTime(value any) any {
	if s, ok := value.(string); ok {
		if t, err := parseTime(s); err == nil {
			return t
		}
	}
	return value
}

func toDecimal(value any) (decimal.Decimal, bool) {
	switch n := value.(type) {
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int8:
		return decimal.NewFromInt(int64(n)), true
	case int16:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(n)), 0), true
	case uint8:
		return decimal.NewFromInt(int64(n)), true
	case uint16:
		return decimal.NewFromInt(int64(n)), true
	case uint32:
		return decimal.NewFromInt(int64(n)), true
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(n), 0), true
	case float32:
		if math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat32(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(n), true
	case json.Number:
		d, err := decimal.NewFromString(string(n))
		return d, err == nil
	case decimal.Decimal:
		return n, true
	}
	return decimal.Decimal{}, false
}

// IsNumber reports whether value is one of the numeric kinds the engine
// compares.
func IsNumber(value any) bool {
	_, ok := toDecimal(value)
	return ok
}

// valuesEqual is strict: values of different kinds are never equal.
func valuesEqual(a, b any) bool {
	if da, ok := toDecimal(a); ok {
		db, ok := toDecimal(b)
		return ok && da.Equal(db)
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	}
	return false
}

// compareValues orders two values of the same kind. ok is false when the
// values cannot be ordered against each other.
func compareValues(a, b any) (result int, ok bool) {
	if da, ok := toDecimal(a); ok {
		db, ok := toDecimal(b)
		if !ok {
			return 0, false
		}
		return da.Cmp(db), true
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		return boolRank(av) - boolRank(bv), true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	}
	return 0, false
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// formatValue is the string form used for pattern matching and dialects.
func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return FormatTime(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return fmt.Sprint(value)
}

// FormatValue exposes the canonical text form of an operand.
func FormatValue(value any) string {
	return formatValue(value)
}

// FormatTime renders an instant as ISO-8601 in UTC with millisecond
// precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
