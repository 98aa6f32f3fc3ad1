package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	errspkg "github.com/drblury/avroflow/internal/runtime/errors"
)

// FormatMoney renders a whole amount as "$<n>.00". No minor-unit scaling is
// applied.
func FormatMoney(n int64) string {
	return "$" + strconv.FormatInt(n, 10) + ".00"
}

// Money renders any numeric value as a dollar string with two decimals.
// Integers keep their digits verbatim; floats are rounded to two places.
// Anything non-numeric yields an InvalidInputError carrying the value.
func Money(v any) (string, error) {
	switch n := v.(type) {
	case int:
		return FormatMoney(int64(n)), nil
	case int8:
		return FormatMoney(int64(n)), nil
	case int16:
		return FormatMoney(int64(n)), nil
	case int32:
		return FormatMoney(int64(n)), nil
	case int64:
		return FormatMoney(n), nil
	case uint:
		return "$" + strconv.FormatUint(uint64(n), 10) + ".00", nil
	case uint8:
		return FormatMoney(int64(n)), nil
	case uint16:
		return FormatMoney(int64(n)), nil
	case uint32:
		return FormatMoney(int64(n)), nil
	case uint64:
		return "$" + strconv.FormatUint(n, 10) + ".00", nil
	case float32:
		return formatFloatMoney(float64(n), v)
	case float64:
		return formatFloatMoney(n, v)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return FormatMoney(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return "", errspkg.NewInvalidInput("money value", v, err)
		}
		return formatFloatMoney(f, v)
	default:
		return "", errspkg.NewInvalidInput("money value", v, fmt.Errorf("unsupported type %T", v))
	}
}

func formatFloatMoney(f float64, raw any) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", errspkg.NewInvalidInput("money value", raw, fmt.Errorf("not a finite number"))
	}
	return "$" + strconv.FormatFloat(f, 'f', 2, 64), nil
}
