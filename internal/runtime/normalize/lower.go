package normalize

import (
	"fmt"
	"strings"

	errspkg "github.com/drblury/avroflow/internal/runtime/errors"
)

// LowerString maps every rune of s to its lower case.
func LowerString(s string) string {
	return strings.ToLower(s)
}

// Lower lowercases textual values. Non-textual input yields an
// InvalidInputError carrying the value.
func Lower(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return LowerString(s), nil
	case []byte:
		return LowerString(string(s)), nil
	case fmt.Stringer:
		return LowerString(s.String()), nil
	default:
		return "", errspkg.NewInvalidInput("string", v, fmt.Errorf("unsupported type %T", v))
	}
}
