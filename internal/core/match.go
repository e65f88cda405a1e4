package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Find scans block row by row, left to right, and returns the 1-based
// position of the first cell whose string form equals target (exact) or
// contains it (substring).
func Find(block [][]any, target any, exact bool) (row, col int, err error) {
	want := Stringify(target)
	for r, cells := range block {
		for c, v := range cells {
			got := Stringify(v)
			if exact && got == want {
				return r + 1, c + 1, nil
			}
			if !exact && strings.Contains(got, want) {
				return r + 1, c + 1, nil
			}
		}
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrNotFound, want)
}

// Stringify is the single string coercion used on both sides of a match.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
