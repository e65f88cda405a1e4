package core

import (
	"fmt"
	"strconv"
)

// LetterToIndex converts a column label to its 1-based index using
// bijective base-26: "A" = 1, "Z" = 26, "AA" = 27.
func LetterToIndex(label string) (int, error) {
	if label == "" {
		return 0, fmt.Errorf("%w: empty label", ErrInvalidColumnLabel)
	}
	n := 0
	for i := 0; i < len(label); i++ {
		c := label[i]
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidColumnLabel, label)
		}
		n = n*26 + int(c-'A') + 1
		if n < 0 {
			return 0, fmt.Errorf("%w: %q overflows", ErrInvalidColumnLabel, label)
		}
	}
	return n, nil
}

// IndexToLetter is the inverse of LetterToIndex.
func IndexToLetter(n int) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("%w: index %d", ErrInvalidColumnLabel, n)
	}
	var buf []byte
	for n > 0 {
		n--
		buf = append(buf, byte('A'+n%26))
		n /= 26
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}

// Cell is an absolute, 1-based sheet coordinate.
type Cell struct {
	Row int
	Col int
}

// A1 renders the cell as "D10".
func (c Cell) A1() string {
	col, err := IndexToLetter(c.Col)
	if err != nil || c.Row < 1 {
		return fmt.Sprintf("R%dC%d", c.Row, c.Col)
	}
	return col + strconv.Itoa(c.Row)
}

func (c Cell) String() string {
	return c.A1()
}
