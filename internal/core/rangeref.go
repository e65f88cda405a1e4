package core

import (
	"fmt"
	"strconv"
	"strings"
)

// RangeRef is a sheet-relative rectangle. A zero bound means the range is
// open on that side ("A:A" has no row bounds, "5:5" has no column bounds).
type RangeRef struct {
	StartRow int
	StartCol int
	EndRow   int
	EndCol   int
}

// Grid is a block of values read from a sheet. Values[0][0] sits at Origin.
// Rows may be ragged; missing cells read as empty.
type Grid struct {
	Origin Cell
	Values [][]any
}

// ParseRange parses A1 notation: "A:A", "5:5", "B18:B27", "A5:C", "D4".
func ParseRange(s string) (RangeRef, error) {
	raw := strings.ToUpper(strings.TrimSpace(s))
	if raw == "" {
		return RangeRef{}, fmt.Errorf("%w: empty", ErrInvalidRange)
	}
	if strings.Contains(raw, "!") {
		return RangeRef{}, fmt.Errorf("%w: %q must not name a sheet", ErrInvalidRange, s)
	}

	parts := strings.Split(raw, ":")
	if len(parts) > 2 {
		return RangeRef{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}

	startRow, startCol, err := parseEndpoint(parts[0])
	if err != nil {
		return RangeRef{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, s, err)
	}

	if len(parts) == 1 {
		if startRow == 0 || startCol == 0 {
			return RangeRef{}, fmt.Errorf("%w: %q is not a cell", ErrInvalidRange, s)
		}
		return RangeRef{StartRow: startRow, StartCol: startCol, EndRow: startRow, EndCol: startCol}, nil
	}

	endRow, endCol, err := parseEndpoint(parts[1])
	if err != nil {
		return RangeRef{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, s, err)
	}
	if (startCol == 0 && endCol != 0) || (startRow == 0 && endRow != 0) {
		return RangeRef{}, fmt.Errorf("%w: %q mixes row and column bounds", ErrInvalidRange, s)
	}
	if endRow != 0 && endRow < startRow {
		return RangeRef{}, fmt.Errorf("%w: %q ends above its start", ErrInvalidRange, s)
	}
	if endCol != 0 && endCol < startCol {
		return RangeRef{}, fmt.Errorf("%w: %q ends left of its start", ErrInvalidRange, s)
	}

	return RangeRef{StartRow: startRow, StartCol: startCol, EndRow: endRow, EndCol: endCol}, nil
}

// MustParseRange is ParseRange for literals known to be valid.
func MustParseRange(s string) RangeRef {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

func parseEndpoint(p string) (row, col int, err error) {
	i := 0
	for i < len(p) && p[i] >= 'A' && p[i] <= 'Z' {
		i++
	}
	if i > 0 {
		if col, err = LetterToIndex(p[:i]); err != nil {
			return 0, 0, err
		}
	}
	if i < len(p) {
		row, err = strconv.Atoi(p[i:])
		if err != nil || row < 1 {
			return 0, 0, fmt.Errorf("bad row in %q", p)
		}
	}
	if row == 0 && col == 0 {
		return 0, 0, fmt.Errorf("empty endpoint")
	}
	return row, col, nil
}

func (r RangeRef) IsZero() bool {
	return r == RangeRef{}
}

// Origin is the top-left cell, with open bounds starting at 1.
func (r RangeRef) Origin() Cell {
	c := Cell{Row: r.StartRow, Col: r.StartCol}
	if c.Row == 0 {
		c.Row = 1
	}
	if c.Col == 0 {
		c.Col = 1
	}
	return c
}

// Contains reports whether an absolute cell falls inside the range.
func (r RangeRef) Contains(c Cell) bool {
	o := r.Origin()
	if c.Row < o.Row || c.Col < o.Col {
		return false
	}
	if r.EndRow != 0 && c.Row > r.EndRow {
		return false
	}
	if r.EndCol != 0 && c.Col > r.EndCol {
		return false
	}
	return true
}

// String renders the range back to A1 notation.
func (r RangeRef) String() string {
	ep := func(row, col int) string {
		var b strings.Builder
		if col > 0 {
			l, _ := IndexToLetter(col)
			b.WriteString(l)
		}
		if row > 0 {
			b.WriteString(strconv.Itoa(row))
		}
		return b.String()
	}
	start := ep(r.StartRow, r.StartCol)
	if r.StartRow != 0 && r.StartCol != 0 && r.EndRow == r.StartRow && r.EndCol == r.StartCol {
		return start
	}
	return start + ":" + ep(r.EndRow, r.EndCol)
}

// Clip cuts a full-sheet block (Values[0][0] at A1) down to the range.
func (r RangeRef) Clip(rows [][]any) Grid {
	o := r.Origin()
	g := Grid{Origin: o}
	for i := o.Row - 1; i < len(rows); i++ {
		if r.EndRow != 0 && i+1 > r.EndRow {
			break
		}
		row := rows[i]
		var out []any
		if o.Col-1 < len(row) {
			end := len(row)
			if r.EndCol != 0 && r.EndCol < end {
				end = r.EndCol
			}
			out = append(out, row[o.Col-1:end]...)
		}
		g.Values = append(g.Values, out)
	}
	return g
}

// At returns the value at a 0-based position inside the grid, nil when the
// position is outside the stored values.
func (g Grid) At(row, col int) any {
	if row < 0 || row >= len(g.Values) {
		return nil
	}
	if col < 0 || col >= len(g.Values[row]) {
		return nil
	}
	return g.Values[row][col]
}

// Find runs the value matcher over the grid and returns an absolute cell.
func (g Grid) Find(target any, exact bool) (Cell, error) {
	row, col, err := Find(g.Values, target, exact)
	if err != nil {
		return Cell{}, err
	}
	return Cell{Row: g.Origin.Row + row - 1, Col: g.Origin.Col + col - 1}, nil
}
