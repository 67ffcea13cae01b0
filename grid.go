package pdfconverter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Grid is the canonical in-memory form of extracted document content: an
// ordered sequence of rows of nullable string cells. Rows may have
// heterogeneous lengths; consumers compute the maximum row length on demand
// and treat shorter rows as having trailing absent cells.
type Grid [][]*string

// Normalize parses raw model text into a Grid.
//
// A parse failure yields an error wrapping ErrMalformedOutput. A parsed
// value that is not an array, or is an empty array, yields an empty grid
// and no error ("nothing extracted"). Array rows map per-cell through
// toCell; a bare scalar row becomes a single-cell row.
func Normalize(raw string) (Grid, error) {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	rows, ok := parsed.([]any)
	if !ok || len(rows) == 0 {
		return Grid{}, nil
	}
	g := make(Grid, 0, len(rows))
	for _, row := range rows {
		cells, ok := row.([]any)
		if !ok {
			g = append(g, []*string{toCell(row)})
			continue
		}
		r := make([]*string, len(cells))
		for i, c := range cells {
			r[i] = toCell(c)
		}
		g = append(g, r)
	}
	return g, nil
}

// toCell folds a decoded JSON value into a nullable cell: null stays null,
// strings are trimmed (empty after trim becomes null), and every other
// value keeps its string representation.
func toCell(v any) *string {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		t := strings.TrimSpace(x)
		if t == "" {
			return nil
		}
		return &t
	case float64:
		s := strconv.FormatFloat(x, 'f', -1, 64)
		return &s
	case bool:
		s := strconv.FormatBool(x)
		return &s
	default:
		// Nested arrays and objects keep their JSON text.
		b, err := json.Marshal(x)
		if err != nil {
			s := fmt.Sprint(x)
			return &s
		}
		s := string(b)
		return &s
	}
}

// ColumnCount returns the maximum row length across the grid, 0 when empty.
func (g Grid) ColumnCount() int {
	cols := 0
	for _, row := range g {
		if len(row) > cols {
			cols = len(row)
		}
	}
	return cols
}

// SheetValues converts the grid for APIs with no null-cell concept: nil
// cells become empty strings. Row lengths are preserved.
func (g Grid) SheetValues() [][]string {
	values := make([][]string, len(g))
	for i, row := range g {
		out := make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				out[j] = *cell
			}
		}
		values[i] = out
	}
	return values
}

// CellText returns the display text of a cell, "" for null.
func CellText(c *string) string {
	if c == nil {
		return ""
	}
	return *c
}
