package domain

// Sheet is the raw tabular payload of a row source.
// Rows are aligned to Headers but may be shorter or longer.
type Sheet struct {
	// Headers are the column labels; may contain blanks and duplicates.
	Headers []string `json:"headers"`

	// Rows are the data rows, header excluded.
	Rows [][]string `json:"rows"`
}

// Width returns the number of columns, taking ragged rows into account.
func (s *Sheet) Width() int {
	width := len(s.Headers)
	for _, row := range s.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// Cell returns the value at row/col, or empty when out of range.
func (s *Sheet) Cell(row, col int) string {
	if row < 0 || row >= len(s.Rows) {
		return ""
	}
	return CellAt(s.Rows[row], col)
}

// CellAt returns row[col], or empty when col is out of range.
func CellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// Clone returns a deep copy.
func (s *Sheet) Clone() *Sheet {
	if s == nil {
		return nil
	}
	c := &Sheet{Headers: append([]string(nil), s.Headers...)}
	c.Rows = make([][]string, len(s.Rows))
	for i, row := range s.Rows {
		c.Rows[i] = append([]string(nil), row...)
	}
	return c
}
