package sheets

import (
	"fmt"
	"strconv"
	"strings"
)

// origin is the top-left cell of a configured range.
type origin struct {
	// Sheet is the sheet title; empty means the first visible sheet.
	Sheet string

	// Column is zero-based.
	Column int

	// Row is 1-based, as in A1 notation. It holds the header.
	Row int
}

// parseRange reads an A1 range such as "Deliveries!B2:H", "'My Sheet'",
// "A:F" or "Sheet1". Anything that is not a cell reference is a sheet title.
func parseRange(r string) (origin, error) {
	r = strings.TrimSpace(r)
	if r == "" {
		return origin{}, fmt.Errorf("empty range")
	}

	sheet, cells := "", r
	if i := strings.LastIndex(r, "!"); i >= 0 {
		sheet, cells = r[:i], r[i+1:]
	} else if !looksLikeCells(r) {
		sheet, cells = r, ""
	}
	sheet = unquoteSheet(sheet)
	if strings.Contains(r, "!") && sheet == "" {
		return origin{}, fmt.Errorf("range %q has an empty sheet name", r)
	}

	o := origin{Sheet: sheet, Row: 1}
	if cells == "" {
		return o, nil
	}
	col, row, ok := parseCell(strings.SplitN(cells, ":", 2)[0])
	if !ok {
		return origin{}, fmt.Errorf("range %q: bad cell reference", r)
	}
	o.Column = col
	if row > 0 {
		o.Row = row
	}
	return o, nil
}

// looksLikeCells reports whether a range without "!" is a cell reference.
// A lone word such as "Log" is a sheet title even though it parses as a
// column; only references with a row or a ':' count as cells.
func looksLikeCells(r string) bool {
	first, _, hasColon := strings.Cut(r, ":")
	_, row, ok := parseCell(first)
	return ok && (hasColon || row > 0)
}

// parseCell splits "B12" into column 1 and row 12. The row is 0 when
// absent ("B"). At most three column letters are accepted.
func parseCell(ref string) (col, row int, ok bool) {
	i := 0
	for i < len(ref) && isLetter(ref[i]) {
		i++
	}
	if i == 0 || i > 3 {
		return 0, 0, false
	}
	for _, c := range strings.ToUpper(ref[:i]) {
		col = col*26 + int(c-'A'+1)
	}
	if i < len(ref) {
		n, err := strconv.Atoi(ref[i:])
		if err != nil || n < 1 {
			return 0, 0, false
		}
		row = n
	}
	return col - 1, row, true
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// columnName converts a zero-based index to letters: 0 is A, 26 is AA.
func columnName(index int) string {
	var b []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func unquoteSheet(name string) string {
	if len(name) >= 2 && strings.HasPrefix(name, "'") && strings.HasSuffix(name, "'") {
		return strings.ReplaceAll(name[1:len(name)-1], "''", "'")
	}
	return name
}

// cell returns the A1 address of a data cell. dataRow is 1-based with the
// header excluded; column is relative to the range origin.
func (o origin) cell(dataRow, column int) string {
	addr := columnName(o.Column+column) + strconv.Itoa(o.Row+dataRow)
	if o.Sheet == "" {
		return addr
	}
	return quoteSheet(o.Sheet) + "!" + addr
}

// readRange is the range requested when fetching.
func (o origin) readRange(configured string) string {
	if configured != "" {
		return configured
	}
	return quoteSheet(o.Sheet)
}
