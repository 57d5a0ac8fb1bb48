package sheet

import (
	"regexp"
	"strconv"
)

// idPattern is the cell address grammar: one or more uppercase letters
// followed by a 1-based row number with no leading zero
var idPattern = regexp.MustCompile(`^([A-Z]+)([1-9][0-9]*)$`)

// IsID reports whether a string matches the cell address grammar exactly.
// used to distinguish a cell reference from an arbitrary identifier or
// function name inside expressions.
func IsID(s string) bool {
	return idPattern.MatchString(s)
}

// Identify encodes a zero-based (row, col) coordinate as a spreadsheet-style
// address. columns use a bijective base-26 letter system (A=0, Z=25, AA=26),
// rows are 1-based decimal. Identify(0, 0) == "A1", Identify(0, 52) == "BA1".
func Identify(row, col int) string {
	letters := ""
	for col >= 0 {
		letters = string(rune('A'+col%26)) + letters
		col = col/26 - 1
	}
	return letters + strconv.Itoa(row+1)
}

// IndexCol decodes a column letter sequence back to its zero-based column
// index. inverse of the column part of Identify.
func IndexCol(letters string) (int, error) {
	if letters == "" {
		return 0, NewParseError(letters, "empty column letters")
	}
	col := 0
	for _, r := range letters {
		if r < 'A' || r > 'Z' {
			return 0, NewParseError(letters, "column letters must be A-Z")
		}
		col = col*26 + int(r-'A') + 1
	}
	return col - 1, nil
}

// IndexID decodes a full cell address into its zero-based (row, col)
// coordinate.
func IndexID(id string) (row, col int, err error) {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return 0, 0, NewParseError(id, "not a cell address")
	}
	col, err = IndexCol(m[1])
	if err != nil {
		return 0, 0, err
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, NewParseError(id, "bad row number")
	}
	return n - 1, col, nil
}

// Interpolate enumerates every address in the inclusive rectangle between
// the two zero-based corners. rows vary fastest within a column, so the
// range A1:B2 enumerates as A1, A2, B1, B2. reversed corners are normalized
// to the bounding rectangle.
func Interpolate(colFrom, rowFrom, colTo, rowTo int) []string {
	if colFrom > colTo {
		colFrom, colTo = colTo, colFrom
	}
	if rowFrom > rowTo {
		rowFrom, rowTo = rowTo, rowFrom
	}
	ids := make([]string, 0, (colTo-colFrom+1)*(rowTo-rowFrom+1))
	for col := colFrom; col <= colTo; col++ {
		for row := rowFrom; row <= rowTo; row++ {
			ids = append(ids, Identify(row, col))
		}
	}
	return ids
}

// interpolateRange enumerates a textual range like "A1:B2"
func interpolateRange(from, to string) ([]string, error) {
	rowFrom, colFrom, err := IndexID(from)
	if err != nil {
		return nil, err
	}
	rowTo, colTo, err := IndexID(to)
	if err != nil {
		return nil, err
	}
	return Interpolate(colFrom, rowFrom, colTo, rowTo), nil
}
