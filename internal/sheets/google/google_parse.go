package google

import (
	"fmt"
	"strconv"
	"strings"

	"pocketflow/internal/core"
	"pocketflow/internal/sheets"
)

// quoteSheet returns the sheet name as it must appear in A1 notation.
func quoteSheet(name string) string {
	if strings.ContainsAny(name, " '!") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

// rowFromRange extracts the first row number from an A1 range such as
// "Records!A5:G5" or "'My Records'!A12".
func rowFromRange(rng string) (int, error) {
	cell := rng
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		cell = rng[i+1:]
	}
	if i := strings.Index(cell, ":"); i >= 0 {
		cell = cell[:i]
	}
	digits := strings.TrimLeftFunc(cell, func(r rune) bool {
		return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || r == '$'
	})
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("no row number in range %q", rng)
	}
	return n, nil
}

// findRow returns the 1-based sheet row holding id in column A, or 0.
func findRow(values [][]any, id string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return 0
}

// amountColumn is the index of the Amount column in sheets.Header.
const amountColumn = 4

// toValues renders r for a RAW write: every column is text except the
// amount, which is sent as a number so the sheet can sum it.
func toValues(r core.FinancialRecord) []any {
	row := sheets.Row(r)
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	out[amountColumn] = r.Amount.Round(core.AmountPlaces).InexactFloat64()
	return out
}

func headerValues() []any {
	out := make([]any, len(sheets.Header))
	for i, v := range sheets.Header {
		out[i] = v
	}
	return out
}
