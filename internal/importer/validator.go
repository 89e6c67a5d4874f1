package importer

import (
	"fmt"
	"strings"
)

// Validate checks a parsed sheet against the family's structural
// preconditions before any row is transformed or written. It returns whether
// the sheet is importable and, if not, the reason.
func Validate(sheet *Sheet, fam Family) (bool, string) {
	if sheet == nil || len(sheet.Rows) == 0 {
		return false, "spreadsheet is empty"
	}

	var missing []string
	for _, col := range fam.Required {
		if !sheet.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return false, fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", "))
	}

	for _, col := range fam.KeyColumns {
		for _, row := range sheet.Rows {
			if row[col] != "" {
				return true, ""
			}
		}
	}
	return false, fmt.Sprintf("no data in key columns (%s)", strings.Join(fam.KeyColumns, ", "))
}
