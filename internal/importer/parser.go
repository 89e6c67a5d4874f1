package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// ErrParse marks a spreadsheet that could not be opened or decoded.
var ErrParse = errors.New("parse error")

// Row holds one normalized spreadsheet row: canonical column name to trimmed
// cell value. Absent and blank cells are empty strings.
type Row map[string]string

// Sheet is the normalized output of parsing one spreadsheet file.
type Sheet struct {
	// Columns are the canonical column names recognized in the header.
	Columns []string
	Rows    []Row
}

// HasColumn reports whether the sheet's header carried the canonical column.
func (s *Sheet) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// ScanFolder lists the spreadsheet files sitting directly in dir, ignoring
// subdirectories and editor lock files.
func ScanFolder(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan imports folder: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "~$") {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".xlsx", ".xls":
			files = append(files, filepath.Join(dir, name))
		}
	}

	log.Info().Int("count", len(files)).Str("folder", dir).Msg("Scanned imports folder")
	return files, nil
}

// ParseFile reads a spreadsheet into a normalized Sheet. Header names are
// whitespace-collapsed and lowercased before lookup in the family's synonym
// table; unrecognized columns are ignored. For families with forward-fill
// columns, merged-cell blanks inherit the last non-empty value above them.
// Rows that are entirely empty after that step are dropped.
func ParseFile(path string, fam Family) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", ErrParse, filepath.Base(path), err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("%w: %s has no sheets", ErrParse, filepath.Base(path))
	}

	rawRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrParse, filepath.Base(path), err)
	}

	if len(rawRows) <= fam.HeaderRow {
		return &Sheet{}, nil
	}

	// Map column index to canonical name via the synonym table.
	header := rawRows[fam.HeaderRow]
	colByIndex := make(map[int]string)
	var columns []string
	for i, name := range header {
		canonical, ok := fam.Synonyms[collapseHeader(name)]
		if !ok {
			continue
		}
		if _, seen := colByIndex[i]; seen {
			continue
		}
		colByIndex[i] = canonical
		columns = append(columns, canonical)
	}

	fill := make(map[string]string)
	var rows []Row
	for _, raw := range rawRows[fam.HeaderRow+1:] {
		row := make(Row, len(colByIndex))
		for i, canonical := range colByIndex {
			var value string
			if i < len(raw) {
				value = strings.TrimSpace(raw[i])
			}
			row[canonical] = value
		}

		// Fully blank source rows are dropped before forward fill so they
		// cannot turn into phantom copies of the block above them.
		if rowEmpty(row) {
			continue
		}

		for _, col := range fam.ForwardFill {
			if row[col] == "" {
				row[col] = fill[col]
			} else {
				fill[col] = row[col]
			}
		}

		rows = append(rows, row)
	}

	log.Info().
		Str("file", filepath.Base(path)).
		Int("rows", len(rows)).
		Int("columns", len(columns)).
		Msg("Parsed spreadsheet")

	return &Sheet{Columns: columns, Rows: rows}, nil
}

func collapseHeader(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func rowEmpty(row Row) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
