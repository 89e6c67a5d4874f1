package importer

import (
	"fmt"
	"strconv"
	"time"

	"github.com/regulynx/compliance-chat/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// ToActs maps validated acts rows to destination records. Helper columns
// (sl_no) are excluded. A row is kept only when it carries a state or an
// industry after forward fill.
func ToActs(sheet *Sheet) []domain.Act {
	acts := make([]domain.Act, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row["state"] == "" && row["industry"] == "" {
			continue
		}
		acts = append(acts, domain.Act{
			State:                 row["state"],
			Industry:              row["industry"],
			CompanyType:           row["company_type"],
			LegislativeArea:       row["legislative_area"],
			CentralActs:           row["central_acts"],
			StateActs:             row["state_acts"],
			EmployeeApplicability: row["employee_applicability"],
		})
	}
	log.Info().Int("count", len(acts)).Msg("Transformed acts rows")
	return acts
}

// ToMonthlyUpdates maps validated update rows to destination records. Rows
// missing any required field or carrying an unparseable date are dropped
// individually with a warning; partial file success is by design. Returns
// the retained records and the number of rows skipped.
func ToMonthlyUpdates(sheet *Sheet) ([]domain.MonthlyUpdate, int) {
	required := []string{"title", "category", "description", "change_type", "state"}

	var updates []domain.MonthlyUpdate
	skipped := 0

rowLoop:
	for i, row := range sheet.Rows {
		for _, col := range required {
			if row[col] == "" {
				log.Warn().Int("row", i+1).Str("missing", col).Msg("Skipping update row")
				skipped++
				continue rowLoop
			}
		}

		effective, err := parseDate(row["effective_date"])
		if err != nil {
			log.Warn().Int("row", i+1).Str("value", row["effective_date"]).Msg("Skipping update row: bad effective date")
			skipped++
			continue
		}
		updated, err := parseDate(row["update_date"])
		if err != nil {
			log.Warn().Int("row", i+1).Str("value", row["update_date"]).Msg("Skipping update row: bad update date")
			skipped++
			continue
		}

		updates = append(updates, domain.MonthlyUpdate{
			Title:         row["title"],
			Category:      row["category"],
			Description:   row["description"],
			ChangeType:    row["change_type"],
			State:         row["state"],
			EffectiveDate: effective,
			UpdateDate:    updated,
			SourceURL:     row["source_url"],
		})
	}

	log.Info().Int("count", len(updates)).Int("skipped", skipped).Msg("Transformed update rows")
	return updates, skipped
}

var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"01-02-06",
	"2006-01-02 15:04:05",
	"1/2/06 15:04",
}

// parseDate accepts the textual layouts the feeds use plus raw Excel date
// serial numbers.
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unparseable date %q", value)
}
