package importer

// Family describes one spreadsheet feed: where its header row sits, how its
// column names map to canonical fields, and which columns are mandatory.
type Family struct {
	// Name identifies the family in logs and job status messages.
	Name string
	// StatusKey is the key-value store key for this family's job status.
	// The two families must never share a key.
	StatusKey string
	// HeaderRow is the zero-based row index of the header row. Acts sheets
	// carry a throwaway first row; monthly update sheets do not.
	HeaderRow int
	// Synonyms maps whitespace-collapsed lowercase header names to
	// canonical snake_case column names.
	Synonyms map[string]string
	// Required lists the canonical columns that must be present.
	Required []string
	// KeyColumns must hold at least one non-empty value across the sheet.
	KeyColumns []string
	// ForwardFill lists the columns whose merged-cell blanks are filled
	// downward from the last non-empty value.
	ForwardFill []string
}

const (
	// ActsStatusKey and UpdatesStatusKey are the per-family job status keys.
	ActsStatusKey    = "import_job_status"
	UpdatesStatusKey = "monthly_updates_import_job_status"
)

// ActsFamily describes the regulatory-applicability feed.
func ActsFamily() Family {
	return Family{
		Name:      "acts",
		StatusKey: ActsStatusKey,
		HeaderRow: 1,
		Synonyms: map[string]string{
			"sl.no":     "sl_no",
			"sl no.":    "sl_no",
			"sl no":     "sl_no",
			"s.no.":     "sl_no",
			"serial no": "sl_no",
			"state":     "state",
			"industry":  "industry",
			"company type and specific acts applicable for each type of company": "company_type",
			"company type":                "company_type",
			"legislative area":            "legislative_area",
			"central acts & rules":        "central_acts",
			"central acts":                "central_acts",
			"state specific acts & rules": "state_acts",
			"state acts":                  "state_acts",
			"employee applicability":      "employee_applicability",
		},
		Required: []string{
			"sl_no", "state", "industry", "company_type",
			"legislative_area", "central_acts", "state_acts",
			"employee_applicability",
		},
		KeyColumns: []string{"state", "industry"},
		ForwardFill: []string{
			"state", "industry", "company_type", "legislative_area",
			"central_acts", "state_acts", "employee_applicability",
		},
	}
}

// MonthlyUpdatesFamily describes the monthly regulatory-update feed.
func MonthlyUpdatesFamily() Family {
	return Family{
		Name:      "monthly_updates",
		StatusKey: UpdatesStatusKey,
		HeaderRow: 0,
		Synonyms: map[string]string{
			"sl no.":         "sl_no",
			"sl no":          "sl_no",
			"s.no.":          "sl_no",
			"serial no":      "sl_no",
			"title":          "title",
			"update title":   "title",
			"category id":    "category",
			"category":       "category",
			"description":    "description",
			"details":        "description",
			"change type":    "change_type",
			"type":           "change_type",
			"update type":    "change_type",
			"state":          "state",
			"effective date": "effective_date",
			"effective from": "effective_date",
			"update date":    "update_date",
			"date":           "update_date",
			"source link":    "source_url",
			"link":           "source_url",
			"url":            "source_url",
		},
		Required: []string{
			"title", "category", "description", "change_type",
			"state", "effective_date", "update_date",
		},
		KeyColumns: []string{"title", "category", "state"},
	}
}
