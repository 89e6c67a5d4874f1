package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	fam := ActsFamily()

	t.Run("empty sheet", func(t *testing.T) {
		ok, reason := Validate(&Sheet{}, fam)
		assert.False(t, ok)
		assert.Equal(t, "spreadsheet is empty", reason)
	})

	t.Run("missing required columns", func(t *testing.T) {
		sheet := &Sheet{
			Columns: []string{"state", "industry"},
			Rows:    []Row{{"state": "Karnataka", "industry": "Retail"}},
		}
		ok, reason := Validate(sheet, fam)
		assert.False(t, ok)
		assert.Contains(t, reason, "missing required columns")
		assert.Contains(t, reason, "company_type")
	})

	t.Run("no data in key columns", func(t *testing.T) {
		sheet := &Sheet{
			Columns: fam.Required,
			Rows:    []Row{{"sl_no": "1", "central_acts": "Some Act"}},
		}
		ok, reason := Validate(sheet, fam)
		assert.False(t, ok)
		assert.Contains(t, reason, "no data in key columns")
	})

	t.Run("valid", func(t *testing.T) {
		sheet := &Sheet{
			Columns: fam.Required,
			Rows:    []Row{{"state": "Karnataka"}},
		}
		ok, reason := Validate(sheet, fam)
		assert.True(t, ok)
		assert.Empty(t, reason)
	})
}

func TestToActs(t *testing.T) {
	sheet := &Sheet{
		Rows: []Row{
			{
				"sl_no": "1", "state": "Karnataka", "industry": "Retail",
				"company_type": "Private", "legislative_area": "Labour",
				"central_acts": "Factories Act", "state_acts": "Shops Act",
				"employee_applicability": "10-50",
			},
			{"sl_no": "2", "central_acts": "Orphan Act"},
		},
	}

	acts := ToActs(sheet)
	require.Len(t, acts, 1)
	assert.Equal(t, "Karnataka", acts[0].State)
	assert.Equal(t, "Factories Act", acts[0].CentralActs)
	assert.Equal(t, "10-50", acts[0].EmployeeApplicability)
}

func TestToMonthlyUpdates(t *testing.T) {
	sheet := &Sheet{
		Rows: []Row{
			{
				"title": "PF rate revised", "category": "EPF", "description": "Rate change",
				"change_type": "Amendment", "state": "All",
				"effective_date": "2025-04-01", "update_date": "15-03-2025",
				"source_url": "https://example.com",
			},
			{
				// Missing title: skipped, not fatal.
				"category": "ESI", "description": "x", "change_type": "New", "state": "All",
				"effective_date": "2025-04-01", "update_date": "2025-03-15",
			},
			{
				// Unparseable date: skipped.
				"title": "Bad date", "category": "ESI", "description": "x", "change_type": "New",
				"state": "All", "effective_date": "soon", "update_date": "2025-03-15",
			},
		},
	}

	updates, skipped := ToMonthlyUpdates(sheet)
	require.Len(t, updates, 1)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, "PF rate revised", updates[0].Title)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), updates[0].EffectiveDate)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), updates[0].UpdateDate)
}

func TestParseDate(t *testing.T) {
	t.Run("textual layouts", func(t *testing.T) {
		for _, raw := range []string{"2025-03-15", "15-03-2025", "15/03/2025"} {
			got, err := parseDate(raw)
			require.NoError(t, err, raw)
			assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), got, raw)
		}
	})

	t.Run("excel serial", func(t *testing.T) {
		got, err := parseDate("45292")
		require.NoError(t, err)
		assert.Equal(t, 2024, got.Year())
		assert.Equal(t, time.January, got.Month())
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseDate("soon")
		require.Error(t, err)
		_, err = parseDate("")
		require.Error(t, err)
	})
}
