package bot

import (
	"context"
	"regexp"
	"strings"

	"github.com/regulynx/compliance-chat/internal/domain"
	"github.com/rs/zerolog/log"
)

// ActsSource finds regulatory records matching a conversation's collected
// filters. Implemented by the acts service.
type ActsSource interface {
	FindApplicable(ctx context.Context, state, industry, employeeSize string) (*ActsPayload, error)
}

// UpdatesSource returns the most recent regulatory updates grouped by
// category. Implemented by the updates service.
type UpdatesSource interface {
	RecentGrouped(ctx context.Context, limit int) (map[string][]domain.MonthlyUpdate, error)
}

// Selection is the set of filters extracted from a bot reply's selection
// summary. Present fields come from the applicability flow's confirmation
// text; zero fields were not mentioned.
type Selection struct {
	OrgType      string
	State        string
	Industry     string
	EmployeeSize string
}

// Empty reports whether no field was extracted.
func (s Selection) Empty() bool {
	return s.OrgType == "" && s.State == "" && s.Industry == "" && s.EmployeeSize == ""
}

var (
	orgRe      = regexp.MustCompile(`Organization:\s*(\w+)`)
	stateRe    = regexp.MustCompile(`State:\s*([\w_]+)`)
	industryRe = regexp.MustCompile(`Industry:\s*(\w+)`)
	sizeRe     = regexp.MustCompile(`Employee Size:\s*([\w-]+)`)
)

// ExtractSelection pulls the key:value pairs out of a selection summary
// block. Its presence also marks the conversation as being in the
// applicability flow.
func ExtractSelection(text string) Selection {
	if !strings.Contains(text, "You have selected:") && !strings.Contains(text, "Organization:") {
		return Selection{}
	}

	var sel Selection
	if m := orgRe.FindStringSubmatch(text); m != nil {
		sel.OrgType = m[1]
	}
	if m := stateRe.FindStringSubmatch(text); m != nil {
		sel.State = m[1]
	}
	if m := industryRe.FindStringSubmatch(text); m != nil {
		sel.Industry = m[1]
	}
	if m := sizeRe.FindStringSubmatch(text); m != nil {
		sel.EmployeeSize = m[1]
	}
	return sel
}

// industryMapping maps bot variable values to stored industry names where
// plain title-casing is wrong.
var industryMapping = map[string]string{
	"it_ites":     "Information Technology",
	"real_estate": "Real Estate",
}

// NormalizeValue converts a bot variable value to its stored form:
// ANDHRA_PRADESH -> "Andhra Pradesh". Known multi-word categories come from
// the exception map.
func NormalizeValue(value string, mapping map[string]string) string {
	if value == "" {
		return value
	}
	if mapping != nil {
		if mapped, ok := mapping[strings.ToLower(value)]; ok {
			return mapped
		}
	}
	return titleCase(strings.ToLower(strings.ReplaceAll(value, "_", " ")))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// NormalizeIndustry normalizes an industry value using the exception map.
func NormalizeIndustry(value string) string {
	return NormalizeValue(value, industryMapping)
}

var dailyUpdateTriggers = []string{
	"daily updates",
	"daily update",
	"recent updates",
	"latest updates",
	"regulatory updates",
	"what's new",
}

// WantsDailyUpdates reports whether the text matches a daily-updates trigger
// phrase.
func WantsDailyUpdates(text string) bool {
	lower := strings.ToLower(text)
	for _, trigger := range dailyUpdateTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}

// BuildActsEvent queries the acts source with the normalized selection and
// packages the result as an acts event. Returns false when the selection is
// empty or nothing matched; query failures are logged, not propagated.
func BuildActsEvent(ctx context.Context, src ActsSource, sel Selection) (Event, bool) {
	if src == nil || sel.Empty() {
		return Event{}, false
	}

	state := NormalizeValue(sel.State, nil)
	industry := NormalizeIndustry(sel.Industry)
	size := sel.EmployeeSize // ranges like "11-20" are stored as-is

	payload, err := src.FindApplicable(ctx, state, industry, size)
	if err != nil {
		log.Error().Err(err).Msg("failed to query applicable acts")
		return Event{}, false
	}
	if payload == nil || payload.Total == 0 {
		return Event{}, false
	}
	return Event{Type: EventActs, Acts: payload}, true
}

// BuildDailyUpdatesEvent fetches the recent updates digest. Failures are
// logged, not propagated.
func BuildDailyUpdatesEvent(ctx context.Context, src UpdatesSource) (Event, bool) {
	if src == nil {
		return Event{}, false
	}
	grouped, err := src.RecentGrouped(ctx, 5)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch recent updates")
		return Event{}, false
	}
	if len(grouped) == 0 {
		return Event{}, false
	}
	return Event{Type: EventDailyUpdates, Updates: grouped}, true
}
