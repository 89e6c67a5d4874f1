package bot

import (
	"encoding/json"
	"strings"

	"github.com/regulynx/compliance-chat/internal/domain"
	"github.com/rs/zerolog/log"
)

// In-band sentinels used by upstream bots to smuggle structured side data
// through plain reply text. Extraction is purely lexical: slice the payload
// between the begin/end pair, parse it as JSON, and drop the marker span from
// the visible text whether or not the parse succeeds.
const (
	markerChoices    = "__CHOICES__"
	markerChoicesEnd = "__END_CHOICES__"
	markerActs       = "__ACTS_DATA__"
	markerActsEnd    = "__END_ACTS__"
	markerDaily      = "__DAILY_UPDATES__"
	markerDailyEnd   = "__END_DAILY__"
	markerSwitch     = "__SWITCH_PROVIDER__"
	markerSwitchEnd  = "__END_SWITCH__"
	markerNext       = "__NEXT_MESSAGE__"
)

type markerSpec struct {
	begin string
	end   string // empty for bare separators
}

var markerSpecs = []markerSpec{
	{markerChoices, markerChoicesEnd},
	{markerActs, markerActsEnd},
	{markerDaily, markerDailyEnd},
	{markerSwitch, markerSwitchEnd},
	{markerNext, ""},
}

// ExtractMarkers splits a reply chunk into its visible text and the typed
// events encoded by embedded markers. The visible text is everything before
// the first marker; malformed payloads are logged and skipped, never
// propagated.
func ExtractMarkers(chunk string) (string, []Event) {
	first, spec := findFirstMarker(chunk)
	if first < 0 {
		return chunk, nil
	}

	visible := chunk[:first]
	rest := chunk[first:]

	var events []Event
	for {
		if spec.end == "" {
			// Bare separator, no payload.
			events = append(events, Event{Type: EventMessageBoundary})
			rest = rest[len(spec.begin):]
		} else {
			body := rest[len(spec.begin):]
			endIdx := strings.Index(body, spec.end)
			if endIdx < 0 {
				// Unterminated marker: drop the remainder.
				return visible, events
			}
			if ev, ok := decodeMarker(spec.begin, body[:endIdx]); ok {
				events = append(events, ev)
			}
			rest = body[endIdx+len(spec.end):]
		}

		var next int
		next, spec = findFirstMarker(rest)
		if next < 0 {
			return visible, events
		}
		rest = rest[next:]
	}
}

func findFirstMarker(s string) (int, markerSpec) {
	first := -1
	var found markerSpec
	for _, spec := range markerSpecs {
		if idx := strings.Index(s, spec.begin); idx >= 0 && (first < 0 || idx < first) {
			first = idx
			found = spec
		}
	}
	return first, found
}

func decodeMarker(begin, payload string) (Event, bool) {
	switch begin {
	case markerChoices:
		var choices []Choice
		if err := json.Unmarshal([]byte(payload), &choices); err != nil {
			log.Warn().Err(err).Msg("failed to parse choices marker payload")
			return Event{}, false
		}
		return Event{Type: EventChoices, Choices: choices}, true

	case markerActs:
		var acts ActsPayload
		if err := json.Unmarshal([]byte(payload), &acts); err != nil {
			log.Warn().Err(err).Msg("failed to parse acts marker payload")
			return Event{}, false
		}
		return Event{Type: EventActs, Acts: &acts}, true

	case markerDaily:
		var updates map[string][]domain.MonthlyUpdate
		if err := json.Unmarshal([]byte(payload), &updates); err != nil {
			log.Warn().Err(err).Msg("failed to parse daily updates marker payload")
			return Event{}, false
		}
		return Event{Type: EventDailyUpdates, Updates: updates}, true

	case markerSwitch:
		name := strings.TrimSpace(payload)
		if name == "" {
			return Event{}, false
		}
		return Event{Type: EventProviderSwitch, Provider: name}, true
	}
	return Event{}, false
}
