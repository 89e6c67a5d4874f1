package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Completer issues one non-streaming completion. Implemented by the openai
// provider; the classifier is its only consumer.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ClassificationService normalizes free-text answers into the closed
// vocabularies the guided chat flow expects. Keyword concept maps are tried
// first; anything they miss goes to the LLM, whose answer is accepted only
// above a confidence threshold. Every failure path collapses to "Unclear".
type ClassificationService struct {
	completer     Completer
	minConfidence float64
}

// NewClassificationService creates a new classification service
func NewClassificationService(completer Completer, minConfidence float64) *ClassificationService {
	if minConfidence <= 0 {
		minConfidence = 0.7
	}
	return &ClassificationService{completer: completer, minConfidence: minConfidence}
}

const unclear = "Unclear"

var organizationTypes = []string{
	"Private Limited Company",
	"Public Limited Company",
	"Limited Liability Partnership (LLP)",
	"One Person Company (OPC)",
	"Partnership Firm",
	"Sole Proprietorship",
	"Section 8 Company",
	"Trust",
	"Society",
	unclear,
}

var industryTypes = []string{
	"Healthcare", "BFSI", "Education", "Manufacturing",
	"Retail", "IT Services", "Logistics", "Energy", unclear,
}

var employeeSizes = []string{
	"1-10", "11-50", "51-200", "201-500", "501-1000", "1000+", unclear,
}

var organizationConcepts = []concept{
	{"startup", "Private Limited Company"},
	{"pvt ltd", "Private Limited Company"},
	{"private limited", "Private Limited Company"},
	{"public limited", "Public Limited Company"},
	{"partnership", "Partnership Firm"},
	{"proprietorship", "Sole Proprietorship"},
	{"llp", "Limited Liability Partnership (LLP)"},
	{"trust", "Trust"},
	{"ngo", "Society"},
	{"society", "Society"},
	{"ltd", "Public Limited Company"},
}

var industryConcepts = []concept{
	{"bank", "BFSI"},
	{"hospital", "Healthcare"},
	{"clinic", "Healthcare"},
	{"college", "Education"},
	{"school", "Education"},
	{"university", "Education"},
	{"shop", "Retail"},
	{"store", "Retail"},
	{"factory", "Manufacturing"},
	{"logistics", "Logistics"},
	{"courier", "Logistics"},
	{"transport", "Logistics"},
	{"power", "Energy"},
	{"solar", "Energy"},
	{"software", "IT Services"},
	{"it", "IT Services"},
}

var sizeConcepts = []concept{
	{"startup", "1-10"},
	{"small", "1-10"},
	{"tiny", "1-10"},
	{"solo", "1-10"},
	{"one", "1-10"},
	{"single", "1-10"},
	{"medium", "11-50"},
	{"large", "1000+"},
	{"huge", "1000+"},
	{"enterprise", "1000+"},
	{"mnc", "1000+"},
}

// concept is an ordered keyword-to-value rule. Order matters: "pvt ltd" must
// win over the bare "ltd".
type concept struct {
	keyword string
	value   string
}

// ClassifyOrganization maps free text to an organization type.
func (s *ClassificationService) ClassifyOrganization(ctx context.Context, text string) (string, error) {
	if v := matchConcept(text, organizationConcepts, false); v != "" {
		return v, nil
	}

	prompt := fmt.Sprintf(`You are a smart data mapping assistant.
Map the User Input to the best matching Organization Type from this list:
%s

Return a single JSON object with double-quoted keys and values:
{"organisation_type": "string", "confidence": float}

Rules:
1. "startup" or "company" -> "Private Limited Company"
2. "firm" -> "Partnership Firm"
3. "ngo" -> "Society" (or "Section 8 Company" if specified)
4. Fix obvious typos before mapping.
5. Only return "Unclear" for pure gibberish.`, optionsJSON(organizationTypes))

	return s.classify(ctx, text, prompt, "organisation_type")
}

// ClassifyIndustry maps free text to an industry type.
func (s *ClassificationService) ClassifyIndustry(ctx context.Context, text string) (string, error) {
	if v := matchConcept(text, industryConcepts, false); v != "" {
		return v, nil
	}

	prompt := fmt.Sprintf(`You are a smart data mapping assistant.
Map the User Input to the best matching Industry Type from this list:
%s

Return a single JSON object with double-quoted keys and values:
{"industry_type": "string", "confidence": float}

Rules:
1. "software" or "tech" -> "IT Services"
2. "bank" or "finance" -> "BFSI"
3. "medical" or "doctor" -> "Healthcare"
4. Only return "Unclear" for pure gibberish.`, optionsJSON(industryTypes))

	return s.classify(ctx, text, prompt, "industry_type")
}

// ClassifyEmployeeSize maps free text to an employee size range.
func (s *ClassificationService) ClassifyEmployeeSize(ctx context.Context, text string) (string, error) {
	// Word-boundary matching here: "one" must not fire inside "money".
	if v := matchConcept(text, sizeConcepts, true); v != "" {
		return v, nil
	}

	prompt := fmt.Sprintf(`You are a smart data mapping assistant.
Map the User Input to the best matching Employee Size Range from this list:
%s

Return a single JSON object with double-quoted keys and values:
{"employee_size": "string", "confidence": float}

Rules:
1. Extract numbers from text and map them to the containing range.
2. Handle fuzzy terms: "small startup" -> "1-10", "mid-sized" -> "51-200".
3. Only return "Unclear" for pure gibberish.`, optionsJSON(employeeSizes))

	return s.classify(ctx, text, prompt, "employee_size")
}

func (s *ClassificationService) classify(ctx context.Context, text, systemPrompt, key string) (string, error) {
	if s.completer == nil {
		return unclear, nil
	}

	raw, err := s.completer.Complete(ctx, systemPrompt, fmt.Sprintf("User Input: %q", text))
	if err != nil {
		log.Error().Err(err).Str("field", key).Msg("classification completion failed")
		return unclear, nil
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &result); err != nil {
		log.Warn().Err(err).Str("field", key).Msg("failed to parse classification response")
		return unclear, nil
	}

	value, _ := result[key].(string)
	if key == "organisation_type" && value == "" {
		// Some models anglicize the key.
		value, _ = result["organization_type"].(string)
	}
	confidence, _ := result["confidence"].(float64)

	if value == "" || confidence < s.minConfidence {
		log.Warn().Str("field", key).Str("value", value).Float64("confidence", confidence).Msg("classification below confidence threshold")
		return unclear, nil
	}

	log.Info().Str("field", key).Str("value", value).Float64("confidence", confidence).Msg("classified input")
	return value, nil
}

// matchConcept finds the first keyword contained in the text. With wordwise
// set, single-word keywords must match a whole word, with substring as the
// fallback for multi-word keywords.
func matchConcept(text string, concepts []concept, wordwise bool) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	words := strings.Fields(lower)

	for _, c := range concepts {
		if wordwise {
			for _, w := range words {
				if w == c.keyword {
					return c.value
				}
			}
			if strings.Contains(c.keyword, " ") && strings.Contains(lower, c.keyword) {
				return c.value
			}
			continue
		}
		if strings.Contains(lower, c.keyword) {
			return c.value
		}
	}
	return ""
}

func optionsJSON(options []string) string {
	data, _ := json.Marshal(options)
	return string(data)
}

// stripCodeFence unwraps a markdown-fenced response body.
func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	if idx := strings.Index(raw, "```"); idx >= 0 {
		raw = raw[:idx]
	}
	return strings.TrimSpace(raw)
}
