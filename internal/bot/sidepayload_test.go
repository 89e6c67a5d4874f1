package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/regulynx/compliance-chat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSelection(t *testing.T) {
	t.Run("full summary", func(t *testing.T) {
		text := "You have selected:\nOrganization: Private\nState: ANDHRA_PRADESH\nIndustry: it_ites\nEmployee Size: 11-20"
		sel := ExtractSelection(text)
		assert.Equal(t, "Private", sel.OrgType)
		assert.Equal(t, "ANDHRA_PRADESH", sel.State)
		assert.Equal(t, "it_ites", sel.Industry)
		assert.Equal(t, "11-20", sel.EmployeeSize)
	})

	t.Run("unrelated text yields nothing", func(t *testing.T) {
		sel := ExtractSelection("State: Kerala is lovely this time of year")
		assert.True(t, sel.Empty())
	})

	t.Run("partial summary", func(t *testing.T) {
		sel := ExtractSelection("You have selected:\nState: KERALA")
		assert.Equal(t, "KERALA", sel.State)
		assert.Empty(t, sel.Industry)
		assert.False(t, sel.Empty())
	})
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "Andhra Pradesh", NormalizeValue("ANDHRA_PRADESH", nil))
	assert.Equal(t, "Kerala", NormalizeValue("KERALA", nil))
	assert.Equal(t, "", NormalizeValue("", nil))

	// Industry exceptions do not title-case.
	assert.Equal(t, "Information Technology", NormalizeIndustry("IT_ITES"))
	assert.Equal(t, "Real Estate", NormalizeIndustry("real_estate"))
	assert.Equal(t, "Healthcare", NormalizeIndustry("HEALTHCARE"))
}

func TestWantsDailyUpdates(t *testing.T) {
	assert.True(t, WantsDailyUpdates("Show me the Daily Updates please"))
	assert.True(t, WantsDailyUpdates("any recent updates?"))
	assert.False(t, WantsDailyUpdates("tell me about the factories act"))
}

type stubActsSource struct {
	payload *ActsPayload
	err     error
	gotArgs []string
}

func (s *stubActsSource) FindApplicable(ctx context.Context, state, industry, employeeSize string) (*ActsPayload, error) {
	s.gotArgs = []string{state, industry, employeeSize}
	return s.payload, s.err
}

func TestBuildActsEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes before querying", func(t *testing.T) {
		src := &stubActsSource{payload: &ActsPayload{Total: 2, Acts: []domain.Act{{}, {}}}}
		sel := Selection{State: "TAMIL_NADU", Industry: "it_ites", EmployeeSize: "11-20"}

		ev, ok := BuildActsEvent(ctx, src, sel)
		require.True(t, ok)
		assert.Equal(t, EventActs, ev.Type)
		assert.Equal(t, []string{"Tamil Nadu", "Information Technology", "11-20"}, src.gotArgs)
	})

	t.Run("empty selection is a no-op", func(t *testing.T) {
		src := &stubActsSource{}
		_, ok := BuildActsEvent(ctx, src, Selection{})
		assert.False(t, ok)
		assert.Nil(t, src.gotArgs)
	})

	t.Run("query failure is swallowed", func(t *testing.T) {
		src := &stubActsSource{err: errors.New("db down")}
		_, ok := BuildActsEvent(ctx, src, Selection{State: "KERALA"})
		assert.False(t, ok)
	})

	t.Run("zero matches yields no event", func(t *testing.T) {
		src := &stubActsSource{payload: &ActsPayload{Total: 0}}
		_, ok := BuildActsEvent(ctx, src, Selection{State: "KERALA"})
		assert.False(t, ok)
	})
}

type stubUpdatesSource struct {
	grouped map[string][]domain.MonthlyUpdate
	err     error
}

func (s *stubUpdatesSource) RecentGrouped(ctx context.Context, limit int) (map[string][]domain.MonthlyUpdate, error) {
	return s.grouped, s.err
}

func TestBuildDailyUpdatesEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("groups pass through", func(t *testing.T) {
		src := &stubUpdatesSource{grouped: map[string][]domain.MonthlyUpdate{
			"EPF": {{Title: "PF rate revised"}},
		}}
		ev, ok := BuildDailyUpdatesEvent(ctx, src)
		require.True(t, ok)
		assert.Equal(t, EventDailyUpdates, ev.Type)
		assert.Len(t, ev.Updates["EPF"], 1)
	})

	t.Run("empty digest yields no event", func(t *testing.T) {
		_, ok := BuildDailyUpdatesEvent(ctx, &stubUpdatesSource{grouped: map[string][]domain.MonthlyUpdate{}})
		assert.False(t, ok)
	})
}

func TestExpectedAnswer(t *testing.T) {
	history := func(role domain.MessageRole, content string) []domain.ChatMessage {
		return []domain.ChatMessage{{Role: role, Content: content}}
	}

	assert.Equal(t, AnswerOrganization, ExpectedAnswer(history(domain.RoleAssistant, "What type of organization do you run?")))
	assert.Equal(t, AnswerIndustry, ExpectedAnswer(history(domain.RoleAssistant, "Which industry does your company operate in?")))
	assert.Equal(t, AnswerEmployeeSize, ExpectedAnswer(history(domain.RoleAssistant, "And how many employees do you have?")))
	assert.Equal(t, AnswerNone, ExpectedAnswer(history(domain.RoleAssistant, "Here are your applicable acts.")))
	assert.Equal(t, AnswerNone, ExpectedAnswer(history(domain.RoleUser, "how many employees")))
	assert.Equal(t, AnswerNone, ExpectedAnswer(nil))

	// Only the most recent assistant reply counts.
	stale := []domain.ChatMessage{
		{Role: domain.RoleAssistant, Content: "How many employees do you have?"},
		{Role: domain.RoleAssistant, Content: "Thanks, noted."},
		{Role: domain.RoleUser, Content: "50"},
	}
	assert.Equal(t, AnswerNone, ExpectedAnswer(stale))
}
