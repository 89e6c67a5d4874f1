package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	response string
	err      error
	called   bool
}

func (c *stubCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.called = true
	return c.response, c.err
}

func TestClassificationService_ConceptMaps(t *testing.T) {
	completer := &stubCompleter{}
	svc := NewClassificationService(completer, 0.7)
	ctx := context.Background()

	t.Run("organization keywords skip the LLM", func(t *testing.T) {
		got, err := svc.ClassifyOrganization(ctx, "we are a small startup")
		require.NoError(t, err)
		assert.Equal(t, "Private Limited Company", got)
		assert.False(t, completer.called)
	})

	t.Run("pvt ltd wins over bare ltd", func(t *testing.T) {
		got, err := svc.ClassifyOrganization(ctx, "Acme Pvt Ltd")
		require.NoError(t, err)
		assert.Equal(t, "Private Limited Company", got)
	})

	t.Run("industry keywords", func(t *testing.T) {
		got, err := svc.ClassifyIndustry(ctx, "we run a hospital chain")
		require.NoError(t, err)
		assert.Equal(t, "Healthcare", got)
	})

	t.Run("size keywords are word-bounded", func(t *testing.T) {
		got, err := svc.ClassifyEmployeeSize(ctx, "just one person")
		require.NoError(t, err)
		assert.Equal(t, "1-10", got)

		// "one" inside "money" must not match; the LLM answers instead.
		llm := &stubCompleter{response: `{"employee_size": "51-200", "confidence": 0.9}`}
		svc := NewClassificationService(llm, 0.7)
		got, err = svc.ClassifyEmployeeSize(ctx, "we make money with 100 staff")
		require.NoError(t, err)
		assert.Equal(t, "51-200", got)
		assert.True(t, llm.called)
	})
}

func TestClassificationService_LLMFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts confident answers", func(t *testing.T) {
		svc := NewClassificationService(&stubCompleter{
			response: `{"organisation_type": "Trust", "confidence": 0.92}`,
		}, 0.7)
		got, err := svc.ClassifyOrganization(ctx, "charitable fund")
		require.NoError(t, err)
		assert.Equal(t, "Trust", got)
	})

	t.Run("low confidence collapses to Unclear", func(t *testing.T) {
		svc := NewClassificationService(&stubCompleter{
			response: `{"organisation_type": "Trust", "confidence": 0.4}`,
		}, 0.7)
		got, err := svc.ClassifyOrganization(ctx, "zzz")
		require.NoError(t, err)
		assert.Equal(t, "Unclear", got)
	})

	t.Run("markdown fenced responses are unwrapped", func(t *testing.T) {
		svc := NewClassificationService(&stubCompleter{
			response: "```json\n{\"industry_type\": \"BFSI\", \"confidence\": 0.88}\n```",
		}, 0.7)
		got, err := svc.ClassifyIndustry(ctx, "insurance and loans")
		require.NoError(t, err)
		assert.Equal(t, "BFSI", got)
	})

	t.Run("anglicized key is accepted", func(t *testing.T) {
		svc := NewClassificationService(&stubCompleter{
			response: `{"organization_type": "Society", "confidence": 0.95}`,
		}, 0.7)
		got, err := svc.ClassifyOrganization(ctx, "community group")
		require.NoError(t, err)
		assert.Equal(t, "Society", got)
	})

	t.Run("completion failure collapses to Unclear", func(t *testing.T) {
		svc := NewClassificationService(&stubCompleter{err: assert.AnError}, 0.7)
		got, err := svc.ClassifyOrganization(ctx, "something odd")
		require.NoError(t, err)
		assert.Equal(t, "Unclear", got)
	})

	t.Run("garbage response collapses to Unclear", func(t *testing.T) {
		svc := NewClassificationService(&stubCompleter{response: "not json"}, 0.7)
		got, err := svc.ClassifyOrganization(ctx, "something odd")
		require.NoError(t, err)
		assert.Equal(t, "Unclear", got)
	})
}
