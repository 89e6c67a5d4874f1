package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/regulynx/compliance-chat/internal/bot"
	"github.com/regulynx/compliance-chat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestChatService(provider bot.Provider, userRepo *MockUserRepository, sessionRepo *MockSessionRepository, threadRepo *MockThreadRepository, messageRepo *MockMessageRepository) *ChatService {
	registry := bot.NewRegistry(provider.Name())
	registry.Register(provider)
	return NewChatService(registry, userRepo, sessionRepo, threadRepo, messageRepo, nil)
}

func drain(t *testing.T, turn *Turn) ([]bot.Event, error) {
	t.Helper()
	var events []bot.Event
	for ev := range turn.Events {
		events = append(events, ev)
	}
	return events, <-turn.Errs
}

func TestChatService_Turn_NewSession(t *testing.T) {
	userRepo := new(MockUserRepository)
	sessionRepo := new(MockSessionRepository)
	threadRepo := new(MockThreadRepository)
	messageRepo := new(MockMessageRepository)

	provider := &stubProvider{name: "botpress", events: []bot.Event{
		{Type: bot.EventTextDelta, Text: "Hello! "},
		{Type: bot.EventTextDelta, Text: "How can I help?"},
	}}
	svc := newTestChatService(provider, userRepo, sessionRepo, threadRepo, messageRepo)

	userRepo.On("GetByEmail", mock.Anything, "jane@example.com").
		Return(&domain.User{ID: 7, Email: "jane@example.com"}, nil)
	sessionRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ChatSession")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.ChatSession).ID = 42
		}).Return(nil)
	threadRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ChatThread")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.ChatThread).ID = 99
		}).Return(nil)
	messageRepo.On("ListByThread", mock.Anything, int64(99)).Return([]domain.ChatMessage{}, nil)
	messageRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ChatMessage")).Return(nil)
	sessionRepo.On("Touch", mock.Anything, int64(42)).Return(nil)

	turn, err := svc.Turn(context.Background(), ChatRequest{
		Message:   "what acts apply to my factory?",
		SessionID: "new",
		Email:     "jane@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), turn.SessionID)
	assert.Equal(t, int64(99), turn.ThreadID)

	events, streamErr := drain(t, turn)
	assert.NoError(t, streamErr)
	require.Len(t, events, 2)
	assert.Equal(t, "Hello! ", events[0].Text)

	// Both sides of the turn are persisted.
	messageRepo.AssertNumberOfCalls(t, "Create", 2)
	created := messageRepo.Calls[len(messageRepo.Calls)-1].Arguments.Get(1).(*domain.ChatMessage)
	assert.Equal(t, domain.RoleAssistant, created.Role)
	assert.Equal(t, "Hello! How can I help?", created.Content)
}

func TestChatService_Turn_UnknownProviderPersistsNothing(t *testing.T) {
	userRepo := new(MockUserRepository)
	sessionRepo := new(MockSessionRepository)
	threadRepo := new(MockThreadRepository)
	messageRepo := new(MockMessageRepository)

	svc := newTestChatService(&stubProvider{name: "botpress"}, userRepo, sessionRepo, threadRepo, messageRepo)

	_, err := svc.Turn(context.Background(), ChatRequest{
		Message:  "hello",
		Provider: "gemini",
		Email:    "jane@example.com",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)

	messageRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	sessionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestChatService_Turn_ForeignSessionStartsFresh(t *testing.T) {
	userRepo := new(MockUserRepository)
	sessionRepo := new(MockSessionRepository)
	threadRepo := new(MockThreadRepository)
	messageRepo := new(MockMessageRepository)

	provider := &stubProvider{name: "botpress", events: []bot.Event{
		{Type: bot.EventTextDelta, Text: "hi"},
	}}
	svc := newTestChatService(provider, userRepo, sessionRepo, threadRepo, messageRepo)

	userRepo.On("GetByEmail", mock.Anything, "mallory@example.com").
		Return(&domain.User{ID: 13, Email: "mallory@example.com"}, nil)
	sessionRepo.On("GetOwned", mock.Anything, int64(42), int64(13)).
		Return(nil, domain.ErrNotFound)
	sessionRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ChatSession")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.ChatSession).ID = 77
		}).Return(nil)
	threadRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ChatThread")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.ChatThread).ID = 200
		}).Return(nil)
	messageRepo.On("ListByThread", mock.Anything, int64(200)).Return([]domain.ChatMessage{}, nil)
	messageRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	sessionRepo.On("Touch", mock.Anything, int64(77)).Return(nil)

	// A numeric handle that belongs to someone else falls back to a new
	// session instead of failing the turn.
	turn, err := svc.Turn(context.Background(), ChatRequest{
		Message:   "hello",
		SessionID: "42",
		ThreadID:  "9",
		Email:     "mallory@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(77), turn.SessionID)
	assert.Equal(t, int64(200), turn.ThreadID)
	drain(t, turn)

	// The foreign thread handle is never looked up inside the fresh session.
	threadRepo.AssertNotCalled(t, "GetInSession", mock.Anything, mock.Anything, mock.Anything)
}

func TestChatService_Turn_GarbageHandleStartsFresh(t *testing.T) {
	userRepo := new(MockUserRepository)
	sessionRepo := new(MockSessionRepository)
	threadRepo := new(MockThreadRepository)
	messageRepo := new(MockMessageRepository)

	provider := &stubProvider{name: "botpress", events: []bot.Event{
		{Type: bot.EventTextDelta, Text: "hi"},
	}}
	svc := newTestChatService(provider, userRepo, sessionRepo, threadRepo, messageRepo)

	userRepo.On("GetByEmail", mock.Anything, "jane@example.com").
		Return(&domain.User{ID: 7}, nil)
	sessionRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	threadRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	messageRepo.On("ListByThread", mock.Anything, mock.Anything).Return([]domain.ChatMessage{}, nil)
	messageRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	sessionRepo.On("Touch", mock.Anything, mock.Anything).Return(nil)

	turn, err := svc.Turn(context.Background(), ChatRequest{
		Message:   "hello",
		SessionID: "not-a-number",
		Email:     "jane@example.com",
	})
	require.NoError(t, err)
	drain(t, turn)

	sessionRepo.AssertCalled(t, "Create", mock.Anything, mock.Anything)
	sessionRepo.AssertNotCalled(t, "GetOwned", mock.Anything, mock.Anything, mock.Anything)
}

func TestChatService_Turn_IsNewChatOverridesHandles(t *testing.T) {
	userRepo := new(MockUserRepository)
	sessionRepo := new(MockSessionRepository)
	threadRepo := new(MockThreadRepository)
	messageRepo := new(MockMessageRepository)

	provider := &stubProvider{name: "botpress", events: []bot.Event{
		{Type: bot.EventTextDelta, Text: "hi"},
	}}
	svc := newTestChatService(provider, userRepo, sessionRepo, threadRepo, messageRepo)

	userRepo.On("GetByEmail", mock.Anything, "jane@example.com").
		Return(&domain.User{ID: 7}, nil)
	sessionRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ChatSession")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.ChatSession).ID = 43
		}).Return(nil)
	threadRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ChatThread")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.ChatThread).ID = 100
		}).Return(nil)
	messageRepo.On("ListByThread", mock.Anything, int64(100)).Return([]domain.ChatMessage{}, nil)
	messageRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	sessionRepo.On("Touch", mock.Anything, int64(43)).Return(nil)

	turn, err := svc.Turn(context.Background(), ChatRequest{
		Message:   "start over",
		SessionID: "42",
		ThreadID:  "99",
		IsNewChat: true,
		Email:     "jane@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(43), turn.SessionID)
	drain(t, turn)

	// The stale numeric handles are never looked up.
	sessionRepo.AssertNotCalled(t, "GetOwned", mock.Anything, mock.Anything, mock.Anything)
	threadRepo.AssertNotCalled(t, "GetInSession", mock.Anything, mock.Anything, mock.Anything)
}

func TestChatService_Turn_ProviderFailureEmitsError(t *testing.T) {
	userRepo := new(MockUserRepository)
	sessionRepo := new(MockSessionRepository)
	threadRepo := new(MockThreadRepository)
	messageRepo := new(MockMessageRepository)

	provider := &stubProvider{name: "botpress", err: errors.New("upstream timeout")}
	svc := newTestChatService(provider, userRepo, sessionRepo, threadRepo, messageRepo)

	userRepo.On("GetByEmail", mock.Anything, "jane@example.com").
		Return(&domain.User{ID: 7}, nil)
	sessionRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	threadRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	messageRepo.On("ListByThread", mock.Anything, mock.Anything).Return([]domain.ChatMessage{}, nil)
	messageRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	sessionRepo.On("Touch", mock.Anything, mock.Anything).Return(nil)

	turn, err := svc.Turn(context.Background(), ChatRequest{
		Message: "hello",
		Email:   "jane@example.com",
	})
	require.NoError(t, err)

	_, streamErr := drain(t, turn)
	require.Error(t, streamErr)
	assert.Contains(t, streamErr.Error(), "upstream timeout")

	// Only the user message is persisted on a failed stream.
	messageRepo.AssertNumberOfCalls(t, "Create", 1)
}

func TestChatService_Turn_MarkersLiftedFromText(t *testing.T) {
	userRepo := new(MockUserRepository)
	sessionRepo := new(MockSessionRepository)
	threadRepo := new(MockThreadRepository)
	messageRepo := new(MockMessageRepository)

	provider := &stubProvider{name: "botpress", events: []bot.Event{
		{Type: bot.EventTextDelta, Text: `Pick one:__CHOICES__[{"title":"Yes","value":"YES"}]__END_CHOICES__`},
	}}
	svc := newTestChatService(provider, userRepo, sessionRepo, threadRepo, messageRepo)

	userRepo.On("GetByEmail", mock.Anything, "jane@example.com").
		Return(&domain.User{ID: 7}, nil)
	sessionRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	threadRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	messageRepo.On("ListByThread", mock.Anything, mock.Anything).Return([]domain.ChatMessage{}, nil)
	messageRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	sessionRepo.On("Touch", mock.Anything, mock.Anything).Return(nil)

	turn, err := svc.Turn(context.Background(), ChatRequest{Message: "hi", Email: "jane@example.com"})
	require.NoError(t, err)

	events, streamErr := drain(t, turn)
	assert.NoError(t, streamErr)
	require.Len(t, events, 2)
	assert.Equal(t, bot.EventTextDelta, events[0].Type)
	assert.Equal(t, "Pick one:", events[0].Text)
	assert.Equal(t, bot.EventChoices, events[1].Type)
	require.Len(t, events[1].Choices, 1)
	assert.Equal(t, "YES", events[1].Choices[0].Value)

	// The persisted assistant message carries no marker text.
	created := messageRepo.Calls[len(messageRepo.Calls)-1].Arguments.Get(1).(*domain.ChatMessage)
	assert.Equal(t, "Pick one:", created.Content)
	assert.NotContains(t, created.Content, "__CHOICES__")
}

func TestChatService_MergeUser(t *testing.T) {
	t.Run("rename when target email is free", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		sessionRepo := new(MockSessionRepository)
		svc := NewChatService(bot.NewRegistry("botpress"), userRepo, sessionRepo, nil, nil, nil)

		userRepo.On("GetByEmail", mock.Anything, "old@example.com").
			Return(&domain.User{ID: 1, Email: "old@example.com"}, nil)
		userRepo.On("GetByEmail", mock.Anything, "new@example.com").
			Return(nil, domain.ErrNotFound)
		userRepo.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.ID == 1 && u.Email == "new@example.com"
		})).Return(nil)

		user, err := svc.MergeUser(context.Background(), domain.UserUpdate{
			CurrentEmail: "old@example.com",
			NewEmail:     "new@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", user.Email)
		sessionRepo.AssertNotCalled(t, "ReassignUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("merge into existing identity", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		sessionRepo := new(MockSessionRepository)
		svc := NewChatService(bot.NewRegistry("botpress"), userRepo, sessionRepo, nil, nil, nil)

		userRepo.On("GetByEmail", mock.Anything, "old@example.com").
			Return(&domain.User{ID: 1}, nil)
		userRepo.On("GetByEmail", mock.Anything, "existing@example.com").
			Return(&domain.User{ID: 2, Email: "existing@example.com"}, nil)
		sessionRepo.On("ReassignUser", mock.Anything, int64(1), int64(2)).Return(nil)
		userRepo.On("Delete", mock.Anything, int64(1)).Return(nil)

		user, err := svc.MergeUser(context.Background(), domain.UserUpdate{
			CurrentEmail: "old@example.com",
			NewEmail:     "existing@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), user.ID)
		sessionRepo.AssertExpectations(t)
		userRepo.AssertExpectations(t)
	})
}

func TestChatService_ResolveUser_DerivesNameFromEmail(t *testing.T) {
	userRepo := new(MockUserRepository)
	svc := NewChatService(bot.NewRegistry("botpress"), userRepo, nil, nil, nil, nil)

	userRepo.On("GetByEmail", mock.Anything, "jane.doe@example.com").
		Return(nil, domain.ErrNotFound)
	userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "jane.doe@example.com" && u.Name == "jane.doe"
	})).Return(nil)

	user, err := svc.resolveUser(context.Background(), ChatRequest{Email: "Jane.Doe@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "jane.doe", user.Name)
	userRepo.AssertExpectations(t)
}

func TestSessionTitle(t *testing.T) {
	assert.Equal(t, "New Chat", sessionTitle("   "))
	assert.Equal(t, "hello", sessionTitle("hello"))

	long := strings.Repeat("a", 80)
	title := sessionTitle(long)
	assert.Len(t, title, 53)
	assert.True(t, strings.HasSuffix(title, "..."))

	// Truncation never splits a multi-byte character.
	wide := strings.Repeat("日", 60)
	title = sessionTitle(wide)
	assert.True(t, utf8.ValidString(title))
	assert.Equal(t, strings.Repeat("日", 50)+"...", title)
}
