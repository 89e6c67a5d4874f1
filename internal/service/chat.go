package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/regulynx/compliance-chat/internal/bot"
	"github.com/regulynx/compliance-chat/internal/domain"
	"github.com/regulynx/compliance-chat/internal/repository/redis"
	"github.com/rs/zerolog/log"
)

const newChatHandle = "new"

// ChatRequest is one inbound chat turn after authentication.
type ChatRequest struct {
	Message     string
	SessionID   string // "new", empty, or a numeric handle
	ThreadID    string // "new", empty, or a numeric handle
	Provider    string
	AppID       string // upstream bot override; falls back to the tenant's bot
	Email       string
	Name        string
	Designation string
	IsNewChat   bool
	Tenant      *domain.WidgetConfig // nil for static-key callers
}

// Turn is a resolved, in-flight chat turn. Events carries the provider's
// reply stream until the turn completes; Errs delivers at most one terminal
// error. Both channels are closed when the turn ends.
type Turn struct {
	SessionID int64
	ThreadID  int64
	Events    <-chan bot.Event
	Errs      <-chan error
}

// ChatService orchestrates chat turns: it resolves the user, session and
// thread handles, persists both sides of the exchange, and relays the
// provider's event stream with embedded reply markers lifted into typed
// events.
type ChatService struct {
	registry    *bot.Registry
	userRepo    domain.UserRepository
	sessionRepo domain.SessionRepository
	threadRepo  domain.ThreadRepository
	messageRepo domain.MessageRepository
	history     *redis.HistoryCache
}

// NewChatService creates a new chat service
func NewChatService(
	registry *bot.Registry,
	userRepo domain.UserRepository,
	sessionRepo domain.SessionRepository,
	threadRepo domain.ThreadRepository,
	messageRepo domain.MessageRepository,
	history *redis.HistoryCache,
) *ChatService {
	return &ChatService{
		registry:    registry,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		threadRepo:  threadRepo,
		messageRepo: messageRepo,
		history:     history,
	}
}

// Turn executes one chat turn. The provider is resolved before anything is
// persisted, so an unknown provider name leaves no half-written turn behind.
func (s *ChatService) Turn(ctx context.Context, req ChatRequest) (*Turn, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("message is required")
	}

	provider, err := s.registry.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	user, err := s.resolveUser(ctx, req)
	if err != nil {
		return nil, err
	}

	session, thread, err := s.resolveConversation(ctx, user.ID, req)
	if err != nil {
		return nil, err
	}

	history, err := s.loadHistory(ctx, session.ID, thread.ID)
	if err != nil {
		log.Error().Err(err).Int64("thread_id", thread.ID).Msg("failed to load chat history")
		history = nil
	}

	userMsg := &domain.ChatMessage{
		ThreadID: thread.ID,
		Role:     domain.RoleUser,
		Content:  req.Message,
	}
	if err := s.messageRepo.Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}
	s.cacheAppend(ctx, session.ID, thread.ID, domain.RoleUser, req.Message)

	if err := s.sessionRepo.Touch(ctx, session.ID); err != nil {
		log.Error().Err(err).Int64("session_id", session.ID).Msg("failed to touch session")
	}

	botID := req.AppID
	if botID == "" && req.Tenant != nil {
		botID = req.Tenant.BotID
	}

	turnReq := bot.TurnRequest{
		Message:        req.Message,
		ConversationID: fmt.Sprintf("%d-%d", session.ID, thread.ID),
		BotID:          botID,
		History:        history,
	}

	events := make(chan bot.Event)
	errs := make(chan error, 1)
	go s.relay(ctx, provider, turnReq, session.ID, thread.ID, events, errs)

	return &Turn{
		SessionID: session.ID,
		ThreadID:  thread.ID,
		Events:    events,
		Errs:      errs,
	}, nil
}

// relay consumes the provider stream, lifts markers embedded in text deltas
// into typed events, and persists the assistant's visible reply once the
// stream ends.
func (s *ChatService) relay(
	ctx context.Context,
	provider bot.Provider,
	req bot.TurnRequest,
	sessionID, threadID int64,
	out chan<- bot.Event,
	errs chan<- error,
) {
	defer close(out)
	defer close(errs)

	events, provErrs := provider.Stream(ctx, req)

	var reply strings.Builder
	forward := func(ev bot.Event) bool {
		if ev.Type == bot.EventTextDelta {
			visible, extracted := bot.ExtractMarkers(ev.Text)
			if visible != "" {
				reply.WriteString(visible)
				if !send(ctx, out, bot.Event{Type: bot.EventTextDelta, Text: visible}) {
					return false
				}
			}
			for _, ex := range extracted {
				if !send(ctx, out, ex) {
					return false
				}
			}
			return true
		}
		if ev.Type == bot.EventMessageBoundary {
			reply.WriteString("\n")
		}
		return send(ctx, out, ev)
	}

	var streamErr error
	for events != nil || provErrs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !forward(ev) {
				return
			}
		case err, ok := <-provErrs:
			if !ok {
				provErrs = nil
				continue
			}
			if err != nil {
				streamErr = err
			}
		case <-ctx.Done():
			return
		}
	}

	if streamErr != nil {
		log.Error().Err(streamErr).Str("provider", provider.Name()).Msg("provider stream failed")
		errs <- streamErr
		return
	}

	content := strings.TrimSpace(reply.String())
	if content == "" {
		return
	}

	// Persistence runs on a fresh context so a client disconnect after the
	// stream completed cannot lose the assistant's side of the turn.
	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	aiMsg := &domain.ChatMessage{
		ThreadID: threadID,
		Role:     domain.RoleAssistant,
		Content:  content,
	}
	if err := s.messageRepo.Create(saveCtx, aiMsg); err != nil {
		log.Error().Err(err).Int64("thread_id", threadID).Msg("failed to save assistant message")
		return
	}
	s.cacheAppend(saveCtx, sessionID, threadID, domain.RoleAssistant, content)
}

func send(ctx context.Context, out chan<- bot.Event, ev bot.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// resolveUser finds or creates the user behind the request's email identity.
func (s *ChatService) resolveUser(ctx context.Context, req ChatRequest) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if err != domain.ErrNotFound {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		// Display name defaults to the identity's local part.
		name = strings.SplitN(email, "@", 2)[0]
	}

	user = &domain.User{
		Email:       email,
		Name:        name,
		Designation: req.Designation,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// resolveConversation turns the request's session and thread handles into
// persisted records. "new", an empty handle, or the is_new_chat flag all
// force creation. A numeric handle is reused only when it resolves to a
// record the caller owns; any unusable handle falls back to creating a
// fresh record rather than failing the turn.
func (s *ChatService) resolveConversation(ctx context.Context, userID int64, req ChatRequest) (*domain.ChatSession, *domain.ChatThread, error) {
	title := sessionTitle(req.Message)

	sessionHandle := req.SessionID
	threadHandle := req.ThreadID
	if req.IsNewChat {
		sessionHandle = newChatHandle
		threadHandle = newChatHandle
	}

	session, err := s.lookupSession(ctx, userID, sessionHandle)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		session = &domain.ChatSession{UserID: userID, Title: title}
		if err := s.sessionRepo.Create(ctx, session); err != nil {
			return nil, nil, fmt.Errorf("failed to create session: %w", err)
		}
		// A fresh session never continues an old thread.
		threadHandle = newChatHandle
	}

	thread, err := s.lookupThread(ctx, session.ID, threadHandle)
	if err != nil {
		return nil, nil, err
	}
	if thread == nil {
		thread = &domain.ChatThread{SessionID: session.ID, Title: title}
		if err := s.threadRepo.Create(ctx, thread); err != nil {
			return nil, nil, fmt.Errorf("failed to create thread: %w", err)
		}
	}

	return session, thread, nil
}

// lookupSession resolves a numeric handle to a session the caller owns. A
// non-numeric handle, or one pointing at a session the caller does not own,
// yields nil so the turn starts over in a new session.
func (s *ChatService) lookupSession(ctx context.Context, userID int64, handle string) (*domain.ChatSession, error) {
	if isNewHandle(handle) {
		return nil, nil
	}
	id, err := parseHandle(handle)
	if err != nil {
		log.Warn().Str("session_id", handle).Msg("unusable session handle, starting a new session")
		return nil, nil
	}
	session, err := s.sessionRepo.GetOwned(ctx, id, userID)
	if err != nil {
		if err == domain.ErrNotFound {
			log.Warn().Int64("session_id", id).Msg("session not owned by caller, starting a new session")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// lookupThread mirrors lookupSession within one session.
func (s *ChatService) lookupThread(ctx context.Context, sessionID int64, handle string) (*domain.ChatThread, error) {
	if isNewHandle(handle) {
		return nil, nil
	}
	id, err := parseHandle(handle)
	if err != nil {
		log.Warn().Str("thread_id", handle).Msg("unusable thread handle, starting a new thread")
		return nil, nil
	}
	thread, err := s.threadRepo.GetInSession(ctx, id, sessionID)
	if err != nil {
		if err == domain.ErrNotFound {
			log.Warn().Int64("thread_id", id).Msg("thread not in session, starting a new thread")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}
	return thread, nil
}

// loadHistory prefers the cache mirror and falls back to the relational
// store, warming the cache when it was empty.
func (s *ChatService) loadHistory(ctx context.Context, sessionID, threadID int64) ([]domain.ChatMessage, error) {
	if s.history != nil {
		cached, err := s.history.List(ctx, sessionID, threadID)
		if err == nil && len(cached) > 0 {
			return cached, nil
		}
		if err != nil {
			log.Warn().Err(err).Int64("thread_id", threadID).Msg("history cache read failed")
		}
	}

	messages, err := s.messageRepo.ListByThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	if s.history != nil {
		for _, m := range messages {
			s.cacheAppend(ctx, sessionID, threadID, m.Role, m.Content)
		}
	}
	return messages, nil
}

func (s *ChatService) cacheAppend(ctx context.Context, sessionID, threadID int64, role domain.MessageRole, content string) {
	if s.history == nil {
		return
	}
	if err := s.history.Append(ctx, sessionID, threadID, role, content); err != nil {
		log.Warn().Err(err).Int64("thread_id", threadID).Msg("history cache write failed")
	}
}

// ListSessions lists the sessions owned by the user behind the email.
func (s *ChatService) ListSessions(ctx context.Context, email string) ([]domain.ChatSession, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	return s.sessionRepo.ListByUser(ctx, user.ID)
}

// ListThreads lists the threads of a session the user owns.
func (s *ChatService) ListThreads(ctx context.Context, email string, sessionID int64) ([]domain.ChatThread, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if _, err := s.sessionRepo.GetOwned(ctx, sessionID, user.ID); err != nil {
		return nil, err
	}
	return s.threadRepo.ListBySession(ctx, sessionID)
}

// ListMessages lists the messages of a thread inside a session the user
// owns, oldest first.
func (s *ChatService) ListMessages(ctx context.Context, email string, sessionID, threadID int64) ([]domain.ChatMessage, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if _, err := s.sessionRepo.GetOwned(ctx, sessionID, user.ID); err != nil {
		return nil, err
	}
	if _, err := s.threadRepo.GetInSession(ctx, threadID, sessionID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListByThread(ctx, threadID)
}

// MergeUser renames a user's email identity. When the target email already
// belongs to another user, the current user's sessions move to that user and
// the now-empty identity is deleted.
func (s *ChatService) MergeUser(ctx context.Context, upd domain.UserUpdate) (*domain.User, error) {
	current, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(upd.CurrentEmail)))
	if err != nil {
		return nil, err
	}

	newEmail := strings.ToLower(strings.TrimSpace(upd.NewEmail))
	existing, err := s.userRepo.GetByEmail(ctx, newEmail)
	if err != nil && err != domain.ErrNotFound {
		return nil, fmt.Errorf("failed to look up target user: %w", err)
	}

	if existing != nil && existing.ID != current.ID {
		if err := s.sessionRepo.ReassignUser(ctx, current.ID, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to reassign sessions: %w", err)
		}
		if err := s.userRepo.Delete(ctx, current.ID); err != nil {
			log.Error().Err(err).Int64("user_id", current.ID).Msg("failed to delete merged user")
		}
		if upd.Name != "" {
			existing.Name = upd.Name
			if err := s.userRepo.Update(ctx, existing); err != nil {
				return nil, fmt.Errorf("failed to update user: %w", err)
			}
		}
		log.Info().Int64("from", current.ID).Int64("to", existing.ID).Msg("merged user identities")
		return existing, nil
	}

	current.Email = newEmail
	if upd.Name != "" {
		current.Name = upd.Name
	}
	if err := s.userRepo.Update(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return current, nil
}

func isNewHandle(h string) bool {
	return h == "" || strings.EqualFold(h, newChatHandle)
}

func parseHandle(h string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(h), 10, 64)
}

// sessionTitle derives a display title from the opening message. Truncation
// counts runes so a multi-byte character at the boundary is never split.
func sessionTitle(message string) string {
	title := strings.TrimSpace(message)
	if runes := []rune(title); len(runes) > 50 {
		title = string(runes[:50]) + "..."
	}
	if title == "" {
		title = "New Chat"
	}
	return title
}
