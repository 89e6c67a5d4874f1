package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/regulynx/compliance-chat/internal/api/middleware"
	"github.com/regulynx/compliance-chat/internal/api/response"
	"github.com/regulynx/compliance-chat/internal/bot"
	"github.com/regulynx/compliance-chat/internal/domain"
	"github.com/regulynx/compliance-chat/internal/service"
	"github.com/rs/zerolog/log"
)

// ChatHandler handles chat endpoints
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type chatRequest struct {
	Message     string `json:"message" validate:"required"`
	SessionID   string `json:"session_id,omitempty"`
	ThreadID    string `json:"thread_id,omitempty"`
	Provider    string `json:"provider,omitempty"`
	AppID       string `json:"app_id,omitempty"`
	Email       string `json:"email" validate:"required,email"`
	Name        string `json:"name,omitempty"`
	Designation string `json:"designation,omitempty"`
	IsNewChat   bool   `json:"is_new_chat,omitempty"`
}

// sseFrame is one server-sent data frame of a chat turn.
type sseFrame struct {
	Response       string                            `json:"response"`
	SessionID      int64                             `json:"session_id"`
	ThreadID       int64                             `json:"thread_id"`
	Choices        []bot.Choice                      `json:"choices,omitempty"`
	Acts           *bot.ActsPayload                  `json:"acts,omitempty"`
	DailyUpdates   map[string][]domain.MonthlyUpdate `json:"dailyUpdates,omitempty"`
	SwitchProvider string                            `json:"switch_provider,omitempty"`
	NewMessage     bool                              `json:"new_message,omitempty"`
	Error          string                            `json:"error,omitempty"`
	Done           bool                              `json:"done,omitempty"`
}

// Chat streams one chat turn over server-sent events.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalError(w, "streaming unsupported")
		return
	}

	turn, err := h.chatService.Turn(r.Context(), service.ChatRequest{
		Message:     req.Message,
		SessionID:   req.SessionID,
		ThreadID:    req.ThreadID,
		Provider:    req.Provider,
		AppID:       req.AppID,
		Email:       req.Email,
		Name:        req.Name,
		Designation: req.Designation,
		IsNewChat:   req.IsNewChat,
		Tenant:      middleware.GetTenant(r.Context()),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedProvider):
			response.BadRequest(w, err.Error())
		case errors.Is(err, domain.ErrNotFound):
			response.NotFound(w, err.Error())
		default:
			response.InternalError(w, err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	writeFrame := func(frame sseFrame) {
		frame.SessionID = turn.SessionID
		frame.ThreadID = turn.ThreadID
		data, err := json.Marshal(frame)
		if err != nil {
			log.Error().Err(err).Msg("failed to marshal SSE frame")
			return
		}
		w.Write([]byte("data: "))
		w.Write(data)
		w.Write([]byte("\n\n"))
		flusher.Flush()
	}

	for ev := range turn.Events {
		switch ev.Type {
		case bot.EventTextDelta:
			writeFrame(sseFrame{Response: ev.Text})
		case bot.EventChoices:
			writeFrame(sseFrame{Choices: ev.Choices})
		case bot.EventActs:
			writeFrame(sseFrame{Acts: ev.Acts})
		case bot.EventDailyUpdates:
			writeFrame(sseFrame{DailyUpdates: ev.Updates})
		case bot.EventProviderSwitch:
			writeFrame(sseFrame{SwitchProvider: ev.Provider})
		case bot.EventMessageBoundary:
			writeFrame(sseFrame{NewMessage: true})
		}
	}

	if err := <-turn.Errs; err != nil {
		writeFrame(sseFrame{Error: "the assistant is unavailable right now, please try again"})
		return
	}

	writeFrame(sseFrame{Done: true})
}

// ListSessions lists the caller's chat sessions
func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		response.BadRequest(w, "email is required")
		return
	}

	sessions, err := h.chatService.ListSessions(r.Context(), email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "user not found")
			return
		}
		response.InternalError(w, err.Error())
		return
	}
	response.OK(w, map[string]any{"sessions": sessions})
}

// ListThreads lists the threads of one owned session
func (h *ChatHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		response.BadRequest(w, "email is required")
		return
	}
	sessionID, err := pathID(r, "sessionID")
	if err != nil {
		response.BadRequest(w, "invalid session ID")
		return
	}

	threads, err := h.chatService.ListThreads(r.Context(), email, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "session not found")
			return
		}
		response.InternalError(w, err.Error())
		return
	}
	response.OK(w, map[string]any{"threads": threads})
}

// ListMessages lists the messages of one owned thread, oldest first
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		response.BadRequest(w, "email is required")
		return
	}
	sessionID, err := pathID(r, "sessionID")
	if err != nil {
		response.BadRequest(w, "invalid session ID")
		return
	}
	threadID, err := pathID(r, "threadID")
	if err != nil {
		response.BadRequest(w, "invalid thread ID")
		return
	}

	messages, err := h.chatService.ListMessages(r.Context(), email, sessionID, threadID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "thread not found")
			return
		}
		response.InternalError(w, err.Error())
		return
	}
	response.OK(w, map[string]any{"messages": messages})
}

// UpdateUser renames or merges a user identity
func (h *ChatHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var upd domain.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(upd); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	user, err := h.chatService.MergeUser(r.Context(), upd)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "user not found")
			return
		}
		response.InternalError(w, err.Error())
		return
	}
	response.OK(w, user)
}

func pathID(r *http.Request, param string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, param), 10, 64)
}
