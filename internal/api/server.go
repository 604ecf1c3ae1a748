// Package api exposes the assistant over a small JSON HTTP interface used by
// the dashboard.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/pathakanu/inboxpilot/internal/assistant"
	"github.com/pathakanu/inboxpilot/internal/reminder"
)

const maxBodyBytes = 1 << 20

// Server routes dashboard requests to an Assistant.
type Server struct {
	assistant *assistant.Assistant
	logger    *log.Logger
	mux       *http.ServeMux
	whatsApp  *whatsAppWebhook
}

// NewServer registers every route on a fresh mux.
func NewServer(a *assistant.Assistant, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Server{assistant: a, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/emails/fetch", s.handleFetch)
	mux.HandleFunc("GET /api/emails", s.handleEmails)
	mux.HandleFunc("POST /api/emails/{index}/reply", s.handleReply)
	mux.HandleFunc("POST /api/emails/{index}/send", s.handleSend)
	mux.HandleFunc("POST /api/emails/{index}/chat", s.handleEmailChat)
	mux.HandleFunc("GET /api/emails/{index}/chat", s.handleEmailChatHistory)
	mux.HandleFunc("DELETE /api/emails/{index}/chat", s.handleClearEmailChat)
	mux.HandleFunc("POST /api/emails/{index}/reminder", s.handleSetReminder)

	mux.HandleFunc("GET /api/reminders", s.handleReminders)
	mux.HandleFunc("POST /api/reminders/{id}/complete", s.handleCompleteReminder)
	mux.HandleFunc("DELETE /api/reminders/completed", s.handleClearCompleted)
	mux.HandleFunc("GET /api/reminders/archive", s.handleArchive)

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/chat", s.handleChatHistory)
	mux.HandleFunc("DELETE /api/chat", s.handleClearChat)

	for _, opt := range opts {
		opt(s, mux)
	}
	s.mux = mux
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type fetchRequest struct {
	Limit int `json:"limit"`
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.respondJSON(w, http.StatusOK, s.assistant.FetchAndProcess(r.Context(), req.Limit))
}

func (s *Server) handleEmails(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"emails": s.assistant.Emails(),
		"stats":  s.assistant.Stats(),
	})
}

type replyRequest struct {
	Tone string `json:"tone"`
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	index, ok := s.index(w, r)
	if !ok {
		return
	}
	var req replyRequest
	if !s.decode(w, r, &req) {
		return
	}
	reply, err := s.assistant.GenerateReply(r.Context(), index, req.Tone)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

type sendRequest struct {
	Body string `json:"body"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	index, ok := s.index(w, r)
	if !ok {
		return
	}
	var req sendRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Body == "" {
		s.respondJSON(w, http.StatusBadRequest, errorBody("message body required"))
		return
	}
	sent, err := s.assistant.SendReply(r.Context(), index, req.Body)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"sent": sent})
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleEmailChat(w http.ResponseWriter, r *http.Request) {
	index, ok := s.index(w, r)
	if !ok {
		return
	}
	var req chatRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Message == "" {
		s.respondJSON(w, http.StatusBadRequest, errorBody("message required"))
		return
	}
	response, history, err := s.assistant.ChatAboutEmail(r.Context(), index, req.Message)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"response": response, "history": history})
}

func (s *Server) handleEmailChatHistory(w http.ResponseWriter, r *http.Request) {
	index, ok := s.index(w, r)
	if !ok {
		return
	}
	history, err := s.assistant.EmailChatHistory(index)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (s *Server) handleClearEmailChat(w http.ResponseWriter, r *http.Request) {
	index, ok := s.index(w, r)
	if !ok {
		return
	}
	cleared, err := s.assistant.ClearEmailChat(index)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"cleared": cleared})
}

type reminderRequest struct {
	Custom *reminder.Extraction `json:"custom"`
}

func (s *Server) handleSetReminder(w http.ResponseWriter, r *http.Request) {
	index, ok := s.index(w, r)
	if !ok {
		return
	}
	var req reminderRequest
	if !s.decode(w, r, &req) {
		return
	}
	created, ok, err := s.assistant.SetReminderForEmail(r.Context(), index, req.Custom)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if !ok {
		s.respondJSON(w, http.StatusOK, map[string]any{"created": false})
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{"created": true, "reminder": created})
}

func (s *Server) handleReminders(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{"reminders": s.assistant.Reminders()})
}

func (s *Server) handleCompleteReminder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorBody("invalid reminder id"))
		return
	}
	if !s.assistant.MarkReminderCompleted(id) {
		s.respondJSON(w, http.StatusNotFound, errorBody("reminder not found"))
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"completed": true})
}

func (s *Server) handleClearCompleted(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]int{"cleared": s.assistant.ClearCompletedReminders(r.Context())})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.respondJSON(w, http.StatusBadRequest, errorBody("since must be RFC 3339"))
			return
		}
		since = parsed
	}
	archived, err := s.assistant.ArchivedReminders(r.Context(), since)
	if err != nil {
		s.logger.Printf("api: list archive: %v", err)
		s.respondJSON(w, http.StatusInternalServerError, errorBody("unable to read archive"))
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"archived": archived})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Message == "" {
		s.respondJSON(w, http.StatusBadRequest, errorBody("message required"))
		return
	}
	response, history := s.assistant.GeneralChat(r.Context(), req.Message)
	s.respondJSON(w, http.StatusOK, map[string]any{"response": response, "history": history})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{"history": s.assistant.GeneralChatHistory()})
}

func (s *Server) handleClearChat(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]bool{"cleared": s.assistant.ClearGeneralChat()})
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.respondJSON(w, http.StatusBadRequest, errorBody("invalid email index"))
		return 0, false
	}
	return index, true
}

// decode reads an optional JSON body into v. An empty body leaves v as is.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	s.respondJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
	return false
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, assistant.ErrEmailNotFound) {
		s.respondJSON(w, http.StatusNotFound, errorBody(err.Error()))
		return
	}
	s.logger.Printf("api: %v", err)
	s.respondJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("api: encode response: %v", err)
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
