package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/classifier"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/orchestrator"
	honeypototel "github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/otel"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/requestctx"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/session"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status": "healthy",
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
	}
	status := http.StatusOK
	if r.URL.Query().Get("detail") == "true" {
		components := make(map[string]string, len(s.checks))
		for name, check := range s.checks {
			if err := check(r.Context()); err != nil {
				components[name] = "error: " + err.Error()
				resp["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			components[name] = "ok"
		}
		resp["components"] = components
	}
	writeJSON(w, status, resp)
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "pong"})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, errors.New("request body too large"))
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := validateBody(s.schema, body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req orchestrator.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON: "+err.Error()))
		return
	}

	ctx := requestctx.WithSessionID(r.Context(), req.SessionID)
	resp, err := s.handler.Handle(ctx, req)
	if err != nil {
		status := statusFor(err)
		ev := log.Warn()
		if status >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Err(err).Func(honeypototel.LogTraceFields(ctx)).
			Str("session_id", req.SessionID).
			Str("caller", requestctx.Caller(ctx)).
			Int("status", status).
			Msg("message_rejected")
		if status >= http.StatusInternalServerError {
			err = errors.New("service temporarily unavailable")
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// sessionView is the inspection shape of a stored session.
type sessionView struct {
	SessionID     string                  `json:"sessionId"`
	State         session.State           `json:"state"`
	MessageCount  int                     `json:"messageCount"`
	ExchangeCount int                     `json:"exchangeCount"`
	Confidence    float64                 `json:"confidence"`
	ScamConfirmed bool                    `json:"scamConfirmed"`
	CallbackSent  bool                    `json:"callbackSent"`
	Category      string                  `json:"category,omitempty"`
	Metadata      session.Metadata        `json:"metadata"`
	Intelligence  classifier.Intelligence `json:"extractedIntelligence"`
	CreatedAt     time.Time               `json:"createdAt"`
	LastActivity  time.Time               `json:"lastActivity"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.handler.Session(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView{
		SessionID:     sess.ID,
		State:         sess.State,
		MessageCount:  len(sess.Messages),
		ExchangeCount: sess.ExchangeCount(),
		Confidence:    sess.Confidence,
		ScamConfirmed: sess.ScamConfirmed,
		CallbackSent:  sess.CallbackSent,
		Category:      sess.Category,
		Metadata:      sess.Metadata,
		Intelligence:  sess.Intelligence,
		CreatedAt:     sess.CreatedAt,
		LastActivity:  sess.LastActivity,
	})
}

// statusFor maps orchestrator errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrPersistence):
		return http.StatusServiceUnavailable
	case errors.Is(err, orchestrator.ErrAuth):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
