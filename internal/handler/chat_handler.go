package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/bitiz/tirebot-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// chatMessageHandler serves one conversation turn.
// POST /v1/chat/message with { message, sessionId? }.
func chatMessageHandler(chat ChatProcessor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/chat/message")
		defer span.End()

		var req domain.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}
		span.SetAttributes(attribute.String("chat.session_id", req.SessionID))

		origin := originFrom(r)
		resp := chat.ProcessMessage(ctx, &req, origin)

		writeJSON(w, http.StatusOK, resp)
	}
}

// originFrom identifies the embedding site for per-domain canned
// responses: explicit ?domain= first, then the Referer host.
func originFrom(r *http.Request) string {
	if d := r.URL.Query().Get("domain"); d != "" {
		return d
	}
	ref := r.Header.Get("Referer")
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
