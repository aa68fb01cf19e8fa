package worker

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/sitelog/internal/chat"
	"github.com/thebtf/sitelog/internal/llm"
)

// Chat error bodies shown to the browser.
const (
	msgNotConfigured = "OpenAI API key not configured"
	msgQuota         = "OpenAI API quota exceeded. Please check your billing."
	msgUnauthorized  = "Invalid OpenAI API key."
	msgNoResponse    = "No response generated"
	msgInternal      = "Internal server error"
)

// handleChat runs one assistant turn.
//
//	@Summary	Ask the site assistant
//	@Tags		ai
//	@Accept		json
//	@Produce	json
//	@Param		request	body		chat.Request	true	"Chat turn"
//	@Success	200		{object}	chat.Response
//	@Failure	401		{object}	map[string]string
//	@Failure	429		{object}	map[string]string
//	@Failure	500		{object}	map[string]string
//	@Router		/api/ai [post]
func (s *Service) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := decodeJSON(w, r, &req); err != nil {
		log.Warn().Err(err).Msg("Undecodable chat request")
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	turn, err := s.chat.Reply(r.Context(), req)
	if err != nil {
		status, msg := chatErrorStatus(err)
		if msg == msgInternal {
			log.Error().Err(err).Str("sessionId", req.SessionID).Msg("Chat turn failed")
		}
		writeError(w, status, msg)
		return
	}

	for _, o := range turn.Failed() {
		log.Warn().Err(o.Err).Str("task", o.Name).Str("conversationId", turn.Response.ConversationID).Msg("Conversation logging failed")
	}
	writeJSON(w, turn.Response)
}

// chatErrorStatus maps a chat error to a status and client message.
func chatErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, chat.ErrNotConfigured):
		return http.StatusInternalServerError, msgNotConfigured
	case errors.Is(err, llm.ErrQuotaExceeded):
		return http.StatusTooManyRequests, msgQuota
	case errors.Is(err, llm.ErrUnauthorized):
		return http.StatusUnauthorized, msgUnauthorized
	case errors.Is(err, llm.ErrEmptyResponse):
		return http.StatusInternalServerError, msgNoResponse
	}
	return http.StatusInternalServerError, msgInternal
}

// QueryRequest is the body of the query endpoint.
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse is the canned reply of the query endpoint.
type QueryResponse struct {
	Response     string `json:"response"`
	LogsAnalyzed int64  `json:"logsAnalyzed"`
}

// handleQuery returns a simulated answer and the number of logs inspected.
// It does not call the model.
//
//	@Summary	Simulated log query
//	@Tags		ai
//	@Accept		json
//	@Produce	json
//	@Param		request	body		QueryRequest	true	"Query"
//	@Success	200		{object}	QueryResponse
//	@Router		/api/ai/query [post]
func (s *Service) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	counts, err := s.catalog.Counts(r.Context())
	if err != nil {
		writeStoreError(w, r, err, "log")
		return
	}
	writeJSON(w, QueryResponse{
		Response: fmt.Sprintf("Based on analysis of %d daily logs, here is what I found about %q: "+
			"this is a simulated response. Use the assistant chat for answers grounded in your data.",
			counts.DailyLogs, query),
		LogsAnalyzed: counts.DailyLogs,
	})
}
