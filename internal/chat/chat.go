// Package chat runs one assistant turn: snapshot, prompt, model call and
// best-effort conversation logging.
package chat

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/sitelog/internal/assistant"
	"github.com/thebtf/sitelog/internal/llm"
	"github.com/thebtf/sitelog/internal/telemetry"
	"github.com/thebtf/sitelog/pkg/models"
)

// ContextSampleRate is the chance a turn with a session id re-logs context samples.
const ContextSampleRate = 0.1

// Context sample sizes.
const (
	sampleActionItems = 5
	sampleRecentLogs  = 3
)

// ErrNotConfigured is returned when no model credential is configured.
var ErrNotConfigured = errors.New("OpenAI API key not configured")

// errNoConversation marks logging skipped because no conversation record exists.
var errNoConversation = errors.New("conversation record unavailable")

// Snapshotter reads the data the assistant answers from.
type Snapshotter interface {
	Fetch(ctx context.Context) *models.Snapshot
}

// ConversationLog persists conversations, messages and context samples.
type ConversationLog interface {
	FindActiveBySession(ctx context.Context, sessionID string) (*models.Conversation, error)
	CreateConversation(ctx context.Context, sessionID, userID, title string) (*models.Conversation, error)
	AppendMessage(ctx context.Context, msg *models.ConversationMessage) error
	AppendContext(ctx context.Context, conversationID string, contextType models.ContextType, data any) error
}

// Request is the chat endpoint's body.
type Request struct {
	Message             string               `json:"message"`
	SessionID           string               `json:"sessionId"`
	UserID              string               `json:"userId"`
	ConversationHistory []models.ChatMessage `json:"conversationHistory"`
}

// Response is the chat endpoint's success body.
type Response struct {
	Response       string           `json:"response"`
	ConversationID string           `json:"conversationId"`
	SessionID      string           `json:"sessionId"`
	Metadata       ResponseMetadata `json:"metadata"`
}

// ResponseMetadata reports timing and token usage for a turn.
type ResponseMetadata struct {
	ResponseTime  int64 `json:"responseTime"`
	TokenCount    int   `json:"tokenCount"`
	ContextTokens int   `json:"contextTokens"`
}

// Outcome is the result of one best-effort task.
type Outcome struct {
	Name string
	Err  error
}

// Turn is a completed chat turn with the outcomes of its logging tasks.
type Turn struct {
	Response *Response
	Outcomes []Outcome
}

// Failed returns the outcomes that carry an error.
func (t *Turn) Failed() []Outcome {
	var out []Outcome
	for _, o := range t.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Config tunes model calls.
type Config struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

// Service orchestrates chat turns.
type Service struct {
	snapshots     Snapshotter
	conversations ConversationLog
	completer     llm.Completer
	tokens        *llm.TokenCounter
	metrics       *telemetry.Metrics
	cfg           Config

	now  func() time.Time
	rand func() float64
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRandom overrides the source used for context sampling.
func WithRandom(r func() float64) Option {
	return func(s *Service) { s.rand = r }
}

// WithMetrics records turns on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a chat service. completer may be nil when no credential
// is configured; every turn then fails with ErrNotConfigured.
func NewService(snapshots Snapshotter, conversations ConversationLog, completer llm.Completer, cfg Config, opts ...Option) *Service {
	if cfg.Model == "" {
		cfg.Model = llm.DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = llm.DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = llm.DefaultTemperature
	}
	s := &Service{
		snapshots:     snapshots,
		conversations: conversations,
		completer:     completer,
		tokens:        &llm.TokenCounter{},
		cfg:           cfg,
		now:           time.Now,
		rand:          rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether a model credential is available.
func (s *Service) Configured() bool {
	return s.completer != nil
}

// Reply runs one chat turn.
func (s *Service) Reply(ctx context.Context, req Request) (*Turn, error) {
	if s.completer == nil {
		s.metrics.RecordChat(ctx, "not_configured", 0, 0)
		return nil, ErrNotConfigured
	}

	start := s.now()
	turn := &Turn{}

	snap := s.snapshots.Fetch(ctx)
	contextBlock := assistant.BuildContext(snap, start)
	contextTokens := s.tokens.Count(contextBlock)

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("session_%d", start.UnixMilli())
	}

	conversationID, persisted := s.resolveConversation(ctx, turn, sessionID, req)

	turn.record(ctx, s.metrics, "log_user_message", func() error {
		if !persisted {
			return errNoConversation
		}
		return s.conversations.AppendMessage(ctx, &models.ConversationMessage{
			ConversationID: conversationID,
			Role:           models.RoleUser,
			Content:        req.Message,
		})
	})

	if req.SessionID == "" || s.rand() < ContextSampleRate {
		turn.record(ctx, s.metrics, "log_context", func() error {
			if !persisted {
				return errNoConversation
			}
			return s.logContext(ctx, conversationID, snap)
		})
	}

	messages := assistant.BuildMessages(assistant.SystemPrompt(contextBlock), req.ConversationHistory, req.Message)
	completion, err := s.completer.Complete(ctx, llm.Request{
		Model:       s.cfg.Model,
		Messages:    messages,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	elapsed := s.now().Sub(start)
	if err != nil {
		s.metrics.RecordChat(ctx, statusFor(err), elapsed, 0)
		return nil, err
	}
	if completion.Content == "" {
		s.metrics.RecordChat(ctx, "empty", elapsed, completion.TotalTokens)
		return nil, llm.ErrEmptyResponse
	}

	responseTime := elapsed.Milliseconds()
	turn.record(ctx, s.metrics, "log_assistant_message", func() error {
		if !persisted {
			return errNoConversation
		}
		return s.conversations.AppendMessage(ctx, assistantMessage(conversationID, s.cfg.Model, completion, responseTime))
	})

	s.metrics.RecordChat(ctx, "ok", elapsed, completion.TotalTokens)
	log.Info().
		Str("sessionId", sessionID).
		Str("conversationId", conversationID).
		Int64("responseTimeMs", responseTime).
		Int("tokens", completion.TotalTokens).
		Int("contextTokens", contextTokens).
		Int("failedTasks", len(turn.Failed())).
		Msg("Chat turn completed")

	turn.Response = &Response{
		Response:       completion.Content,
		ConversationID: conversationID,
		SessionID:      sessionID,
		Metadata: ResponseMetadata{
			ResponseTime:  responseTime,
			TokenCount:    completion.TotalTokens,
			ContextTokens: contextTokens,
		},
	}
	return turn, nil
}

// resolveConversation finds or creates the conversation for sessionID. On
// failure it returns a temporary id and persisted=false.
func (s *Service) resolveConversation(ctx context.Context, turn *Turn, sessionID string, req Request) (string, bool) {
	var conv *models.Conversation
	turn.record(ctx, s.metrics, "find_or_create_conversation", func() error {
		if req.SessionID != "" {
			existing, err := s.conversations.FindActiveBySession(ctx, req.SessionID)
			if err != nil {
				return err
			}
			if existing != nil {
				conv = existing
				return nil
			}
		}
		created, err := s.conversations.CreateConversation(ctx, sessionID, req.UserID, models.DeriveTitle(req.Message))
		if err != nil {
			return err
		}
		conv = created
		return nil
	})
	if conv == nil {
		return fmt.Sprintf("temp_%d", s.now().UnixMilli()), false
	}
	return conv.ID, true
}

func (s *Service) logContext(ctx context.Context, conversationID string, snap *models.Snapshot) error {
	samples := []struct {
		kind models.ContextType
		data map[string]any
	}{
		{models.ContextActionItems, map[string]any{
			"total": len(snap.ActionItems),
			"items": head(snap.DetailedActionItems, sampleActionItems),
		}},
		{models.ContextProjects, map[string]any{
			"total":    len(snap.Projects),
			"projects": snap.Projects,
		}},
		{models.ContextDailyLogs, map[string]any{
			"total":  snap.DailyLogCount,
			"recent": head(snap.RecentLogs, sampleRecentLogs),
		}},
	}
	for _, sample := range samples {
		if err := s.conversations.AppendContext(ctx, conversationID, sample.kind, sample.data); err != nil {
			return err
		}
	}
	return nil
}

func assistantMessage(conversationID, model string, c *llm.Completion, responseTime int64) *models.ConversationMessage {
	msg := &models.ConversationMessage{
		ConversationID: conversationID,
		Role:           models.RoleAssistant,
		Content:        c.Content,
		ModelUsed:      &model,
		ResponseTimeMs: &responseTime,
	}
	if c.TotalTokens > 0 {
		total := c.TotalTokens
		msg.TokenCount = &total
	}
	if c.PromptTokens > 0 || c.CompletionTokens > 0 {
		msg.Metadata = &models.MessageMetadata{
			PromptTokens:     c.PromptTokens,
			CompletionTokens: c.CompletionTokens,
			TotalTokens:      c.TotalTokens,
		}
	}
	return msg
}

// record runs a best-effort task and keeps its outcome. Failures are logged
// and never propagate.
func (t *Turn) record(ctx context.Context, metrics *telemetry.Metrics, name string, fn func() error) {
	err := fn()
	if err != nil {
		log.Warn().Err(err).Str("task", name).Msg("Chat logging task failed")
		metrics.RecordTaskFailure(ctx, name)
	}
	t.Outcomes = append(t.Outcomes, Outcome{Name: name, Err: err})
}

func statusFor(err error) string {
	switch {
	case errors.Is(err, llm.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, llm.ErrUnauthorized):
		return "unauthorized"
	}
	return "error"
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
