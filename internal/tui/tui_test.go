package tui

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/sitelog/internal/chat"
	"github.com/thebtf/sitelog/internal/threads"
	"github.com/thebtf/sitelog/pkg/models"
)

type stubAsker struct {
	reply     string
	err       error
	sessionID string
	message   string
	history   []models.ChatMessage
}

func (s *stubAsker) Ask(_ context.Context, message, sessionID string, history []models.ChatMessage) (string, error) {
	s.message = message
	s.sessionID = sessionID
	s.history = history
	return s.reply, s.err
}

func newTestModel(t *testing.T, a Asker) (Model, *threads.Store) {
	t.Helper()
	store := threads.NewStore(threads.NewMemoryPersister())
	require.NoError(t, store.Load())
	m := New(store, a)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model), store
}

func typeAndSend(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model), cmd
}

func TestClientAsk(t *testing.T) {
	var got chat.Request
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"Two crews on site.","conversationId":"c1","sessionId":"s1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret")
	history := []models.ChatMessage{{Role: models.RoleUser, Content: "hi"}, {Role: models.RoleAssistant, Content: "hello"}}
	reply, err := c.Ask(context.Background(), "who is on site?", "s1", history)
	require.NoError(t, err)

	assert.Equal(t, "Two crews on site.", reply)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "who is on site?", got.Message)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, history, got.ConversationHistory)
}

func TestClientAsk_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"error body", http.StatusTooManyRequests, `{"error":"OpenAI API quota exceeded. Please check your billing."}`, "OpenAI API quota exceeded. Please check your billing."},
		{"plain failure", http.StatusBadGateway, "bad gateway", "server returned 502 Bad Gateway"},
		{"undecodable reply", http.StatusOK, "not json", "decode reply"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Empty(t, r.Header.Get("Authorization"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "").Ask(context.Background(), "q", "s", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestModel_SendAndReply(t *testing.T) {
	asker := &stubAsker{reply: "Framing is 60% complete."}
	m, store := newTestModel(t, asker)
	threadID := store.Current().ID

	m, cmd := typeAndSend(t, m, "how is framing going?")
	require.NotNil(t, cmd)
	assert.True(t, m.waiting)
	assert.Empty(t, m.input.Value())
	assert.Equal(t, "how is framing going?", store.Current().Title)

	msg := cmd()
	assert.Equal(t, threadID, asker.sessionID)
	assert.Empty(t, asker.history, "history excludes the message being sent")

	updated, _ := m.Update(msg)
	m = updated.(Model)
	assert.False(t, m.waiting)
	assert.NoError(t, m.err)

	msgs := store.Current().Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Framing is 60% complete.", msgs[1].Content)
	assert.Contains(t, m.View(), "Framing is 60% complete.")

	_, cmd = typeAndSend(t, m, "and drywall?")
	cmd()
	assert.Len(t, asker.history, 2)
}

func TestModel_ErrorKeepsUserMessage(t *testing.T) {
	asker := &stubAsker{err: errors.New("Invalid OpenAI API key.")}
	m, store := newTestModel(t, asker)

	m, cmd := typeAndSend(t, m, "status?")
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	assert.False(t, m.waiting)
	require.Error(t, m.err)
	assert.Len(t, store.Current().Messages, 1)
	assert.Contains(t, m.View(), "Invalid OpenAI API key.")
}

func TestModel_BlankInputIgnored(t *testing.T) {
	m, store := newTestModel(t, &stubAsker{})
	m, cmd := typeAndSend(t, m, "   ")
	assert.Nil(t, cmd)
	assert.False(t, m.waiting)
	assert.Empty(t, store.Current().Messages)
}

func TestModel_ThreadKeys(t *testing.T) {
	m, store := newTestModel(t, &stubAsker{})
	first := store.Current().ID

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	m = updated.(Model)
	require.Len(t, store.Threads(), 2)
	second := store.Current().ID
	assert.NotEqual(t, first, second)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	assert.Equal(t, first, store.Current().ID)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlX})
	m = updated.(Model)
	require.Len(t, store.Threads(), 1)
	assert.Equal(t, second, store.Current().ID)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlX})
	m = updated.(Model)
	require.Len(t, store.Threads(), 1)
	assert.NotEqual(t, second, store.Current().ID)
	assert.Equal(t, threads.DefaultTitle, store.Current().Title)
	assert.True(t, strings.Contains(m.View(), threads.DefaultTitle))
}

func TestModel_ThreadKeysBlockedWhileWaiting(t *testing.T) {
	m, store := newTestModel(t, &stubAsker{reply: "ok"})
	m, _ = typeAndSend(t, m, "hello")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	m = updated.(Model)
	assert.Len(t, store.Threads(), 1)
	assert.True(t, m.waiting)
}

func TestModel_ReplyToOtherThread(t *testing.T) {
	m, store := newTestModel(t, &stubAsker{})
	first := store.Current().ID
	_, err := store.New()
	require.NoError(t, err)
	second := store.Current().ID

	updated, _ := m.Update(replyMsg{threadID: first, text: "late answer"})
	m = updated.(Model)
	require.NoError(t, m.err)
	assert.Equal(t, second, store.Current().ID)

	for _, th := range store.Threads() {
		if th.ID == first {
			require.Len(t, th.Messages, 1)
			assert.Equal(t, "late answer", th.Messages[0].Content)
		}
	}
}

func TestModel_Quit(t *testing.T) {
	m, _ := newTestModel(t, &stubAsker{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
