package sse

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// BroadcasterSuite is a test suite for Broadcaster operations.
type BroadcasterSuite struct {
	suite.Suite
	broadcaster *Broadcaster
}

func (s *BroadcasterSuite) SetupTest() {
	s.broadcaster = NewBroadcaster()
}

func TestBroadcasterSuite(t *testing.T) {
	suite.Run(t, new(BroadcasterSuite))
}

// mockResponseWriter implements http.ResponseWriter and http.Flusher for testing.
type mockResponseWriter struct {
	header   http.Header
	body     []byte
	writeErr error
	mu       sync.Mutex
}

func newMockResponseWriter() *mockResponseWriter {
	return &mockResponseWriter{header: make(http.Header)}
}

func (m *mockResponseWriter) Header() http.Header { return m.header }

func (m *mockResponseWriter) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.body = append(m.body, data...)
	return len(data), nil
}

func (m *mockResponseWriter) WriteHeader(int) {}

func (m *mockResponseWriter) Flush() {}

func (m *mockResponseWriter) GetBody() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.body)
}

// noFlushWriter lacks http.Flusher.
type noFlushWriter struct{ http.ResponseWriter }

func (s *BroadcasterSuite) TestAddClient() {
	client, err := s.broadcaster.AddClient(newMockResponseWriter())
	s.Require().NoError(err)
	s.NotEmpty(client.ID)
	s.NotNil(client.Done)
	s.Empty(client.Types)
	s.Equal(1, s.broadcaster.ClientCount())
}

func (s *BroadcasterSuite) TestAddClient_RequiresFlusher() {
	_, err := s.broadcaster.AddClient(noFlushWriter{httptest.NewRecorder()})
	s.Error(err)
	s.Equal(0, s.broadcaster.ClientCount())
}

func (s *BroadcasterSuite) TestRemoveClient() {
	client, err := s.broadcaster.AddClient(newMockResponseWriter())
	s.Require().NoError(err)

	s.broadcaster.RemoveClient(client)
	s.Equal(0, s.broadcaster.ClientCount())

	select {
	case <-client.Done:
	default:
		s.Fail("Done channel should be closed")
	}

	// second removal is a no-op
	s.NotPanics(func() { s.broadcaster.RemoveClient(client) })
}

func (s *BroadcasterSuite) TestBroadcast() {
	w := newMockResponseWriter()
	_, err := s.broadcaster.AddClient(w)
	s.Require().NoError(err)

	s.broadcaster.Broadcast(map[string]interface{}{"type": "log", "action": "created", "id": "abc"})
	s.broadcaster.Broadcast(map[string]interface{}{"type": "log", "action": "deleted", "id": "abc"})

	body := w.GetBody()
	s.Contains(body, "id: 1\ndata: ")
	s.Contains(body, "id: 2\ndata: ")
	s.Contains(body, `"action":"created"`)
	s.True(strings.HasSuffix(body, "\n\n"))
}

func (s *BroadcasterSuite) TestBroadcastNoClients() {
	s.NotPanics(func() { s.broadcaster.Broadcast(map[string]string{"type": "log"}) })
}

func (s *BroadcasterSuite) TestBroadcast_TypeFilter() {
	logsOnly := newMockResponseWriter()
	everything := newMockResponseWriter()
	_, err := s.broadcaster.AddClient(logsOnly, "log", " ")
	s.Require().NoError(err)
	_, err = s.broadcaster.AddClient(everything)
	s.Require().NoError(err)

	s.broadcaster.Broadcast(map[string]interface{}{"type": "action_item", "action": "updated"})
	s.broadcaster.Broadcast(map[string]interface{}{"type": "log", "action": "created"})

	s.NotContains(logsOnly.GetBody(), "action_item")
	s.Contains(logsOnly.GetBody(), `"type":"log"`)
	s.Contains(everything.GetBody(), "action_item")
	s.Contains(everything.GetBody(), `"type":"log"`)
}

func (s *BroadcasterSuite) TestBroadcast_RemovesDeadClients() {
	dead := newMockResponseWriter()
	dead.writeErr = errors.New("broken pipe")
	alive := newMockResponseWriter()

	_, err := s.broadcaster.AddClient(dead)
	s.Require().NoError(err)
	_, err = s.broadcaster.AddClient(alive)
	s.Require().NoError(err)

	s.broadcaster.Broadcast(map[string]string{"type": "chat"})

	s.Equal(1, s.broadcaster.ClientCount())
	s.Contains(alive.GetBody(), "chat")
}

func TestClientWants(t *testing.T) {
	tests := []struct {
		name  string
		types map[string]bool
		event string
		want  bool
	}{
		{name: "no filter", event: "log", want: true},
		{name: "subscribed", types: map[string]bool{"log": true}, event: "log", want: true},
		{name: "not subscribed", types: map[string]bool{"log": true}, event: "chat", want: false},
		{name: "untyped payload", types: map[string]bool{"log": true}, event: "", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{Types: tt.types}
			assert.Equal(t, tt.want, c.Wants(tt.event))
		})
	}
}

func TestEventType(t *testing.T) {
	assert.Equal(t, "log", eventType(map[string]interface{}{"type": "log"}))
	assert.Equal(t, "chat", eventType(map[string]string{"type": "chat"}))
	assert.Equal(t, "", eventType(map[string]interface{}{"type": 3}))
	assert.Equal(t, "", eventType([]string{"a"}))
}

func TestClientUniqueIDs(t *testing.T) {
	b := NewBroadcaster()
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		client, err := b.AddClient(newMockResponseWriter())
		require.NoError(t, err)
		assert.False(t, ids[client.ID], "ID %s should be unique", client.ID)
		ids[client.ID] = true
	}
}

func TestServe(t *testing.T) {
	b := NewBroadcaster()
	w := newMockResponseWriter()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events?types=log,chat", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		b.serve(w, req, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	b.Broadcast(map[string]interface{}{"type": "log", "action": "updated"})
	b.Broadcast(map[string]interface{}{"type": "crew", "action": "created"})
	require.Eventually(t, func() bool { return strings.Contains(w.GetBody(), ": keepalive") }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("serve did not return after cancel")
	}

	body := w.GetBody()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, `data: {"type":"connected","clientId":"client-1"}`))
	assert.Contains(t, body, `"action":"updated"`)
	assert.NotContains(t, body, `"crew"`)
	assert.Equal(t, 0, b.ClientCount())
}

func TestConcurrentBroadcast(t *testing.T) {
	b := NewBroadcaster()
	for i := 0; i < 10; i++ {
		_, err := b.AddClient(newMockResponseWriter())
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.Broadcast(map[string]int{"index": i})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, b.ClientCount())
}

func TestBroadcasterConcurrentAddRemove(t *testing.T) {
	b := NewBroadcaster()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client, err := b.AddClient(newMockResponseWriter())
			if err == nil && i%2 == 0 {
				b.RemoveClient(client)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, b.ClientCount())
}
