// Package threads keeps the chat client's local list of conversation threads.
//
// The list is hydrated from a Persister with Load and written back after
// every change. It is independent of the server-side conversation log; a
// thread's ID doubles as the session id sent with each chat request.
package threads

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/thebtf/sitelog/pkg/models"
)

// StorageKey is the persister key holding the thread list.
const StorageKey = "chat_threads"

// SchemaVersion is the current persisted shape. Version 1 was a bare array
// of threads with millisecond timestamps and no current selection.
const SchemaVersion = 2

// TitleLimit is the rune length of titles derived from the first message.
const TitleLimit = 30

// DefaultTitle names a thread before its first user message.
const DefaultTitle = "New Chat"

// ErrThreadNotFound is returned for an unknown thread id.
var ErrThreadNotFound = errors.New("thread not found")

// Message is one entry in a thread.
type Message struct {
	Timestamp time.Time   `json:"timestamp"`
	Role      models.Role `json:"role"`
	Content   string      `json:"content"`
}

// Thread is a locally kept conversation.
type Thread struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
}

// History converts the thread to the chat request history shape.
func (t Thread) History() []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(t.Messages))
	for _, m := range t.Messages {
		out = append(out, models.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

type document struct {
	Version   int      `json:"version"`
	CurrentID string   `json:"current_id"`
	Threads   []Thread `json:"threads"`
}

// Store is the thread list.
type Store struct {
	mu        sync.Mutex
	persister Persister
	threads   []Thread
	currentID string
	now       func() time.Time
	newID     func() string
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs overrides thread id generation.
func WithIDs(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// NewStore creates a store over p. Call Load before use.
func NewStore(p Persister, opts ...Option) *Store {
	s := &Store{
		persister: p,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load hydrates the store, migrating older shapes. An empty or missing
// state yields one fresh thread.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.persister.Load(StorageKey)
	if err != nil {
		return fmt.Errorf("load threads: %w", err)
	}

	doc, migrated, err := decode(raw)
	if err != nil {
		return fmt.Errorf("decode threads: %w", err)
	}
	s.threads = doc.Threads
	s.currentID = doc.CurrentID

	if len(s.threads) == 0 {
		s.threads = []Thread{s.freshThread()}
		migrated = true
	}
	if s.indexOf(s.currentID) < 0 {
		s.currentID = s.threads[0].ID
		migrated = true
	}
	if migrated {
		return s.saveLocked()
	}
	return nil
}

// Save writes the current state.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	data, err := json.Marshal(document{
		Version:   SchemaVersion,
		CurrentID: s.currentID,
		Threads:   s.threads,
	})
	if err != nil {
		return err
	}
	if err := s.persister.Save(StorageKey, data); err != nil {
		return fmt.Errorf("save threads: %w", err)
	}
	return nil
}

// Threads returns a copy of every thread in creation order.
func (s *Store) Threads() []Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Thread, len(s.threads))
	for i, t := range s.threads {
		out[i] = cloneThread(t)
	}
	return out
}

// Current returns the selected thread.
func (s *Store) Current() Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(s.currentID); i >= 0 {
		return cloneThread(s.threads[i])
	}
	return Thread{}
}

// Select makes id the current thread.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		return ErrThreadNotFound
	}
	s.currentID = id
	return s.saveLocked()
}

// Next selects the thread after the current one, wrapping around.
func (s *Store) Next() (Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.threads) == 0 {
		return Thread{}, ErrThreadNotFound
	}
	i := s.indexOf(s.currentID)
	next := s.threads[(i+1)%len(s.threads)]
	s.currentID = next.ID
	return cloneThread(next), s.saveLocked()
}

// New creates an empty thread and selects it.
func (s *Store) New() (Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.freshThread()
	s.threads = append(s.threads, t)
	s.currentID = t.ID
	return cloneThread(t), s.saveLocked()
}

// Append adds a message to the current thread. The first user message of a
// thread with the default title renames it.
func (s *Store) Append(role models.Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(s.currentID)
	if i < 0 {
		return ErrThreadNotFound
	}
	now := s.now()
	t := &s.threads[i]
	if role == models.RoleUser && t.Title == DefaultTitle && !hasUserMessage(t.Messages) {
		t.Title = DeriveTitle(content)
	}
	t.Messages = append(t.Messages, Message{Role: role, Content: content, Timestamp: now})
	t.UpdatedAt = now
	return s.saveLocked()
}

// Rename sets a thread's title. A blank title restores the default.
func (s *Store) Rename(id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return ErrThreadNotFound
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	s.threads[i].Title = title
	s.threads[i].UpdatedAt = s.now()
	return s.saveLocked()
}

// Delete removes a thread. Deleting the last thread leaves a single new
// empty thread. Deleting the current thread selects the first remaining one.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return ErrThreadNotFound
	}
	s.threads = append(s.threads[:i], s.threads[i+1:]...)
	if len(s.threads) == 0 {
		s.threads = []Thread{s.freshThread()}
	}
	if s.indexOf(s.currentID) < 0 {
		s.currentID = s.threads[0].ID
	}
	return s.saveLocked()
}

// DeriveTitle truncates the first user message to TitleLimit runes.
func DeriveTitle(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if content == "" {
		return DefaultTitle
	}
	return models.Truncate(content, TitleLimit)
}

func (s *Store) freshThread() Thread {
	now := s.now()
	return Thread{
		ID:        s.newID(),
		Title:     DefaultTitle,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Store) indexOf(id string) int {
	for i := range s.threads {
		if s.threads[i].ID == id {
			return i
		}
	}
	return -1
}

func hasUserMessage(msgs []Message) bool {
	for _, m := range msgs {
		if m.Role == models.RoleUser {
			return true
		}
	}
	return false
}

func cloneThread(t Thread) Thread {
	t.Messages = append([]Message(nil), t.Messages...)
	return t
}

// legacyThread is the version 1 shape.
type legacyThread struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Messages []legacyMessage `json:"messages"`
}

type legacyMessage struct {
	Role      models.Role     `json:"role"`
	Content   string          `json:"content"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// decode parses persisted state and reports whether it was migrated.
func decode(raw []byte) (document, bool, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return document{Version: SchemaVersion}, false, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var legacy []legacyThread
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return document{}, false, err
		}
		return migrateV1(legacy), true, nil
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return document{}, false, err
	}
	if doc.Version > SchemaVersion {
		return document{}, false, fmt.Errorf("unsupported thread schema version %d", doc.Version)
	}
	return doc, doc.Version < SchemaVersion, nil
}

func migrateV1(legacy []legacyThread) document {
	doc := document{Version: SchemaVersion, Threads: make([]Thread, 0, len(legacy))}
	for _, lt := range legacy {
		t := Thread{ID: lt.ID, Title: lt.Title, Messages: make([]Message, 0, len(lt.Messages))}
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.Title == "" {
			t.Title = DefaultTitle
		}
		for _, lm := range lt.Messages {
			ts := parseLegacyTimestamp(lm.Timestamp)
			t.Messages = append(t.Messages, Message{Role: lm.Role, Content: lm.Content, Timestamp: ts})
			if t.CreatedAt.IsZero() || ts.Before(t.CreatedAt) {
				t.CreatedAt = ts
			}
			if ts.After(t.UpdatedAt) {
				t.UpdatedAt = ts
			}
		}
		doc.Threads = append(doc.Threads, t)
	}
	return doc
}

// parseLegacyTimestamp accepts epoch milliseconds or an RFC 3339 string.
func parseLegacyTimestamp(raw json.RawMessage) time.Time {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return time.Time{}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
