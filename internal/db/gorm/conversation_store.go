package gorm

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/thebtf/sitelog/pkg/models"
)

// ConversationStore records chat conversations, messages and context samples.
type ConversationStore struct {
	store *Store
	db    *gorm.DB
}

// NewConversationStore creates a new conversation store.
func NewConversationStore(store *Store) *ConversationStore {
	return &ConversationStore{store: store, db: store.DB}
}

// FindActiveBySession returns the active conversation for a session, or nil.
func (s *ConversationStore) FindActiveBySession(ctx context.Context, sessionID string) (*models.Conversation, error) {
	var row Conversation
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND status = ?", sessionID, models.ConversationActive).
		Order("created_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toModelConversation(&row), nil
}

// CreateConversation inserts an active conversation.
func (s *ConversationStore) CreateConversation(ctx context.Context, sessionID, userID, title string) (*models.Conversation, error) {
	if userID == "" {
		userID = "anonymous"
	}
	row := &Conversation{
		SessionID: sessionID,
		UserID:    userID,
		Title:     title,
		Status:    models.ConversationActive,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return toModelConversation(row), nil
}

// AppendMessage logs a message on a conversation.
func (s *ConversationStore) AppendMessage(ctx context.Context, msg *models.ConversationMessage) error {
	row := &ConversationMessage{
		ConversationID: msg.ConversationID,
		Role:           msg.Role,
		Content:        msg.Content,
	}
	if msg.ModelUsed != nil {
		row.ModelUsed = sql.NullString{String: *msg.ModelUsed, Valid: true}
	}
	if msg.ResponseTimeMs != nil {
		row.ResponseTimeMs = sql.NullInt64{Int64: *msg.ResponseTimeMs, Valid: true}
	}
	if msg.TokenCount != nil {
		row.TokenCount = sql.NullInt64{Int64: int64(*msg.TokenCount), Valid: true}
	}
	if msg.Metadata != nil {
		raw, err := json.Marshal(msg.Metadata)
		if err != nil {
			return err
		}
		row.Metadata = datatypes.JSON(raw)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		return tx.Model(&Conversation{}).Where("id = ?", msg.ConversationID).Update("updated_at", row.CreatedAt).Error
	})
	if err != nil {
		return err
	}
	msg.ID = row.ID
	msg.CreatedAt = row.CreatedAt
	s.store.publish(ctx, Event{Type: "chat", Action: "message_logged", ID: msg.ConversationID})
	return nil
}

// AppendContext logs a context sample on a conversation.
func (s *ConversationStore) AppendContext(ctx context.Context, conversationID string, contextType models.ContextType, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	row := &ConversationContext{
		ConversationID: conversationID,
		ContextType:    contextType,
		ContextData:    datatypes.JSON(raw),
	}
	return s.db.WithContext(ctx).Create(row).Error
}

// Messages returns a conversation's messages in creation order.
func (s *ConversationStore) Messages(ctx context.Context, conversationID string) ([]models.ConversationMessage, error) {
	var rows []ConversationMessage
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.ConversationMessage, 0, len(rows))
	for i := range rows {
		out = append(out, toModelMessage(&rows[i]))
	}
	return out, nil
}

// ContextSamples returns the context samples logged for a conversation.
func (s *ConversationStore) ContextSamples(ctx context.Context, conversationID string) ([]models.ConversationContext, error) {
	var rows []ConversationContext
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.ConversationContext, 0, len(rows))
	for _, r := range rows {
		var data any
		if len(r.ContextData) > 0 {
			_ = json.Unmarshal(r.ContextData, &data)
		}
		out = append(out, models.ConversationContext{
			ID:             r.ID,
			ConversationID: r.ConversationID,
			ContextType:    r.ContextType,
			Data:           data,
			CreatedAt:      r.CreatedAt,
		})
	}
	return out, nil
}
