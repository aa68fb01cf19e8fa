package gorm

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thebtf/sitelog/pkg/models"
)

// MaxDetailedActionItems caps WithDetails.
const MaxDetailedActionItems = 50

// ActionItemStore provides action item operations using GORM.
type ActionItemStore struct {
	store *Store
	db    *gorm.DB
	now   func() time.Time
}

// NewActionItemStore creates a new action item store.
func NewActionItemStore(store *Store) *ActionItemStore {
	return &ActionItemStore{store: store, db: store.DB, now: nowUTC}
}

// CreateFromSection raises an action item from the text of a daily log section.
func (s *ActionItemStore) CreateFromSection(ctx context.Context, in models.ActionItemInput) (*models.ActionItem, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}
	content := in.Content
	row := &ActionItem{
		Title:         models.DeriveTitle(content),
		Description:   nullString(&content),
		Status:        models.StatusOpen,
		Priority:      in.Priority,
		DueDate:       utcDate(in.DueDate),
		AssignedTo:    nullString(in.AssignedTo),
		SourceType:    models.SourceTypeForSection(in.SectionType),
		SourceContent: nullString(&content),
		ProjectID:     optionalID(in.ProjectID),
		LogID:         optionalID(in.LogID),
		CreatedBy:     in.CreatedBy,
	}
	return s.insert(ctx, row)
}

// Create stores a fully specified action item.
func (s *ActionItemStore) Create(ctx context.Context, item *models.ActionItem) (*models.ActionItem, error) {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil, models.ErrEmptyContent
	}
	status := item.Status
	if status == "" {
		status = models.StatusOpen
	}
	if !status.IsValid() {
		return nil, models.ErrInvalidStatus
	}
	priority := item.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.IsValid() {
		return nil, models.ErrInvalidPriority
	}
	createdBy := strings.TrimSpace(item.CreatedBy)
	if createdBy == "" {
		createdBy = "Unknown"
	}

	row := &ActionItem{
		Title:         title,
		Description:   nullString(item.Description),
		Status:        status,
		Priority:      priority,
		DueDate:       utcDate(item.DueDate),
		AssignedTo:    nullString(item.AssignedTo),
		SourceType:    item.SourceType,
		SourceContent: nullString(item.SourceContent),
		ProjectID:     optionalID(item.ProjectID),
		LogID:         optionalID(item.LogID),
		CreatedBy:     createdBy,
	}
	if status == models.StatusCompleted {
		now := s.now()
		row.CompletedAt = &now
	}
	return s.insert(ctx, row)
}

func (s *ActionItemStore) insert(ctx context.Context, row *ActionItem) (*models.ActionItem, error) {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		return nil, err
	}
	s.store.publish(ctx, Event{Type: "action_item", Action: "created", ID: row.ID})
	return toModelActionItem(row), nil
}

// Get retrieves an action item with its project and notes, or nil when absent.
func (s *ActionItemStore) Get(ctx context.Context, id string) (*models.ActionItem, error) {
	var row ActionItem
	err := s.db.WithContext(ctx).
		Preload("Project").
		Preload("Notes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toModelActionItem(&row), nil
}

// List returns action items, newest first, optionally filtered.
func (s *ActionItemStore) List(ctx context.Context, filter models.ActionItemFilter) ([]models.ActionItem, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, models.ErrInvalidStatus
	}
	query := s.db.WithContext(ctx).
		Preload("Project").
		Preload("Notes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ProjectID != "" {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []ActionItem
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.ActionItem, 0, len(rows))
	for i := range rows {
		out = append(out, *toModelActionItem(&rows[i]))
	}
	return out, nil
}

// Update applies a patch. Moving to completed stamps completed_at; leaving
// completed clears it.
func (s *ActionItemStore) Update(ctx context.Context, id string, patch models.ActionItemPatch) (*models.ActionItem, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row ActionItem
		if err := tx.Where("id = ?", id).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		updates := map[string]interface{}{"updated_at": s.now()}
		if patch.Status != nil && *patch.Status != row.Status {
			updates["status"] = *patch.Status
			if *patch.Status == models.StatusCompleted {
				updates["completed_at"] = s.now()
			} else {
				updates["completed_at"] = nil
			}
		}
		if patch.Priority != nil {
			updates["priority"] = *patch.Priority
		}
		if patch.DueDate != nil {
			updates["due_date"] = utcDate(patch.DueDate)
		}
		if patch.AssignedTo != nil {
			updates["assigned_to"] = nullString(patch.AssignedTo)
		}
		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return models.ErrEmptyContent
			}
			updates["title"] = title
		}
		return tx.Model(&ActionItem{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	s.store.publish(ctx, Event{Type: "action_item", Action: "updated", ID: id})
	return s.Get(ctx, id)
}

// AddNote appends a progress note to an action item.
func (s *ActionItemStore) AddNote(ctx context.Context, actionItemID, note, createdBy string) (*models.ActionItemNote, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, models.ErrEmptyContent
	}
	createdBy = strings.TrimSpace(createdBy)
	if createdBy == "" {
		createdBy = "Unknown"
	}

	row := &ActionItemNote{
		ActionItemID: actionItemID,
		Note:         note,
		CreatedBy:    createdBy,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&ActionItem{}).Where("id = ?", actionItemID).Update("updated_at", s.now())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Create(row).Error
	})
	if err != nil {
		return nil, err
	}

	s.store.publish(ctx, Event{Type: "action_item", Action: "note_added", ID: actionItemID})
	out := toModelActionItemNote(row)
	return &out, nil
}

// WithDetails returns at most limit (capped at 50) action items by
// created_at descending with project, log and notes loaded.
func (s *ActionItemStore) WithDetails(ctx context.Context, limit int) ([]models.ActionItem, error) {
	rows, err := detailedActionItemRows(s.db.WithContext(ctx), limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.ActionItem, 0, len(rows))
	for i := range rows {
		out = append(out, *toModelActionItem(&rows[i]))
	}
	return out, nil
}

func detailedActionItemRows(db *gorm.DB, limit int) ([]ActionItem, error) {
	if limit <= 0 || limit > MaxDetailedActionItems {
		limit = MaxDetailedActionItems
	}
	var rows []ActionItem
	err := db.
		Preload("Project").
		Preload("Log").
		Preload("Log.Project").
		Preload("Notes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
