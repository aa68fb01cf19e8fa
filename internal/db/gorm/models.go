package gorm

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/thebtf/sitelog/pkg/models"
)

// GORM Models

// Project represents a job site.
type Project struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)"`
	Name      string         `gorm:"type:text;not null;uniqueIndex:idx_projects_name"`
	Location  sql.NullString `gorm:"type:text"`
	Client    sql.NullString `gorm:"type:text"`
	CreatedAt time.Time      `gorm:"not null"`
}

func (Project) TableName() string { return "projects" }

// BeforeCreate hook to ensure the ID is set.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Subcontractor represents an outside company.
type Subcontractor struct {
	ID   string `gorm:"primaryKey;type:varchar(36)"`
	Name string `gorm:"type:text;not null;uniqueIndex:idx_subcontractors_name"`
}

func (Subcontractor) TableName() string { return "subcontractors" }

// BeforeCreate hook to ensure the ID is set.
func (s *Subcontractor) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Crew represents a named group of workers.
type Crew struct {
	ID      string       `gorm:"primaryKey;type:varchar(36)"`
	Name    string       `gorm:"type:text;not null;uniqueIndex:idx_crews_name"`
	Members []CrewMember `gorm:"foreignKey:CrewID"`
}

func (Crew) TableName() string { return "crews" }

// BeforeCreate hook to ensure the ID is set.
func (c *Crew) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CrewMember represents one worker on a crew.
type CrewMember struct {
	ID         string          `gorm:"primaryKey;type:varchar(36)"`
	CrewID     string          `gorm:"type:varchar(36);not null;index"`
	Name       string          `gorm:"type:text;not null"`
	Role       sql.NullString  `gorm:"type:text"`
	HourlyRate sql.NullFloat64 `gorm:"type:real"`
	Phone      sql.NullString  `gorm:"type:text"`
	Email      sql.NullString  `gorm:"type:text"`
	Notes      sql.NullString  `gorm:"type:text"`
}

func (CrewMember) TableName() string { return "crew_members" }

// BeforeCreate hook to ensure the ID is set.
func (m *CrewMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// DailyLog represents one superintendent's report for a project and day.
type DailyLog struct {
	ID                 string    `gorm:"primaryKey;type:varchar(36)"`
	Date               string    `gorm:"type:varchar(10);not null;index:idx_daily_logs_date,sort:desc"`
	ProjectID          string    `gorm:"type:varchar(36);not null;index"`
	SuperintendentName string    `gorm:"type:text;not null"`
	CreatedAt          time.Time `gorm:"not null;index:idx_daily_logs_created,sort:desc"`
	UpdatedAt          time.Time `gorm:"not null"`

	Project        *Project        `gorm:"foreignKey:ProjectID"`
	Sections       []LogSection    `gorm:"foreignKey:LogID"`
	Crews          []Crew          `gorm:"many2many:log_crews;joinForeignKey:LogID;joinReferences:CrewID"`
	Subcontractors []Subcontractor `gorm:"many2many:log_subcontractors;joinForeignKey:LogID;joinReferences:SubcontractorID"`
}

func (DailyLog) TableName() string { return "daily_logs" }

// BeforeCreate hook to ensure the ID is set.
func (l *DailyLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// LogSection represents one typed text block of a daily log.
type LogSection struct {
	ID          string             `gorm:"primaryKey;type:varchar(36)"`
	LogID       string             `gorm:"type:varchar(36);not null;index:idx_log_sections_log_order,priority:1"`
	SectionType models.SectionType `gorm:"type:varchar(32);not null;check:section_type IN ('work_performed', 'delays', 'trades_onsite', 'meetings', 'out_of_scope', 'action_items', 'next_day_plan', 'notes')"`
	Content     string             `gorm:"type:text;not null"`
	OrderNum    int                `gorm:"not null;index:idx_log_sections_log_order,priority:2"`
}

func (LogSection) TableName() string { return "log_sections" }

// BeforeCreate hook to ensure the ID is set.
func (s *LogSection) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// LogCrew links a daily log to a crew.
type LogCrew struct {
	LogID  string `gorm:"primaryKey;type:varchar(36)"`
	CrewID string `gorm:"primaryKey;type:varchar(36);index"`
}

func (LogCrew) TableName() string { return "log_crews" }

// LogSubcontractor links a daily log to a subcontractor.
type LogSubcontractor struct {
	LogID           string `gorm:"primaryKey;type:varchar(36)"`
	SubcontractorID string `gorm:"primaryKey;type:varchar(36);index"`
}

func (LogSubcontractor) TableName() string { return "log_subcontractors" }

// ActionItem represents a tracked follow-up task.
type ActionItem struct {
	ID            string                  `gorm:"primaryKey;type:varchar(36)"`
	Title         string                  `gorm:"type:text;not null"`
	Description   sql.NullString          `gorm:"type:text"`
	Status        models.ActionItemStatus `gorm:"type:varchar(16);not null;default:'open';check:status IN ('open', 'in_progress', 'completed');index"`
	Priority      models.Priority         `gorm:"type:varchar(16);not null;default:'medium';check:priority IN ('urgent', 'high', 'medium', 'low')"`
	DueDate       *time.Time
	AssignedTo    sql.NullString    `gorm:"type:text"`
	SourceType    models.SourceType `gorm:"type:varchar(16);not null;default:'action_item';check:source_type IN ('meeting', 'out_of_scope', 'action_item', 'observation')"`
	SourceContent sql.NullString    `gorm:"type:text"`
	ProjectID     *string           `gorm:"type:varchar(36);index"`
	LogID         *string           `gorm:"type:varchar(36);index"`
	CreatedBy     string            `gorm:"type:text;not null"`
	CreatedAt     time.Time         `gorm:"not null;index:idx_action_items_created,sort:desc"`
	UpdatedAt     time.Time         `gorm:"not null;index:idx_action_items_updated,sort:desc"`
	CompletedAt   *time.Time

	Project *Project         `gorm:"foreignKey:ProjectID"`
	Log     *DailyLog        `gorm:"foreignKey:LogID"`
	Notes   []ActionItemNote `gorm:"foreignKey:ActionItemID"`
}

func (ActionItem) TableName() string { return "action_items" }

// BeforeCreate hook to ensure the ID and defaults are set.
func (a *ActionItem) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = models.StatusOpen
	}
	if a.Priority == "" {
		a.Priority = models.PriorityMedium
	}
	if a.SourceType == "" {
		a.SourceType = models.SourceActionItem
	}
	return nil
}

// ActionItemNote represents a progress note on an action item.
type ActionItemNote struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)"`
	ActionItemID string    `gorm:"type:varchar(36);not null;index"`
	Note         string    `gorm:"type:text;not null"`
	CreatedBy    string    `gorm:"type:text;not null"`
	CreatedAt    time.Time `gorm:"not null;index:idx_action_item_notes_created,sort:desc"`
}

func (ActionItemNote) TableName() string { return "action_item_notes" }

// BeforeCreate hook to ensure the ID is set.
func (n *ActionItemNote) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// Conversation represents a server-side chat session record.
type Conversation struct {
	ID        string                    `gorm:"primaryKey;type:varchar(36)"`
	SessionID string                    `gorm:"type:text;not null;index:idx_conversations_session"`
	UserID    string                    `gorm:"type:text;not null;default:'anonymous'"`
	Title     string                    `gorm:"type:text;not null"`
	Status    models.ConversationStatus `gorm:"type:varchar(16);not null;default:'active';check:status IN ('active', 'archived');index"`
	CreatedAt time.Time                 `gorm:"not null"`
	UpdatedAt time.Time                 `gorm:"not null"`
}

func (Conversation) TableName() string { return "conversations" }

// BeforeCreate hook to ensure the ID is set.
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// ConversationMessage represents one logged chat message.
type ConversationMessage struct {
	ID             string         `gorm:"primaryKey;type:varchar(36)"`
	ConversationID string         `gorm:"type:varchar(36);not null;index"`
	Role           models.Role    `gorm:"type:varchar(16);not null;check:role IN ('user', 'assistant', 'system')"`
	Content        string         `gorm:"type:text;not null"`
	ModelUsed      sql.NullString `gorm:"type:text"`
	ResponseTimeMs sql.NullInt64
	TokenCount     sql.NullInt64
	Metadata       datatypes.JSON
	CreatedAt      time.Time `gorm:"not null;index"`
}

func (ConversationMessage) TableName() string { return "conversation_messages" }

// BeforeCreate hook to ensure the ID is set.
func (m *ConversationMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// ConversationContext represents a sample of the data a conversation was answered from.
type ConversationContext struct {
	ID             string             `gorm:"primaryKey;type:varchar(36)"`
	ConversationID string             `gorm:"type:varchar(36);not null;index"`
	ContextType    models.ContextType `gorm:"type:varchar(16);not null;check:context_type IN ('action_items', 'projects', 'daily_logs')"`
	ContextData    datatypes.JSON
	CreatedAt      time.Time `gorm:"not null"`
}

func (ConversationContext) TableName() string { return "conversation_context" }

// BeforeCreate hook to ensure the ID is set.
func (c *ConversationContext) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// setupJoinTables registers the explicit join models so preloads and
// migrations use log_crews and log_subcontractors as declared above.
func setupJoinTables(db *gorm.DB) error {
	if err := db.SetupJoinTable(&DailyLog{}, "Crews", &LogCrew{}); err != nil {
		return err
	}
	return db.SetupJoinTable(&DailyLog{}, "Subcontractors", &LogSubcontractor{})
}
