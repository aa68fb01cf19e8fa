package gorm

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// migrations returns the ordered schema history.
func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		// Migration 001: catalog tables (projects, subcontractors, crews, crew members)
		{
			ID: "001_catalog",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Project{}, &Subcontractor{}, &Crew{}, &CrewMember{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("crew_members", "crews", "subcontractors", "projects")
			},
		},

		// Migration 002: daily logs with sections and associations
		{
			ID: "002_daily_logs",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&LogCrew{}, &LogSubcontractor{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&DailyLog{}, &LogSection{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("log_subcontractors", "log_crews", "log_sections", "daily_logs")
			},
		},

		// Migration 003: action items and their notes
		{
			ID: "003_action_items",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&ActionItem{}, &ActionItemNote{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("action_item_notes", "action_items")
			},
		},

		// Migration 004: chat conversation audit log
		{
			ID: "004_conversations",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Conversation{}, &ConversationMessage{}, &ConversationContext{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("conversation_context", "conversation_messages", "conversations")
			},
		},
	}
}

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations())
	return m.Migrate()
}

// RollbackLast reverts the most recent migration.
func (s *Store) RollbackLast() error {
	m := gormigrate.New(s.DB, gormigrate.DefaultOptions, migrations())
	return m.RollbackLast()
}

// MigrationIDs lists the known migration IDs in order.
func MigrationIDs() []string {
	var ids []string
	for _, m := range migrations() {
		ids = append(ids, m.ID)
	}
	return ids
}
