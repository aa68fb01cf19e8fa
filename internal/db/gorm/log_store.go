package gorm

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thebtf/sitelog/pkg/models"
)

// Pagination defaults for daily log listings.
const (
	DefaultLogsPerPage = 20
	MaxLogsPerPage     = 100
)

// LogStore provides daily log operations using GORM.
type LogStore struct {
	store *Store
	db    *gorm.DB
}

// NewLogStore creates a new daily log store.
func NewLogStore(store *Store) *LogStore {
	return &LogStore{store: store, db: store.DB}
}

// withLogDetails preloads everything a log is displayed with.
func withLogDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Project").
		Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("order_num ASC") }).
		Preload("Crews", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Preload("Subcontractors", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") })
}

// CreateDailyLog validates the input and stores the log, its sections and
// its crew and subcontractor links in one transaction.
func (s *LogStore) CreateDailyLog(ctx context.Context, in models.DailyLogInput) (*models.DailyLog, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	row := &DailyLog{
		Date:               strings.TrimSpace(in.Date),
		ProjectID:          strings.TrimSpace(in.ProjectID),
		SuperintendentName: strings.TrimSpace(in.SuperintendentName),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireProject(tx, row.ProjectID); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
			return err
		}
		return writeLogChildren(tx, row.ID, in)
	})
	if err != nil {
		return nil, err
	}

	s.store.publish(ctx, Event{Type: "log", Action: "created", ID: row.ID})
	return s.GetDailyLog(ctx, row.ID)
}

// UpdateDailyLog replaces a log's header fields, sections and links.
func (s *LogStore) UpdateDailyLog(ctx context.Context, id string, in models.DailyLogInput) (*models.DailyLog, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireProject(tx, strings.TrimSpace(in.ProjectID)); err != nil {
			return err
		}
		res := tx.Model(&DailyLog{}).Where("id = ?", id).Updates(map[string]interface{}{
			"date":                strings.TrimSpace(in.Date),
			"project_id":          strings.TrimSpace(in.ProjectID),
			"superintendent_name": strings.TrimSpace(in.SuperintendentName),
			"updated_at":          nowUTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := deleteLogChildren(tx, id); err != nil {
			return err
		}
		return writeLogChildren(tx, id, in)
	})
	if err != nil {
		return nil, err
	}

	s.store.publish(ctx, Event{Type: "log", Action: "updated", ID: id})
	return s.GetDailyLog(ctx, id)
}

// DeleteDailyLog removes a log with its sections and links. Action items
// raised from the log are kept and detached.
func (s *LogStore) DeleteDailyLog(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteLogChildren(tx, id); err != nil {
			return err
		}
		if err := tx.Model(&ActionItem{}).Where("log_id = ?", id).Update("log_id", nil).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&DailyLog{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.store.publish(ctx, Event{Type: "log", Action: "deleted", ID: id})
	return nil
}

// GetDailyLog retrieves a log with its details, or nil when absent.
func (s *LogStore) GetDailyLog(ctx context.Context, id string) (*models.DailyLog, error) {
	var row DailyLog
	err := s.db.WithContext(ctx).Scopes(withLogDetails).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toModelDailyLog(&row), nil
}

// ListDailyLogs returns one page of logs, newest date first.
func (s *LogStore) ListDailyLogs(ctx context.Context, filter models.DailyLogFilter) (*models.DailyLogPage, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = DefaultLogsPerPage
	}
	if perPage > MaxLogsPerPage {
		perPage = MaxLogsPerPage
	}

	where := func(db *gorm.DB) *gorm.DB {
		if filter.ProjectID != "" {
			db = db.Where("daily_logs.project_id = ?", filter.ProjectID)
		}
		if filter.Date != "" {
			db = db.Where("daily_logs.date = ?", filter.Date)
		}
		switch {
		case filter.IDs != nil:
			db = db.Where("daily_logs.id IN ?", filter.IDs)
		case strings.TrimSpace(filter.Search) != "":
			like := "%" + escapeLike(strings.ToLower(strings.TrimSpace(filter.Search))) + "%"
			db = db.Where(
				`LOWER(daily_logs.superintendent_name) LIKE ? ESCAPE '\' OR `+
					`daily_logs.project_id IN (SELECT id FROM projects WHERE LOWER(name) LIKE ? ESCAPE '\') OR `+
					`daily_logs.id IN (SELECT log_id FROM log_sections WHERE LOWER(content) LIKE ? ESCAPE '\')`,
				like, like, like)
		}
		return db
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&DailyLog{}).Scopes(where).Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []DailyLog
	err := s.db.WithContext(ctx).
		Scopes(where, withLogDetails).
		Order("daily_logs.date DESC, daily_logs.created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := &models.DailyLogPage{
		Logs:    make([]models.DailyLog, 0, len(rows)),
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}
	for i := range rows {
		out.Logs = append(out.Logs, *toModelDailyLog(&rows[i]))
	}
	return out, nil
}

// RecentDailyLogs returns at most limit logs by date descending, with details.
func (s *LogStore) RecentDailyLogs(ctx context.Context, limit int) ([]models.DailyLog, error) {
	rows, err := recentLogRows(s.db.WithContext(ctx), limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.DailyLog, 0, len(rows))
	for i := range rows {
		out = append(out, *toModelDailyLog(&rows[i]))
	}
	return out, nil
}

// AllDailyLogs returns every log with details, for index rebuilds and exports.
func (s *LogStore) AllDailyLogs(ctx context.Context) ([]models.DailyLog, error) {
	var rows []DailyLog
	if err := s.db.WithContext(ctx).Scopes(withLogDetails).Order("date DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.DailyLog, 0, len(rows))
	for i := range rows {
		out = append(out, *toModelDailyLog(&rows[i]))
	}
	return out, nil
}

func recentLogRows(db *gorm.DB, limit int) ([]DailyLog, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []DailyLog
	err := db.Scopes(withLogDetails).
		Order("date DESC, created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func requireProject(tx *gorm.DB, projectID string) error {
	var count int64
	if err := tx.Model(&Project{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return models.ErrUnknownProject
	}
	return nil
}

func writeLogChildren(tx *gorm.DB, logID string, in models.DailyLogInput) error {
	sections := in.OrderedSections()
	if len(sections) > 0 {
		rows := make([]LogSection, 0, len(sections))
		for _, sec := range sections {
			rows = append(rows, LogSection{
				LogID:       logID,
				SectionType: sec.SectionType,
				Content:     sec.Content,
				OrderNum:    sec.OrderNum,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
	}

	if ids := uniqueIDs(in.SubcontractorIDs); len(ids) > 0 {
		links := make([]LogSubcontractor, 0, len(ids))
		for _, id := range ids {
			links = append(links, LogSubcontractor{LogID: logID, SubcontractorID: id})
		}
		if err := tx.Create(&links).Error; err != nil {
			return err
		}
	}

	if ids := uniqueIDs(in.CrewIDs); len(ids) > 0 {
		links := make([]LogCrew, 0, len(ids))
		for _, id := range ids {
			links = append(links, LogCrew{LogID: logID, CrewID: id})
		}
		if err := tx.Create(&links).Error; err != nil {
			return err
		}
	}
	return nil
}

func deleteLogChildren(tx *gorm.DB, logID string) error {
	if err := tx.Where("log_id = ?", logID).Delete(&LogSection{}).Error; err != nil {
		return err
	}
	if err := tx.Where("log_id = ?", logID).Delete(&LogCrew{}).Error; err != nil {
		return err
	}
	return tx.Where("log_id = ?", logID).Delete(&LogSubcontractor{}).Error
}
