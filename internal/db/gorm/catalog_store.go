package gorm

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/thebtf/sitelog/pkg/models"
)

// CatalogStore provides project, crew and subcontractor operations.
type CatalogStore struct {
	store *Store
	db    *gorm.DB
}

// NewCatalogStore creates a new catalog store.
func NewCatalogStore(store *Store) *CatalogStore {
	return &CatalogStore{store: store, db: store.DB}
}

// ListProjects returns all projects ordered by name.
func (s *CatalogStore) ListProjects(ctx context.Context) ([]models.Project, error) {
	var rows []Project
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Project, 0, len(rows))
	for i := range rows {
		out = append(out, *toModelProject(&rows[i]))
	}
	return out, nil
}

// GetProject returns a project by ID, or nil when absent.
func (s *CatalogStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var row Project
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toModelProject(&row), nil
}

// FindProjectByName returns the project with the given name, or nil when absent.
func (s *CatalogStore) FindProjectByName(ctx context.Context, name string) (*models.Project, error) {
	var row Project
	err := s.db.WithContext(ctx).Where("name = ?", strings.TrimSpace(name)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toModelProject(&row), nil
}

// CreateProject inserts a project. Names are unique.
func (s *CatalogStore) CreateProject(ctx context.Context, in models.ProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.ErrNameRequired
	}
	row := &Project{
		Name:     name,
		Location: nullString(in.Location),
		Client:   nullString(in.Client),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, classifyWriteError(err)
	}
	s.store.publish(ctx, Event{Type: "project", Action: "created", ID: row.ID})
	return toModelProject(row), nil
}

// ListSubcontractors returns all subcontractors ordered by name.
func (s *CatalogStore) ListSubcontractors(ctx context.Context) ([]models.Subcontractor, error) {
	var rows []Subcontractor
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Subcontractor, 0, len(rows))
	for i := range rows {
		out = append(out, toModelSubcontractor(&rows[i]))
	}
	return out, nil
}

// CreateSubcontractor inserts a subcontractor. Names are unique.
func (s *CatalogStore) CreateSubcontractor(ctx context.Context, name string) (*models.Subcontractor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.ErrNameRequired
	}
	row := &Subcontractor{Name: name}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, classifyWriteError(err)
	}
	s.store.publish(ctx, Event{Type: "subcontractor", Action: "created", ID: row.ID})
	out := toModelSubcontractor(row)
	return &out, nil
}

// ListCrews returns all crews ordered by name with members preloaded.
func (s *CatalogStore) ListCrews(ctx context.Context) ([]models.Crew, error) {
	var rows []Crew
	err := s.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.Crew, 0, len(rows))
	for i := range rows {
		out = append(out, toModelCrew(&rows[i]))
	}
	return out, nil
}

// CreateCrew inserts a crew. Names are unique.
func (s *CatalogStore) CreateCrew(ctx context.Context, name string) (*models.Crew, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.ErrNameRequired
	}
	row := &Crew{Name: name}
	if err := s.db.WithContext(ctx).Omit("Members").Create(row).Error; err != nil {
		return nil, classifyWriteError(err)
	}
	s.store.publish(ctx, Event{Type: "crew", Action: "created", ID: row.ID})
	out := toModelCrew(row)
	return &out, nil
}

// AddCrewMember adds a member to an existing crew.
func (s *CatalogStore) AddCrewMember(ctx context.Context, crewID string, in models.CrewMemberInput) (*models.CrewMember, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.ErrNameRequired
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&Crew{}).Where("id = ?", crewID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	row := &CrewMember{
		CrewID: crewID,
		Name:   name,
		Role:   nullString(in.Role),
		Phone:  nullString(in.Phone),
		Email:  nullString(in.Email),
		Notes:  nullString(in.Notes),
	}
	if in.HourlyRate != nil {
		row.HourlyRate.Float64 = *in.HourlyRate
		row.HourlyRate.Valid = true
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	s.store.publish(ctx, Event{Type: "crew", Action: "member_added", ID: crewID})
	out := toModelCrewMember(row)
	return &out, nil
}

// Counts holds dashboard totals.
type Counts struct {
	Projects        int64 `json:"projects"`
	DailyLogs       int64 `json:"daily_logs"`
	OpenActionItems int64 `json:"open_action_items"`
}

// Counts returns dashboard totals.
func (s *CatalogStore) Counts(ctx context.Context) (*Counts, error) {
	var c Counts
	db := s.db.WithContext(ctx)
	if err := db.Model(&Project{}).Count(&c.Projects).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&DailyLog{}).Count(&c.DailyLogs).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&ActionItem{}).Where("status <> ?", models.StatusCompleted).Count(&c.OpenActionItems).Error; err != nil {
		return nil, err
	}
	return &c, nil
}
