// Package seed loads a YAML catalog of projects, crews and subcontractors and
// applies it to the store.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/thebtf/sitelog/pkg/models"
)

//go:embed default.yaml
var defaultCatalog []byte

// ProjectSeed describes a project entry.
type ProjectSeed struct {
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
	Client   string `yaml:"client"`
}

// CrewSeed describes a crew and its members.
type CrewSeed struct {
	Name    string                   `yaml:"name"`
	Members []models.CrewMemberInput `yaml:"members"`
}

// Catalog is the top-level YAML structure.
type Catalog struct {
	Projects       []ProjectSeed `yaml:"projects"`
	Crews          []CrewSeed    `yaml:"crews"`
	Subcontractors []string      `yaml:"subcontractors"`
}

// Writer is the subset of the catalog store the seeder needs.
type Writer interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	CreateProject(ctx context.Context, in models.ProjectInput) (*models.Project, error)
	ListSubcontractors(ctx context.Context) ([]models.Subcontractor, error)
	CreateSubcontractor(ctx context.Context, name string) (*models.Subcontractor, error)
	ListCrews(ctx context.Context) ([]models.Crew, error)
	CreateCrew(ctx context.Context, name string) (*models.Crew, error)
	AddCrewMember(ctx context.Context, crewID string, in models.CrewMemberInput) (*models.CrewMember, error)
}

// Result counts what Apply created.
type Result struct {
	Projects       int `json:"projects"`
	Crews          int `json:"crews"`
	CrewMembers    int `json:"crew_members"`
	Subcontractors int `json:"subcontractors"`
}

// Default returns the built-in sample catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path. An empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for i, p := range c.Projects {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("project %d: %w", i+1, models.ErrNameRequired)
		}
	}
	for i, cr := range c.Crews {
		if strings.TrimSpace(cr.Name) == "" {
			return nil, fmt.Errorf("crew %d: %w", i+1, models.ErrNameRequired)
		}
		for j, m := range cr.Members {
			if strings.TrimSpace(m.Name) == "" {
				return nil, fmt.Errorf("crew %q member %d: %w", cr.Name, j+1, models.ErrNameRequired)
			}
		}
	}
	for i, s := range c.Subcontractors {
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("subcontractor %d: %w", i+1, models.ErrNameRequired)
		}
	}
	return &c, nil
}

// Apply creates every catalog entry whose name is not already present.
// Running it twice creates nothing the second time.
func Apply(ctx context.Context, w Writer, c *Catalog) (*Result, error) {
	res := &Result{}

	projects, err := w.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	have := make(map[string]bool, len(projects))
	for _, p := range projects {
		have[p.Name] = true
	}
	for _, p := range c.Projects {
		name := strings.TrimSpace(p.Name)
		if have[name] {
			continue
		}
		if _, err := w.CreateProject(ctx, models.ProjectInput{
			Name:     name,
			Location: models.OptionalString(strings.TrimSpace(p.Location)),
			Client:   models.OptionalString(strings.TrimSpace(p.Client)),
		}); err != nil {
			return res, fmt.Errorf("create project %q: %w", name, err)
		}
		have[name] = true
		res.Projects++
	}

	subs, err := w.ListSubcontractors(ctx)
	if err != nil {
		return res, fmt.Errorf("list subcontractors: %w", err)
	}
	have = make(map[string]bool, len(subs))
	for _, s := range subs {
		have[s.Name] = true
	}
	for _, s := range c.Subcontractors {
		name := strings.TrimSpace(s)
		if have[name] {
			continue
		}
		if _, err := w.CreateSubcontractor(ctx, name); err != nil {
			return res, fmt.Errorf("create subcontractor %q: %w", name, err)
		}
		have[name] = true
		res.Subcontractors++
	}

	crews, err := w.ListCrews(ctx)
	if err != nil {
		return res, fmt.Errorf("list crews: %w", err)
	}
	existing := make(map[string]models.Crew, len(crews))
	for _, cr := range crews {
		existing[cr.Name] = cr
	}
	for _, cs := range c.Crews {
		name := strings.TrimSpace(cs.Name)
		crew, ok := existing[name]
		if !ok {
			created, err := w.CreateCrew(ctx, name)
			if err != nil {
				return res, fmt.Errorf("create crew %q: %w", name, err)
			}
			crew = *created
			existing[name] = crew
			res.Crews++
		}

		members := make(map[string]bool, len(crew.Members))
		for _, m := range crew.Members {
			members[m.Name] = true
		}
		for _, m := range cs.Members {
			m.Name = strings.TrimSpace(m.Name)
			if members[m.Name] {
				continue
			}
			if _, err := w.AddCrewMember(ctx, crew.ID, m); err != nil {
				return res, fmt.Errorf("add member %q to crew %q: %w", m.Name, name, err)
			}
			members[m.Name] = true
			res.CrewMembers++
		}
	}

	log.Info().
		Int("projects", res.Projects).
		Int("crews", res.Crews).
		Int("crewMembers", res.CrewMembers).
		Int("subcontractors", res.Subcontractors).
		Msg("Catalog seeded")
	return res, nil
}
