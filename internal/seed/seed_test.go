package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gormdb "github.com/thebtf/sitelog/internal/db/gorm"
	"github.com/thebtf/sitelog/pkg/models"
)

func testCatalogStore(t *testing.T) *gormdb.CatalogStore {
	t.Helper()
	store, err := gormdb.NewStore(gormdb.Config{Path: filepath.Join(t.TempDir(), "seed.db")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return gormdb.NewCatalogStore(store)
}

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.NotEmpty(t, c.Projects)
	assert.NotEmpty(t, c.Crews)
	assert.NotEmpty(t, c.Subcontractors)

	rate := c.Crews[0].Members[0].HourlyRate
	require.NotNil(t, rate)
	assert.InDelta(t, 42.5, *rate, 0.001)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "invalid yaml", yaml: ":\tinvalid:\t[unclosed"},
		{name: "blank project", yaml: "projects:\n  - name: \"  \"\n"},
		{name: "blank crew", yaml: "crews:\n  - name: \"\"\n"},
		{name: "blank member", yaml: "crews:\n  - name: A\n    members:\n      - role: Foreman\n"},
		{name: "blank subcontractor", yaml: "subcontractors:\n  - \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("subcontractors:\n  - Acme Glass\n"), 0600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme Glass"}, c.Subcontractors)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	c, err = Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, c.Projects)
}

func TestApply_Idempotent(t *testing.T) {
	ctx := context.Background()
	catalog := testCatalogStore(t)

	c, err := Default()
	require.NoError(t, err)

	first, err := Apply(ctx, catalog, c)
	require.NoError(t, err)
	assert.Equal(t, len(c.Projects), first.Projects)
	assert.Equal(t, len(c.Crews), first.Crews)
	assert.Equal(t, 3, first.CrewMembers)
	assert.Equal(t, len(c.Subcontractors), first.Subcontractors)

	second, err := Apply(ctx, catalog, c)
	require.NoError(t, err)
	assert.Equal(t, &Result{}, second)

	projects, err := catalog.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, len(c.Projects))
}

func TestApply_AddsMissingMembersToExistingCrew(t *testing.T) {
	ctx := context.Background()
	catalog := testCatalogStore(t)

	crew, err := catalog.CreateCrew(ctx, "Framing Crew A")
	require.NoError(t, err)
	_, err = catalog.AddCrewMember(ctx, crew.ID, models.CrewMemberInput{Name: "Marcus Bell"})
	require.NoError(t, err)

	res, err := Apply(ctx, catalog, &Catalog{Crews: []CrewSeed{{
		Name: "Framing Crew A",
		Members: []models.CrewMemberInput{
			{Name: "Marcus Bell"},
			{Name: " Luis Ortega "},
		},
	}}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Crews)
	assert.Equal(t, 1, res.CrewMembers)

	crews, err := catalog.ListCrews(ctx)
	require.NoError(t, err)
	require.Len(t, crews, 1)
	names := []string{crews[0].Members[0].Name, crews[0].Members[1].Name}
	assert.Equal(t, []string{"Luis Ortega", "Marcus Bell"}, names)
}
