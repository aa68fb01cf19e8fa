package gorm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/thebtf/sitelog/pkg/models"
)

type LogStoreSuite struct {
	suite.Suite
	store     *Store
	cleanup   func()
	logs      *LogStore
	catalog   *CatalogStore
	projectID string
	crewID    string
	subID     string
	ctx       context.Context
}

func (s *LogStoreSuite) SetupTest() {
	s.store, s.cleanup = testStore(s.T())
	s.logs = NewLogStore(s.store)
	s.catalog = NewCatalogStore(s.store)
	s.ctx = context.Background()
	s.projectID = seedProject(s.T(), s.store, "Harbor Point")

	crew, err := s.catalog.CreateCrew(s.ctx, "Framing")
	s.Require().NoError(err)
	s.crewID = crew.ID
	sub, err := s.catalog.CreateSubcontractor(s.ctx, "Acme Electric")
	s.Require().NoError(err)
	s.subID = sub.ID
}

func (s *LogStoreSuite) TearDownTest() {
	s.cleanup()
}

func (s *LogStoreSuite) input(date string) models.DailyLogInput {
	return models.DailyLogInput{
		Date:               date,
		SuperintendentName: "Dana",
		ProjectID:          s.projectID,
		Sections: map[models.SectionType][]string{
			models.SectionNotes:         {"Windy afternoon"},
			models.SectionWorkPerformed: {"  Poured footings ", "", "Set forms"},
			models.SectionDelays:        {"   "},
		},
		CrewIDs:          []string{s.crewID, s.crewID},
		SubcontractorIDs: []string{s.subID, ""},
	}
}

func (s *LogStoreSuite) TestCreateDailyLog_SectionsInFormOrder() {
	log, err := s.logs.CreateDailyLog(s.ctx, s.input("2024-03-04"))
	s.Require().NoError(err)
	s.Require().NotNil(log)

	s.Require().Len(log.Sections, 3)
	s.Equal(models.SectionWorkPerformed, log.Sections[0].SectionType)
	s.Equal("Poured footings", log.Sections[0].Content)
	s.Equal(1, log.Sections[0].OrderNum)
	s.Equal("Set forms", log.Sections[1].Content)
	s.Equal(2, log.Sections[1].OrderNum)
	s.Equal(models.SectionNotes, log.Sections[2].SectionType)
	s.Equal(3, log.Sections[2].OrderNum)

	s.Require().Len(log.Crews, 1)
	s.Equal("Framing", log.Crews[0].Name)
	s.Require().Len(log.Subcontractors, 1)
	s.Equal("Acme Electric", log.Subcontractors[0].Name)
	s.Equal("Harbor Point", log.ProjectName())
}

func (s *LogStoreSuite) TestCreateDailyLog_Validation() {
	tests := []struct {
		name    string
		mutate  func(in *models.DailyLogInput)
		wantErr error
	}{
		{name: "missing date", mutate: func(in *models.DailyLogInput) { in.Date = "" }, wantErr: models.ErrMissingRequired},
		{name: "missing superintendent", mutate: func(in *models.DailyLogInput) { in.SuperintendentName = " " }, wantErr: models.ErrMissingRequired},
		{name: "missing project", mutate: func(in *models.DailyLogInput) { in.ProjectID = "" }, wantErr: models.ErrMissingRequired},
		{name: "bad date", mutate: func(in *models.DailyLogInput) { in.Date = "03/04/2024" }, wantErr: models.ErrInvalidDate},
		{name: "unknown project", mutate: func(in *models.DailyLogInput) { in.ProjectID = "nope" }, wantErr: models.ErrUnknownProject},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			in := s.input("2024-03-04")
			tt.mutate(&in)
			_, err := s.logs.CreateDailyLog(s.ctx, in)
			s.ErrorIs(err, tt.wantErr)
		})
	}

	var count int64
	s.Require().NoError(s.store.DB.Model(&DailyLog{}).Count(&count).Error)
	s.Zero(count)
}

func (s *LogStoreSuite) TestUpdateDailyLog_ReplacesChildren() {
	created, err := s.logs.CreateDailyLog(s.ctx, s.input("2024-03-04"))
	s.Require().NoError(err)

	in := s.input("2024-03-05")
	in.Sections = map[models.SectionType][]string{models.SectionMeetings: {"OAC meeting"}}
	in.CrewIDs = nil
	updated, err := s.logs.UpdateDailyLog(s.ctx, created.ID, in)
	s.Require().NoError(err)

	s.Equal("2024-03-05", updated.Date)
	s.Require().Len(updated.Sections, 1)
	s.Equal("OAC meeting", updated.Sections[0].Content)
	s.Equal(1, updated.Sections[0].OrderNum)
	s.Empty(updated.Crews)
	s.Len(updated.Subcontractors, 1)

	_, err = s.logs.UpdateDailyLog(s.ctx, "missing", in)
	s.ErrorIs(err, ErrNotFound)
}

func (s *LogStoreSuite) TestDeleteDailyLog_DetachesActionItems() {
	created, err := s.logs.CreateDailyLog(s.ctx, s.input("2024-03-04"))
	s.Require().NoError(err)

	items := NewActionItemStore(s.store)
	item, err := items.CreateFromSection(s.ctx, models.ActionItemInput{
		SectionType: "actionItems",
		Content:     "Order rebar",
		LogID:       &created.ID,
	})
	s.Require().NoError(err)

	s.Require().NoError(s.logs.DeleteDailyLog(s.ctx, created.ID))

	got, err := s.logs.GetDailyLog(s.ctx, created.ID)
	s.NoError(err)
	s.Nil(got)

	kept, err := items.Get(s.ctx, item.ID)
	s.Require().NoError(err)
	s.Require().NotNil(kept)
	s.Nil(kept.LogID)

	var sections int64
	s.Require().NoError(s.store.DB.Model(&LogSection{}).Where("log_id = ?", created.ID).Count(&sections).Error)
	s.Zero(sections)

	s.ErrorIs(s.logs.DeleteDailyLog(s.ctx, created.ID), ErrNotFound)
}

func (s *LogStoreSuite) TestListDailyLogs_FiltersAndPaging() {
	for day := 1; day <= 5; day++ {
		in := s.input(fmt.Sprintf("2024-03-%02d", day))
		if day == 3 {
			in.SuperintendentName = "Morgan"
		}
		_, err := s.logs.CreateDailyLog(s.ctx, in)
		s.Require().NoError(err)
	}

	page, err := s.logs.ListDailyLogs(s.ctx, models.DailyLogFilter{PerPage: 2})
	s.Require().NoError(err)
	s.Equal(int64(5), page.Total)
	s.Require().Len(page.Logs, 2)
	s.Equal("2024-03-05", page.Logs[0].Date)
	s.Equal("2024-03-04", page.Logs[1].Date)

	page, err = s.logs.ListDailyLogs(s.ctx, models.DailyLogFilter{PerPage: 2, Page: 3})
	s.Require().NoError(err)
	s.Require().Len(page.Logs, 1)
	s.Equal("2024-03-01", page.Logs[0].Date)

	page, err = s.logs.ListDailyLogs(s.ctx, models.DailyLogFilter{Search: "morgan"})
	s.Require().NoError(err)
	s.Require().Len(page.Logs, 1)
	s.Equal("2024-03-03", page.Logs[0].Date)

	page, err = s.logs.ListDailyLogs(s.ctx, models.DailyLogFilter{Search: "FOOTINGS"})
	s.Require().NoError(err)
	s.Equal(int64(5), page.Total)

	page, err = s.logs.ListDailyLogs(s.ctx, models.DailyLogFilter{Date: "2024-03-02"})
	s.Require().NoError(err)
	s.Equal(int64(1), page.Total)

	page, err = s.logs.ListDailyLogs(s.ctx, models.DailyLogFilter{IDs: []string{}})
	s.Require().NoError(err)
	s.Zero(page.Total)
}

func (s *LogStoreSuite) TestListDailyLogs_SearchWildcardsAreLiteral() {
	plain := s.input("2024-04-01")
	plain.Sections = map[models.SectionType][]string{models.SectionWorkPerformed: {"Framing 80 complete"}}
	_, err := s.logs.CreateDailyLog(s.ctx, plain)
	s.Require().NoError(err)

	percent := s.input("2024-04-02")
	percent.Sections = map[models.SectionType][]string{models.SectionWorkPerformed: {"Framing 80% complete"}}
	_, err = s.logs.CreateDailyLog(s.ctx, percent)
	s.Require().NoError(err)

	tests := []struct {
		search string
		want   int64
	}{
		{"80%", 1},
		{"%", 1},
		{"_", 0},
		{"80", 2},
	}
	for _, tt := range tests {
		page, err := s.logs.ListDailyLogs(s.ctx, models.DailyLogFilter{Search: tt.search})
		s.Require().NoError(err)
		s.Equal(tt.want, page.Total, tt.search)
	}
}

func (s *LogStoreSuite) TestRecentDailyLogs_LimitAndOrder() {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		_, err := s.logs.CreateDailyLog(s.ctx, s.input(base.AddDate(0, 0, i*3%12).Format(models.DateLayout)))
		s.Require().NoError(err)
	}

	recent, err := s.logs.RecentDailyLogs(s.ctx, SnapshotRecentLogs)
	s.Require().NoError(err)
	s.Require().Len(recent, 10)
	for i := 1; i < len(recent); i++ {
		s.GreaterOrEqual(recent[i-1].Date, recent[i].Date)
	}
	s.NotEmpty(recent[0].Sections)
	s.NotNil(recent[0].Project)
}

func TestLogStoreSuite(t *testing.T) {
	suite.Run(t, new(LogStoreSuite))
}

func TestCatalogStore(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()
	catalog := NewCatalogStore(store)

	loc := "Seattle"
	_, err := catalog.CreateProject(ctx, models.ProjectInput{Name: "Zephyr Tower", Location: &loc})
	require.NoError(t, err)
	_, err = catalog.CreateProject(ctx, models.ProjectInput{Name: "Alder Court"})
	require.NoError(t, err)
	_, err = catalog.CreateProject(ctx, models.ProjectInput{Name: "  "})
	assert.ErrorIs(t, err, models.ErrNameRequired)

	projects, err := catalog.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "Alder Court", projects[0].Name)
	assert.Nil(t, projects[0].Location)
	assert.Equal(t, "Seattle", models.StringValue(projects[1].Location))

	crew, err := catalog.CreateCrew(ctx, "Concrete")
	require.NoError(t, err)
	rate := 42.5
	role := "Foreman"
	_, err = catalog.AddCrewMember(ctx, crew.ID, models.CrewMemberInput{Name: "Sam", Role: &role, HourlyRate: &rate})
	require.NoError(t, err)
	_, err = catalog.AddCrewMember(ctx, "missing", models.CrewMemberInput{Name: "Lee"})
	assert.ErrorIs(t, err, ErrNotFound)

	crews, err := catalog.ListCrews(ctx)
	require.NoError(t, err)
	require.Len(t, crews, 1)
	require.Len(t, crews[0].Members, 1)
	assert.Equal(t, 42.5, *crews[0].Members[0].HourlyRate)
	assert.Equal(t, "Foreman", *crews[0].Members[0].Role)

	found, err := catalog.FindProjectByName(ctx, "Alder Court")
	require.NoError(t, err)
	require.NotNil(t, found)
	missing, err := catalog.FindProjectByName(ctx, "Nowhere")
	require.NoError(t, err)
	assert.Nil(t, missing)

	counts, err := catalog.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts.Projects)
	assert.Zero(t, counts.DailyLogs)
}
