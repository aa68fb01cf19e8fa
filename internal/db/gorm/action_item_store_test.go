package gorm

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/sitelog/pkg/models"
)

func TestActionItemStore_CreateFromSection(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()
	items := NewActionItemStore(store)
	projectID := seedProject(t, store, "Harbor Point")

	long := strings.Repeat("x", 60)

	tests := []struct {
		name       string
		section    string
		content    string
		createdBy  string
		wantSource models.SourceType
		wantTitle  string
		wantBy     string
	}{
		{name: "meeting", section: "meetings", content: "Confirm window submittal", createdBy: "Dana", wantSource: models.SourceMeeting, wantTitle: "Confirm window submittal", wantBy: "Dana"},
		{name: "out of scope", section: "outOfScope", content: "Extra trenching", wantSource: models.SourceOutOfScope, wantTitle: "Extra trenching", wantBy: "Unknown"},
		{name: "action item", section: "actionItems", content: "Call inspector", wantSource: models.SourceActionItem, wantTitle: "Call inspector", wantBy: "Unknown"},
		{name: "notes", section: "notes", content: "Crack in slab", wantSource: models.SourceObservation, wantTitle: "Crack in slab", wantBy: "Unknown"},
		{name: "unknown section", section: "delays", content: "Rain", wantSource: models.SourceActionItem, wantTitle: "Rain", wantBy: "Unknown"},
		{name: "long title", section: "notes", content: long, wantSource: models.SourceObservation, wantTitle: strings.Repeat("x", 50) + "...", wantBy: "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := items.CreateFromSection(ctx, models.ActionItemInput{
				SectionType: tt.section,
				Content:     "  " + tt.content + " ",
				CreatedBy:   tt.createdBy,
				ProjectID:   &projectID,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, item.SourceType)
			assert.Equal(t, tt.wantTitle, item.Title)
			assert.Equal(t, tt.wantBy, item.CreatedBy)
			assert.Equal(t, models.StatusOpen, item.Status)
			assert.Equal(t, models.PriorityMedium, item.Priority)
			assert.Equal(t, tt.content, models.StringValue(item.Description))
			assert.Equal(t, tt.content, models.StringValue(item.SourceContent))
		})
	}

	_, err := items.CreateFromSection(ctx, models.ActionItemInput{SectionType: "notes", Content: "  "})
	assert.ErrorIs(t, err, models.ErrEmptyContent)
}

func TestActionItemStore_UpdateCompletion(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()
	items := NewActionItemStore(store)

	item, err := items.Create(ctx, &models.ActionItem{Title: "Order rebar"})
	require.NoError(t, err)
	assert.Nil(t, item.CompletedAt)

	completed := models.StatusCompleted
	got, err := items.Update(ctx, item.ID, models.ActionItemPatch{Status: &completed})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	open := models.StatusInProgress
	got, err = items.Update(ctx, item.ID, models.ActionItemPatch{Status: &open})
	require.NoError(t, err)
	assert.Nil(t, got.CompletedAt)

	due := time.Date(2024, 5, 1, 15, 30, 0, 0, time.UTC)
	urgent := models.PriorityUrgent
	got, err = items.Update(ctx, item.ID, models.ActionItemPatch{DueDate: &due, Priority: &urgent})
	require.NoError(t, err)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, models.PriorityUrgent, got.Priority)

	bad := models.ActionItemStatus("done")
	_, err = items.Update(ctx, item.ID, models.ActionItemPatch{Status: &bad})
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	_, err = items.Update(ctx, "missing", models.ActionItemPatch{Priority: &urgent})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActionItemStore_AddNote(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()
	items := NewActionItemStore(store)

	item, err := items.Create(ctx, &models.ActionItem{Title: "Order rebar"})
	require.NoError(t, err)

	_, err = items.AddNote(ctx, item.ID, "Called supplier", "Dana")
	require.NoError(t, err)
	_, err = items.AddNote(ctx, item.ID, "Delivery Tuesday", "")
	require.NoError(t, err)
	_, err = items.AddNote(ctx, item.ID, " ", "Dana")
	assert.ErrorIs(t, err, models.ErrEmptyContent)
	_, err = items.AddNote(ctx, "missing", "note", "Dana")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := items.Get(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, got.Notes, 2)
	assert.Equal(t, "Called supplier", got.Notes[0].Note)
	assert.Equal(t, "Unknown", got.Notes[1].CreatedBy)
}

func TestActionItemStore_WithDetailsLimitAndOrder(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()
	items := NewActionItemStore(store)

	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 55; i++ {
		row := &ActionItem{
			Title:     "item",
			CreatedBy: "Dana",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.DB.Create(row).Error)
	}

	got, err := items.WithDetails(ctx, 100)
	require.NoError(t, err)
	require.Len(t, got, MaxDetailedActionItems)
	assert.True(t, got[0].CreatedAt.Equal(base.Add(54*time.Minute)))
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].CreatedAt.After(got[i-1].CreatedAt))
	}

	listed, err := items.List(ctx, models.ActionItemFilter{Status: models.StatusOpen, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, listed, 5)

	_, err = items.List(ctx, models.ActionItemFilter{Status: "bogus"})
	assert.ErrorIs(t, err, models.ErrInvalidStatus)
}
