package gorm

import (
	"context"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/sitelog/pkg/models"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int

	// onMiss runs after a cache miss, outside the lock.
	onMiss func()
}

func (c *memoryCache) GetJSON(_ context.Context, key string, v any) (bool, error) {
	c.mu.Lock()
	c.gets++
	raw, ok := c.data[key]
	c.mu.Unlock()
	if !ok {
		if c.onMiss != nil {
			c.onMiss()
		}
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

func (c *memoryCache) SetJSON(_ context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func TestSnapshotStore_Fetch(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	projectID := seedProject(t, store, "Harbor Point")
	catalog := NewCatalogStore(store)
	crew, err := catalog.CreateCrew(ctx, "Framing")
	require.NoError(t, err)
	_, err = catalog.AddCrewMember(ctx, crew.ID, models.CrewMemberInput{Name: "Sam"})
	require.NoError(t, err)

	logs := NewLogStore(store)
	created, err := logs.CreateDailyLog(ctx, models.DailyLogInput{
		Date:               "2024-03-04",
		SuperintendentName: "Dana",
		ProjectID:          projectID,
		Sections:           map[models.SectionType][]string{models.SectionWorkPerformed: {"Poured footings"}},
		CrewIDs:            []string{crew.ID},
	})
	require.NoError(t, err)

	items := NewActionItemStore(store)
	item, err := items.CreateFromSection(ctx, models.ActionItemInput{
		SectionType: "actionItems",
		Content:     "Order rebar",
		ProjectID:   &projectID,
		LogID:       &created.ID,
	})
	require.NoError(t, err)
	_, err = items.AddNote(ctx, item.ID, "Called supplier", "Dana")
	require.NoError(t, err)

	snap := NewSnapshotStore(store, nil).Fetch(ctx)
	assert.Empty(t, snap.Error)
	assert.Len(t, snap.Projects, 1)
	assert.Equal(t, int64(1), snap.DailyLogCount)
	assert.Len(t, snap.Crews, 1)
	assert.Len(t, snap.CrewMembers, 1)
	assert.Len(t, snap.ActionItems, 1)
	assert.Len(t, snap.ActionItemNotes, 1)
	require.Len(t, snap.RecentLogs, 1)
	assert.Equal(t, "Harbor Point", snap.RecentLogs[0].ProjectName())
	require.Len(t, snap.DetailedActionItems, 1)
	detailed := snap.DetailedActionItems[0]
	assert.Equal(t, "Harbor Point", detailed.ProjectName())
	require.NotNil(t, detailed.Log)
	assert.Equal(t, "2024-03-04", detailed.Log.Date)
	assert.Len(t, detailed.Notes, 1)
}

func TestSnapshotStore_FetchFailureYieldsEmptySnapshot(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	snapshots := NewSnapshotStore(store, nil)
	require.NoError(t, store.Close())

	snap := snapshots.Fetch(context.Background())
	assert.Equal(t, models.SnapshotUnavailable, snap.Error)
	assert.Empty(t, snap.Projects)
	assert.NotNil(t, snap.ActionItems)
}

func TestSnapshotStore_CacheInvalidatedOnWrite(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	cache := &memoryCache{data: map[string][]byte{}}
	snapshots := NewSnapshotStore(store, cache)

	first := snapshots.Fetch(ctx)
	assert.Empty(t, first.Projects)
	assert.Contains(t, cache.data, snapshotCacheKey)

	seedProject(t, store, "Harbor Point")
	assert.NotContains(t, cache.data, snapshotCacheKey)

	second := snapshots.Fetch(ctx)
	assert.Len(t, second.Projects, 1)
}

func TestSnapshotStore_WriteDuringReadIsNotCached(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()
	ctx := context.Background()

	cache := &memoryCache{data: map[string][]byte{}}
	snapshots := NewSnapshotStore(store, cache)

	// A write lands after the cache miss but before the read finishes.
	cache.onMiss = func() {
		cache.onMiss = nil
		seedProject(t, store, "Harbor Point")
	}

	snapshots.Fetch(ctx)
	assert.NotContains(t, cache.data, snapshotCacheKey, "snapshot read across a write must not be cached")

	next := snapshots.Fetch(ctx)
	assert.Len(t, next.Projects, 1)
	assert.Contains(t, cache.data, snapshotCacheKey)
}
