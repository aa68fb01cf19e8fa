package gorm

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/thebtf/sitelog/pkg/models"
)

// Snapshot read limits.
const (
	SnapshotRecentLogs  = 10
	SnapshotActionItems = MaxDetailedActionItems
	snapshotCacheKey    = "snapshot"
)

// SnapshotCache stores serialized snapshots between requests.
type SnapshotCache interface {
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	SetJSON(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
}

// SnapshotStore reads the data the chat assistant answers from.
type SnapshotStore struct {
	db    *gorm.DB
	cache SnapshotCache

	// gen changes on every Invalidate; a read that straddles one is not cached.
	gen atomic.Uint64
}

// NewSnapshotStore creates a snapshot store. cache may be nil.
func NewSnapshotStore(store *Store, cache SnapshotCache) *SnapshotStore {
	s := &SnapshotStore{db: store.DB, cache: cache}
	if cache != nil {
		store.Subscribe(func(Event) { s.Invalidate(context.Background()) })
	}
	return s
}

// Invalidate drops the cached snapshot.
func (s *SnapshotStore) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.gen.Add(1)
	if err := s.cache.Delete(ctx, snapshotCacheKey); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate snapshot cache")
	}
}

// Fetch reads every table the assistant needs in parallel. It never fails:
// on any read error it returns an empty snapshot carrying an error message.
func (s *SnapshotStore) Fetch(ctx context.Context) *models.Snapshot {
	gen := s.gen.Load()
	if s.cache != nil {
		var cached models.Snapshot
		hit, err := s.cache.GetJSON(ctx, snapshotCacheKey, &cached)
		if err != nil {
			log.Warn().Err(err).Msg("Snapshot cache read failed")
		} else if hit {
			return &cached
		}
	}

	snap, err := s.read(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch construction data")
		return models.EmptySnapshot(models.SnapshotUnavailable)
	}

	if s.cache != nil && s.gen.Load() == gen {
		if err := s.cache.SetJSON(ctx, snapshotCacheKey, snap); err != nil {
			log.Warn().Err(err).Msg("Snapshot cache write failed")
		}
	}
	return snap
}

func (s *SnapshotStore) read(ctx context.Context) (*models.Snapshot, error) {
	var (
		projects       []Project
		logCount       int64
		crews          []Crew
		members        []CrewMember
		subcontractors []Subcontractor
		items          []ActionItem
		notes          []ActionItemNote
		recentLogs     []DailyLog
		detailed       []ActionItem
	)

	g, gctx := errgroup.WithContext(ctx)
	db := s.db.WithContext(gctx)

	g.Go(func() error { return db.Order("name ASC").Find(&projects).Error })
	g.Go(func() error { return db.Model(&DailyLog{}).Count(&logCount).Error })
	g.Go(func() error { return db.Order("name ASC").Find(&crews).Error })
	g.Go(func() error { return db.Order("name ASC").Find(&members).Error })
	g.Go(func() error { return db.Order("name ASC").Find(&subcontractors).Error })
	g.Go(func() error { return db.Order("created_at DESC").Find(&items).Error })
	g.Go(func() error { return db.Order("created_at DESC").Find(&notes).Error })
	g.Go(func() error {
		var err error
		recentLogs, err = recentLogRows(db, SnapshotRecentLogs)
		return err
	})
	g.Go(func() error {
		var err error
		detailed, err = detailedActionItemRows(db, SnapshotActionItems)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := models.EmptySnapshot("")
	snap.DailyLogCount = logCount
	for i := range projects {
		snap.Projects = append(snap.Projects, *toModelProject(&projects[i]))
	}
	for i := range crews {
		snap.Crews = append(snap.Crews, toModelCrew(&crews[i]))
	}
	for i := range members {
		snap.CrewMembers = append(snap.CrewMembers, toModelCrewMember(&members[i]))
	}
	for i := range subcontractors {
		snap.Subcontractors = append(snap.Subcontractors, toModelSubcontractor(&subcontractors[i]))
	}
	for i := range items {
		snap.ActionItems = append(snap.ActionItems, *toModelActionItem(&items[i]))
	}
	for i := range notes {
		snap.ActionItemNotes = append(snap.ActionItemNotes, toModelActionItemNote(&notes[i]))
	}
	for i := range recentLogs {
		snap.RecentLogs = append(snap.RecentLogs, *toModelDailyLog(&recentLogs[i]))
	}
	for i := range detailed {
		snap.DetailedActionItems = append(snap.DetailedActionItems, *toModelActionItem(&detailed[i]))
	}
	return snap, nil
}
