package threads

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/thebtf/sitelog/pkg/models"
)

type StoreSuite struct {
	suite.Suite
	persister *MemoryPersister
	store     *Store
	now       time.Time
	ids       int
}

func (s *StoreSuite) SetupTest() {
	s.now = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	s.ids = 0
	s.persister = NewMemoryPersister()
	s.store = s.newStore(s.persister)
	s.Require().NoError(s.store.Load())
}

func (s *StoreSuite) newStore(p Persister) *Store {
	return NewStore(p,
		WithClock(func() time.Time { return s.now }),
		WithIDs(func() string {
			s.ids++
			return fmt.Sprintf("t%d", s.ids)
		}))
}

func (s *StoreSuite) TestLoadEmptyCreatesOneThread() {
	threads := s.store.Threads()
	s.Require().Len(threads, 1)
	s.Equal(DefaultTitle, threads[0].Title)
	s.Equal("t1", s.store.Current().ID)

	raw, err := s.persister.Load(StorageKey)
	s.Require().NoError(err)
	s.NotEmpty(raw)
}

func (s *StoreSuite) TestDeleteLastThreadCreatesNewEmptyThread() {
	only := s.store.Current()
	s.Require().NoError(s.store.Append(models.RoleUser, "hello"))

	s.Require().NoError(s.store.Delete(only.ID))

	threads := s.store.Threads()
	s.Require().Len(threads, 1)
	s.NotEqual(only.ID, threads[0].ID)
	s.Empty(threads[0].Messages)
	s.Equal(DefaultTitle, threads[0].Title)
	s.Equal(threads[0].ID, s.store.Current().ID)
}

func (s *StoreSuite) TestDeleteCurrentSelectsFirstRemaining() {
	first := s.store.Current()
	_, err := s.store.New()
	s.Require().NoError(err)
	third, err := s.store.New()
	s.Require().NoError(err)

	s.Require().NoError(s.store.Delete(third.ID))
	s.Equal(first.ID, s.store.Current().ID)
	s.Len(s.store.Threads(), 2)

	s.ErrorIs(s.store.Delete("missing"), ErrThreadNotFound)
}

func (s *StoreSuite) TestAppendDerivesTitleFromFirstUserMessage() {
	s.Require().NoError(s.store.Append(models.RoleAssistant, "Hello! How can I help?"))
	s.Equal(DefaultTitle, s.store.Current().Title)

	long := "What is the status of the concrete pour on level three?"
	s.Require().NoError(s.store.Append(models.RoleUser, long))
	s.Equal("What is the status of the conc...", s.store.Current().Title)

	s.Require().NoError(s.store.Append(models.RoleUser, "second question"))
	s.Equal("What is the status of the conc...", s.store.Current().Title)

	hist := s.store.Current().History()
	s.Require().Len(hist, 3)
	s.Equal(models.ChatMessage{Role: models.RoleUser, Content: "second question"}, hist[2])
}

func (s *StoreSuite) TestSelectRenameNext() {
	first := s.store.Current()
	second, err := s.store.New()
	s.Require().NoError(err)
	s.Equal(second.ID, s.store.Current().ID)

	s.Require().NoError(s.store.Select(first.ID))
	s.Equal(first.ID, s.store.Current().ID)
	s.ErrorIs(s.store.Select("nope"), ErrThreadNotFound)

	next, err := s.store.Next()
	s.Require().NoError(err)
	s.Equal(second.ID, next.ID)
	next, err = s.store.Next()
	s.Require().NoError(err)
	s.Equal(first.ID, next.ID)

	s.Require().NoError(s.store.Rename(second.ID, "  Pour schedule "))
	s.Require().NoError(s.store.Rename(first.ID, ""))
	titles := []string{s.store.Threads()[0].Title, s.store.Threads()[1].Title}
	s.Equal([]string{DefaultTitle, "Pour schedule"}, titles)
}

func (s *StoreSuite) TestStateSurvivesReload() {
	s.Require().NoError(s.store.Append(models.RoleUser, "crew count today?"))
	second, err := s.store.New()
	s.Require().NoError(err)

	reloaded := s.newStore(s.persister)
	s.Require().NoError(reloaded.Load())
	s.Len(reloaded.Threads(), 2)
	s.Equal(second.ID, reloaded.Current().ID)
	s.Equal("crew count today?", reloaded.Threads()[0].Title)
}

func (s *StoreSuite) TestThreadsReturnsCopies() {
	s.Require().NoError(s.store.Append(models.RoleUser, "hi"))
	threads := s.store.Threads()
	threads[0].Messages[0].Content = "changed"
	s.Equal("hi", s.store.Current().Messages[0].Content)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func TestLoad_MigratesLegacyArray(t *testing.T) {
	p := NewMemoryPersister()
	legacy := `[
		{"id":"a","title":"Pour","messages":[
			{"role":"user","content":"pour?","timestamp":1718442000000},
			{"role":"assistant","content":"done","timestamp":"2024-06-15T09:05:00Z"}
		]},
		{"id":"b","title":"","messages":[]}
	]`
	require.NoError(t, p.Save(StorageKey, []byte(legacy)))

	store := NewStore(p)
	require.NoError(t, store.Load())

	threads := store.Threads()
	require.Len(t, threads, 2)
	assert.Equal(t, "a", store.Current().ID)
	assert.Equal(t, DefaultTitle, threads[1].Title)
	assert.Equal(t, time.UnixMilli(1718442000000).UTC(), threads[0].Messages[0].Timestamp)
	assert.Equal(t, time.Date(2024, 6, 15, 9, 5, 0, 0, time.UTC), threads[0].UpdatedAt)

	// the migrated shape is written back
	raw, err := p.Load(StorageKey)
	require.NoError(t, err)
	var doc document
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, SchemaVersion, doc.Version)
	assert.Equal(t, "a", doc.CurrentID)
}

func TestLoad_RejectsNewerSchema(t *testing.T) {
	p := NewMemoryPersister()
	require.NoError(t, p.Save(StorageKey, []byte(`{"version":99,"threads":[]}`)))
	assert.Error(t, NewStore(p).Load())
}

type failingPersister struct{}

func (failingPersister) Load(string) ([]byte, error) { return nil, errors.New("disk gone") }
func (failingPersister) Save(string, []byte) error   { return errors.New("disk gone") }

func TestLoad_PersisterError(t *testing.T) {
	assert.Error(t, NewStore(failingPersister{}).Load())
}

func TestFilePersister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "threads.json")
	p := NewFilePersister(path)

	raw, err := p.Load(StorageKey)
	require.NoError(t, err)
	assert.Nil(t, raw)

	require.NoError(t, p.Save(StorageKey, []byte(`{"version":2}`)))
	require.NoError(t, p.Save("other", []byte(`[1,2]`)))

	raw, err = p.Load(StorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":2}`, string(raw))

	store := NewStore(NewFilePersister(path))
	require.NoError(t, store.Load())
	require.NoError(t, store.Append(models.RoleUser, strings.Repeat("x", 40)))

	again := NewStore(NewFilePersister(path))
	require.NoError(t, again.Load())
	assert.Equal(t, strings.Repeat("x", 30)+"...", again.Current().Title)

	raw, err = p.Load("other")
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(raw))
}

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, DefaultTitle, DeriveTitle("   "))
	assert.Equal(t, "short question", DeriveTitle(" short \n question "))
}
