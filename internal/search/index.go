// Package search provides full-text search over daily logs.
package search

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/sitelog/pkg/models"
)

// PageSize is the number of hits fetched per bleve request.
const PageSize = 200

// LogReader loads daily logs for indexing.
type LogReader interface {
	GetDailyLog(ctx context.Context, id string) (*models.DailyLog, error)
	AllDailyLogs(ctx context.Context) ([]models.DailyLog, error)
}

// Index is an in-memory bleve index of daily logs.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
}

// NewIndex creates an empty in-memory index.
func NewIndex() (*Index, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	// standard analyzer: lowercase + tokenize, no stemming
	text.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("superintendent", text)
	docMapping.AddFieldMappingsAt("project", text)
	docMapping.AddFieldMappingsAt("content", text)

	kw := bleve.NewTextFieldMapping()
	kw.Analyzer = keyword.Name
	kw.IncludeInAll = false
	docMapping.AddFieldMappingsAt("date", kw)
	docMapping.AddFieldMappingsAt("project_id", kw)

	im.AddDocumentMapping("log", docMapping)
	im.DefaultType = "log"
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	return &Index{index: index}, nil
}

func document(l *models.DailyLog) map[string]interface{} {
	var content strings.Builder
	for _, s := range l.Sections {
		content.WriteString(s.Content)
		content.WriteString("\n")
	}
	return map[string]interface{}{
		"date":           l.Date,
		"project_id":     l.ProjectID,
		"project":        l.ProjectName(),
		"superintendent": l.SuperintendentName,
		"content":        content.String(),
	}
}

// Put indexes or re-indexes a log.
func (ix *Index) Put(l *models.DailyLog) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index.Index(l.ID, document(l))
}

// Delete removes a log from the index.
func (ix *Index) Delete(id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index.Delete(id)
}

// Rebuild indexes every log from r in one batch and returns the count.
func (ix *Index) Rebuild(ctx context.Context, r LogReader) (int, error) {
	logs, err := r.AllDailyLogs(ctx)
	if err != nil {
		return 0, fmt.Errorf("load daily logs: %w", err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	batch := ix.index.NewBatch()
	for i := range logs {
		if err := batch.Index(logs[i].ID, document(&logs[i])); err != nil {
			return 0, fmt.Errorf("index log %s: %w", logs[i].ID, err)
		}
	}
	if err := ix.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("apply batch: %w", err)
	}
	return len(logs), nil
}

// Refresh re-reads one log from r and updates the index; a missing log is removed.
func (ix *Index) Refresh(ctx context.Context, r LogReader, id string) error {
	l, err := r.GetDailyLog(ctx, id)
	if err != nil {
		return err
	}
	if l == nil {
		return ix.Delete(id)
	}
	return ix.Put(l)
}

// HandleChange keeps the index current for a log change notification.
func (ix *Index) HandleChange(ctx context.Context, r LogReader, action, id string) {
	var err error
	if action == "deleted" {
		err = ix.Delete(id)
	} else {
		err = ix.Refresh(ctx, r, id)
	}
	if err != nil {
		log.Warn().Err(err).Str("logId", id).Str("action", action).Msg("Failed to update search index")
	}
}

// Search returns ids of logs matching query, best match first. Every term
// must match a whole word or a word prefix. A limit <= 0 returns every hit.
func (ix *Index) Search(query string, limit int) ([]string, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	clauses := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		match := bleve.NewMatchQuery(term)
		prefix := bleve.NewPrefixQuery(term)
		clauses = append(clauses, bleve.NewDisjunctionQuery(match, prefix))
	}
	q := bleve.NewConjunctionQuery(clauses...)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ids := make([]string, 0)
	for {
		size := PageSize
		if limit > 0 && limit-len(ids) < size {
			size = limit - len(ids)
		}
		req := bleve.NewSearchRequestOptions(q, size, len(ids), false)
		res, err := ix.index.Search(req)
		if err != nil {
			return nil, fmt.Errorf("bleve search: %w", err)
		}
		for _, hit := range res.Hits {
			ids = append(ids, hit.ID)
		}
		if len(res.Hits) == 0 || uint64(len(ids)) >= res.Total || (limit > 0 && len(ids) >= limit) {
			return ids, nil
		}
	}
}

// Count returns the number of indexed logs.
func (ix *Index) Count() (uint64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index.DocCount()
}

// Close releases the index.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index.Close()
}
