package worker

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/sitelog/internal/export"
	"github.com/thebtf/sitelog/pkg/models"
)

// handleListLogs returns one page of daily logs.
//
//	@Summary	List daily logs
//	@Tags		logs
//	@Produce	json
//	@Param		search	query		string	false	"Free-text search"
//	@Param		project	query		string	false	"Project id"
//	@Param		date	query		string	false	"Date (YYYY-MM-DD)"
//	@Param		page	query		int		false	"Page number"
//	@Param		limit	query		int		false	"Logs per page"
//	@Success	200		{object}	models.DailyLogPage
//	@Router		/api/logs [get]
func (s *Service) handleListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.DailyLogFilter{
		ProjectID: q.Get("project"),
		Date:      q.Get("date"),
		Search:    q.Get("search"),
		Page:      queryInt(r, "page"),
		PerPage:   queryInt(r, "limit"),
	}

	if term := strings.TrimSpace(filter.Search); term != "" && s.search != nil {
		ids, err := s.search.Search(term, 0)
		if err != nil {
			log.Warn().Err(err).Str("query", term).Msg("Index search failed, using SQL search")
		} else {
			if ids == nil {
				ids = []string{}
			}
			filter.IDs = ids
		}
	}

	page, err := s.logs.ListDailyLogs(r.Context(), filter)
	if err != nil {
		writeStoreError(w, r, err, "log")
		return
	}
	writeJSON(w, page)
}

// handleCreateLog stores a new daily log.
//
//	@Summary	Create a daily log
//	@Tags		logs
//	@Accept		json
//	@Produce	json
//	@Param		log	body		models.DailyLogInput	true	"Daily log"
//	@Success	201	{object}	models.DailyLog
//	@Failure	400	{object}	map[string]string
//	@Router		/api/logs [post]
func (s *Service) handleCreateLog(w http.ResponseWriter, r *http.Request) {
	var in models.DailyLogInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	l, err := s.logs.CreateDailyLog(r.Context(), in)
	if err != nil {
		writeStoreError(w, r, err, "log")
		return
	}
	log.Info().
		Str("logId", l.ID).
		Str("projectId", l.ProjectID).
		Str("date", l.Date).
		Int("sections", len(l.Sections)).
		Msg("Daily log created")
	writeJSONStatus(w, http.StatusCreated, l)
}

func (s *Service) handleGetLog(w http.ResponseWriter, r *http.Request) {
	l, err := s.logs.GetDailyLog(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err, "log")
		return
	}
	if l == nil {
		writeError(w, http.StatusNotFound, "log not found")
		return
	}
	writeJSON(w, l)
}

func (s *Service) handleUpdateLog(w http.ResponseWriter, r *http.Request) {
	var in models.DailyLogInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	l, err := s.logs.UpdateDailyLog(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeStoreError(w, r, err, "log")
		return
	}
	writeJSON(w, l)
}

func (s *Service) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.logs.DeleteDailyLog(r.Context(), id); err != nil {
		writeStoreError(w, r, err, "log")
		return
	}
	log.Info().Str("logId", id).Msg("Daily log deleted")
	w.WriteHeader(http.StatusNoContent)
}

// handleExportLog downloads a log as text, CSV or XLSX.
//
//	@Summary	Export a daily log
//	@Tags		logs
//	@Produce	octet-stream
//	@Param		id		path	string	true	"Log id"
//	@Param		format	query	string	false	"txt, csv or xlsx"
//	@Success	200
//	@Router		/api/logs/{id}/export [get]
func (s *Service) handleExportLog(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	l, err := s.logs.GetDailyLog(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err, "log")
		return
	}
	if l == nil {
		writeError(w, http.StatusNotFound, "log not found")
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, l, format); err != nil {
		if errors.Is(err, export.ErrUnknownFormat) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Str("logId", l.ID).Str("format", string(format)).Msg("Export failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(l, format)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}
