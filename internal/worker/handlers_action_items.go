package worker

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/sitelog/pkg/models"
)

// ActionItemRequest raises an action item from a log section. Due dates are
// YYYY-MM-DD strings as sent by the browser form.
type ActionItemRequest struct {
	AssignedTo  *string         `json:"assigned_to,omitempty"`
	ProjectID   *string         `json:"project_id,omitempty"`
	LogID       *string         `json:"log_id,omitempty"`
	DueDate     string          `json:"due_date,omitempty"`
	Priority    models.Priority `json:"priority,omitempty"`
	SectionType string          `json:"section_type"`
	Content     string          `json:"content"`
	CreatedBy   string          `json:"created_by"`
}

// ActionItemPatchRequest is the PATCH body for an action item.
type ActionItemPatchRequest struct {
	Status     *models.ActionItemStatus `json:"status,omitempty"`
	Priority   *models.Priority         `json:"priority,omitempty"`
	DueDate    *string                  `json:"due_date,omitempty"`
	AssignedTo *string                  `json:"assigned_to,omitempty"`
	Title      *string                  `json:"title,omitempty"`
}

// NoteRequest is the body for adding a note.
type NoteRequest struct {
	Note      string `json:"note"`
	CreatedBy string `json:"created_by"`
}

// parseDueDate parses an optional YYYY-MM-DD date.
func parseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return nil, models.ErrInvalidDate
	}
	return &t, nil
}

// handleListActionItems lists action items, optionally by status and project.
//
//	@Summary	List action items
//	@Tags		action-items
//	@Produce	json
//	@Param		status	query	string	false	"open, in_progress or completed"
//	@Param		project	query	string	false	"Project id"
//	@Param		limit	query	int		false	"Maximum items"
//	@Success	200		{array}	models.ActionItem
//	@Router		/api/action-items [get]
func (s *Service) handleListActionItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := s.actionItems.List(r.Context(), models.ActionItemFilter{
		Status:    models.ActionItemStatus(q.Get("status")),
		ProjectID: q.Get("project"),
		Limit:     queryInt(r, "limit"),
	})
	if err != nil {
		writeStoreError(w, r, err, "action item")
		return
	}
	writeJSON(w, items)
}

// handleCreateActionItem raises an action item from a log section.
//
//	@Summary	Create an action item from a log section
//	@Tags		action-items
//	@Accept		json
//	@Produce	json
//	@Param		item	body		ActionItemRequest	true	"Action item"
//	@Success	201		{object}	models.ActionItem
//	@Router		/api/action-items [post]
func (s *Service) handleCreateActionItem(w http.ResponseWriter, r *http.Request) {
	var req ActionItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := s.actionItems.CreateFromSection(r.Context(), models.ActionItemInput{
		DueDate:     due,
		AssignedTo:  req.AssignedTo,
		ProjectID:   req.ProjectID,
		LogID:       req.LogID,
		Priority:    req.Priority,
		SectionType: req.SectionType,
		Content:     req.Content,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		writeStoreError(w, r, err, "action item")
		return
	}
	log.Info().
		Str("actionItemId", item.ID).
		Str("source", string(item.SourceType)).
		Str("priority", string(item.Priority)).
		Msg("Action item created")
	writeJSONStatus(w, http.StatusCreated, item)
}

func (s *Service) handleGetActionItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.actionItems.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err, "action item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "action item not found")
		return
	}
	writeJSON(w, item)
}

func (s *Service) handleUpdateActionItem(w http.ResponseWriter, r *http.Request) {
	var req ActionItemPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	patch := models.ActionItemPatch{
		Status:     req.Status,
		Priority:   req.Priority,
		AssignedTo: req.AssignedTo,
		Title:      req.Title,
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		patch.DueDate = due
	}

	item, err := s.actionItems.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeStoreError(w, r, err, "action item")
		return
	}
	writeJSON(w, item)
}

func (s *Service) handleAddActionItemNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	note, err := s.actionItems.AddNote(r.Context(), chi.URLParam(r, "id"), req.Note, req.CreatedBy)
	if err != nil {
		writeStoreError(w, r, err, "action item")
		return
	}
	writeJSONStatus(w, http.StatusCreated, note)
}
