package worker

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/thebtf/sitelog/docs" // registers the OpenAPI document
	gormdb "github.com/thebtf/sitelog/internal/db/gorm"
	"github.com/thebtf/sitelog/pkg/models"
)

// DashboardRecentLogs is the number of logs shown on the dashboard.
const DashboardRecentLogs = 3

// maxBodyBytes limits request bodies.
const maxBodyBytes = 1 << 20

func (s *Service) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)
		r.Get("/ready", s.handleReady)

		// SSE must not be buffered or cut by the request timeout.
		r.With(s.requireReady, s.verifier.StreamMiddleware).Get("/events", s.sseBroadcaster.HandleSSE)

		r.Group(func(r chi.Router) {
			r.Use(s.requireReady)
			r.Use(s.verifier.Middleware)
			r.Use(middleware.Timeout(RequestTimeout))
			r.Use(middleware.Compress(5))

			r.Get("/dashboard", s.handleDashboard)

			r.Get("/projects", s.handleListProjects)
			r.Post("/projects", s.handleCreateProject)
			r.Get("/subcontractors", s.handleListSubcontractors)
			r.Post("/subcontractors", s.handleCreateSubcontractor)
			r.Get("/crews", s.handleListCrews)
			r.Post("/crews", s.handleCreateCrew)
			r.Post("/crews/{id}/members", s.handleAddCrewMember)

			r.Get("/logs", s.handleListLogs)
			r.Post("/logs", s.handleCreateLog)
			r.Get("/logs/{id}", s.handleGetLog)
			r.Put("/logs/{id}", s.handleUpdateLog)
			r.Delete("/logs/{id}", s.handleDeleteLog)
			r.Get("/logs/{id}/export", s.handleExportLog)

			r.Get("/action-items", s.handleListActionItems)
			r.Post("/action-items", s.handleCreateActionItem)
			r.Get("/action-items/{id}", s.handleGetActionItem)
			r.Patch("/action-items/{id}", s.handleUpdateActionItem)
			r.Post("/action-items/{id}/notes", s.handleAddActionItemNote)

			r.Post("/ai", s.handleChat)
			r.Post("/ai/query", s.handleQuery)
		})
	})

	s.router.Get("/", serveIndex)
	s.router.Get("/assets/*", serveAssets)
	// Client-side routes of the UI.
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		serveIndex(w, r)
	})
}

// writeJSON writes data as JSON with a 200 status.
func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeJSONStatus writes data as JSON with the given status.
func writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an {"error": msg} body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONStatus(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// validationErrors are reported to the client verbatim with a 400.
var validationErrors = []error{
	models.ErrMissingRequired,
	models.ErrInvalidDate,
	models.ErrInvalidSection,
	models.ErrInvalidStatus,
	models.ErrInvalidPriority,
	models.ErrEmptyContent,
	models.ErrNameRequired,
	models.ErrUnknownProject,
}

// writeStoreError maps a store error to a response.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, what string) {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			writeError(w, http.StatusBadRequest, v.Error())
			return
		}
	}
	switch {
	case errors.Is(err, gormdb.ErrNotFound):
		writeError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, gormdb.ErrDuplicate):
		writeError(w, http.StatusConflict, what+" already exists")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// queryInt parses an optional positive integer query parameter.
func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// handleHealth reports liveness. Returns 200 even while initializing; use
// /api/ready for readiness.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "starting"
	if s.ready.Load() {
		status = "ready"
	} else if err := s.GetInitError(); err != nil {
		status = "error"
	}
	writeJSON(w, map[string]interface{}{
		"status":  status,
		"version": s.version,
	})
}

// handleVersion returns the service version.
func (s *Service) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"version": s.version,
	})
}

// handleReady returns 200 only when fully initialized, 503 otherwise.
func (s *Service) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		if err := s.GetInitError(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		http.Error(w, "service initializing", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]string{"status": "ready"})
}

// requireReady returns 503 until the service is initialized.
func (s *Service) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			if err := s.GetInitError(); err != nil {
				http.Error(w, "service initialization failed: "+err.Error(), http.StatusInternalServerError)
				return
			}
			http.Error(w, "service initializing", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// DashboardResponse is the dashboard body.
type DashboardResponse struct {
	Counts     *gormdb.Counts    `json:"counts"`
	RecentLogs []models.DailyLog `json:"recent_logs"`
}

// handleDashboard returns totals and the most recent logs.
//
//	@Summary	Dashboard totals and recent logs
//	@Tags		dashboard
//	@Produce	json
//	@Success	200	{object}	DashboardResponse
//	@Router		/api/dashboard [get]
func (s *Service) handleDashboard(w http.ResponseWriter, r *http.Request) {
	counts, err := s.catalog.Counts(r.Context())
	if err != nil {
		writeStoreError(w, r, err, "dashboard")
		return
	}
	recent, err := s.logs.RecentDailyLogs(r.Context(), DashboardRecentLogs)
	if err != nil {
		writeStoreError(w, r, err, "dashboard")
		return
	}
	writeJSON(w, DashboardResponse{Counts: counts, RecentLogs: recent})
}

func (s *Service) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.catalog.ListProjects(r.Context())
	if err != nil {
		writeStoreError(w, r, err, "project")
		return
	}
	writeJSON(w, projects)
}

func (s *Service) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var in models.ProjectInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := s.catalog.CreateProject(r.Context(), in)
	if err != nil {
		writeStoreError(w, r, err, "project")
		return
	}
	log.Info().Str("projectId", p.ID).Str("name", p.Name).Msg("Project created")
	writeJSONStatus(w, http.StatusCreated, p)
}

func (s *Service) handleListSubcontractors(w http.ResponseWriter, r *http.Request) {
	subs, err := s.catalog.ListSubcontractors(r.Context())
	if err != nil {
		writeStoreError(w, r, err, "subcontractor")
		return
	}
	writeJSON(w, subs)
}

// NameRequest is the body for endpoints that create a named record.
type NameRequest struct {
	Name string `json:"name"`
}

func (s *Service) handleCreateSubcontractor(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sub, err := s.catalog.CreateSubcontractor(r.Context(), req.Name)
	if err != nil {
		writeStoreError(w, r, err, "subcontractor")
		return
	}
	writeJSONStatus(w, http.StatusCreated, sub)
}

func (s *Service) handleListCrews(w http.ResponseWriter, r *http.Request) {
	crews, err := s.catalog.ListCrews(r.Context())
	if err != nil {
		writeStoreError(w, r, err, "crew")
		return
	}
	writeJSON(w, crews)
}

func (s *Service) handleCreateCrew(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	crew, err := s.catalog.CreateCrew(r.Context(), req.Name)
	if err != nil {
		writeStoreError(w, r, err, "crew")
		return
	}
	writeJSONStatus(w, http.StatusCreated, crew)
}

func (s *Service) handleAddCrewMember(w http.ResponseWriter, r *http.Request) {
	var in models.CrewMemberInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	member, err := s.catalog.AddCrewMember(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeStoreError(w, r, err, "crew")
		return
	}
	writeJSONStatus(w, http.StatusCreated, member)
}
