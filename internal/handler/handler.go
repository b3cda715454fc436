package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/eambriza/pmp-coach/internal/handler/views"
	appI18n "github.com/eambriza/pmp-coach/internal/i18n"
	"github.com/eambriza/pmp-coach/internal/llm"
	"github.com/eambriza/pmp-coach/internal/model"
	"github.com/eambriza/pmp-coach/internal/parser"
	"github.com/eambriza/pmp-coach/internal/practice"
	"github.com/eambriza/pmp-coach/internal/progress"
	"github.com/eambriza/pmp-coach/internal/store"
)

// ImportLog tells which file produced the loaded question set.
type ImportLog interface {
	LastImport() (*store.Import, error)
}

// Explainer generates explanations for questions. It may be nil.
type Explainer interface {
	Explain(ctx context.Context, q model.Question, selected model.Option) (*llm.Explanation, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	engine    *practice.Engine
	progress  *progress.Store
	importer  *parser.Importer
	imports   ImportLog
	explainer Explainer
}

// New creates a new Handler. explainer may be nil to disable explanations.
func New(e *practice.Engine, p *progress.Store, im *parser.Importer, log ImportLog, explainer Explainer) *Handler {
	return &Handler{engine: e, progress: p, importer: im, imports: log, explainer: explainer}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	// The body cap must wrap the request before the CSRF check reads form fields.
	r.Use(middleware.RequestSize(maxUploadSize))
	r.Use(h.csrfMiddleware)
	r.Get("/", h.handleIndex)
	r.Route("/api", func(r chi.Router) {
		r.Post("/questions/upload", h.handleUpload)
		r.Get("/questions/import", h.handleImportStatus)
		r.Get("/questions/export", h.handleExport)

		r.Get("/session", h.handleSession)
		r.Get("/session/tags", h.handleTags)
		r.Post("/session/start", h.handleStart)
		r.Post("/session/reset", h.handleReset)
		r.Post("/session/end", h.handleEnd)
		r.Post("/session/pause", h.handlePause)
		r.Post("/session/resume", h.handleResume)
		r.Post("/session/review", h.handleReview)
		r.Post("/session/answer", h.handleAnswer)
		r.Post("/session/next", h.handleNext)
		r.Post("/session/previous", h.handlePrevious)
		r.Post("/session/jump", h.handleJump)
		r.Post("/session/explain", h.handleExplain)

		r.Get("/progress", h.handleProgress)
		r.Delete("/progress", h.handleClearProgress)
		r.Post("/progress/clear", h.handleClearProgress)
	})
}

// flashMessages are the message IDs accepted in ?msg=.
var flashMessages = map[string]bool{
	"ImportDuplicate": true,
	"ImportBusy":      true,
	"NoQuestions":     true,
	"ProgressCleared": true,
	"Milestone3":      true,
	"Milestone5":      true,
	"Milestone10":     true,
	"Milestone15":     true,
	"Milestone20":     true,
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	state := h.engine.Snapshot()
	data := views.IndexData{
		State:     state,
		Import:    h.importer.Status(),
		Stats:     h.progress.Stats(),
		Recent:    h.progress.RecentScores(10),
		Languages: appI18n.Languages(),
	}
	if msg := r.URL.Query().Get("msg"); flashMessages[msg] {
		data.Flash = msg
	}
	if state.Phase == practice.PhaseComplete {
		data.Tags = h.engine.TagBreakdown()
		data.Incorrect = h.engine.IncorrectQuestions()
		results := h.progress.Results()
		if n := len(results); n > 0 && results[n-1].ID == state.Session.ID {
			data.Result = &results[n-1]
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.IndexPage(data).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

// wantsHTML reports whether the request came from a browser form, which
// gets a redirect back to the page instead of JSON.
func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// respond redirects browsers to the page, optionally with a flash message,
// and writes v as JSON for everyone else.
func respond(w http.ResponseWriter, r *http.Request, status int, v any, flash string) {
	if wantsHTML(r) {
		target := "/"
		if flash != "" {
			target += "?msg=" + url.QueryEscape(flash)
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	writeJSON(w, status, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
