// Package api exposes the re-layout pipeline over HTTP.
//
// The server is a thin JSON layer over pipeline.Runner: diagrams are
// submitted inline as documents, routed, optionally rendered, and the
// run history is served from the runner's store.
//
// # Endpoints
//
//	POST /optimize        Route a diagram document
//	GET  /reports         List run history (newest first)
//	GET  /reports/{id}    Fetch one run
//	DELETE /reports/{id}  Remove one run
//	GET  /healthz         Liveness probe with build info
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wiretidy/wiretidy/pkg/buildinfo"
	"github.com/wiretidy/wiretidy/pkg/cache"
	"github.com/wiretidy/wiretidy/pkg/diagram"
	"github.com/wiretidy/wiretidy/pkg/engine"
	apperrors "github.com/wiretidy/wiretidy/pkg/errors"
	"github.com/wiretidy/wiretidy/pkg/pipeline"
	"github.com/wiretidy/wiretidy/pkg/report"
)

// maxBodyBytes bounds request bodies. Industrial models run large, but
// a diagram document is text; 16 MiB is generous.
const maxBodyBytes = 16 << 20

// requestTimeout bounds one optimize call end to end.
const requestTimeout = 60 * time.Second

// Server serves the pipeline over HTTP.
type Server struct {
	runner *pipeline.Runner
	logger *log.Logger
}

// NewServer creates an HTTP server around a runner. The runner's Store
// backs the /reports endpoints; a nil store disables them.
func NewServer(runner *pipeline.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, logger: logger}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealth)
	r.Post("/optimize", s.handleOptimize)
	r.Get("/reports", s.handleListReports)
	r.Get("/reports/{id}", s.handleGetReport)
	r.Delete("/reports/{id}", s.handleDeleteReport)

	return r
}

// optimizeRequest is the POST /optimize payload.
type optimizeRequest struct {
	Diagram diagram.Document `json:"diagram"`

	// Params override the stock parameter set when present.
	Params *engine.Params `json:"params,omitempty"`

	// Formats requests snapshots; empty means no rendering.
	Formats       []string `json:"formats,omitempty"`
	ShowPorts     bool     `json:"show_ports,omitempty"`
	MarkCrossings bool     `json:"mark_crossings,omitempty"`

	Refresh bool `json:"refresh,omitempty"`
}

// optimizeResponse is the POST /optimize result. Snapshot bytes are
// base64 in JSON per encoding/json's []byte handling.
type optimizeResponse struct {
	Diagram     diagram.Document   `json:"diagram"`
	DiagramHash string             `json:"diagram_hash"`
	Report      *engine.Report     `json:"report"`
	Snapshots   map[string][]byte  `json:"snapshots,omitempty"`
	RunID       string             `json:"run_id,omitempty"`
	Cache       pipeline.CacheInfo `json:"cache"`
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req optimizeRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest,
			apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "malformed request body"))
		return
	}

	sub, err := diagram.FromDocument(req.Diagram)
	if err != nil {
		s.writeError(w, http.StatusBadRequest,
			apperrors.Wrap(apperrors.ErrCodeInvalidDiagram, err, "invalid diagram document"))
		return
	}
	if err := pipeline.ValidateFormats(req.Formats); err != nil {
		s.writeError(w, http.StatusBadRequest,
			apperrors.Wrap(apperrors.ErrCodeInvalidFormat, err, "invalid snapshot format"))
		return
	}

	params := engine.DefaultParams()
	if req.Params != nil {
		params = req.Params.Normalize()
	}

	source := req.Diagram.ID
	if source == "" {
		source = "inline"
	}
	opts := pipeline.Options{
		Source:        source,
		Params:        params,
		Formats:       req.Formats,
		ShowPorts:     req.ShowPorts,
		MarkCrossings: req.MarkCrossings,
		Refresh:       req.Refresh,
		Logger:        s.logger,
	}

	// The document itself is the content identity here, not a file.
	canonical, err := diagram.Marshal(sub)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError,
			apperrors.Wrap(apperrors.ErrCodeInternal, err, "serialize diagram"))
		return
	}
	hash := cache.Hash(canonical)

	routed, rep, optimizeHit, err := s.runner.OptimizeWithCacheInfo(ctx, sub, hash, opts)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError,
			apperrors.Wrap(apperrors.ErrCodeInternal, err, "optimize failed"))
		return
	}

	resp := optimizeResponse{
		Diagram:     diagram.ToDocument(routed),
		DiagramHash: hash,
		Report:      rep,
		Cache:       pipeline.CacheInfo{OptimizeHit: optimizeHit},
	}

	if len(req.Formats) > 0 {
		snaps, snapshotHit, err := s.runner.SnapshotWithCacheInfo(ctx, routed, opts)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError,
				apperrors.Wrap(apperrors.ErrCodeInternal, err, "snapshot failed"))
			return
		}
		resp.Snapshots = snaps
		resp.Cache.SnapshotHit = snapshotHit
	}

	if s.runner.Store != nil {
		run := report.NewRun(source, params, []*engine.Report{rep})
		if err := s.runner.Store.Save(ctx, run); err != nil {
			s.logger.Warn("failed to save run", "err", err)
		} else {
			resp.RunID = run.ID
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.runner.Store == nil {
		s.writeError(w, http.StatusNotImplemented,
			apperrors.New(apperrors.ErrCodeUnsupported, "run history is not configured"))
		return
	}

	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest,
				apperrors.New(apperrors.ErrCodeInvalidInput, "invalid limit: %q", q))
			return
		}
		limit = n
	}

	runs, err := s.runner.Store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError,
			apperrors.Wrap(apperrors.ErrCodeInternal, err, "list runs"))
		return
	}
	if runs == nil {
		runs = []*report.Run{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.runner.Store == nil {
		s.writeError(w, http.StatusNotImplemented,
			apperrors.New(apperrors.ErrCodeUnsupported, "run history is not configured"))
		return
	}

	id := chi.URLParam(r, "id")
	run, err := s.runner.Store.Get(r.Context(), id)
	if errors.Is(err, report.ErrNotFound) {
		s.writeError(w, http.StatusNotFound,
			apperrors.New(apperrors.ErrCodeReportNotFound, "run %s not found", id))
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError,
			apperrors.Wrap(apperrors.ErrCodeInternal, err, "get run"))
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	if s.runner.Store == nil {
		s.writeError(w, http.StatusNotImplemented,
			apperrors.New(apperrors.ErrCodeUnsupported, "run history is not configured"))
		return
	}

	if err := s.runner.Store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, http.StatusInternalServerError,
			apperrors.Wrap(apperrors.ErrCodeInternal, err, "delete run"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
	})
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	var body errorBody
	body.Error.Code = string(apperrors.GetCode(err))
	if body.Error.Code == "" {
		body.Error.Code = string(apperrors.ErrCodeInternal)
	}
	body.Error.Message = apperrors.UserMessage(err)

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "err", err)
	}
	s.writeJSON(w, status, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "err", err)
	}
}
