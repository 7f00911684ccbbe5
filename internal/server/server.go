package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/headlinestudio/internal/database"
	"github.com/TobiSchelling/headlinestudio/internal/headlines"
)

// TitleFetcher resolves a landing page URL to its headline.
type TitleFetcher interface {
	FetchTitle(ctx context.Context, url string) (string, error)
}

// Options configures a Server.
type Options struct {
	Titles TitleFetcher
	Logger *zap.Logger
	// Region is used when a request carries no X-Region header.
	Region string
}

// Server is the HTTP server exposing selections, regeneration and the log.
type Server struct {
	db       *database.DB
	svc      *headlines.Service
	titles   TitleFetcher
	logger   *zap.Logger
	region   string
	inflight *inflight
	mux      *http.ServeMux
}

// New creates a new Server.
func New(db *database.DB, svc *headlines.Service, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Region == "" {
		opts.Region = "US"
	}
	s := &Server{
		db:       db,
		svc:      svc,
		titles:   opts.Titles,
		logger:   opts.Logger,
		region:   opts.Region,
		inflight: newInflight(),
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /functions/generate-regional-headlines", s.withUser(s.handleGenerateRegional))
	s.mux.HandleFunc("POST /functions/regenerate-selected-headline", s.withUser(s.handleRegenerateSelected))

	s.mux.HandleFunc("GET /api/selected", s.withUser(s.handleListSelected))
	s.mux.HandleFunc("POST /api/selected", s.withUser(s.handleAddSelected))
	s.mux.HandleFunc("DELETE /api/selected", s.withUser(s.handleClearSelected))
	s.mux.HandleFunc("DELETE /api/selected/{id}", s.withUser(s.handleRemoveSelected))

	s.mux.HandleFunc("GET /api/top", s.withUser(s.handleTop))
	s.mux.HandleFunc("GET /api/weeks", s.handleWeeks)
	s.mux.HandleFunc("GET /api/generated", s.handleGenerated)

	s.mux.HandleFunc("GET /api/favorites", s.withUser(s.handleListFavorites))
	s.mux.HandleFunc("POST /api/favorites/toggle", s.withUser(s.handleToggleFavorite))

	s.mux.HandleFunc("GET /api/stats", s.withUser(s.handleStats))
	s.mux.HandleFunc("GET /report", s.handleReport)
}

type userHandler func(w http.ResponseWriter, r *http.Request, rc database.RequestContext)

// withUser resolves the caller from X-User-ID and X-Region.
func (s *Server) withUser(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if user == "" {
			writeError(w, http.StatusUnauthorized, "user is not authenticated")
			return
		}
		region := strings.ToUpper(strings.TrimSpace(r.Header.Get("X-Region")))
		switch region {
		case "":
			region = s.region
		case "US", "DE":
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported region %q", region))
			return
		}
		h(w, r, database.RequestContext{User: user, Region: region})
	}
}

func (s *Server) handleGenerateRegional(w http.ResponseWriter, r *http.Request, rc database.RequestContext) {
	var body struct {
		SelectedHeadlines []headlines.BatchItem `json:"selectedHeadlines"`
	}
	if !decode(w, r, &body) {
		return
	}

	keys := make([]string, 0, len(body.SelectedHeadlines))
	for _, it := range body.SelectedHeadlines {
		keys = append(keys, selectionKey(rc, it))
	}
	release, ok := s.inflight.acquire(keys)
	if !ok {
		writeError(w, http.StatusConflict, "regeneration already in progress for one of these headlines")
		return
	}
	defer release()

	n, err := s.svc.RegenerateBatch(r.Context(), rc, body.SelectedHeadlines)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "generated": n})
}

func (s *Server) handleRegenerateSelected(w http.ResponseWriter, r *http.Request, rc database.RequestContext) {
	var body struct {
		Items []headlines.OverrideItem `json:"items"`
	}
	if !decode(w, r, &body) {
		return
	}

	keys := make([]string, 0, len(body.Items))
	for _, it := range body.Items {
		keys = append(keys, overrideKey(rc, it))
	}
	release, ok := s.inflight.acquire(keys)
	if !ok {
		writeError(w, http.StatusConflict, "regeneration already in progress for one of these headlines")
		return
	}
	defer release()

	results, err := s.svc.RegenerateOverrides(r.Context(), rc, body.Items)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": len(results), "results": results})
}

func selectionKey(rc database.RequestContext, it headlines.BatchItem) string {
	id := it.Headline
	if it.SourceID != nil {
		id = *it.SourceID
	}
	return "selected\x00" + rc.User + "\x00" + it.SourceTable + "\x00" + id
}

func overrideKey(rc database.RequestContext, it headlines.OverrideItem) string {
	return fmt.Sprintf("top\x00%s\x00%s\x00%d\x00%d", rc.User, it.SourceID, it.Week, it.Year)
}

func (s *Server) handleListSelected(w http.ResponseWriter, r *http.Request, rc database.RequestContext) {
	items, err := s.db.ListSelections(rc)
	if err != nil {
		s.internalError(w, "listing selections", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleAddSelected(w http.ResponseWriter, r *http.Request, rc database.RequestContext) {
	var body struct {
		Headline    string  `json:"headline"`
		SourceTable string  `json:"source_table"`
		SourceID    *string `json:"source_id"`
		Brand       *string `json:"brand"`
		URL         string  `json:"url"`
	}
	if !decode(w, r, &body) {
		return
	}

	sel := database.NewSelection{
		Headline:    body.Headline,
		SourceTable: body.SourceTable,
		SourceID:    body.SourceID,
		Brand:       body.Brand,
	}
	if body.URL != "" {
		if s.titles == nil {
			writeError(w, http.StatusBadRequest, "adding by url is not enabled")
			return
		}
		title, err := s.titles.FetchTitle(r.Context(), body.URL)
		if err != nil {
			s.logger.Warn("fetching landing page title", zap.String("url", body.URL), zap.Error(err))
			writeError(w, http.StatusBadGateway, "could not read a headline from "+body.URL)
			return
		}
		url := body.URL
		sel = database.NewSelection{Headline: title, SourceTable: "landing_page", SourceID: &url, Brand: body.Brand}
	}

	created, err := s.db.AddSelection(rc, sel)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleRemoveSelected(w http.ResponseWriter, r *http.Request, rc database.RequestContext) {
	if err := s.db.RemoveSelection(rc, r.PathValue("id")); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearSelected(w http.ResponseWriter, r *http.Request, rc database.RequestContext) {
	if err := s.db.ClearSelections(rc); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request, rc database.RequestContext) {
	key := database.CurrentWeek()
	q := r.URL.Query()
	if v := q.Get("week"); v != "" {
		week, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid week")
			return
		}
		key.Week = week
	}
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		key.Year = year
	}
	if !key.Valid() {
		writeError(w, http.StatusBadRequest, "invalid week")
		return
	}

	top, err := s.db.TopHeadlinesForUser(rc, key.Week, key.Year)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

func (s *Server) handleWeeks(w http.ResponseWriter, r *http.Request) {
	weeks, err := s.db.ListWeeks()
	if err != nil {
		s.internalError(w, "listing weeks", err)
		return
	}
	writeJSON(w, http.StatusOK, weeks)
}

func (s *Server) handleGenerated(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	items, err := s.db.ListGenerated(limit)
	if err != nil {
		s.internalError(w, "listing generated headlines", err)
		return
	}
	stats, err := s.db.GetGeneratedStats()
	if err != nil {
		s.internalError(w, "reading generated stats", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":          items,
		"total":          stats.Total,
		"average_length": stats.AverageLength,
	})
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request, rc database.RequestContext) {
	items, err := s.db.ListFavorites(rc)
	if err != nil {
		s.internalError(w, "listing favorites", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request, rc database.RequestContext) {
	var body struct {
		ID          string  `json:"id"`
		SourceTable string  `json:"source_table"`
		AIHeadline  *string `json:"ai_headline"`
		Headline    *string `json:"headline"`
	}
	if !decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.ID) == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	var snap *database.Snapshot
	if body.AIHeadline != nil && body.Headline != nil {
		snap = &database.Snapshot{AIHeadline: *body.AIHeadline, Headline: *body.Headline}
	}
	state := s.svc.ToggleFavorite(r.Context(), rc, body.ID, body.SourceTable, snap)
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": state})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, rc database.RequestContext) {
	stats, err := s.db.GetStats(rc)
	if err != nil {
		s.internalError(w, "reading stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// serviceError maps store and service errors onto status codes.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, headlines.ErrEmptyInput), errors.Is(err, database.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, headlines.ErrEndpointUnavailable):
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.internalError(w, "request failed", err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Serve starts the HTTP server on the given port and shuts it down when ctx ends.
func Serve(ctx context.Context, srv *Server, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	hs := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.logger.Info("server listening", zap.String("addr", "http://"+addr))
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	}
}
