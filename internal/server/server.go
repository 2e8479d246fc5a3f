// Package server is the local preview server: it serves a build's output
// directory and a small JSON API over the payload.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/denosys/InferenceMAX/internal/model"
	"github.com/denosys/InferenceMAX/internal/payload"
	"github.com/denosys/InferenceMAX/internal/series"
)

// Server serves one payload. Deferred entries resolve through the shared
// Resolver, so concurrent requests for a dataset trigger one fetch.
type Server struct {
	payload   *payload.Payload
	resolver  *payload.Resolver
	staticDir string
	router    chi.Router
}

// New returns a Server. An empty staticDir serves no files.
func New(p *payload.Payload, r *payload.Resolver, staticDir string) *Server {
	s := &Server{payload: p, resolver: r, staticDir: staticDir}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/datasets", s.listDatasets)
		r.Get("/datasets/{name}/records", s.datasetRecords)
		r.Get("/series", s.buildSeries)
		r.Get("/selectors", s.selectors)
	})
	if s.staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.staticDir)))
	}
	return r
}

// DatasetSummary is one row of GET /api/datasets.
type DatasetSummary struct {
	Filename    string     `json:"filename"`
	Tier        model.Tier `json:"tier"`
	State       string     `json:"state"`
	RecordCount int        `json:"record_count"`
	SchemaID    string     `json:"schema_id"`
	Columns     []string   `json:"columns"`
}

// RecordsResponse is the body of GET /api/datasets/{name}/records.
type RecordsResponse struct {
	Filename string         `json:"filename"`
	Tier     model.Tier     `json:"tier"`
	State    string         `json:"state"`
	Records  []model.Record `json:"records"`
}

// SeriesResponse is the body of GET /api/series.
type SeriesResponse struct {
	Filename string          `json:"filename"`
	Series   []series.Series `json:"series"`
}

func (s *Server) listDatasets(w http.ResponseWriter, _ *http.Request) {
	out := make([]DatasetSummary, 0, len(s.payload.Entries))
	for _, e := range s.payload.Entries {
		out = append(out, DatasetSummary{
			Filename:    e.Filename,
			Tier:        e.Tier,
			State:       s.state(e),
			RecordCount: e.RecordCount,
			SchemaID:    e.SchemaID,
			Columns:     e.Columns,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) datasetRecords(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, chi.URLParam(r, "name"))
	if !ok {
		return
	}
	recs := s.resolver.Resolve(r.Context(), e)
	writeJSON(w, http.StatusOK, RecordsResponse{
		Filename: e.Filename,
		Tier:     e.Tier,
		State:    s.state(e),
		Records:  recs,
	})
}

func (s *Server) buildSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	e, ok := s.entry(w, q.Get("file"))
	if !ok {
		return
	}
	query := series.Query{
		XField:       q.Get("x"),
		YField:       q.Get("y"),
		SortField:    q.Get("sort"),
		HardwareOnly: q.Get("group") == "hw",
		Precision:    q.Get("precision"),
		Parallelism:  q.Get("tp"),
	}
	if v := q.Get("connect"); v != "" {
		connect, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "connect must be a boolean")
			return
		}
		query.Connect = connect
	}

	out := series.Build(s.resolver.Resolve(r.Context(), e), query)
	if out == nil {
		out = []series.Series{}
	}
	writeJSON(w, http.StatusOK, SeriesResponse{Filename: e.Filename, Series: out})
}

// selectors covers one dataset when file is given, otherwise every eager
// record plus the sample of each deferred entry. Deferred entries are not
// fetched for the overview.
func (s *Server) selectors(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("file"); name != "" {
		e, ok := s.entry(w, name)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, series.CollectSelectors(s.resolver.Resolve(r.Context(), e)))
		return
	}

	var recs []model.Record
	for _, e := range s.payload.Entries {
		if e.Tier == model.TierEager {
			recs = append(recs, e.Records...)
		} else if e.Sample != nil {
			recs = append(recs, e.Sample)
		}
	}
	writeJSON(w, http.StatusOK, series.CollectSelectors(recs))
}

func (s *Server) entry(w http.ResponseWriter, name string) (*payload.Entry, bool) {
	if name == "" {
		writeError(w, http.StatusBadRequest, "file is required")
		return nil, false
	}
	e, ok := s.payload.Entry(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown dataset "+name)
		return nil, false
	}
	return e, true
}

func (s *Server) state(e *payload.Entry) string {
	if e.Tier == model.TierEager {
		return payload.StateMaterialized.String()
	}
	return s.resolver.State(e.Filename).String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// ListenAndServe serves h on addr until ctx is done, then shuts down.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server: listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server: listen")
		}
		return nil
	case <-ctx.Done():
		zap.L().Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "server: shutdown")
		}
		return nil
	}
}
