// Package server exposes the comparison API and the embedded frontend.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lundberg/billdiff/internal/config"
	"github.com/lundberg/billdiff/internal/fetch"
	"github.com/lundberg/billdiff/internal/redline"
)

// maxRequestBodySize limits POST bodies; two bill texts fit comfortably.
const maxRequestBodySize = 8 << 20 // 8 MB

// Comparison is one finished diff plus the labels the UI shows for each
// side.
type Comparison struct {
	ID            string              `json:"id"`
	OriginalLabel string              `json:"originalLabel"`
	AmendedLabel  string              `json:"amendedLabel"`
	Diff          *redline.DiffResult `json:"diff"`
}

// Server is the HTTP server that serves the frontend and API endpoints.
type Server struct {
	cfg     *config.Config
	fetcher *fetch.Fetcher
	mux     *http.ServeMux
	assets  fs.FS
	log     *slog.Logger
	metrics *metrics

	mu      sync.RWMutex
	current *Comparison // preloaded result in files/urls mode
}

// New creates a server. fetcher may be nil when URL inputs are not
// allowed (tests mostly); assets is the embedded frontend.
func New(cfg *config.Config, fetcher *fetch.Fetcher, assets fs.FS, log *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		fetcher: fetcher,
		mux:     http.NewServeMux(),
		assets:  assets,
		log:     log,
		metrics: newMetrics(),
	}
	s.routes()
	return s
}

// Handler returns the http.Handler (useful for testing).
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/compare", s.handleCompare)
	s.mux.HandleFunc("GET /api/diff", s.handleDiff)
	s.mux.HandleFunc("GET /api/meta", s.handleMeta)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	s.mux.Handle("GET /", http.FileServerFS(s.assets))
}

// Compare tokenizes both sides and runs the alignment engine. It is
// shared by the compare handler, the startup preload and the file
// watcher reload path.
func (s *Server) Compare(original, amended *fetch.Content, granularity redline.Granularity) (*Comparison, error) {
	start := time.Now()

	originalDoc, err := redline.Tokenize(original.Text, granularity)
	if err != nil {
		return nil, err
	}
	amendedDoc, err := redline.Tokenize(amended.Text, granularity)
	if err != nil {
		return nil, err
	}

	result, err := redline.Diff(originalDoc, amendedDoc)
	if err != nil {
		return nil, err
	}

	c := &Comparison{
		ID:            uuid.NewString(),
		OriginalLabel: original.Label,
		AmendedLabel:  amended.Label,
		Diff:          result,
	}

	s.metrics.duration.Observe(time.Since(start).Seconds())
	s.log.Info("comparison complete",
		slog.String("id", c.ID),
		slog.String("original", c.OriginalLabel),
		slog.String("amended", c.AmendedLabel),
		slog.String("granularity", string(granularity)),
		slog.Int("ops", len(result.Ops)),
		slog.Int("deleted", result.Stats.Deleted),
		slog.Int("inserted", result.Stats.Inserted),
		slog.Float64("similarity", result.Stats.Similarity),
		slog.Duration("elapsed", time.Since(start)))

	return c, nil
}

// SetCurrent swaps the comparison served by GET /api/diff.
func (s *Server) SetCurrent(c *Comparison) {
	s.mu.Lock()
	s.current = c
	s.mu.Unlock()
}

type inputSpec struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type compareRequest struct {
	Original    inputSpec `json:"original"`
	Amended     inputSpec `json:"amended"`
	Granularity string    `json:"granularity"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.metrics.comparisons.WithLabelValues("invalid").Inc()
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	granularity := redline.Granularity(s.cfg.Granularity)
	if req.Granularity != "" {
		var err error
		granularity, err = redline.ParseGranularity(req.Granularity)
		if err != nil {
			s.metrics.comparisons.WithLabelValues("invalid").Inc()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	original, err := s.resolveInput(r, req.Original, "original bill")
	if err != nil {
		s.metrics.comparisons.WithLabelValues("fetch_error").Inc()
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	amended, err := s.resolveInput(r, req.Amended, "amendment")
	if err != nil {
		s.metrics.comparisons.WithLabelValues("fetch_error").Inc()
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	c, err := s.Compare(original, amended, granularity)
	if err != nil {
		s.metrics.comparisons.WithLabelValues("invalid").Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.metrics.comparisons.WithLabelValues("ok").Inc()
	writeJSON(w, c)
}

// resolveInput turns one side of a compare request into text. URL
// inputs go through the fetcher; anything else is pasted text.
func (s *Server) resolveInput(r *http.Request, in inputSpec, fallbackLabel string) (*fetch.Content, error) {
	if in.URL == "" {
		return fetch.FromText(in.Text, fallbackLabel), nil
	}
	if s.fetcher == nil {
		return nil, errors.New("URL inputs are not enabled")
	}
	if !fetch.IsURL(in.URL) {
		return nil, fmt.Errorf("not an http(s) URL: %q", in.URL)
	}

	content, err := s.fetcher.FromURL(r.Context(), in.URL)
	if err != nil {
		s.metrics.fetches.WithLabelValues("error").Inc()
		return nil, err
	}
	s.metrics.fetches.WithLabelValues("ok").Inc()
	return content, nil
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()

	if current == nil {
		http.Error(w, "no comparison loaded", http.StatusNotFound)
		return
	}
	writeJSON(w, current)
}

type meta struct {
	Mode        string `json:"mode"`
	View        string `json:"view"`
	Granularity string `json:"granularity"`
	Watching    bool   `json:"watching"`
	HasDiff     bool   `json:"hasDiff"`
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	hasDiff := s.current != nil
	s.mu.RUnlock()

	writeJSON(w, meta{
		Mode:        s.cfg.Mode,
		View:        s.cfg.View,
		Granularity: s.cfg.Granularity,
		Watching:    s.cfg.Watch,
		HasDiff:     hasDiff,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
