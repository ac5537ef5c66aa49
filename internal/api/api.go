package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/schema"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/warden/internal/activity"
	"github.com/xxxsen/warden/internal/privacy"
	"go.uber.org/zap"
)

// Server exposes the management endpoints and prometheus metrics.
type Server struct {
	layer *privacy.Layer
	sink  *activity.RingSink
	mux   *http.ServeMux
	hs    *http.Server
}

// New creates the management server using the supplied options.
func New(opts ...Option) (*Server, error) {
	o := &options{
		bind: ":8119",
	}
	for _, fn := range opts {
		fn(o)
	}
	if o.layer == nil {
		return nil, fmt.Errorf("api needs a privacy layer")
	}
	s := &Server{
		layer: o.layer,
		sink:  o.sink,
		mux:   http.NewServeMux(),
	}
	s.mux.HandleFunc("/api/check", s.handleCheck)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.HandleFunc("/api/activity", s.handleActivity)
	s.mux.HandleFunc("/api/patterns", s.handlePatterns)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.hs = &http.Server{
		Addr:    o.bind,
		Handler: s.mux,
	}
	return s, nil
}

// Start begins serving and blocks until ctx is cancelled or the listener
// fails.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.hs.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.hs.Shutdown(sctx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type checkArgs struct {
	URL string `schema:"url"`
}

type checkResponse struct {
	URL     string `json:"url"`
	Blocked bool   `json:"blocked"`
	Via     string `json:"via"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	args := &checkArgs{}
	if err := decodeQuery(args, r.URL.Query()); err != nil || args.URL == "" {
		http.Error(w, "missing url parameter", http.StatusBadRequest)
		return
	}
	d := s.layer.Check(r.Context(), args.URL)
	writeJSON(w, checkResponse{URL: args.URL, Blocked: d.Blocked, Via: d.Via})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.layer.Snapshot())
}

type activityArgs struct {
	Limit int `schema:"limit"`
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	args := &activityArgs{}
	if err := decodeQuery(args, r.URL.Query()); err != nil {
		http.Error(w, "bad limit parameter", http.StatusBadRequest)
		return
	}
	recs := []activity.Record{}
	if s.sink != nil {
		recs = s.sink.Recent(args.Limit)
	}
	writeJSON(w, recs)
}

type patternRequest struct {
	Op      string `json:"op"`
	Pattern string `json:"pattern"`
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req := &patternRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if req.Pattern == "" {
		http.Error(w, "missing pattern", http.StatusBadRequest)
		return
	}
	switch req.Op {
	case "add":
		s.layer.AddRule(r.Context(), req.Pattern)
	case "remove":
		s.layer.RemoveRule(r.Context(), req.Pattern)
	default:
		http.Error(w, "unknown op, expect add or remove", http.StatusBadRequest)
		return
	}
	writeJSON(w, s.layer.Snapshot())
}

func decodeQuery(out interface{}, in map[string][]string) error {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	if err := d.Decode(out, in); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logutil.GetLogger(context.Background()).Error("encode response failed", zap.Error(err))
	}
}
