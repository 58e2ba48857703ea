// Package server exposes the analysis engine over HTTP and a websocket feed.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"captable-lab/internal/breakpoints"
	"captable-lab/internal/captable"
	"captable-lab/internal/domain"
	"captable-lab/internal/idhash"
	"captable-lab/internal/observability"
	"captable-lab/internal/storage"
)

const maxRequestBytes = 1 << 20 // cap table documents are small

// Server handles the breakpoint analysis API.
type Server struct {
	runs          storage.AnalysisRunStore // optional; nil disables persistence and run lookups
	breakpointSt  storage.BreakpointStore  // optional, paired with runs
	hub           *Hub                     // optional; nil disables the feed
	logger        *log.Logger
	recordMetrics bool
	now           func() time.Time

	mu         sync.Mutex
	startedAt  time.Time
	analyses   int
	rejections int
}

// Options for creating a Server.
type Options struct {
	RunStore        storage.AnalysisRunStore
	BreakpointStore storage.BreakpointStore
	Hub             *Hub
	Logger          *log.Logger
	RecordMetrics   bool
}

// New creates a Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)
	}
	return &Server{
		runs:          opts.RunStore,
		breakpointSt:  opts.BreakpointStore,
		hub:           opts.Hub,
		logger:        logger,
		recordMetrics: opts.RecordMetrics,
		now:           func() time.Time { return time.Now().UTC() },
		startedAt:     time.Now().UTC(),
	}
}

// WithClock sets a custom clock function for deterministic responses.
func (s *Server) WithClock(now func() time.Time) *Server {
	s.now = now
	return s
}

// Router returns the API routes.
func (s *Server) Router() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/breakpoints/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/v1/runs/{ref}", s.handleGetRun)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.Handle("GET /metrics", observability.Handler())
	if s.hub != nil {
		mux.Handle("GET /ws/analyses", s.hub)
	}
	return mux
}

// handleAnalyze derives the breakpoint structure for the posted cap table.
// Construction-time validation failures map to 400; analysis irregularities
// ride inside the data payload.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := s.now()

	var req AnalyzeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, &req, "invalid request body: "+err.Error())
		return
	}

	classes, grants, err := req.toDomain()
	if err != nil {
		s.reject(w, &req, err)
		return
	}

	analyzer, err := breakpoints.New(classes, grants, captable.Config{ValuationDate: req.ValuationDate})
	if err != nil {
		s.reject(w, &req, err)
		return
	}

	res := analyzer.AnalyzeCompleteBreakpointStructure()
	runID := idhash.ComputeRunID(req.ValuationID, req.CompanyID, analyzer.Structure())
	runRef := idhash.RunRef(runID)

	if s.runs != nil {
		s.persist(r, &req, runID, runRef, res)
	}

	s.mu.Lock()
	s.analyses++
	s.mu.Unlock()

	if s.recordMetrics {
		observability.RecordAnalysis(res, float64(start.UnixMilli())/1e3)
		observability.RecordHTTPRequest("analyze", "200", s.now().Sub(start).Seconds())
	}

	if s.hub != nil {
		s.hub.Broadcast(&AnalysisEvent{
			Event:              "analysis-completed",
			RunID:              runID,
			RunRef:             runRef,
			ValuationID:        req.ValuationID,
			CompanyID:          req.CompanyID,
			TotalBreakpoints:   len(res.Breakpoints),
			ValidationFailures: res.FailureCount(),
			GeneratedAt:        timestamp(s.now()),
		})
	}

	s.writeJSON(w, http.StatusOK, envelope{
		Success:     true,
		Data:        analysisDTO(runID, runRef, res),
		ValuationID: req.ValuationID,
		CompanyID:   req.CompanyID,
		GeneratedAt: timestamp(s.now()),
	})
}

// persist stores the run header and schedule; a duplicate run id means the
// same input was analyzed before and is not an error.
func (s *Server) persist(r *http.Request, req *AnalyzeRequest, runID, runRef string, res *domain.AnalysisResult) {
	run := &domain.AnalysisRun{
		RunID:              runID,
		RunRef:             runRef,
		ValuationID:        req.ValuationID,
		CompanyID:          req.CompanyID,
		ValuationDate:      req.ValuationDate,
		TotalBreakpoints:   len(res.Breakpoints),
		Counts:             res.Counts,
		ValidationFailures: res.FailureCount(),
		ElapsedMicros:      res.Performance.ElapsedMicros,
		CreatedAt:          s.now().UnixMilli(),
	}

	if err := s.runs.Insert(r.Context(), run); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return
		}
		s.logger.Printf("persist run %s: %v", runRef, err)
		return
	}
	if s.breakpointSt != nil {
		if err := s.breakpointSt.InsertBulk(r.Context(), runID, res.Breakpoints); err != nil {
			s.logger.Printf("persist breakpoints %s: %v", runRef, err)
		}
	}
}

// handleGetRun serves a stored run by its short ref.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.writeError(w, http.StatusNotFound, nil, "run storage not configured")
		return
	}

	ref := r.PathValue("ref")
	run, err := s.runs.GetByRef(r.Context(), ref)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, nil, "run not found: "+ref)
			return
		}
		s.logger.Printf("get run %s: %v", ref, err)
		s.writeError(w, http.StatusInternalServerError, nil, "storage failure")
		return
	}

	var schedule []domain.Breakpoint
	if s.breakpointSt != nil {
		if schedule, err = s.breakpointSt.GetByRunID(r.Context(), run.RunID); err != nil {
			s.logger.Printf("get breakpoints %s: %v", ref, err)
			s.writeError(w, http.StatusInternalServerError, nil, "storage failure")
			return
		}
	}

	s.writeJSON(w, http.StatusOK, envelope{
		Success:     true,
		Data:        runDTO(run, schedule),
		ValuationID: run.ValuationID,
		CompanyID:   run.CompanyID,
		GeneratedAt: timestamp(s.now()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	UptimeSeconds    int64 `json:"uptime_seconds"`
	AnalysesServed   int   `json:"analyses_served"`
	AnalysesRejected int   `json:"analyses_rejected"`
	FeedClients      int   `json:"feed_clients"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		UptimeSeconds:    int64(time.Since(s.startedAt).Seconds()),
		AnalysesServed:   s.analyses,
		AnalysesRejected: s.rejections,
	}
	s.mu.Unlock()

	if s.hub != nil {
		resp.FeedClients = s.hub.ClientCount()
	}

	s.writeJSON(w, http.StatusOK, envelope{
		Success:     true,
		Data:        resp,
		GeneratedAt: timestamp(s.now()),
	})
}

// reject answers a cap table that failed construction.
func (s *Server) reject(w http.ResponseWriter, req *AnalyzeRequest, err error) {
	s.mu.Lock()
	s.rejections++
	s.mu.Unlock()

	if s.recordMetrics {
		observability.RecordAnalysisRejected()
	}
	s.writeError(w, http.StatusBadRequest, req, err.Error())
}

func (s *Server) writeError(w http.ResponseWriter, code int, req *AnalyzeRequest, msg string) {
	env := envelope{
		Success:     false,
		Error:       msg,
		GeneratedAt: timestamp(s.now()),
	}
	if req != nil {
		env.ValuationID = req.ValuationID
		env.CompanyID = req.CompanyID
	}
	s.writeJSON(w, code, env)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}
