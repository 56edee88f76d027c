// Package api exposes the dashboard and analysis operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"athenalens/internal/agent"
	"athenalens/internal/analysis"
	"athenalens/internal/csvio"
	"athenalens/internal/model"
	"athenalens/internal/store"
)

// Chatter answers a user message given prior conversation turns.
type Chatter interface {
	Chat(ctx context.Context, message string, history []agent.Turn) (string, error)
}

// Server wires the store, the analysis toolset and the chat agent into a
// chi router.
type Server struct {
	store  *store.Store
	tools  *agent.Toolset
	chat   Chatter
	router chi.Router
}

// NewServer builds the HTTP server. chat may be nil, in which case the chat
// endpoint reports that no agent is configured.
func NewServer(st *store.Store, tools *agent.Toolset, chat Chatter) *Server {
	s := &Server{store: st, tools: tools, chat: chat}

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/", s.handleRoot)
	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard/stats", s.handleStats)
		r.Get("/dashboard/daily", s.handleDailyRollup)
		r.Get("/dashboard/date-range", s.handleDateRange)
		r.Get("/workgroups", s.handleWorkgroups)
		r.Get("/queries/expensive", s.handleExpensive)
		r.Get("/export", s.handleExport)
		r.Post("/chat", s.handleChat)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/compare", s.handleCompare)
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeOpError reports an analysis failure as a structured payload rather
// than an HTTP error, so clients can show the message inline.
func writeOpError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Athena query cost analysis API",
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.DashboardStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDailyRollup(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid days %q", v))
			return
		}
		days = n
	}

	rollup, err := s.store.DailyRollup(r.Context(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rollup == nil {
		rollup = []store.DailyWorkgroupStats{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"daily": rollup})
}

func (s *Server) handleDateRange(w http.ResponseWriter, r *http.Request) {
	min, max, ok, err := s.store.DateRange(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"min_date": nil, "max_date": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"min_date": model.FormatDate(min),
		"max_date": model.FormatDate(max),
	})
}

func (s *Server) handleWorkgroups(w http.ResponseWriter, r *http.Request) {
	wgs, err := s.store.Workgroups(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if wgs == nil {
		wgs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"workgroups": wgs})
}

type expensiveQuery struct {
	QueryID       string  `json:"query_execution_id"`
	StartTime     string  `json:"start_time"`
	Workgroup     string  `json:"workgroup"`
	DataScannedGB float64 `json:"data_scanned_gb"`
	Cost          float64 `json:"cost"`
	QueryText     string  `json:"query_text"`
}

func (s *Server) handleExpensive(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}

	start, end, ok, err := s.requestRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"queries": []expensiveQuery{}})
		return
	}

	records, err := s.store.ExpensiveQueries(r.Context(), start, end, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]expensiveQuery, 0, len(records))
	for _, rec := range records {
		var cost float64
		if rec.Cost != nil {
			cost = *rec.Cost
		}
		out = append(out, expensiveQuery{
			QueryID:       rec.ID,
			StartTime:     rec.StartTime.Format(time.RFC3339),
			Workgroup:     rec.Workgroup,
			DataScannedGB: rec.GB(),
			Cost:          cost,
			QueryText:     rec.QueryText,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"queries": out})
}

// requestRange resolves start_date/end_date query params, falling back to
// the full stored range. ok is false when the store is empty and no dates
// were given.
func (s *Server) requestRange(r *http.Request) (start, end time.Time, ok bool, err error) {
	startParam := r.URL.Query().Get("start_date")
	endParam := r.URL.Query().Get("end_date")

	if startParam == "" && endParam == "" {
		min, max, found, err := s.store.DateRange(r.Context())
		if err != nil {
			return time.Time{}, time.Time{}, false, err
		}
		return min, max, found, nil
	}

	start, err = model.ParseDate(startParam)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("invalid start_date %q", startParam)
	}
	end, err = model.ParseDate(endParam)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("invalid end_date %q", endParam)
	}
	return start, end, true, nil
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	start, end, ok, err := s.requestRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	filename := "athena_queries.csv"
	var records []model.QueryRecord
	if ok {
		records, err = s.store.QueryRange(r.Context(), start, end, r.URL.Query().Get("workgroup"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		filename = fmt.Sprintf("athena_queries_%s_%s.csv",
			model.FormatDate(start), model.FormatDate(end))
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_ = csvio.Write(w, records)
}

type chatRequest struct {
	Message string       `json:"message"`
	History []agent.Turn `json:"chat_history"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("message is required"))
		return
	}
	if s.chat == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("chat agent not configured"))
		return
	}

	reply, err := s.chat.Chat(r.Context(), req.Message, req.History)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

type analyzeRequest struct {
	BaselineStart string `json:"baseline_start"`
	BaselineEnd   string `json:"baseline_end"`
	SpikeStart    string `json:"spike_start"`
	SpikeEnd      string `json:"spike_end"`
	Workgroup     string `json:"workgroup"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}

	result, err := s.tools.AnalyzeCostIncrease(r.Context(), analysis.CostAnalysisParams{
		BaselineStart: req.BaselineStart,
		BaselineEnd:   req.BaselineEnd,
		SpikeStart:    req.SpikeStart,
		SpikeEnd:      req.SpikeEnd,
		Workgroup:     req.Workgroup,
	})
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": result})
}

type compareRequest struct {
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Workgroup     string `json:"workgroup"`
	QueryPattern  string `json:"query_pattern"`
	QueryID       string `json:"query_id"`
	BaselineStart string `json:"baseline_start"`
	BaselineEnd   string `json:"baseline_end"`
	TargetDate    string `json:"target_date"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}

	result, err := s.tools.CompareExpensiveQueries(r.Context(), analysis.ComparisonParams{
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Workgroup:     req.Workgroup,
		QueryPattern:  req.QueryPattern,
		QueryID:       req.QueryID,
		BaselineStart: req.BaselineStart,
		BaselineEnd:   req.BaselineEnd,
		TargetDate:    req.TargetDate,
	})
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": result})
}
