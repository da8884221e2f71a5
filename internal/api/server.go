// Package api exposes the recommendation engine and progress tracker over a
// thin HTTP layer. All domain decisions stay in the core packages; handlers
// only translate between HTTP and in-process calls.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fastwise/tutr/internal/graph"
	"github.com/fastwise/tutr/internal/progress"
	"github.com/fastwise/tutr/internal/recommend"
)

const (
	defaultRecommendLimit = 1
	defaultConceptLimit   = 10
)

// ReloadFunc re-ingests the question banks and returns the new graph. The
// server swaps it in atomically; in-flight requests finish on the old one.
type ReloadFunc func() (*graph.Graph, error)

// ServerConfig holds dependencies for the API server.
type ServerConfig struct {
	Graph   *graph.Ref
	Tracker *progress.Tracker
	Engine  *recommend.Engine
	Hub     *Hub       // optional, enables the events endpoint
	Reload  ReloadFunc // optional, enables the admin reload endpoint
}

// Server handles HTTP requests for recommendations and progress.
type Server struct {
	graphs  *graph.Ref
	tracker *progress.Tracker
	engine  *recommend.Engine
	hub     *Hub
	reload  ReloadFunc
}

// NewServer creates an API server.
func NewServer(cfg ServerConfig) *Server {
	return &Server{
		graphs:  cfg.Graph,
		tracker: cfg.Tracker,
		engine:  cfg.Engine,
		hub:     cfg.Hub,
		reload:  cfg.Reload,
	}
}

// Routes returns the HTTP router.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", handleReadyz)
	mux.HandleFunc("GET /v1/students/{studentID}/recommendations", s.handleRecommendations)
	mux.HandleFunc("GET /v1/students/{studentID}/concepts/{concept}/recommendations", s.handleConceptRecommendations)
	mux.HandleFunc("POST /v1/students/{studentID}/attempts", s.handleAttempt)
	mux.HandleFunc("POST /v1/students/{studentID}/completions", s.handleCompletion)
	mux.HandleFunc("GET /v1/students/{studentID}/summary", s.handleSummary)
	mux.HandleFunc("POST /v1/admin/reload", s.handleReload)
	if s.hub != nil {
		mux.HandleFunc("GET /v1/students/{studentID}/events", s.handleEvents)
	}
	return mux
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func handleReadyz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// questionResponse is the wire form of a recommended question.
type questionResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Difficulty  string   `json:"difficulty"`
	StepNo      int      `json:"step_no"`
	SubStepNo   int      `json:"sub_step_no"`
	SequenceNo  int      `json:"sl_no"`
	Concepts    []string `json:"concepts,omitempty"`
	SubConcepts []string `json:"subconcepts,omitempty"`
}

func toQuestionResponse(q *graph.Question) questionResponse {
	resp := questionResponse{
		ID:         q.ID,
		Title:      q.Title,
		Content:    q.Content,
		Difficulty: q.Difficulty.String(),
		StepNo:     q.Position.Step,
		SubStepNo:  q.Position.SubStep,
		SequenceNo: q.Position.Sequence,
	}
	for _, c := range q.Concepts {
		resp.Concepts = append(resp.Concepts, c.Name)
	}
	for _, sc := range q.SubConcepts {
		resp.SubConcepts = append(resp.SubConcepts, sc.Name)
	}
	return resp
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("studentID")
	limit, err := parseLimit(r, defaultRecommendLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	g := s.graphs.Load()
	snap := s.tracker.Snapshot(r.Context(), studentID)
	questions := s.engine.Recommend(g, snap, limit)

	writeQuestions(w, questions)
}

func (s *Server) handleConceptRecommendations(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("studentID")
	concept := r.PathValue("concept")
	limit, err := parseLimit(r, defaultConceptLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	g := s.graphs.Load()
	snap := s.tracker.Snapshot(r.Context(), studentID)
	questions, err := s.engine.RecommendByConcept(g, snap, concept, limit)
	if err != nil {
		if errors.Is(err, recommend.ErrConceptNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeQuestions(w, questions)
}

type attemptRequest struct {
	QuestionID string `json:"question_id"`
}

func (s *Server) handleAttempt(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("studentID")

	var req attemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuestionID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("question_id is required"))
		return
	}

	if err := s.tracker.RecordAttempt(r.Context(), studentID, req.QuestionID); err != nil {
		slog.Error("failed to record attempt", "student_id", studentID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type completionRequest struct {
	QuestionID string `json:"question_id"`
	Mastered   bool   `json:"mastered"`
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("studentID")

	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuestionID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("question_id is required"))
		return
	}

	g := s.graphs.Load()
	if err := s.tracker.MarkCompletion(r.Context(), g, studentID, req.QuestionID, req.Mastered); err != nil {
		slog.Error("failed to record completion", "student_id", studentID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("studentID")

	summary, err := s.tracker.AuditSummary(r.Context(), studentID)
	if err != nil {
		if errors.Is(err, progress.ErrStudentNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.reload == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("reload is not configured"))
		return
	}

	g, err := s.reload()
	if err != nil {
		var verr *graph.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		slog.Error("graph reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.graphs.Store(g)
	slog.Info("concept graph reloaded", "stats", g.Stats())
	writeJSON(w, http.StatusOK, g.Stats())
}

func parseLimit(r *http.Request, fallback int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("limit must be an integer")
	}
	return limit, nil
}

func writeQuestions(w http.ResponseWriter, questions []*graph.Question) {
	out := make([]questionResponse, 0, len(questions))
	for _, q := range questions {
		out = append(out, toQuestionResponse(q))
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": out})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
