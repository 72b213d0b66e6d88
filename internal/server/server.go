// Package server exposes the evaluation pipeline over a thin HTTP API
// for UI integration. The handlers only decode, delegate and encode;
// all semantics live in the pipeline packages.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
	"github.com/MyraWang0406/MatrixMirix04/internal/orchestrator"
	"github.com/MyraWang0406/MatrixMirix04/internal/reporting"
	"github.com/MyraWang0406/MatrixMirix04/internal/storage"
)

// Options configures a Server.
type Options struct {
	// Orchestrator is required.
	Orchestrator *orchestrator.Orchestrator

	// Knowledge backs the review endpoint; nil disables it.
	Knowledge storage.KnowledgeStore

	// Cards backs the card-library endpoints; nil disables them.
	Cards storage.CardStore

	Logger *log.Logger
}

// Server is the HTTP API surface.
type Server struct {
	orch      *orchestrator.Orchestrator
	knowledge storage.KnowledgeStore
	cards     storage.CardStore
	reports   *reporting.Generator
	logger    *log.Logger
}

// New creates a Server.
func New(opts Options) (*Server, error) {
	if opts.Orchestrator == nil {
		return nil, errors.New("server: orchestrator is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		orch:      opts.Orchestrator,
		knowledge: opts.Knowledge,
		cards:     opts.Cards,
		reports:   reporting.NewGenerator(),
		logger:    logger,
	}, nil
}

// Router builds the chi router with all registered endpoints.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/v1/health", s.handleHealth)
	r.Post("/api/v1/evaluate", s.handleEvaluate)
	r.Post("/api/v1/report", s.handleReport)
	if s.knowledge != nil {
		r.Get("/api/v1/review", s.handleReview)
	}
	if s.cards != nil {
		r.Get("/api/v1/cards", s.handleListCards)
		r.Post("/api/v1/cards", s.handleCreateCard)
		r.Get("/api/v1/cards/{card_id}", s.handleGetCard)
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEvaluate runs the full pipeline for the posted card and
// returns the complete result.
// POST /api/v1/evaluate
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var card domain.StructureCard
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		http.Error(w, "invalid card body", http.StatusBadRequest)
		return
	}

	res, err := s.orch.RunCard(r.Context(), card)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// Card validation failures read as client errors too.
		s.logger.Printf("evaluate %s: %v", card.CardID, err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handleReport runs the pipeline for the posted card and renders the
// experiment report. ?format=markdown (default) or csv.
// POST /api/v1/report
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var card domain.StructureCard
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		http.Error(w, "invalid card body", http.StatusBadRequest)
		return
	}

	res, err := s.orch.RunCard(r.Context(), card)
	if err != nil {
		s.logger.Printf("report %s: %v", card.CardID, err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	report := s.reports.FromSnapshot(storage.ExperimentSnapshot{
		ExperimentID: res.ExperimentID,
		Card:         res.Card,
		Variants:     res.Variants,
		Metrics:      res.Metrics,
		Diagnosis:    &res.Diagnosis,
		Elements:     res.Elements,
		Decision:     res.Decision,
	}, nil)

	switch r.URL.Query().Get("format") {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = w.Write([]byte(reporting.RenderMetricsCSV(report.Metrics)))
	case "", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(reporting.RenderMarkdown(report)))
	default:
		http.Error(w, "unknown format", http.StatusBadRequest)
	}
}

// handleReview aggregates stored experiments.
// GET /api/v1/review?vertical=&channel=&country=&segment=&os=&motivation_bucket=&limit=
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := storage.ReviewFilter{
		Vertical:         q.Get("vertical"),
		Channel:          q.Get("channel"),
		Country:          q.Get("country"),
		Segment:          q.Get("segment"),
		OS:               q.Get("os"),
		MotivationBucket: q.Get("motivation_bucket"),
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		f.Limit = n
	}

	report, err := s.knowledge.QueryReview(r.Context(), f)
	if err != nil {
		s.logger.Printf("review query: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleListCards lists stored structure cards.
// GET /api/v1/cards?vertical=&country=&segment=&motivation_bucket=&os=&channel=
func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := storage.CardFilter{
		Vertical:         q.Get("vertical"),
		Country:          q.Get("country"),
		Segment:          q.Get("segment"),
		MotivationBucket: q.Get("motivation_bucket"),
		OS:               q.Get("os"),
		Channel:          q.Get("channel"),
	}

	cards, err := s.cards.List(r.Context(), f)
	if err != nil {
		s.logger.Printf("list cards: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

// handleCreateCard stores a new structure card.
// POST /api/v1/cards
func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var card domain.StructureCard
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		http.Error(w, "invalid card body", http.StatusBadRequest)
		return
	}
	if errs := domain.ValidateCard(card); len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": errs})
		return
	}

	if err := s.cards.Insert(r.Context(), &card); err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			http.Error(w, "card already exists", http.StatusConflict)
		case errors.Is(err, storage.ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			s.logger.Printf("insert card %s: %v", card.CardID, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

// handleGetCard fetches one card by ID.
// GET /api/v1/cards/{card_id}
func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "card_id")

	card, err := s.cards.GetByID(r.Context(), cardID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "card not found", http.StatusNotFound)
			return
		}
		s.logger.Printf("get card %s: %v", cardID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
