package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MyraWang0406/MatrixMirix04/internal/corpus"
	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
	"github.com/MyraWang0406/MatrixMirix04/internal/orchestrator"
	"github.com/MyraWang0406/MatrixMirix04/internal/storage"
	"github.com/MyraWang0406/MatrixMirix04/internal/storage/memory"
)

func testCard() domain.StructureCard {
	return domain.StructureCard{
		CardID:           "sc_001",
		Version:          "1.0",
		Vertical:         "ecommerce",
		Country:          "US",
		OS:               "all",
		Objective:        "purchase",
		Segment:          "new users",
		Channel:          "Meta",
		MotivationBucket: "deal_discount",
		WhyYouKey:        "price_advantage",
		WhyYouLabel:      "cheaper than the usual brands",
		WhyNowTrigger:    "seasonal_sale",
	}
}

func newTestServer(t *testing.T) (*Server, *memory.KnowledgeStore, *memory.CardStore) {
	t.Helper()

	knowledge := memory.NewKnowledgeStore()
	cards := memory.NewCardStore()

	orch, err := orchestrator.New(orchestrator.Options{
		Corpus:          corpus.Default(),
		Knowledge:       knowledge,
		VariantsPerCard: 4,
	})
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}

	s, err := New(Options{Orchestrator: orch, Knowledge: knowledge, Cards: cards})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, knowledge, cards
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := doJSON(t, s.Router(), http.MethodGet, "/api/v1/health", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestEvaluate(t *testing.T) {
	s, knowledge, _ := newTestServer(t)
	router := s.Router()

	w := doJSON(t, router, http.MethodPost, "/api/v1/evaluate", testCard())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res orchestrator.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !strings.HasPrefix(res.ExperimentID, "exp_") {
		t.Errorf("experiment_id = %s", res.ExperimentID)
	}
	if len(res.Variants) != 4 {
		t.Errorf("variants = %d, want 4", len(res.Variants))
	}

	// The run is persisted for later review queries.
	report, err := knowledge.QueryReview(context.Background(), storage.ReviewFilter{})
	if err != nil {
		t.Fatalf("QueryReview: %v", err)
	}
	if report.TotalExperiments != 1 {
		t.Errorf("stored experiments = %d, want 1", report.TotalExperiments)
	}
}

func TestEvaluateBadBody(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluate", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestEvaluateInvalidCard(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := doJSON(t, s.Router(), http.MethodPost, "/api/v1/evaluate", domain.StructureCard{CardID: "sc_incomplete"})

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestReportMarkdown(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := doJSON(t, s.Router(), http.MethodPost, "/api/v1/report", testCard())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("content type = %s", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "# Creative Experiment Report") {
		t.Error("missing report header")
	}
	if !strings.Contains(body, "sc_001") {
		t.Error("missing card id")
	}
}

func TestReportCSV(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := doJSON(t, s.Router(), http.MethodPost, "/api/v1/report?format=csv", testCard())

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "variant_id,os,baseline,") {
		t.Errorf("csv header missing: %s", w.Body.String()[:60])
	}
}

func TestReportUnknownFormat(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := doJSON(t, s.Router(), http.MethodPost, "/api/v1/report?format=xml", testCard())

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestReviewEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	router := s.Router()

	// Two runs of different verticals.
	if w := doJSON(t, router, http.MethodPost, "/api/v1/evaluate", testCard()); w.Code != http.StatusOK {
		t.Fatalf("evaluate: %d", w.Code)
	}
	game := testCard()
	game.CardID = "sc_002"
	game.Vertical = "casual_game"
	game.Objective = "install"
	game.MotivationBucket = "achievement"
	if w := doJSON(t, router, http.MethodPost, "/api/v1/evaluate", game); w.Code != http.StatusOK {
		t.Fatalf("evaluate game: %d", w.Code)
	}

	w := doJSON(t, router, http.MethodGet, "/api/v1/review?vertical=ecommerce", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("review status = %d", w.Code)
	}
	var report storage.ReviewReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.TotalExperiments != 1 {
		t.Errorf("filtered experiments = %d, want 1", report.TotalExperiments)
	}
}

func TestReviewInvalidLimit(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := doJSON(t, s.Router(), http.MethodGet, "/api/v1/review?limit=zero", nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCardEndpoints(t *testing.T) {
	s, _, _ := newTestServer(t)
	router := s.Router()

	// Create
	w := doJSON(t, router, http.MethodPost, "/api/v1/cards", testCard())
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	// Duplicate
	w = doJSON(t, router, http.MethodPost, "/api/v1/cards", testCard())
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", w.Code)
	}

	// Invalid card
	w = doJSON(t, router, http.MethodPost, "/api/v1/cards", domain.StructureCard{CardID: "sc_incomplete"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid status = %d, want 422", w.Code)
	}

	// Get
	w = doJSON(t, router, http.MethodGet, "/api/v1/cards/sc_001", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var card domain.StructureCard
	if err := json.Unmarshal(w.Body.Bytes(), &card); err != nil {
		t.Fatalf("decode card: %v", err)
	}
	if card.CardID != "sc_001" {
		t.Errorf("card_id = %s", card.CardID)
	}

	// Not found
	w = doJSON(t, router, http.MethodGet, "/api/v1/cards/sc_missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", w.Code)
	}

	// List with filter
	w = doJSON(t, router, http.MethodGet, "/api/v1/cards?vertical=ecommerce", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var cards []domain.StructureCard
	if err := json.Unmarshal(w.Body.Bytes(), &cards); err != nil {
		t.Fatalf("decode cards: %v", err)
	}
	if len(cards) != 1 {
		t.Errorf("listed cards = %d, want 1", len(cards))
	}
}
