package storage

import (
	"context"
	"time"

	"github.com/MyraWang0406/MatrixMirix04/internal/diagnosis"
	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
	"github.com/MyraWang0406/MatrixMirix04/internal/elements"
	"github.com/MyraWang0406/MatrixMirix04/internal/summary"
)

// CardFilter narrows card library queries. Empty fields match
// everything; Segment and MotivationBucket match as substrings, OS
// "all" cards match every OS filter.
type CardFilter struct {
	Vertical         string
	Country          string
	Segment          string
	MotivationBucket string
	OS               string
	Channel          string
}

// CardStore is the structure-card library.
type CardStore interface {
	// Insert adds a new card. Returns ErrDuplicateKey if card_id exists.
	Insert(ctx context.Context, c *domain.StructureCard) error

	// GetByID retrieves a card by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, cardID string) (*domain.StructureCard, error)

	// List retrieves cards matching the filter, ordered by card_id ASC.
	List(ctx context.Context, f CardFilter) ([]*domain.StructureCard, error)

	// BumpVersion inserts a copy of the card with the minor version
	// incremented and a versioned card_id, returning the new card.
	// Returns ErrNotFound if card_id does not exist.
	BumpVersion(ctx context.Context, cardID string) (*domain.StructureCard, error)
}

// ExperimentSnapshot is one full evaluation result: the card, its
// simulated metrics, the diagnosis, element scores and the decision.
// Snapshots are write-once.
type ExperimentSnapshot struct {
	ExperimentID string
	Card         domain.StructureCard
	Variants     []domain.Variant
	Metrics      []domain.SimulatedMetrics
	Diagnosis    *diagnosis.Result
	Elements     []elements.Score
	Decision     summary.Decision
	Notes        string
	CreatedAt    time.Time
}

// ReviewFilter narrows the review query. Empty fields match
// everything; Segment and MotivationBucket match as substrings.
type ReviewFilter struct {
	Vertical         string
	Channel          string
	Country          string
	Segment          string
	OS               string
	MotivationBucket string
	Limit            int
}

// FailureCount is one failure-type histogram bucket.
type FailureCount struct {
	FailureType string `json:"failure_type"`
	Count       int    `json:"count"`
}

// StructureStanding ranks one card structure by experiment pass count.
type StructureStanding struct {
	CardID           string `json:"card_id"`
	Vertical         string `json:"vertical"`
	Channel          string `json:"channel"`
	MotivationBucket string `json:"motivation_bucket"`
	PassCount        int    `json:"pass_count"`
	TotalCount       int    `json:"total_count"`
}

// ReviewReport is the read side of the knowledge store: pass rates,
// failure-type distribution and the most reliable structures.
type ReviewReport struct {
	ExplorePassRate         float64             `json:"explore_pass_rate"`
	ValidatePassRate        float64             `json:"validate_pass_rate"`
	TotalExperiments        int                 `json:"total_experiments"`
	FailureTypeDistribution map[string]int      `json:"failure_type_distribution"`
	TopFailureTypes         []FailureCount      `json:"top3_failure_type"`
	TopStructures           []StructureStanding `json:"top_structures_by_pass"`
}

// KnowledgeStore persists experiment snapshots and answers review
// queries over them.
type KnowledgeStore interface {
	// WriteExperiment persists one snapshot and returns its experiment
	// ID. A snapshot with an empty ExperimentID gets a deterministic ID
	// derived from (card_id, version, channel, created_at). Returns
	// ErrDuplicateKey if that ID was already written.
	WriteExperiment(ctx context.Context, snap *ExperimentSnapshot) (string, error)

	// QueryReview aggregates stored experiments matching the filter.
	QueryReview(ctx context.Context, f ReviewFilter) (*ReviewReport, error)
}

// MetricSnapshot is one metric row as stored in the analytical store,
// keyed by (experiment_id, variant_id, os, window).
type MetricSnapshot struct {
	ExperimentID string
	VariantID    string
	OS           string
	Window       string
	Impressions  int64
	Clicks       int64
	Installs     int64
	Spend        float64
	IPM          float64
	CPI          float64
	CTR          float64
	EarlyROAS    float64
	TimestampMs  int64
}

// MetricSnapshotStore provides access to the analytical metric store.
type MetricSnapshotStore interface {
	// InsertBulk adds multiple rows. Fails entire batch on duplicate
	// (experiment_id, variant_id, os, window).
	InsertBulk(ctx context.Context, rows []*MetricSnapshot) error

	// GetByExperimentID retrieves all rows for an experiment, ordered
	// by variant_id, os ASC.
	GetByExperimentID(ctx context.Context, experimentID string) ([]*MetricSnapshot, error)

	// GetByVariant retrieves rows for one (experiment, variant) pair,
	// ordered by os, window ASC.
	GetByVariant(ctx context.Context, experimentID, variantID string) ([]*MetricSnapshot, error)
}

// SnapshotMetricRows flattens a snapshot's simulated metrics into
// analytical rows tagged with the explore window.
func SnapshotMetricRows(snap *ExperimentSnapshot) []*MetricSnapshot {
	if snap == nil {
		return nil
	}
	rows := make([]*MetricSnapshot, 0, len(snap.Metrics))
	for _, m := range snap.Metrics {
		rows = append(rows, &MetricSnapshot{
			ExperimentID: snap.ExperimentID,
			VariantID:    m.VariantID,
			OS:           m.OS,
			Window:       "Explore",
			Impressions:  int64(m.Impressions),
			Clicks:       int64(m.Clicks),
			Installs:     int64(m.Installs),
			Spend:        m.Spend,
			IPM:          m.IPM,
			CPI:          m.CPI,
			CTR:          m.CTR,
			EarlyROAS:    m.EarlyROAS,
			TimestampMs:  snap.CreatedAt.UnixMilli(),
		})
	}
	return rows
}
