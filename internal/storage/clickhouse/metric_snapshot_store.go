package clickhouse

import (
	"context"
	"fmt"

	"github.com/MyraWang0406/MatrixMirix04/internal/storage"
)

// MetricSnapshotStore implements storage.MetricSnapshotStore using ClickHouse.
type MetricSnapshotStore struct {
	conn *Conn
}

// NewMetricSnapshotStore creates a new MetricSnapshotStore.
func NewMetricSnapshotStore(conn *Conn) *MetricSnapshotStore {
	return &MetricSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MetricSnapshotStore = (*MetricSnapshotStore)(nil)

// InsertBulk adds multiple rows. Fails entire batch on duplicate
// (experiment_id, variant_id, os, window).
func (s *MetricSnapshotStore) InsertBulk(ctx context.Context, rows []*storage.MetricSnapshot) error {
	if len(rows) == 0 {
		return nil
	}
	for _, r := range rows {
		if r == nil || r.ExperimentID == "" || r.VariantID == "" {
			return storage.ErrInvalidInput
		}
	}

	// Check for intra-batch duplicates
	type key struct {
		experimentID, variantID, os, window string
	}
	seen := make(map[key]struct{}, len(rows))
	for _, r := range rows {
		k := key{r.ExperimentID, r.VariantID, r.OS, r.Window}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// MergeTree does not enforce uniqueness, so check against existing
	// rows before writing.
	for _, r := range rows {
		exists, err := s.exists(ctx, r)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO metric_snapshots (
			experiment_id, variant_id, os, window,
			impressions, clicks, installs, spend,
			ipm, cpi, ctr, early_roas, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err = batch.Append(
			r.ExperimentID, r.VariantID, r.OS, r.Window,
			uint64(r.Impressions), uint64(r.Clicks), uint64(r.Installs), r.Spend,
			r.IPM, r.CPI, r.CTR, r.EarlyROAS, uint64(r.TimestampMs),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByExperimentID retrieves all rows for an experiment, ordered by
// variant_id, os ASC.
func (s *MetricSnapshotStore) GetByExperimentID(ctx context.Context, experimentID string) ([]*storage.MetricSnapshot, error) {
	query := `
		SELECT experiment_id, variant_id, os, window,
		       impressions, clicks, installs, spend,
		       ipm, cpi, ctr, early_roas, timestamp_ms
		FROM metric_snapshots
		WHERE experiment_id = ?
		ORDER BY variant_id ASC, os ASC
	`

	rows, err := s.conn.Query(ctx, query, experimentID)
	if err != nil {
		return nil, fmt.Errorf("get rows by experiment id: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// GetByVariant retrieves rows for one (experiment, variant) pair,
// ordered by os, window ASC.
func (s *MetricSnapshotStore) GetByVariant(ctx context.Context, experimentID, variantID string) ([]*storage.MetricSnapshot, error) {
	query := `
		SELECT experiment_id, variant_id, os, window,
		       impressions, clicks, installs, spend,
		       ipm, cpi, ctr, early_roas, timestamp_ms
		FROM metric_snapshots
		WHERE experiment_id = ? AND variant_id = ?
		ORDER BY os ASC, window ASC
	`

	rows, err := s.conn.Query(ctx, query, experimentID, variantID)
	if err != nil {
		return nil, fmt.Errorf("get rows by variant: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

func (s *MetricSnapshotStore) exists(ctx context.Context, r *storage.MetricSnapshot) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM metric_snapshots
		WHERE experiment_id = ? AND variant_id = ? AND os = ? AND window = ?
	`

	var count uint64
	row := s.conn.QueryRow(ctx, query, r.ExperimentID, r.VariantID, r.OS, r.Window)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRows(rows rowScanner) ([]*storage.MetricSnapshot, error) {
	var result []*storage.MetricSnapshot
	for rows.Next() {
		var (
			r                            storage.MetricSnapshot
			impressions, clicks, install uint64
			timestampMs                  uint64
		)
		err := rows.Scan(
			&r.ExperimentID, &r.VariantID, &r.OS, &r.Window,
			&impressions, &clicks, &install, &r.Spend,
			&r.IPM, &r.CPI, &r.CTR, &r.EarlyROAS, &timestampMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Impressions = int64(impressions)
		r.Clicks = int64(clicks)
		r.Installs = int64(install)
		r.TimestampMs = int64(timestampMs)
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}
