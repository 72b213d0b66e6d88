package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/MyraWang0406/MatrixMirix04/internal/storage"
)

type metricKey struct {
	experimentID string
	variantID    string
	os           string
	window       string
}

// MetricSnapshotStore is an in-memory implementation of
// storage.MetricSnapshotStore.
type MetricSnapshotStore struct {
	mu   sync.RWMutex
	data map[metricKey]*storage.MetricSnapshot
}

// NewMetricSnapshotStore creates a new in-memory metric snapshot store.
func NewMetricSnapshotStore() *MetricSnapshotStore {
	return &MetricSnapshotStore{
		data: make(map[metricKey]*storage.MetricSnapshot),
	}
}

// Compile-time interface check.
var _ storage.MetricSnapshotStore = (*MetricSnapshotStore)(nil)

// InsertBulk adds multiple rows. Fails entire batch on any duplicate.
func (s *MetricSnapshotStore) InsertBulk(_ context.Context, rows []*storage.MetricSnapshot) error {
	if len(rows) == 0 {
		return nil
	}
	for _, r := range rows {
		if r == nil || r.ExperimentID == "" || r.VariantID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check the whole batch before writing anything
	seen := make(map[metricKey]struct{}, len(rows))
	for _, r := range rows {
		k := metricKey{r.ExperimentID, r.VariantID, r.OS, r.Window}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, r := range rows {
		rowCopy := *r
		s.data[metricKey{r.ExperimentID, r.VariantID, r.OS, r.Window}] = &rowCopy
	}
	return nil
}

// GetByExperimentID retrieves all rows for an experiment, ordered by
// variant_id, os ASC.
func (s *MetricSnapshotStore) GetByExperimentID(_ context.Context, experimentID string) ([]*storage.MetricSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*storage.MetricSnapshot
	for k, r := range s.data {
		if k.experimentID == experimentID {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].VariantID != result[j].VariantID {
			return result[i].VariantID < result[j].VariantID
		}
		return result[i].OS < result[j].OS
	})

	return result, nil
}

// GetByVariant retrieves rows for one (experiment, variant) pair,
// ordered by os, window ASC.
func (s *MetricSnapshotStore) GetByVariant(_ context.Context, experimentID, variantID string) ([]*storage.MetricSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*storage.MetricSnapshot
	for k, r := range s.data {
		if k.experimentID == experimentID && k.variantID == variantID {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].OS != result[j].OS {
			return result[i].OS < result[j].OS
		}
		return result[i].Window < result[j].Window
	})

	return result, nil
}
