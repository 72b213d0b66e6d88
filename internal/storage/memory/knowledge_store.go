package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MyraWang0406/MatrixMirix04/internal/idhash"
	"github.com/MyraWang0406/MatrixMirix04/internal/storage"
)

// KnowledgeStore is an in-memory implementation of storage.KnowledgeStore.
type KnowledgeStore struct {
	mu   sync.RWMutex
	data map[string]*storage.ExperimentSnapshot // keyed by experiment_id
	// insertion order, so review queries stay deterministic
	order []string
}

// NewKnowledgeStore creates a new in-memory knowledge store.
func NewKnowledgeStore() *KnowledgeStore {
	return &KnowledgeStore{
		data: make(map[string]*storage.ExperimentSnapshot),
	}
}

// Compile-time interface check.
var _ storage.KnowledgeStore = (*KnowledgeStore)(nil)

// WriteExperiment persists one snapshot and returns its experiment ID.
func (s *KnowledgeStore) WriteExperiment(_ context.Context, snap *storage.ExperimentSnapshot) (string, error) {
	if snap == nil || snap.Card.CardID == "" {
		return "", storage.ErrInvalidInput
	}

	snapCopy := *snap
	if snapCopy.CreatedAt.IsZero() {
		snapCopy.CreatedAt = time.Now()
	}
	if snapCopy.ExperimentID == "" {
		snapCopy.ExperimentID = idhash.ComputeExperimentID(
			snapCopy.Card.CardID, snapCopy.Card.Version, snapCopy.Card.Channel,
			snapCopy.CreatedAt.Unix(),
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[snapCopy.ExperimentID]; exists {
		return "", storage.ErrDuplicateKey
	}
	s.data[snapCopy.ExperimentID] = &snapCopy
	s.order = append(s.order, snapCopy.ExperimentID)
	return snapCopy.ExperimentID, nil
}

// GetByID retrieves a snapshot by experiment ID. Returns ErrNotFound
// if not exists.
func (s *KnowledgeStore) GetByID(_ context.Context, experimentID string) (*storage.ExperimentSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.data[experimentID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	snapCopy := *snap
	return &snapCopy, nil
}

// QueryReview aggregates stored experiments matching the filter.
func (s *KnowledgeStore) QueryReview(_ context.Context, f storage.ReviewFilter) (*storage.ReviewReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := f.Limit
	if limit <= 0 {
		limit = 500
	}

	var matched []*storage.ExperimentSnapshot
	for _, id := range s.order {
		snap := s.data[id]
		if !matchSnapshot(snap, f) {
			continue
		}
		matched = append(matched, snap)
		if len(matched) >= limit {
			break
		}
	}

	report := &storage.ReviewReport{
		FailureTypeDistribution: make(map[string]int),
	}
	report.TotalExperiments = len(matched)

	type standingKey struct {
		cardID, vertical, channel, bucket string
	}
	standings := make(map[standingKey]*storage.StructureStanding)

	explorePass, validatePass := 0, 0
	for _, snap := range matched {
		ft := ""
		if snap.Diagnosis != nil {
			ft = snap.Diagnosis.FailureType
		}
		if !storage.IsStructureFailure(ft) {
			explorePass++
		}
		if storage.IsValidatePass(ft) {
			validatePass++
		}

		histKey := ft
		if histKey == "" {
			histKey = "_empty"
		}
		report.FailureTypeDistribution[histKey]++

		k := standingKey{snap.Card.CardID, snap.Card.Vertical, snap.Card.Channel, snap.Card.MotivationBucket}
		st, ok := standings[k]
		if !ok {
			st = &storage.StructureStanding{
				CardID:           k.cardID,
				Vertical:         k.vertical,
				Channel:          k.channel,
				MotivationBucket: k.bucket,
			}
			standings[k] = st
		}
		st.TotalCount++
		if !storage.IsStructureFailure(ft) {
			st.PassCount++
		}
	}

	if report.TotalExperiments > 0 {
		n := float64(report.TotalExperiments)
		report.ExplorePassRate = round2(float64(explorePass) / n)
		report.ValidatePassRate = round2(float64(validatePass) / n)
	}

	report.TopFailureTypes = topFailures(report.FailureTypeDistribution, 3)

	for _, st := range standings {
		report.TopStructures = append(report.TopStructures, *st)
	}
	sort.Slice(report.TopStructures, func(i, j int) bool {
		a, b := report.TopStructures[i], report.TopStructures[j]
		if a.PassCount != b.PassCount {
			return a.PassCount > b.PassCount
		}
		if a.TotalCount != b.TotalCount {
			return a.TotalCount > b.TotalCount
		}
		return a.CardID < b.CardID
	})
	if len(report.TopStructures) > 10 {
		report.TopStructures = report.TopStructures[:10]
	}

	return report, nil
}

func matchSnapshot(snap *storage.ExperimentSnapshot, f storage.ReviewFilter) bool {
	c := snap.Card
	if f.Vertical != "" && !strings.EqualFold(c.Vertical, f.Vertical) {
		return false
	}
	if f.Channel != "" && !strings.EqualFold(c.Channel, f.Channel) {
		return false
	}
	if f.Country != "" && !strings.EqualFold(c.Country, f.Country) {
		return false
	}
	if f.Segment != "" && !strings.Contains(c.Segment, f.Segment) {
		return false
	}
	if f.MotivationBucket != "" && !strings.Contains(c.MotivationBucket, f.MotivationBucket) {
		return false
	}
	if f.OS != "" {
		found := false
		for _, m := range snap.Metrics {
			if strings.EqualFold(m.OS, f.OS) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func topFailures(dist map[string]int, n int) []storage.FailureCount {
	out := make([]storage.FailureCount, 0, len(dist))
	for ft, cnt := range dist {
		out = append(out, storage.FailureCount{FailureType: ft, Count: cnt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].FailureType < out[j].FailureType
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func round2(x float64) float64 {
	return float64(int(x*100+0.5)) / 100
}
