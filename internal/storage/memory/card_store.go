package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
	"github.com/MyraWang0406/MatrixMirix04/internal/storage"
)

// CardStore is an in-memory implementation of storage.CardStore.
type CardStore struct {
	mu   sync.RWMutex
	data map[string]*domain.StructureCard // keyed by card_id
}

// NewCardStore creates a new in-memory card store.
func NewCardStore() *CardStore {
	return &CardStore{
		data: make(map[string]*domain.StructureCard),
	}
}

// Compile-time interface check.
var _ storage.CardStore = (*CardStore)(nil)

// Insert adds a new card. Returns ErrDuplicateKey if card_id exists.
func (s *CardStore) Insert(_ context.Context, c *domain.StructureCard) error {
	if c == nil || c.CardID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.CardID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	cardCopy := *c
	s.data[c.CardID] = &cardCopy
	return nil
}

// GetByID retrieves a card by its ID. Returns ErrNotFound if not exists.
func (s *CardStore) GetByID(_ context.Context, cardID string) (*domain.StructureCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[cardID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cardCopy := *c
	return &cardCopy, nil
}

// List retrieves cards matching the filter, ordered by card_id ASC.
func (s *CardStore) List(_ context.Context, f storage.CardFilter) ([]*domain.StructureCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StructureCard
	for _, c := range s.data {
		if !matchCard(c, f) {
			continue
		}
		cardCopy := *c
		result = append(result, &cardCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CardID < result[j].CardID
	})

	return result, nil
}

// BumpVersion inserts a copy of the card with the minor version
// incremented and a versioned card_id, returning the new card.
func (s *CardStore) BumpVersion(_ context.Context, cardID string) (*domain.StructureCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.data[cardID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	bumped := c.CopyWithBump()
	bumped.CardID = storage.VersionedCardID(cardID, bumped.Version)
	if _, exists := s.data[bumped.CardID]; exists {
		return nil, storage.ErrDuplicateKey
	}
	s.data[bumped.CardID] = &bumped

	bumpedCopy := bumped
	return &bumpedCopy, nil
}

// matchCard applies CardFilter semantics: exact case-insensitive match
// for vertical/country/bucket/channel, substring for segment, and OS
// "all" cards match any OS filter.
func matchCard(c *domain.StructureCard, f storage.CardFilter) bool {
	if f.Vertical != "" && !strings.EqualFold(c.Vertical, f.Vertical) {
		return false
	}
	if f.Country != "" && !strings.EqualFold(c.Country, f.Country) {
		return false
	}
	if f.Segment != "" && !strings.Contains(c.Segment, f.Segment) {
		return false
	}
	if f.MotivationBucket != "" && !strings.EqualFold(c.MotivationBucket, f.MotivationBucket) {
		return false
	}
	if f.OS != "" {
		os := c.OS
		if os == "" {
			os = domain.OSAll
		}
		if !strings.EqualFold(os, domain.OSAll) && !strings.EqualFold(os, f.OS) {
			return false
		}
	}
	if f.Channel != "" && !strings.EqualFold(c.Channel, f.Channel) {
		return false
	}
	return true
}
