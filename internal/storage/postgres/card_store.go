package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
	"github.com/MyraWang0406/MatrixMirix04/internal/storage"
)

// CardStore implements storage.CardStore using PostgreSQL.
type CardStore struct {
	pool *Pool
}

// NewCardStore creates a new CardStore.
func NewCardStore(pool *Pool) *CardStore {
	return &CardStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CardStore = (*CardStore)(nil)

const cardColumns = `
	card_id, version, vertical, country, os, objective, segment, channel,
	motivation_bucket, why_you_key, why_you_label, why_now_trigger,
	root_cause_gap, proof_points, handoff_expectation, risk_flags,
	no_exaggeration, source_channel, source_url, source_date
`

// Insert adds a new card. Returns ErrDuplicateKey if card_id exists.
func (s *CardStore) Insert(ctx context.Context, c *domain.StructureCard) error {
	if c == nil || c.CardID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO structure_cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := s.pool.Exec(ctx, query,
		c.CardID, c.Version, c.Vertical, c.Country, c.OS, c.Objective, c.Segment, c.Channel,
		c.MotivationBucket, c.WhyYouKey, c.WhyYouLabel, c.WhyNowTrigger,
		c.RootCauseGap, c.ProofPoints, c.HandoffExpectation, c.RiskFlags,
		c.NoExaggeration, c.SourceChannel, c.SourceURL, c.SourceDate,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

// GetByID retrieves a card by its ID. Returns ErrNotFound if not exists.
func (s *CardStore) GetByID(ctx context.Context, cardID string) (*domain.StructureCard, error) {
	query := `SELECT ` + cardColumns + ` FROM structure_cards WHERE card_id = $1`

	row := s.pool.QueryRow(ctx, query, cardID)
	c, err := scanCard(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get card by id: %w", err)
	}
	return c, nil
}

// List retrieves cards matching the filter, ordered by card_id ASC.
// Segment matches as a substring and os='all' cards match every OS
// filter, mirroring the in-memory store.
func (s *CardStore) List(ctx context.Context, f storage.CardFilter) ([]*domain.StructureCard, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Vertical != "" {
		where = append(where, "LOWER(vertical) = LOWER("+arg(f.Vertical)+")")
	}
	if f.Country != "" {
		where = append(where, "LOWER(country) = LOWER("+arg(f.Country)+")")
	}
	if f.Segment != "" {
		where = append(where, "segment LIKE "+arg("%"+f.Segment+"%"))
	}
	if f.MotivationBucket != "" {
		where = append(where, "LOWER(motivation_bucket) = LOWER("+arg(f.MotivationBucket)+")")
	}
	if f.OS != "" {
		where = append(where, "(LOWER(os) = 'all' OR os = '' OR LOWER(os) = LOWER("+arg(f.OS)+"))")
	}
	if f.Channel != "" {
		where = append(where, "LOWER(channel) = LOWER("+arg(f.Channel)+")")
	}

	query := `SELECT ` + cardColumns + ` FROM structure_cards`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY card_id ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	return scanCards(rows)
}

// BumpVersion inserts a copy of the card with the minor version
// incremented and a versioned card_id, returning the new card.
func (s *CardStore) BumpVersion(ctx context.Context, cardID string) (*domain.StructureCard, error) {
	c, err := s.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}

	bumped := c.CopyWithBump()
	bumped.CardID = storage.VersionedCardID(cardID, bumped.Version)
	if err := s.Insert(ctx, &bumped); err != nil {
		return nil, err
	}
	return &bumped, nil
}

func scanCard(row pgx.Row) (*domain.StructureCard, error) {
	var c domain.StructureCard
	err := row.Scan(
		&c.CardID, &c.Version, &c.Vertical, &c.Country, &c.OS, &c.Objective, &c.Segment, &c.Channel,
		&c.MotivationBucket, &c.WhyYouKey, &c.WhyYouLabel, &c.WhyNowTrigger,
		&c.RootCauseGap, &c.ProofPoints, &c.HandoffExpectation, &c.RiskFlags,
		&c.NoExaggeration, &c.SourceChannel, &c.SourceURL, &c.SourceDate,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCards(rows pgx.Rows) ([]*domain.StructureCard, error) {
	var result []*domain.StructureCard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return result, nil
}
