// Package sqlite persists experiment snapshots in a single-file
// knowledge base: structure, metric performance and the situations a
// structure keeps winning in, so the learning survives team turnover.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MyraWang0406/MatrixMirix04/internal/idhash"
	"github.com/MyraWang0406/MatrixMirix04/internal/storage"
)

// KnowledgeStore implements storage.KnowledgeStore with SQLite.
type KnowledgeStore struct {
	db *sql.DB
}

// Compile-time interface check.
var _ storage.KnowledgeStore = (*KnowledgeStore)(nil)

// Open opens or creates a SQLite DB at path and initializes the
// schema. Creates the parent directory if it does not exist.
func Open(path string) (*KnowledgeStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &KnowledgeStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *KnowledgeStore) Close() error {
	return s.db.Close()
}

func (s *KnowledgeStore) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cards (
			card_id TEXT PRIMARY KEY,
			version TEXT,
			vertical TEXT,
			country TEXT,
			segment TEXT,
			os TEXT,
			channel TEXT,
			motivation_bucket TEXT,
			hook_type TEXT,
			why_now_trigger TEXT,
			cta TEXT,
			proof_points_json TEXT,
			handoff_expectation TEXT,
			provenance_json TEXT,
			created_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS experiments (
			exp_id TEXT PRIMARY KEY,
			card_id TEXT,
			created_at TEXT,
			vertical TEXT,
			channel TEXT,
			country TEXT,
			segment TEXT,
			motivation_bucket TEXT,
			objective TEXT,
			notes TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS variant_metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			exp_id TEXT,
			variant_id TEXT,
			os TEXT,
			window TEXT,
			impressions INTEGER,
			installs INTEGER,
			spend REAL,
			ipm REAL,
			cpi REAL,
			ctr REAL,
			early_roas REAL,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS diagnosis (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			exp_id TEXT,
			os_scope TEXT,
			failure_type TEXT,
			primary_signal TEXT,
			next_action TEXT,
			detail_json TEXT,
			created_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS element_scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			exp_id TEXT,
			element_type TEXT,
			element_value TEXT,
			metric TEXT,
			delta REAL,
			confidence TEXT,
			cross_os TEXT,
			created_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS decisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			exp_id TEXT,
			action TEXT,
			scale_step TEXT,
			stop_loss TEXT,
			risk_notes TEXT,
			created_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_variant_metrics_exp_id ON variant_metrics(exp_id)`,
		`CREATE INDEX IF NOT EXISTS idx_diagnosis_exp_id ON diagnosis(exp_id)`,
		`CREATE INDEX IF NOT EXISTS idx_element_scores_exp_id ON element_scores(exp_id)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_exp_id ON decisions(exp_id)`,
		`CREATE INDEX IF NOT EXISTS idx_experiments_vertical ON experiments(vertical)`,
		`CREATE INDEX IF NOT EXISTS idx_experiments_channel ON experiments(channel)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_vertical ON cards(vertical)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_channel ON cards(channel)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// WriteExperiment persists one snapshot and returns its experiment ID.
func (s *KnowledgeStore) WriteExperiment(ctx context.Context, snap *storage.ExperimentSnapshot) (string, error) {
	if snap == nil || snap.Card.CardID == "" {
		return "", storage.ErrInvalidInput
	}

	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	expID := snap.ExperimentID
	if expID == "" {
		expID = idhash.ComputeExperimentID(snap.Card.CardID, snap.Card.Version, snap.Card.Channel, createdAt.Unix())
	}
	now := createdAt.Format(time.RFC3339)

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM experiments WHERE exp_id=?`, expID).Scan(&count); err != nil {
		return "", fmt.Errorf("check experiment: %w", err)
	}
	if count > 0 {
		return "", storage.ErrDuplicateKey
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	card := snap.Card
	hookType, cta := "", ""
	if len(snap.Variants) > 0 {
		hookType = snap.Variants[0].HookType
		cta = snap.Variants[0].CTAType
	}
	proofPoints, err := json.Marshal(orEmpty(card.ProofPoints))
	if err != nil {
		return "", fmt.Errorf("marshal proof points: %w", err)
	}
	provenance, err := json.Marshal(map[string]string{
		"source_channel": firstNonEmpty(card.SourceChannel, card.Channel),
		"source_country": card.Country,
		"source_date":    card.SourceDate,
		"source_ref":     card.SourceURL,
	})
	if err != nil {
		return "", fmt.Errorf("marshal provenance: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO cards (card_id, version, vertical, country, segment, os, channel, motivation_bucket,
			hook_type, why_now_trigger, cta, proof_points_json, handoff_expectation, provenance_json, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`,
		card.CardID, firstNonEmpty(card.Version, "1.0"), card.Vertical, card.Country, card.Segment,
		firstNonEmpty(card.OS, "all"), firstNonEmpty(card.Channel, card.SourceChannel, "Meta"),
		card.MotivationBucket, hookType, card.WhyNowTrigger, cta,
		string(proofPoints), card.HandoffExpectation, string(provenance), now,
	)
	if err != nil {
		return "", fmt.Errorf("insert card: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO experiments (exp_id, card_id, created_at, vertical, channel, country, segment, motivation_bucket, objective, notes)
		VALUES (?,?,?,?,?,?,?,?,?,?)
	`,
		expID, card.CardID, now, card.Vertical,
		firstNonEmpty(card.Channel, card.SourceChannel, "Meta"),
		firstNonEmpty(card.Country, "US"), card.Segment, card.MotivationBucket,
		firstNonEmpty(card.Objective, "install"), snap.Notes,
	)
	if err != nil {
		return "", fmt.Errorf("insert experiment: %w", err)
	}

	for _, m := range snap.Metrics {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO variant_metrics (exp_id, variant_id, os, window, impressions, installs, spend, ipm, cpi, ctr, early_roas, updated_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
		`,
			expID, m.VariantID, m.OS, "Explore",
			m.Impressions, m.Installs, m.Spend, m.IPM, m.CPI, m.CTR, m.EarlyROAS, now,
		)
		if err != nil {
			return "", fmt.Errorf("insert variant metric: %w", err)
		}
	}

	if snap.Diagnosis != nil {
		diag := snap.Diagnosis
		nextAction := ""
		if len(diag.RecommendedActions) > 0 {
			nextAction = diag.RecommendedActions[0].Action
		}
		detail, err := json.Marshal(map[string]string{"detail": diag.Detail})
		if err != nil {
			return "", fmt.Errorf("marshal diagnosis detail: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO diagnosis (exp_id, os_scope, failure_type, primary_signal, next_action, detail_json, created_at)
			VALUES (?,?,?,?,?,?,?)
		`, expID, "all", diag.FailureType, diag.PrimarySignal, nextAction, string(detail), now)
		if err != nil {
			return "", fmt.Errorf("insert diagnosis: %w", err)
		}
	}

	for _, es := range snap.Elements {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO element_scores (exp_id, element_type, element_value, metric, delta, confidence, cross_os, created_at)
			VALUES (?,?,?,?,?,?,?,?)
		`, expID, es.ElementType, es.ElementValue, "IPM", es.AvgIPMDeltaVsCardMean, es.ConfidenceLevel, es.CrossOSConsistency, now)
		if err != nil {
			return "", fmt.Errorf("insert element score: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO decisions (exp_id, action, scale_step, stop_loss, risk_notes, created_at)
		VALUES (?,?,?,?,?,?)
	`, expID, snap.Decision.NextStep, "", "", snap.Decision.Risk, now)
	if err != nil {
		return "", fmt.Errorf("insert decision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return expID, nil
}

// QueryReview aggregates stored experiments matching the filter.
func (s *KnowledgeStore) QueryReview(ctx context.Context, f storage.ReviewFilter) (*storage.ReviewReport, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 500
	}

	var where []string
	var args []any
	if f.Vertical != "" {
		where = append(where, "e.vertical=?")
		args = append(args, f.Vertical)
	}
	if f.Channel != "" {
		where = append(where, "e.channel=?")
		args = append(args, f.Channel)
	}
	if f.Country != "" {
		where = append(where, "e.country=?")
		args = append(args, f.Country)
	}
	if f.Segment != "" {
		where = append(where, "e.segment LIKE ?")
		args = append(args, "%"+f.Segment+"%")
	}
	if f.MotivationBucket != "" {
		where = append(where, "e.motivation_bucket LIKE ?")
		args = append(args, "%"+f.MotivationBucket+"%")
	}
	if f.OS != "" {
		where = append(where, "e.exp_id IN (SELECT exp_id FROM variant_metrics WHERE os=?)")
		args = append(args, f.OS)
	}
	whereSQL := "1=1"
	if len(where) > 0 {
		whereSQL = strings.Join(where, " AND ")
	}

	report := &storage.ReviewReport{
		FailureTypeDistribution: make(map[string]int),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.exp_id, COALESCE(d.failure_type, '')
		FROM experiments e
		LEFT JOIN diagnosis d ON e.exp_id=d.exp_id
		WHERE `+whereSQL+`
		ORDER BY e.created_at ASC, e.exp_id ASC
		LIMIT ?
	`, append(append([]any{}, args...), limit)...)
	if err != nil {
		return nil, fmt.Errorf("query experiments: %w", err)
	}
	defer rows.Close()

	explorePass, validatePass := 0, 0
	for rows.Next() {
		var expID, ft string
		if err := rows.Scan(&expID, &ft); err != nil {
			return nil, fmt.Errorf("scan experiment: %w", err)
		}
		report.TotalExperiments++
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
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate experiments: %w", err)
	}

	if report.TotalExperiments > 0 {
		n := float64(report.TotalExperiments)
		report.ExplorePassRate = round2(float64(explorePass) / n)
		report.ValidatePassRate = round2(float64(validatePass) / n)
	}

	report.TopFailureTypes = topFailures(report.FailureTypeDistribution, 3)

	topRows, err := s.db.QueryContext(ctx, `
		SELECT e.card_id, e.vertical, e.channel, e.motivation_bucket,
		       SUM(CASE WHEN d.failure_type IS NULL OR d.failure_type NOT IN
		           ('EFFICIENCY_FAIL','QUALITY_FAIL','HANDOFF_MISMATCH','OS_DIVERGENCE','MIXED_SIGNALS')
		           THEN 1 ELSE 0 END) AS pass_cnt,
		       COUNT(*) AS total_cnt
		FROM experiments e
		LEFT JOIN diagnosis d ON e.exp_id=d.exp_id
		WHERE `+whereSQL+`
		GROUP BY e.card_id, e.vertical, e.channel, e.motivation_bucket
		HAVING total_cnt >= 1
		ORDER BY pass_cnt DESC, total_cnt DESC, e.card_id ASC
		LIMIT 10
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query top structures: %w", err)
	}
	defer topRows.Close()

	for topRows.Next() {
		var st storage.StructureStanding
		if err := topRows.Scan(&st.CardID, &st.Vertical, &st.Channel, &st.MotivationBucket, &st.PassCount, &st.TotalCount); err != nil {
			return nil, fmt.Errorf("scan top structure: %w", err)
		}
		report.TopStructures = append(report.TopStructures, st)
	}
	if err := topRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top structures: %w", err)
	}

	return report, nil
}

func orEmpty(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}

func firstNonEmpty(xs ...string) string {
	for _, x := range xs {
		if strings.TrimSpace(x) != "" {
			return x
		}
	}
	return ""
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
