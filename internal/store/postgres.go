package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crestline/bidwise/internal/decision"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// --- Frameworks ---

const frameworkColumns = `id, name, description, version, active,
	criteria, weights, thresholds, rules,
	created_by, created_at, updated_at`

func (s *PostgresStore) CreateFramework(ctx context.Context, f *decision.Framework) error {
	criteriaJSON, _ := json.Marshal(f.Criteria)
	weightsJSON, _ := json.Marshal(f.Weights)
	thresholdsJSON, _ := json.Marshal(f.Thresholds)
	rulesJSON, _ := json.Marshal(f.Rules)

	return s.pool.QueryRow(ctx, `
		INSERT INTO bid_frameworks (name, description, version, active,
			criteria, weights, thresholds, rules, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		f.Name, f.Description, f.Version, f.Active,
		criteriaJSON, weightsJSON, thresholdsJSON, rulesJSON, f.CreatedBy,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
}

func (s *PostgresStore) GetFramework(ctx context.Context, id uuid.UUID) (*decision.Framework, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+frameworkColumns+` FROM bid_frameworks WHERE id = $1`, id)
	f, err := scanFramework(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return f, err
}

func (s *PostgresStore) ListFrameworks(ctx context.Context) ([]*decision.Framework, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+frameworkColumns+` FROM bid_frameworks ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*decision.Framework
	for rows.Next() {
		f, err := scanFramework(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateFramework(ctx context.Context, f *decision.Framework) error {
	criteriaJSON, _ := json.Marshal(f.Criteria)
	weightsJSON, _ := json.Marshal(f.Weights)
	thresholdsJSON, _ := json.Marshal(f.Thresholds)
	rulesJSON, _ := json.Marshal(f.Rules)

	return s.pool.QueryRow(ctx, `
		UPDATE bid_frameworks
		SET name = $2, description = $3, version = $4, active = $5,
			criteria = $6, weights = $7, thresholds = $8, rules = $9,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		f.ID, f.Name, f.Description, f.Version, f.Active,
		criteriaJSON, weightsJSON, thresholdsJSON, rulesJSON,
	).Scan(&f.UpdatedAt)
}

func (s *PostgresStore) DeleteFramework(ctx context.Context, id uuid.UUID) error {
	var referenced bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bid_scenarios
			WHERE framework_id = $1 AND status = 'completed'
		)`, id,
	).Scan(&referenced)
	if err != nil {
		return err
	}
	if referenced {
		return ErrFrameworkInUse
	}
	_, err = s.pool.Exec(ctx, `DELETE FROM bid_frameworks WHERE id = $1`, id)
	return err
}

func scanFramework(row pgx.Row) (*decision.Framework, error) {
	f := &decision.Framework{}
	var criteriaJSON, weightsJSON, thresholdsJSON, rulesJSON []byte
	err := row.Scan(
		&f.ID, &f.Name, &f.Description, &f.Version, &f.Active,
		&criteriaJSON, &weightsJSON, &thresholdsJSON, &rulesJSON,
		&f.CreatedBy, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(criteriaJSON, &f.Criteria)
	_ = json.Unmarshal(weightsJSON, &f.Weights)
	_ = json.Unmarshal(thresholdsJSON, &f.Thresholds)
	if rulesJSON != nil {
		_ = json.Unmarshal(rulesJSON, &f.Rules)
	}
	return f, nil
}

// --- Scenarios ---

const scenarioColumns = `id, name, description, project_id, tender_id, framework_id,
	status, criteria_values, analysis, confidence_score,
	created_by, created_at, updated_at, last_analyzed, version`

func (s *PostgresStore) CreateScenario(ctx context.Context, sc *decision.Scenario) error {
	valuesJSON, _ := json.Marshal(sc.CriteriaValues)
	analysisJSON, _ := json.Marshal(sc.Analysis)

	return s.pool.QueryRow(ctx, `
		INSERT INTO bid_scenarios (name, description, project_id, tender_id, framework_id,
			status, criteria_values, analysis, confidence_score, created_by, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
		RETURNING id, created_at, updated_at, version`,
		sc.Name, sc.Description, sc.ProjectID, nullString(sc.TenderID), nullUUID(sc.FrameworkID),
		sc.Status, valuesJSON, analysisJSON, sc.Confidence, sc.CreatedBy,
	).Scan(&sc.ID, &sc.CreatedAt, &sc.UpdatedAt, &sc.Version)
}

func (s *PostgresStore) GetScenario(ctx context.Context, id uuid.UUID) (*decision.Scenario, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+scenarioColumns+` FROM bid_scenarios WHERE id = $1`, id)
	sc, err := scanScenario(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return sc, err
}

func (s *PostgresStore) ListScenarios(ctx context.Context, filter ScenarioFilter) ([]*decision.Scenario, error) {
	query := `SELECT ` + scenarioColumns + ` FROM bid_scenarios WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}
	if filter.ProjectID != "" {
		n++
		query += fmt.Sprintf(" AND project_id = $%d", n)
		args = append(args, filter.ProjectID)
	}
	if filter.CreatedBy != "" {
		n++
		query += fmt.Sprintf(" AND created_by = $%d", n)
		args = append(args, filter.CreatedBy)
	}
	if filter.Recommendation != nil {
		n++
		query += fmt.Sprintf(" AND analysis->>'recommendation' = $%d", n)
		args = append(args, string(*filter.Recommendation))
	}
	if filter.From != nil {
		n++
		query += fmt.Sprintf(" AND created_at >= $%d", n)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		n++
		query += fmt.Sprintf(" AND created_at <= $%d", n)
		args = append(args, *filter.To)
	}
	if filter.Search != "" {
		n++
		query += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", n, n)
		args = append(args, "%"+filter.Search+"%")
	}

	query += " ORDER BY created_at ASC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*decision.Scenario
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// UpdateScenario writes the scenario back only when the caller's
// version token still matches; a newer write wins and the stale caller
// gets ErrVersionConflict.
func (s *PostgresStore) UpdateScenario(ctx context.Context, sc *decision.Scenario) error {
	valuesJSON, _ := json.Marshal(sc.CriteriaValues)
	analysisJSON, _ := json.Marshal(sc.Analysis)

	err := s.pool.QueryRow(ctx, `
		UPDATE bid_scenarios
		SET name = $2, description = $3, framework_id = $4, status = $5,
			criteria_values = $6, analysis = $7, confidence_score = $8,
			last_analyzed = $9, updated_at = now(), version = version + 1
		WHERE id = $1 AND version = $10
		RETURNING updated_at, version`,
		sc.ID, sc.Name, sc.Description, nullUUID(sc.FrameworkID), sc.Status,
		valuesJSON, analysisJSON, sc.Confidence, sc.LastAnalyzed, sc.Version,
	).Scan(&sc.UpdatedAt, &sc.Version)
	if err == pgx.ErrNoRows {
		return ErrVersionConflict
	}
	return err
}

func (s *PostgresStore) DeleteScenario(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM bid_scenarios WHERE id = $1`, id)
	return err
}

func scanScenario(row pgx.Row) (*decision.Scenario, error) {
	sc := &decision.Scenario{}
	var valuesJSON, analysisJSON []byte
	var tenderID *string
	var frameworkID *uuid.UUID
	err := row.Scan(
		&sc.ID, &sc.Name, &sc.Description, &sc.ProjectID, &tenderID, &frameworkID,
		&sc.Status, &valuesJSON, &analysisJSON, &sc.Confidence,
		&sc.CreatedBy, &sc.CreatedAt, &sc.UpdatedAt, &sc.LastAnalyzed, &sc.Version,
	)
	if err != nil {
		return nil, err
	}
	if tenderID != nil {
		sc.TenderID = *tenderID
	}
	if frameworkID != nil {
		sc.FrameworkID = *frameworkID
	}
	_ = json.Unmarshal(valuesJSON, &sc.CriteriaValues)
	if len(analysisJSON) > 0 && string(analysisJSON) != "null" {
		_ = json.Unmarshal(analysisJSON, &sc.Analysis)
	}
	return sc, nil
}

// --- Templates ---

func (s *PostgresStore) CreateTemplate(ctx context.Context, t *decision.ScenarioTemplate) error {
	valuesJSON, _ := json.Marshal(t.DefaultValues)
	return s.pool.QueryRow(ctx, `
		INSERT INTO scenario_templates (name, description, category, default_values, usage_count)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING id, created_at, updated_at`,
		t.Name, t.Description, t.Category, valuesJSON,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (s *PostgresStore) GetTemplate(ctx context.Context, id uuid.UUID) (*decision.ScenarioTemplate, error) {
	t := &decision.ScenarioTemplate{}
	var valuesJSON []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, description, category, default_values, usage_count, created_at, updated_at
		FROM scenario_templates WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Description, &t.Category, &valuesJSON, &t.UsageCount, &t.CreatedAt, &t.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(valuesJSON, &t.DefaultValues)
	return t, nil
}

func (s *PostgresStore) ListTemplates(ctx context.Context, category string) ([]*decision.ScenarioTemplate, error) {
	query := `SELECT id, name, description, category, default_values, usage_count, created_at, updated_at
		FROM scenario_templates`
	args := []interface{}{}
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*decision.ScenarioTemplate
	for rows.Next() {
		t := &decision.ScenarioTemplate{}
		var valuesJSON []byte
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Category, &valuesJSON, &t.UsageCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(valuesJSON, &t.DefaultValues)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateTemplate(ctx context.Context, t *decision.ScenarioTemplate) error {
	valuesJSON, _ := json.Marshal(t.DefaultValues)
	return s.pool.QueryRow(ctx, `
		UPDATE scenario_templates
		SET name = $2, description = $3, category = $4, default_values = $5,
			usage_count = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		t.ID, t.Name, t.Description, t.Category, valuesJSON, t.UsageCount,
	).Scan(&t.UpdatedAt)
}

// --- Comparisons ---

func (s *PostgresStore) CreateComparison(ctx context.Context, c *decision.ScenarioComparison) error {
	payload, _ := json.Marshal(c)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scenario_comparisons (id, payload, created_at)
		VALUES ($1, $2, $3)`,
		c.ID, payload, c.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetComparison(ctx context.Context, id uuid.UUID) (*decision.ScenarioComparison, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM scenario_comparisons WHERE id = $1`, id).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c := &decision.ScenarioComparison{}
	if err := json.Unmarshal(payload, c); err != nil {
		return nil, err
	}
	return c, nil
}

// --- Decision history ---

const historyColumns = `id, scenario_id, framework_id, decision, decision_date, decided_by,
	outcome, outcome_date, accuracy, overall_score, category_scores, notes`

func (s *PostgresStore) AppendHistory(ctx context.Context, h *decision.DecisionHistory) error {
	scoresJSON, _ := json.Marshal(h.CategoryScores)
	return s.pool.QueryRow(ctx, `
		INSERT INTO decision_history (scenario_id, framework_id, decision, decision_date,
			decided_by, outcome, overall_score, category_scores, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		h.ScenarioID, h.FrameworkID, h.Decision, h.DecisionDate,
		h.DecidedBy, h.Outcome, h.OverallScore, scoresJSON, h.Notes,
	).Scan(&h.ID)
}

func (s *PostgresStore) GetHistory(ctx context.Context, id uuid.UUID) (*decision.DecisionHistory, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+historyColumns+` FROM decision_history WHERE id = $1`, id)
	h, err := scanHistory(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return h, err
}

func (s *PostgresStore) ListHistory(ctx context.Context, filter HistoryFilter) ([]*decision.DecisionHistory, error) {
	query := `SELECT ` + historyColumns + ` FROM decision_history WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.ScenarioID != nil {
		n++
		query += fmt.Sprintf(" AND scenario_id = $%d", n)
		args = append(args, *filter.ScenarioID)
	}
	if len(filter.Decisions) > 0 {
		n++
		query += fmt.Sprintf(" AND decision = ANY($%d)", n)
		args = append(args, recommendationStrings(filter.Decisions))
	}
	if len(filter.Outcomes) > 0 {
		n++
		query += fmt.Sprintf(" AND outcome = ANY($%d)", n)
		args = append(args, outcomeStrings(filter.Outcomes))
	}
	if filter.From != nil {
		n++
		query += fmt.Sprintf(" AND decision_date >= $%d", n)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		n++
		query += fmt.Sprintf(" AND decision_date <= $%d", n)
		args = append(args, *filter.To)
	}

	query += " ORDER BY decision_date ASC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*decision.DecisionHistory
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SetHistoryOutcome(ctx context.Context, id uuid.UUID, outcome decision.Outcome, at time.Time, accuracy *float64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE decision_history
		SET outcome = $2, outcome_date = $3, accuracy = $4
		WHERE id = $1 AND outcome = 'pending'`,
		id, outcome, at, accuracy,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM decision_history WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrHistoryNotFound
		}
		return ErrOutcomeAlreadySet
	}
	return nil
}

func scanHistory(row pgx.Row) (*decision.DecisionHistory, error) {
	h := &decision.DecisionHistory{}
	var scoresJSON []byte
	err := row.Scan(
		&h.ID, &h.ScenarioID, &h.FrameworkID, &h.Decision, &h.DecisionDate, &h.DecidedBy,
		&h.Outcome, &h.OutcomeDate, &h.Accuracy, &h.OverallScore, &scoresJSON, &h.Notes,
	)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(scoresJSON, &h.CategoryScores)
	return h, nil
}

func recommendationStrings(in []decision.Recommendation) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func outcomeStrings(in []decision.Outcome) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
