package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/crestline/bidwise/internal/decision"
)

var (
	// ErrVersionConflict is returned when a scenario update carries a
	// stale version token; the caller re-reads and retries.
	ErrVersionConflict = errors.New("scenario was modified by another writer")

	// ErrFrameworkInUse is returned when deleting a framework that
	// completed scenarios still reference.
	ErrFrameworkInUse = errors.New("framework is referenced by analyzed scenarios")

	// ErrOutcomeAlreadySet guards the append-only history log: a
	// record's outcome is written once.
	ErrOutcomeAlreadySet = errors.New("decision outcome has already been recorded")

	// ErrHistoryNotFound is returned by SetHistoryOutcome for an id no
	// record carries. Lookups report absence as (nil, nil) instead.
	ErrHistoryNotFound = errors.New("decision record not found")
)

// ScenarioFilter narrows scenario listings.
type ScenarioFilter struct {
	Status         *decision.ScenarioStatus
	ProjectID      string
	CreatedBy      string
	Recommendation *decision.Recommendation
	From           *time.Time
	To             *time.Time
	Search         string
	Limit          int
	Offset         int
}

// HistoryFilter narrows decision history listings.
type HistoryFilter struct {
	ScenarioID *uuid.UUID
	Decisions  []decision.Recommendation
	Outcomes   []decision.Outcome
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// Store is the persistence boundary for the decision engine's host
// layer. Lookups return (nil, nil) when the record does not exist.
type Store interface {
	CreateFramework(ctx context.Context, f *decision.Framework) error
	GetFramework(ctx context.Context, id uuid.UUID) (*decision.Framework, error)
	ListFrameworks(ctx context.Context) ([]*decision.Framework, error)
	UpdateFramework(ctx context.Context, f *decision.Framework) error
	DeleteFramework(ctx context.Context, id uuid.UUID) error

	CreateScenario(ctx context.Context, s *decision.Scenario) error
	GetScenario(ctx context.Context, id uuid.UUID) (*decision.Scenario, error)
	ListScenarios(ctx context.Context, filter ScenarioFilter) ([]*decision.Scenario, error)
	UpdateScenario(ctx context.Context, s *decision.Scenario) error
	DeleteScenario(ctx context.Context, id uuid.UUID) error

	CreateTemplate(ctx context.Context, t *decision.ScenarioTemplate) error
	GetTemplate(ctx context.Context, id uuid.UUID) (*decision.ScenarioTemplate, error)
	ListTemplates(ctx context.Context, category string) ([]*decision.ScenarioTemplate, error)
	UpdateTemplate(ctx context.Context, t *decision.ScenarioTemplate) error

	CreateComparison(ctx context.Context, c *decision.ScenarioComparison) error
	GetComparison(ctx context.Context, id uuid.UUID) (*decision.ScenarioComparison, error)

	AppendHistory(ctx context.Context, h *decision.DecisionHistory) error
	GetHistory(ctx context.Context, id uuid.UUID) (*decision.DecisionHistory, error)
	ListHistory(ctx context.Context, filter HistoryFilter) ([]*decision.DecisionHistory, error)
	SetHistoryOutcome(ctx context.Context, id uuid.UUID, outcome decision.Outcome, at time.Time, accuracy *float64) error

	Close() error
}
