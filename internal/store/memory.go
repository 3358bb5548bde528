package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crestline/bidwise/internal/decision"
)

// MemoryStore is an in-process Store used by tests and local
// development. Records are deep-copied on the way in and out so callers
// cannot mutate stored state through shared pointers.
type MemoryStore struct {
	mu          sync.RWMutex
	frameworks  map[uuid.UUID]*decision.Framework
	scenarios   map[uuid.UUID]*decision.Scenario
	templates   map[uuid.UUID]*decision.ScenarioTemplate
	comparisons map[uuid.UUID]*decision.ScenarioComparison
	history     map[uuid.UUID]*decision.DecisionHistory
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		frameworks:  make(map[uuid.UUID]*decision.Framework),
		scenarios:   make(map[uuid.UUID]*decision.Scenario),
		templates:   make(map[uuid.UUID]*decision.ScenarioTemplate),
		comparisons: make(map[uuid.UUID]*decision.ScenarioComparison),
		history:     make(map[uuid.UUID]*decision.DecisionHistory),
	}
}

func (s *MemoryStore) Close() error { return nil }

// --- Frameworks ---

func (s *MemoryStore) CreateFramework(_ context.Context, f *decision.Framework) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now
	s.frameworks[f.ID] = cloneFramework(f)
	return nil
}

func (s *MemoryStore) GetFramework(_ context.Context, id uuid.UUID) (*decision.Framework, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.frameworks[id]
	if !ok {
		return nil, nil
	}
	return cloneFramework(f), nil
}

func (s *MemoryStore) ListFrameworks(_ context.Context) ([]*decision.Framework, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*decision.Framework, 0, len(s.frameworks))
	for _, f := range s.frameworks {
		out = append(out, cloneFramework(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateFramework(_ context.Context, f *decision.Framework) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.UpdatedAt = time.Now().UTC()
	s.frameworks[f.ID] = cloneFramework(f)
	return nil
}

func (s *MemoryStore) DeleteFramework(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sc := range s.scenarios {
		if sc.FrameworkID == id && sc.Status == decision.ScenarioCompleted {
			return ErrFrameworkInUse
		}
	}
	delete(s.frameworks, id)
	return nil
}

// --- Scenarios ---

func (s *MemoryStore) CreateScenario(_ context.Context, sc *decision.Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc.ID == uuid.Nil {
		sc.ID = uuid.New()
	}
	now := time.Now().UTC()
	sc.CreatedAt = now
	sc.UpdatedAt = now
	sc.Version = 1
	s.scenarios[sc.ID] = cloneScenario(sc)
	return nil
}

func (s *MemoryStore) GetScenario(_ context.Context, id uuid.UUID) (*decision.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scenarios[id]
	if !ok {
		return nil, nil
	}
	return cloneScenario(sc), nil
}

func (s *MemoryStore) ListScenarios(_ context.Context, filter ScenarioFilter) ([]*decision.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*decision.Scenario
	for _, sc := range s.scenarios {
		if !scenarioMatches(sc, filter) {
			continue
		}
		matched = append(matched, cloneScenario(sc))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })

	return paginate(matched, filter.Offset, filter.Limit), nil
}

func scenarioMatches(sc *decision.Scenario, filter ScenarioFilter) bool {
	if filter.Status != nil && sc.Status != *filter.Status {
		return false
	}
	if filter.ProjectID != "" && sc.ProjectID != filter.ProjectID {
		return false
	}
	if filter.CreatedBy != "" && sc.CreatedBy != filter.CreatedBy {
		return false
	}
	if filter.Recommendation != nil {
		if sc.Analysis == nil || sc.Analysis.Recommendation != *filter.Recommendation {
			return false
		}
	}
	if filter.From != nil && sc.CreatedAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && sc.CreatedAt.After(*filter.To) {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(sc.Name), needle) &&
			!strings.Contains(strings.ToLower(sc.Description), needle) {
			return false
		}
	}
	return true
}

func (s *MemoryStore) UpdateScenario(_ context.Context, sc *decision.Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.scenarios[sc.ID]
	if !ok || current.Version != sc.Version {
		return ErrVersionConflict
	}
	sc.Version++
	sc.UpdatedAt = time.Now().UTC()
	s.scenarios[sc.ID] = cloneScenario(sc)
	return nil
}

func (s *MemoryStore) DeleteScenario(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.scenarios, id)
	return nil
}

// --- Templates ---

func (s *MemoryStore) CreateTemplate(_ context.Context, t *decision.ScenarioTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.templates[t.ID] = cloneTemplate(t)
	return nil
}

func (s *MemoryStore) GetTemplate(_ context.Context, id uuid.UUID) (*decision.ScenarioTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[id]
	if !ok {
		return nil, nil
	}
	return cloneTemplate(t), nil
}

func (s *MemoryStore) ListTemplates(_ context.Context, category string) ([]*decision.ScenarioTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*decision.ScenarioTemplate
	for _, t := range s.templates {
		if category != "" && t.Category != category {
			continue
		}
		out = append(out, cloneTemplate(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateTemplate(_ context.Context, t *decision.ScenarioTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.UpdatedAt = time.Now().UTC()
	s.templates[t.ID] = cloneTemplate(t)
	return nil
}

// --- Comparisons ---

func (s *MemoryStore) CreateComparison(_ context.Context, c *decision.ScenarioComparison) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.comparisons[c.ID] = cloneComparison(c)
	return nil
}

func (s *MemoryStore) GetComparison(_ context.Context, id uuid.UUID) (*decision.ScenarioComparison, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comparisons[id]
	if !ok {
		return nil, nil
	}
	return cloneComparison(c), nil
}

// --- Decision history ---

func (s *MemoryStore) AppendHistory(_ context.Context, h *decision.DecisionHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	copied := *h
	s.history[h.ID] = &copied
	return nil
}

func (s *MemoryStore) GetHistory(_ context.Context, id uuid.UUID) (*decision.DecisionHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.history[id]
	if !ok {
		return nil, nil
	}
	copied := *h
	return &copied, nil
}

func (s *MemoryStore) ListHistory(_ context.Context, filter HistoryFilter) ([]*decision.DecisionHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*decision.DecisionHistory
	for _, h := range s.history {
		if !historyMatches(h, filter) {
			continue
		}
		copied := *h
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].DecisionDate.Before(matched[j].DecisionDate) })

	return paginate(matched, filter.Offset, filter.Limit), nil
}

func historyMatches(h *decision.DecisionHistory, filter HistoryFilter) bool {
	if filter.ScenarioID != nil && h.ScenarioID != *filter.ScenarioID {
		return false
	}
	if len(filter.Decisions) > 0 && !containsRecommendation(filter.Decisions, h.Decision) {
		return false
	}
	if len(filter.Outcomes) > 0 && !containsOutcome(filter.Outcomes, h.Outcome) {
		return false
	}
	if filter.From != nil && h.DecisionDate.Before(*filter.From) {
		return false
	}
	if filter.To != nil && h.DecisionDate.After(*filter.To) {
		return false
	}
	return true
}

func (s *MemoryStore) SetHistoryOutcome(_ context.Context, id uuid.UUID, outcome decision.Outcome, at time.Time, accuracy *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.history[id]
	if !ok {
		return ErrHistoryNotFound
	}
	if h.Outcome != decision.OutcomePending {
		return ErrOutcomeAlreadySet
	}
	h.Outcome = outcome
	h.OutcomeDate = &at
	h.Accuracy = accuracy
	return nil
}

// --- helpers ---

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func containsRecommendation(set []decision.Recommendation, v decision.Recommendation) bool {
	for _, r := range set {
		if r == v {
			return true
		}
	}
	return false
}

func containsOutcome(set []decision.Outcome, v decision.Outcome) bool {
	for _, o := range set {
		if o == v {
			return true
		}
	}
	return false
}

func cloneFramework(f *decision.Framework) *decision.Framework {
	copied := *f
	copied.Criteria = append([]decision.Criterion(nil), f.Criteria...)
	copied.Rules = append([]decision.DecisionRule(nil), f.Rules...)
	return &copied
}

func cloneScenario(sc *decision.Scenario) *decision.Scenario {
	copied := *sc
	copied.CriteriaValues = cloneValues(sc.CriteriaValues)
	if sc.Analysis != nil {
		analysis := *sc.Analysis
		copied.Analysis = &analysis
	}
	return &copied
}

func cloneTemplate(t *decision.ScenarioTemplate) *decision.ScenarioTemplate {
	copied := *t
	copied.DefaultValues = cloneValues(t.DefaultValues)
	return &copied
}

// cloneComparison round-trips through JSON rather than hand-copying the
// nested matrix slices.
func cloneComparison(c *decision.ScenarioComparison) *decision.ScenarioComparison {
	raw, _ := json.Marshal(c)
	copied := &decision.ScenarioComparison{}
	_ = json.Unmarshal(raw, copied)
	return copied
}

func cloneValues(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
