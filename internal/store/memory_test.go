package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/crestline/bidwise/internal/decision"
)

func newFramework(name string) *decision.Framework {
	return &decision.Framework{
		Name:    name,
		Version: "1.0",
		Active:  true,
		Criteria: []decision.Criterion{
			{ID: "margin", Name: "Expected margin", Category: decision.CategoryFinancial, Kind: decision.KindNumeric, Weight: 1},
		},
		Weights:   decision.WeightingScheme{Financial: 30, Strategic: 25, Operational: 20, Risk: 15, Market: 10},
		CreatedBy: "estimating",
	}
}

func newScenario(project string) *decision.Scenario {
	return &decision.Scenario{
		Name:           "Riverside depot",
		ProjectID:      project,
		Status:         decision.ScenarioDraft,
		CriteriaValues: map[string]interface{}{"margin": 12.5},
		CreatedBy:      "estimating",
	}
}

func TestFrameworkRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	f := newFramework("standard")
	if err := s.CreateFramework(ctx, f); err != nil {
		t.Fatalf("create: %v", err)
	}
	if f.ID == uuid.Nil {
		t.Fatal("expected an assigned id")
	}

	got, err := s.GetFramework(ctx, f.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Name != "standard" {
		t.Fatalf("got %+v", got)
	}

	// Mutating the returned copy must not leak back into the store.
	got.Name = "mutated"
	again, _ := s.GetFramework(ctx, f.ID)
	if again.Name != "standard" {
		t.Fatalf("stored framework was mutated through a returned copy: %q", again.Name)
	}
}

func TestGetMissingReturnsNilNil(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	f, err := s.GetFramework(ctx, uuid.New())
	if err != nil || f != nil {
		t.Fatalf("want nil, nil; got %v, %v", f, err)
	}
	sc, err := s.GetScenario(ctx, uuid.New())
	if err != nil || sc != nil {
		t.Fatalf("want nil, nil; got %v, %v", sc, err)
	}
	h, err := s.GetHistory(ctx, uuid.New())
	if err != nil || h != nil {
		t.Fatalf("want nil, nil; got %v, %v", h, err)
	}
}

func TestDeleteFrameworkInUse(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	f := newFramework("standard")
	if err := s.CreateFramework(ctx, f); err != nil {
		t.Fatalf("create framework: %v", err)
	}

	sc := newScenario("p-100")
	sc.FrameworkID = f.ID
	sc.Status = decision.ScenarioCompleted
	if err := s.CreateScenario(ctx, sc); err != nil {
		t.Fatalf("create scenario: %v", err)
	}

	if err := s.DeleteFramework(ctx, f.ID); !errors.Is(err, ErrFrameworkInUse) {
		t.Fatalf("want ErrFrameworkInUse, got %v", err)
	}

	// A draft reference does not block deletion.
	sc2 := newScenario("p-101")
	sc2.FrameworkID = f.ID
	if err := s.CreateScenario(ctx, sc2); err != nil {
		t.Fatalf("create draft scenario: %v", err)
	}
	if err := s.DeleteScenario(ctx, sc.ID); err != nil {
		t.Fatalf("delete completed scenario: %v", err)
	}
	if err := s.DeleteFramework(ctx, f.ID); err != nil {
		t.Fatalf("delete framework with only draft references: %v", err)
	}
}

func TestUpdateScenarioVersionConflict(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sc := newScenario("p-100")
	if err := s.CreateScenario(ctx, sc); err != nil {
		t.Fatalf("create: %v", err)
	}
	if sc.Version != 1 {
		t.Fatalf("want version 1 after create, got %d", sc.Version)
	}

	first, _ := s.GetScenario(ctx, sc.ID)
	second, _ := s.GetScenario(ctx, sc.ID)

	first.Name = "first writer"
	if err := s.UpdateScenario(ctx, first); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if first.Version != 2 {
		t.Fatalf("want version 2 after update, got %d", first.Version)
	}

	second.Name = "second writer"
	if err := s.UpdateScenario(ctx, second); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("want ErrVersionConflict, got %v", err)
	}

	got, _ := s.GetScenario(ctx, sc.ID)
	if got.Name != "first writer" {
		t.Fatalf("stale writer overwrote the record: %q", got.Name)
	}
}

func TestListScenariosFilters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a := newScenario("p-100")
	a.Name = "Harbour quay works"
	b := newScenario("p-200")
	b.Name = "Motorway gantries"
	b.Status = decision.ScenarioCompleted
	b.Analysis = &decision.ScenarioAnalysis{Recommendation: decision.RecommendBid}
	for _, sc := range []*decision.Scenario{a, b} {
		if err := s.CreateScenario(ctx, sc); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	t.Run("by project", func(t *testing.T) {
		got, err := s.ListScenarios(ctx, ScenarioFilter{ProjectID: "p-200"})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 1 || got[0].ID != b.ID {
			t.Fatalf("got %d scenarios", len(got))
		}
	})

	t.Run("by status", func(t *testing.T) {
		completed := decision.ScenarioCompleted
		got, err := s.ListScenarios(ctx, ScenarioFilter{Status: &completed})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 1 || got[0].ID != b.ID {
			t.Fatalf("got %d scenarios", len(got))
		}
	})

	t.Run("by recommendation", func(t *testing.T) {
		bid := decision.RecommendBid
		got, err := s.ListScenarios(ctx, ScenarioFilter{Recommendation: &bid})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 1 || got[0].ID != b.ID {
			t.Fatalf("got %d scenarios", len(got))
		}
	})

	t.Run("by search", func(t *testing.T) {
		got, err := s.ListScenarios(ctx, ScenarioFilter{Search: "harbour"})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 1 || got[0].ID != a.ID {
			t.Fatalf("got %d scenarios", len(got))
		}
	})

	t.Run("limit and offset", func(t *testing.T) {
		got, err := s.ListScenarios(ctx, ScenarioFilter{Limit: 1, Offset: 1})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("got %d scenarios, want 1", len(got))
		}
	})
}

func TestHistoryOutcomeOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	h := &decision.DecisionHistory{
		ScenarioID:   uuid.New(),
		FrameworkID:  uuid.New(),
		Decision:     decision.RecommendBid,
		DecisionDate: time.Now().UTC(),
		DecidedBy:    "estimating",
		Outcome:      decision.OutcomePending,
		OverallScore: 74.5,
	}
	if err := s.AppendHistory(ctx, h); err != nil {
		t.Fatalf("append: %v", err)
	}

	acc := 1.0
	when := time.Now().UTC()
	if err := s.SetHistoryOutcome(ctx, h.ID, decision.OutcomeWon, when, &acc); err != nil {
		t.Fatalf("set outcome: %v", err)
	}
	if err := s.SetHistoryOutcome(ctx, h.ID, decision.OutcomeLost, when, &acc); !errors.Is(err, ErrOutcomeAlreadySet) {
		t.Fatalf("want ErrOutcomeAlreadySet, got %v", err)
	}
	if err := s.SetHistoryOutcome(ctx, uuid.New(), decision.OutcomeWon, when, &acc); !errors.Is(err, ErrHistoryNotFound) {
		t.Fatalf("want ErrHistoryNotFound for an unknown id, got %v", err)
	}

	got, _ := s.GetHistory(ctx, h.ID)
	if got.Outcome != decision.OutcomeWon {
		t.Fatalf("outcome was overwritten: %s", got.Outcome)
	}
	if got.Accuracy == nil || *got.Accuracy != 1.0 {
		t.Fatalf("accuracy not recorded: %v", got.Accuracy)
	}
}

func TestListHistoryFilters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	scenarioID := uuid.New()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []*decision.DecisionHistory{
		{ScenarioID: scenarioID, Decision: decision.RecommendBid, DecisionDate: base, Outcome: decision.OutcomeWon},
		{ScenarioID: scenarioID, Decision: decision.RecommendNoBid, DecisionDate: base.AddDate(0, 1, 0), Outcome: decision.OutcomePending},
		{ScenarioID: uuid.New(), Decision: decision.RecommendBid, DecisionDate: base.AddDate(0, 2, 0), Outcome: decision.OutcomeLost},
	}
	for _, h := range records {
		if err := s.AppendHistory(ctx, h); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.ListHistory(ctx, HistoryFilter{ScenarioID: &scenarioID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if !got[0].DecisionDate.Before(got[1].DecisionDate) {
		t.Fatal("history not ordered by decision date")
	}

	got, err = s.ListHistory(ctx, HistoryFilter{Outcomes: []decision.Outcome{decision.OutcomeWon, decision.OutcomeLost}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d resolved records, want 2", len(got))
	}

	from := base.AddDate(0, 1, 15)
	got, err = s.ListHistory(ctx, HistoryFilter{From: &from})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records after cutoff, want 1", len(got))
	}
}

func TestTemplateUsageCountPersists(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tpl := &decision.ScenarioTemplate{
		Name:          "Design and build",
		Category:      "commercial",
		DefaultValues: map[string]interface{}{"margin": 10.0},
	}
	if err := s.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("create: %v", err)
	}

	tpl.UsageCount = 3
	if err := s.UpdateTemplate(ctx, tpl); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := s.GetTemplate(ctx, tpl.ID)
	if got.UsageCount != 3 {
		t.Fatalf("usage count %d, want 3", got.UsageCount)
	}

	byCategory, _ := s.ListTemplates(ctx, "commercial")
	if len(byCategory) != 1 {
		t.Fatalf("got %d templates for category, want 1", len(byCategory))
	}
	none, _ := s.ListTemplates(ctx, "civil")
	if len(none) != 0 {
		t.Fatalf("got %d templates for other category, want 0", len(none))
	}
}

func TestComparisonRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	c := &decision.ScenarioComparison{
		ID:          uuid.New(),
		ScenarioIDs: []uuid.UUID{uuid.New(), uuid.New()},
		Matrix: decision.ComparisonMatrix{
			CriteriaIDs:    []string{"margin"},
			WeightedScores: [][]float64{{18.7}, {12.2}},
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreateComparison(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetComparison(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || len(got.Matrix.WeightedScores) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got.Matrix.WeightedScores[0][0] != 18.7 {
		t.Fatalf("matrix cell %v", got.Matrix.WeightedScores[0][0])
	}
}
