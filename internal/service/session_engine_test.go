package service

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"character-quiz/internal/domain"
)

func abRegistry(t *testing.T) *domain.TraitRegistry {
	t.Helper()
	r, err := domain.NewTraitRegistry(domain.TraitDefinition{Key: "A"}, domain.TraitDefinition{Key: "B"})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return r
}

func firstIndex() IndexSource {
	return IndexSourceFunc(func(int) int { return 0 })
}

func newABEngine(t *testing.T, length int) *SessionEngine {
	t.Helper()
	registry := abRegistry(t)
	catalog, err := NewScenarioCatalog(registry, []domain.Scenario{
		{ID: "s1", Choices: []string{"x", "y"}, Effects: []domain.TraitVector{{"A": 1}, {"A": 2, "B": 1}}},
		{ID: "s2", Choices: []string{"x", "y"}, Effects: []domain.TraitVector{{"A": 3, "B": 1}, {"B": 3}}},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	engine, err := NewSessionEngine(registry, catalog, length, firstIndex())
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return engine
}

func TestNewSessionEngine_Validation(t *testing.T) {
	registry := abRegistry(t)
	catalog, err := NewScenarioCatalog(registry, []domain.Scenario{
		{ID: "s1", Choices: []string{"x"}, Effects: []domain.TraitVector{{"A": 1}}},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	if _, err := NewSessionEngine(nil, catalog, 3, nil); !errors.Is(err, ErrEngineNotConfigured) {
		t.Fatalf("expected ErrEngineNotConfigured, got %v", err)
	}
	if _, err := NewSessionEngine(registry, catalog, 0, nil); !errors.Is(err, ErrInvalidSessionLength) {
		t.Fatalf("expected ErrInvalidSessionLength, got %v", err)
	}
	engine, err := NewSessionEngine(registry, catalog, 3, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.source == nil {
		t.Fatalf("expected default index source")
	}
}

func TestSessionEngine_Start(t *testing.T) {
	engine := newABEngine(t, 2)
	state := engine.Start()

	if state.IsComplete {
		t.Fatalf("fresh session should not be complete")
	}
	if state.QuestionsAnswered != 0 || len(state.UsedScenarioIDs) != 0 {
		t.Fatalf("unexpected fresh state: %+v", state)
	}
	if state.CurrentScenario == nil || state.CurrentScenario.ID != "s1" {
		t.Fatalf("expected s1 as first scenario, got %+v", state.CurrentScenario)
	}
	if state.Traits["A"] != 0 || state.Traits["B"] != 0 || len(state.Traits) != 2 {
		t.Fatalf("expected zeroed traits, got %v", state.Traits)
	}
}

func TestSessionEngine_TwoQuestionSession(t *testing.T) {
	engine := newABEngine(t, 2)
	state := engine.Start()

	state, err := engine.ApplyChoice(state, 1)
	if err != nil {
		t.Fatalf("first choice: %v", err)
	}
	if state.IsComplete || state.CurrentScenario == nil || state.CurrentScenario.ID != "s2" {
		t.Fatalf("expected s2 next, got %+v", state)
	}

	state, err = engine.ApplyChoice(state, 0)
	if err != nil {
		t.Fatalf("second choice: %v", err)
	}
	if !state.IsComplete || state.CurrentScenario != nil || state.QuestionsAnswered != 2 {
		t.Fatalf("expected completed session, got %+v", state)
	}

	scores := engine.GetScores(state)
	if scores.Raw["A"] != 5 || scores.Raw["B"] != 2 {
		t.Fatalf("unexpected raw: %v", scores.Raw)
	}
	if scores.Normalized["A"] != 2.5 || scores.Normalized["B"] != 1.0 {
		t.Fatalf("unexpected normalized: %v", scores.Normalized)
	}
	if scores.Adjusted["A"] != 5 || scores.Adjusted["B"] != 2 {
		t.Fatalf("unexpected adjusted: %v", scores.Adjusted)
	}
}

func TestSessionEngine_ApplyChoiceDoesNotMutateInput(t *testing.T) {
	engine := newABEngine(t, 2)
	start := engine.Start()

	next, err := engine.ApplyChoice(start, 1)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if start.QuestionsAnswered != 0 || start.Traits["A"] != 0 || len(start.UsedScenarioIDs) != 0 {
		t.Fatalf("input state was mutated: %+v", start)
	}
	if start.CurrentScenario == nil || start.CurrentScenario.ID != "s1" {
		t.Fatalf("input scenario was replaced")
	}
	if next.Traits["A"] != 2 || next.Traits["B"] != 1 {
		t.Fatalf("unexpected next traits: %v", next.Traits)
	}
}

func TestSessionEngine_InvalidChoice(t *testing.T) {
	engine := newABEngine(t, 2)
	state := engine.Start()

	for _, idx := range []int{-1, 2, 99} {
		t.Run(fmt.Sprintf("index %d", idx), func(t *testing.T) {
			got, err := engine.ApplyChoice(state, idx)
			if !errors.Is(err, domain.ErrInvalidChoice) {
				t.Fatalf("expected ErrInvalidChoice, got %v", err)
			}
			if got.QuestionsAnswered != 0 || got.CurrentScenario == nil || got.CurrentScenario.ID != "s1" {
				t.Fatalf("state changed on invalid choice: %+v", got)
			}
		})
	}

	done := engine.Expire(state)
	if _, err := engine.ApplyChoice(done, 0); !errors.Is(err, domain.ErrInvalidChoice) {
		t.Fatalf("expected ErrInvalidChoice without current scenario, got %v", err)
	}
}

func TestSessionEngine_PoolSmallerThanLength(t *testing.T) {
	engine := newABEngine(t, 5)
	state := engine.Start()

	for i := 0; i < 2; i++ {
		var err error
		state, err = engine.ApplyChoice(state, 0)
		if err != nil {
			t.Fatalf("choice %d: %v", i, err)
		}
	}
	if !state.IsComplete || state.QuestionsAnswered != 2 {
		t.Fatalf("expected early completion after pool exhaustion, got %+v", state)
	}

	// El ajuste escala a la longitud configurada, no a las preguntas respondidas.
	scores := engine.GetScores(state)
	if scores.Adjusted["A"] != 10 {
		t.Fatalf("expected A adjusted to 10, got %d", scores.Adjusted["A"])
	}
}

func TestSessionEngine_NoRepeatsAndAdjustedMatchesRounding(t *testing.T) {
	registry := domain.DefaultTraitRegistry()
	catalog, err := DefaultCatalog(registry)
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}

	for seed := uint64(1); seed <= 20; seed++ {
		engine, err := NewSessionEngine(registry, catalog, DefaultSessionLength, NewSeededIndexSource(seed))
		if err != nil {
			t.Fatalf("engine: %v", err)
		}
		state := engine.Start()
		seen := map[string]bool{}
		for !state.IsComplete {
			id := state.CurrentScenario.ID
			if seen[id] {
				t.Fatalf("seed %d: scenario %s served twice", seed, id)
			}
			seen[id] = true
			state, err = engine.ApplyChoice(state, int(seed)%len(state.CurrentScenario.Choices))
			if err != nil {
				t.Fatalf("seed %d: apply: %v", seed, err)
			}
		}
		if state.QuestionsAnswered != DefaultSessionLength {
			t.Fatalf("seed %d: expected %d answers, got %d", seed, DefaultSessionLength, state.QuestionsAnswered)
		}

		scores := engine.GetScores(state)
		for trait, avg := range scores.Normalized {
			want := int(math.Round(avg * float64(DefaultSessionLength)))
			if scores.Adjusted[trait] != want {
				t.Fatalf("seed %d: %s adjusted %d, want %d", seed, trait, scores.Adjusted[trait], want)
			}
		}
	}
}

func TestSessionEngine_SameSeedSameSequence(t *testing.T) {
	registry := domain.DefaultTraitRegistry()
	catalog, err := DefaultCatalog(registry)
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	play := func() []string {
		engine, err := NewSessionEngine(registry, catalog, 5, NewSeededIndexSource(42))
		if err != nil {
			t.Fatalf("engine: %v", err)
		}
		state := engine.Start()
		for !state.IsComplete {
			state, _ = engine.ApplyChoice(state, 0)
		}
		return state.UsedScenarioIDs
	}

	first, second := play(), play()
	if fmt.Sprint(first) != fmt.Sprint(second) {
		t.Fatalf("expected identical sequences, got %v and %v", first, second)
	}
}

func TestSessionEngine_GetScoresRounding(t *testing.T) {
	engine := newABEngine(t, 5)
	tests := []struct {
		name     string
		raw      int
		answered int
		want     int
	}{
		{name: "no answers", raw: 0, answered: 0, want: 0},
		{name: "exact", raw: 4, answered: 2, want: 10},
		{name: "half up", raw: 1, answered: 2, want: 3},
		{name: "half away from zero", raw: -1, answered: 2, want: -3},
		{name: "nearest", raw: 1, answered: 3, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := domain.SessionState{
				Traits:            domain.TraitVector{"A": tt.raw},
				QuestionsAnswered: tt.answered,
			}
			scores := engine.GetScores(state)
			if scores.Adjusted["A"] != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, scores.Adjusted["A"])
			}
			if scores.Raw["B"] != 0 {
				t.Fatalf("expected zero-filled B")
			}
		})
	}
}

func TestSessionEngine_Expire(t *testing.T) {
	engine := newABEngine(t, 2)
	state, err := engine.ApplyChoice(engine.Start(), 0)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	expired := engine.Expire(state)
	if !expired.IsComplete || expired.CurrentScenario != nil {
		t.Fatalf("expected completed state, got %+v", expired)
	}
	if expired.Traits["A"] != 1 || expired.QuestionsAnswered != 1 {
		t.Fatalf("expire should keep scores, got %+v", expired)
	}
	if state.IsComplete || state.CurrentScenario == nil {
		t.Fatalf("expire mutated its input")
	}
}
