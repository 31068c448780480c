package service

import (
	"errors"
	"fmt"
	"math"

	"character-quiz/internal/domain"
)

// DefaultSessionLength is the number of questions in a full session.
const DefaultSessionLength = 10

var (
	ErrEngineNotConfigured  = errors.New("session engine not configured")
	ErrInvalidSessionLength = errors.New("session length must be positive")
)

// SessionEngine drives a questionnaire session. Every operation takes a
// SessionState by value and returns a new one; the input is never mutated.
type SessionEngine struct {
	registry      *domain.TraitRegistry
	catalog       *ScenarioCatalog
	sessionLength int
	source        IndexSource
}

func NewSessionEngine(registry *domain.TraitRegistry, catalog *ScenarioCatalog, sessionLength int, source IndexSource) (*SessionEngine, error) {
	if registry == nil || catalog == nil {
		return nil, ErrEngineNotConfigured
	}
	if sessionLength <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSessionLength, sessionLength)
	}
	if source == nil {
		source = NewIndexSource(0)
	}
	return &SessionEngine{
		registry:      registry,
		catalog:       catalog,
		sessionLength: sessionLength,
		source:        source,
	}, nil
}

func (e *SessionEngine) SessionLength() int {
	return e.sessionLength
}

func (e *SessionEngine) Registry() *domain.TraitRegistry {
	return e.registry
}

// Start returns a fresh session with every registered trait at zero and the first scenario selected.
func (e *SessionEngine) Start() domain.SessionState {
	state := domain.SessionState{
		Traits:          e.registry.Zero(),
		UsedScenarioIDs: []string{},
	}
	state.CurrentScenario = e.SelectNextScenario(state)
	state.IsComplete = state.CurrentScenario == nil
	return state
}

// SelectNextScenario picks uniformly among unused scenarios. It returns nil
// once the session length is reached or the pool is exhausted.
func (e *SessionEngine) SelectNextScenario(state domain.SessionState) *domain.Scenario {
	if state.QuestionsAnswered >= e.sessionLength {
		return nil
	}

	used := make(map[string]struct{}, len(state.UsedScenarioIDs))
	for _, id := range state.UsedScenarioIDs {
		used[id] = struct{}{}
	}

	candidates := make([]int, 0, len(e.catalog.scenarios))
	for i, sc := range e.catalog.scenarios {
		if _, ok := used[sc.ID]; !ok {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	pick := e.catalog.scenarios[candidates[e.source.Intn(len(candidates))]].Clone()
	return &pick
}

// ApplyChoice records the answer to the current scenario. On error the
// returned state is the input, untouched.
func (e *SessionEngine) ApplyChoice(state domain.SessionState, choiceIndex int) (domain.SessionState, error) {
	current := state.CurrentScenario
	if current == nil {
		return state, fmt.Errorf("%w: no active scenario", domain.ErrInvalidChoice)
	}
	if choiceIndex < 0 || choiceIndex >= len(current.Choices) || choiceIndex >= len(current.Effects) {
		return state, fmt.Errorf("%w: index %d out of range for scenario %s with %d choices",
			domain.ErrInvalidChoice, choiceIndex, current.ID, len(current.Choices))
	}

	next := state.Clone()
	if next.Traits == nil {
		next.Traits = e.registry.Zero()
	}
	for trait, delta := range current.Effects[choiceIndex] {
		if e.registry.Has(trait) {
			next.Traits[trait] += delta
		}
	}
	next.UsedScenarioIDs = append(next.UsedScenarioIDs, current.ID)
	next.QuestionsAnswered++
	next.CurrentScenario = nil

	// Selection must see the updated count and used set.
	upcoming := e.SelectNextScenario(next)
	next.IsComplete = next.QuestionsAnswered >= e.sessionLength || upcoming == nil
	if !next.IsComplete {
		next.CurrentScenario = upcoming
	}
	return next, nil
}

// Expire ends the session when the countdown runs out. Scores are kept as they are.
func (e *SessionEngine) Expire(state domain.SessionState) domain.SessionState {
	next := state.Clone()
	next.CurrentScenario = nil
	next.IsComplete = true
	return next
}

// GetScores computes raw, per-question normalized and session-length adjusted
// scores. Adjusted values use math.Round, so halves round away from zero.
func (e *SessionEngine) GetScores(state domain.SessionState) domain.ScoreSet {
	raw := e.registry.Zero()
	for trait, score := range state.Traits {
		raw[trait] = score
	}

	normalized := make(domain.NormalizedVector, len(raw))
	adjusted := make(domain.TraitVector, len(raw))
	for trait, score := range raw {
		var avg float64
		if state.QuestionsAnswered > 0 {
			avg = float64(score) / float64(state.QuestionsAnswered)
		}
		normalized[trait] = avg
		adjusted[trait] = int(math.Round(avg * float64(e.sessionLength)))
	}

	return domain.ScoreSet{
		Raw:        raw,
		Normalized: normalized,
		Adjusted:   adjusted,
	}
}
