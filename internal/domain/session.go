package domain

import "time"

// SessionState es el estado de una sesion del cuestionario.
// Solo lo muta el motor de sesion, siempre devolviendo una copia nueva.
type SessionState struct {
	Traits            TraitVector `json:"traits"`
	CurrentScenario   *Scenario   `json:"current_scenario,omitempty"`
	QuestionsAnswered int         `json:"questions_answered"`
	UsedScenarioIDs   []string    `json:"used_scenario_ids"`
	IsComplete        bool        `json:"is_complete"`
}

// Clone devuelve una copia profunda del estado.
func (s SessionState) Clone() SessionState {
	out := s
	out.Traits = s.Traits.Clone()
	out.UsedScenarioIDs = make([]string, len(s.UsedScenarioIDs), len(s.UsedScenarioIDs)+1)
	copy(out.UsedScenarioIDs, s.UsedScenarioIDs)
	if s.CurrentScenario != nil {
		sc := s.CurrentScenario.Clone()
		out.CurrentScenario = &sc
	}
	return out
}

// ScoreSet agrupa las tres escalas de puntaje.
type ScoreSet struct {
	Raw        TraitVector      `json:"raw"`
	Normalized NormalizedVector `json:"normalized"`
	Adjusted   TraitVector      `json:"adjusted"`
}

// SessionRecord envuelve un SessionState vivo con su identidad y version.
type SessionRecord struct {
	ID        string       `json:"id"`
	Version   int          `json:"version"`
	State     SessionState `json:"state"`
	Deadline  time.Time    `json:"deadline,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}
