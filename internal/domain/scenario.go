package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Scenario es una situacion de eleccion forzada. Effects[i] aplica sii se elige Choices[i].
type Scenario struct {
	ID        string        `json:"id" yaml:"id"`
	Subject   string        `json:"subject" yaml:"subject"`
	Role      string        `json:"role" yaml:"role"`
	Narrative string        `json:"scenario" yaml:"scenario"`
	Question  string        `json:"question" yaml:"question"`
	Choices   []string      `json:"choices" yaml:"choices"`
	Effects   []TraitVector `json:"effects" yaml:"effects"`
}

// Validate chequea la integridad del escenario contra el registro de rasgos.
func (s Scenario) Validate(registry *TraitRegistry) error {
	id := strings.TrimSpace(s.ID)
	if id == "" {
		return fmt.Errorf("%w: scenario id is empty", ErrDataIntegrity)
	}
	if len(s.Choices) == 0 {
		return fmt.Errorf("%w: scenario %s has no choices", ErrDataIntegrity, id)
	}
	if len(s.Choices) != len(s.Effects) {
		return fmt.Errorf("%w: scenario %s has %d choices but %d effects", ErrDataIntegrity, id, len(s.Choices), len(s.Effects))
	}
	if registry == nil {
		return nil
	}
	for i, effect := range s.Effects {
		keys := make([]string, 0, len(effect))
		for k := range effect {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !registry.Has(k) {
				return fmt.Errorf("%w: scenario %s choice %d references unknown trait %q", ErrDataIntegrity, id, i, k)
			}
		}
	}
	return nil
}

// Clone copia choices y effects para que el original quede inmutable.
func (s Scenario) Clone() Scenario {
	out := s
	out.Choices = append([]string(nil), s.Choices...)
	out.Effects = make([]TraitVector, len(s.Effects))
	for i, e := range s.Effects {
		out.Effects[i] = e.Clone()
	}
	return out
}
