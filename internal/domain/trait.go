package domain

import (
	"fmt"
	"strings"
)

// TraitDefinition describe un eje de rasgo registrado.
type TraitDefinition struct {
	Key  string `json:"key" yaml:"key"`
	Name string `json:"name" yaml:"name"`
}

// Trait es un rasgo registrado junto con su puntaje acumulado.
type Trait struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// TraitVector mapea clave de rasgo -> puntaje (o delta de puntaje).
type TraitVector map[string]int

// Clone devuelve una copia independiente del vector.
func (v TraitVector) Clone() TraitVector {
	out := make(TraitVector, len(v))
	for k, score := range v {
		out[k] = score
	}
	return out
}

// NormalizedVector guarda puntajes promediados por pregunta.
type NormalizedVector map[string]float64

// TraitRegistry mantiene el set fijo de rasgos en orden de registro.
type TraitRegistry struct {
	defs  []TraitDefinition
	index map[string]int
}

// NewTraitRegistry valida claves unicas y no vacias.
func NewTraitRegistry(defs ...TraitDefinition) (*TraitRegistry, error) {
	r := &TraitRegistry{
		defs:  make([]TraitDefinition, 0, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		key := strings.TrimSpace(d.Key)
		if key == "" {
			return nil, fmt.Errorf("%w: trait key is empty", ErrDataIntegrity)
		}
		if _, dup := r.index[key]; dup {
			return nil, fmt.Errorf("%w: duplicate trait key %q", ErrDataIntegrity, key)
		}
		name := strings.TrimSpace(d.Name)
		if name == "" {
			name = key
		}
		r.index[key] = len(r.defs)
		r.defs = append(r.defs, TraitDefinition{Key: key, Name: name})
	}
	return r, nil
}

// DefaultTraitRegistry devuelve los nueve rasgos del cuestionario.
func DefaultTraitRegistry() *TraitRegistry {
	r, _ := NewTraitRegistry(
		TraitDefinition{Key: "judgment", Name: "Judgment"},
		TraitDefinition{Key: "stability", Name: "Stability"},
		TraitDefinition{Key: "agency", Name: "Agency"},
		TraitDefinition{Key: "trust", Name: "Trust"},
		TraitDefinition{Key: "impact", Name: "Impact"},
		TraitDefinition{Key: "integrity", Name: "Integrity"},
		TraitDefinition{Key: "publicApproval", Name: "Public Approval"},
		TraitDefinition{Key: "alignment", Name: "Alignment"},
		TraitDefinition{Key: "clarity", Name: "Clarity"},
	)
	return r
}

func (r *TraitRegistry) Len() int {
	return len(r.defs)
}

// Definitions devuelve una copia de las definiciones en orden de registro.
func (r *TraitRegistry) Definitions() []TraitDefinition {
	out := make([]TraitDefinition, len(r.defs))
	copy(out, r.defs)
	return out
}

func (r *TraitRegistry) Keys() []string {
	keys := make([]string, len(r.defs))
	for i, d := range r.defs {
		keys[i] = d.Key
	}
	return keys
}

func (r *TraitRegistry) Has(key string) bool {
	_, ok := r.index[key]
	return ok
}

// Name devuelve la etiqueta visible; para claves desconocidas devuelve la clave.
func (r *TraitRegistry) Name(key string) string {
	if i, ok := r.index[key]; ok {
		return r.defs[i].Name
	}
	return key
}

// Position devuelve el indice de registro de la clave.
func (r *TraitRegistry) Position(key string) (int, bool) {
	i, ok := r.index[key]
	return i, ok
}

// Less ordena por posicion de registro; las claves no registradas van al final, alfabeticamente.
func (r *TraitRegistry) Less(a, b string) bool {
	pa, okA := r.Position(a)
	pb, okB := r.Position(b)
	switch {
	case okA && okB:
		return pa < pb
	case okA != okB:
		return okA
	default:
		return a < b
	}
}

// Zero devuelve un vector con cada rasgo registrado en cero.
func (r *TraitRegistry) Zero() TraitVector {
	v := make(TraitVector, len(r.defs))
	for _, d := range r.defs {
		v[d.Key] = 0
	}
	return v
}

// Traits arma la vista ordenada (nombre + puntaje) de un vector.
func (r *TraitRegistry) Traits(v TraitVector) []Trait {
	out := make([]Trait, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, Trait{Key: d.Key, Name: d.Name, Score: v[d.Key]})
	}
	return out
}
