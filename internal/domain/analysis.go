package domain

import (
	"fmt"
	"strings"
)

// TraitAssessment es una entrada de las listas del analisis.
// Partner solo se completa cuando la entrada viene de una inconsistencia entre rasgos.
type TraitAssessment struct {
	Trait   string `json:"trait"`
	Score   int    `json:"score"`
	Label   string `json:"label"`
	Partner string `json:"partner,omitempty"`
}

// ProfileDescriptor es el perfil asignado (nombre + descripcion).
type ProfileDescriptor struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Analysis es el snapshot inmutable que produce el clasificador.
type Analysis struct {
	CoreIdentity        []TraitAssessment `json:"core_identity"`
	SecondaryTendencies []TraitAssessment `json:"secondary_tendencies"`
	BlindSpots          []TraitAssessment `json:"blind_spots"`
	Profile             ProfileDescriptor `json:"profile"`
	CautionTags         []string          `json:"caution_tags"`
	FlawTags            []string          `json:"flaw_tags"`
}

// Describe arma un resumen plano de varias lineas, util para logs y consumidores de texto.
func (a Analysis) Describe() string {
	lines := []string{
		"Profile: " + a.Profile.Name,
		"Description: " + a.Profile.Description,
	}

	if len(a.CoreIdentity) > 0 {
		lines = append(lines, "Core Identity: "+joinAssessments(a.CoreIdentity))
	}
	if len(a.SecondaryTendencies) > 0 {
		lines = append(lines, "Secondary Tendencies: "+joinAssessments(a.SecondaryTendencies))
	}
	if len(a.BlindSpots) > 0 {
		lines = append(lines, "Blind Spots: "+joinAssessments(a.BlindSpots))
	}
	if len(a.CautionTags) > 0 {
		lines = append(lines, "Cautions:")
		for _, tag := range a.CautionTags {
			lines = append(lines, "- "+tag)
		}
	}
	if len(a.FlawTags) > 0 {
		lines = append(lines, "Major Flaws:")
		for _, tag := range a.FlawTags {
			lines = append(lines, "- "+tag)
		}
	}
	return strings.Join(lines, "\n")
}

func joinAssessments(items []TraitAssessment) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		part := fmt.Sprintf("%s (%d)", it.Trait, it.Score)
		if it.Partner != "" {
			part += " - " + it.Label
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}
