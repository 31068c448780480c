package service

import (
	"fmt"
	"sort"

	"character-quiz/internal/domain"
)

// ProfileClassifier turns a final adjusted score vector into an Analysis.
// It holds no mutable state, so Analyze is safe for concurrent use.
type ProfileClassifier struct {
	registry *domain.TraitRegistry
	rules    ClassifierRules
}

func NewProfileClassifier(registry *domain.TraitRegistry, rules ClassifierRules) (*ProfileClassifier, error) {
	if registry == nil {
		return nil, ErrEngineNotConfigured
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &ProfileClassifier{registry: registry, rules: rules}, nil
}

func (c *ProfileClassifier) Rules() ClassifierRules {
	return c.rules
}

// Analyze classifies every trait present in adjusted. Order matters:
// traits are ranked by magnitude first, and that rank decides both the profile
// and the display order of each list.
func (c *ProfileClassifier) Analyze(adjusted domain.TraitVector) domain.Analysis {
	analysis := domain.Analysis{
		CoreIdentity:        []domain.TraitAssessment{},
		SecondaryTendencies: []domain.TraitAssessment{},
		BlindSpots:          []domain.TraitAssessment{},
		Profile:             c.rules.DefaultProfile,
		CautionTags:         []string{},
		FlawTags:            []string{},
	}

	ranked := c.rank(adjusted)

	// Only a positive score can pick the profile, even though ranking uses magnitude.
	for _, trait := range ranked {
		if adjusted[trait] >= c.rules.Bands.StrongMin {
			if profile, ok := c.rules.Profiles[trait]; ok {
				analysis.Profile = profile
			}
			break
		}
	}

	for _, trait := range ranked {
		score := adjusted[trait]
		entry := domain.TraitAssessment{
			Trait: trait,
			Score: score,
			Label: c.rules.BandLabel(score),
		}
		switch c.rules.Band(score) {
		case BandDominant:
			analysis.CoreIdentity = append(analysis.CoreIdentity, entry)
		case BandStrong:
			analysis.SecondaryTendencies = append(analysis.SecondaryTendencies, entry)
		case BandCritical:
			analysis.BlindSpots = append(analysis.BlindSpots, entry)
			analysis.FlawTags = append(analysis.FlawTags, c.flawTag(trait))
		case BandWeak:
			analysis.CautionTags = append(analysis.CautionTags, c.cautionTag(trait))
		}
	}

	analysis.BlindSpots = append(analysis.BlindSpots, c.inconsistencies(adjusted)...)
	return analysis
}

// rank sorts trait keys by descending absolute score; ties keep registration order.
func (c *ProfileClassifier) rank(adjusted domain.TraitVector) []string {
	keys := make([]string, 0, len(adjusted))
	for k := range adjusted {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.registry.Less(keys[i], keys[j])
	})
	sort.SliceStable(keys, func(i, j int) bool {
		return abs(adjusted[keys[i]]) > abs(adjusted[keys[j]])
	})
	return keys
}

// inconsistencies flags the lower trait of each related pair whose gap exceeds
// the threshold. Missing keys read as 0. A trait already flagged by banding is
// listed again here; duplicates are kept.
func (c *ProfileClassifier) inconsistencies(adjusted domain.TraitVector) []domain.TraitAssessment {
	var out []domain.TraitAssessment
	for _, pair := range c.rules.RelatedPairs {
		first, second := adjusted[pair.First], adjusted[pair.Second]
		if abs(first-second) <= c.rules.InconsistencyThreshold {
			continue
		}
		lower, partner, score := pair.Second, pair.First, second
		if first < second {
			lower, partner, score = pair.First, pair.Second, first
		}
		out = append(out, domain.TraitAssessment{
			Trait:   lower,
			Score:   score,
			Label:   "Inconsistent with " + partner,
			Partner: partner,
		})
	}
	return out
}

func (c *ProfileClassifier) cautionTag(trait string) string {
	if tag, ok := c.rules.CautionTags[trait]; ok {
		return tag
	}
	return fmt.Sprintf("%s: %s", c.registry.Name(trait), c.rules.Labels.Weak)
}

func (c *ProfileClassifier) flawTag(trait string) string {
	if tag, ok := c.rules.FlawTags[trait]; ok {
		return tag
	}
	return fmt.Sprintf("%s: %s", c.registry.Name(trait), c.rules.Labels.Critical)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
