package service

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"character-quiz/internal/domain"
)

// Band is the severity tier an adjusted score falls into.
type Band int

const (
	BandNeutral Band = iota
	BandDominant
	BandStrong
	BandWeak
	BandCritical
)

func (b Band) String() string {
	switch b {
	case BandDominant:
		return "dominant"
	case BandStrong:
		return "strong"
	case BandWeak:
		return "weak"
	case BandCritical:
		return "critical"
	default:
		return "neutral"
	}
}

// BandThresholds are inclusive bounds. Neutral is whatever lies in [WeakMax+1, StrongMin-1].
type BandThresholds struct {
	DominantMin int `yaml:"dominant_min" json:"dominant_min"`
	StrongMin   int `yaml:"strong_min" json:"strong_min"`
	StrongMax   int `yaml:"strong_max" json:"strong_max"`
	WeakMin     int `yaml:"weak_min" json:"weak_min"`
	WeakMax     int `yaml:"weak_max" json:"weak_max"`
	CriticalMax int `yaml:"critical_max" json:"critical_max"`
}

type BandLabels struct {
	Dominant string `yaml:"dominant" json:"dominant"`
	Strong   string `yaml:"strong" json:"strong"`
	Neutral  string `yaml:"neutral" json:"neutral"`
	Weak     string `yaml:"weak" json:"weak"`
	Critical string `yaml:"critical" json:"critical"`
}

// TraitPair links two traits that are expected to move together.
type TraitPair struct {
	First  string `yaml:"first" json:"first"`
	Second string `yaml:"second" json:"second"`
}

// ClassifierRules holds every table and threshold the classifier reads.
type ClassifierRules struct {
	Bands                  BandThresholds                      `yaml:"bands" json:"bands"`
	Labels                 BandLabels                          `yaml:"labels" json:"labels"`
	InconsistencyThreshold int                                 `yaml:"inconsistency_threshold" json:"inconsistency_threshold"`
	RelatedPairs           []TraitPair                         `yaml:"related_pairs" json:"related_pairs"`
	Profiles               map[string]domain.ProfileDescriptor `yaml:"profiles" json:"profiles"`
	DefaultProfile         domain.ProfileDescriptor            `yaml:"default_profile" json:"default_profile"`
	CautionTags            map[string]string                   `yaml:"caution_tags" json:"caution_tags"`
	FlawTags               map[string]string                   `yaml:"flaw_tags" json:"flaw_tags"`
}

var ErrInvalidRules = errors.New("invalid classifier rules")

// DefaultClassifierRules returns the reference tables. Each call builds fresh maps.
func DefaultClassifierRules() ClassifierRules {
	return ClassifierRules{
		Bands: BandThresholds{
			DominantMin: 8,
			StrongMin:   6,
			StrongMax:   7,
			WeakMin:     -5,
			WeakMax:     -1,
			CriticalMax: -6,
		},
		Labels: BandLabels{
			Dominant: "Dominant Trait",
			Strong:   "Strong Trait",
			Neutral:  "Neutral Trait",
			Weak:     "Weak Trait",
			Critical: "Critical Weakness",
		},
		InconsistencyThreshold: 5,
		RelatedPairs: []TraitPair{
			{First: "judgment", Second: "clarity"},
			{First: "stability", Second: "alignment"},
			{First: "trust", Second: "integrity"},
			{First: "impact", Second: "publicApproval"},
		},
		Profiles: map[string]domain.ProfileDescriptor{
			"judgment": {
				Name:        "The Rational Strategist",
				Description: "You excel at making well-reasoned decisions and strategic planning. Your analytical approach helps you navigate complex situations with clarity.",
			},
			"trust": {
				Name:        "The Empathic Leader",
				Description: "You build strong relationships through understanding and trust. Your ability to connect with others makes you an effective leader.",
			},
			"agency": {
				Name:        "The Executor",
				Description: "You take decisive action and drive results. Your proactive approach helps you achieve goals effectively.",
			},
			"stability": {
				Name:        "The Stabilizer",
				Description: "You maintain balance and consistency in challenging situations. Your steady presence helps create reliable outcomes.",
			},
			"integrity": {
				Name:        "The Ethical Architect",
				Description: "You build on strong moral foundations. Your principled approach guides your decisions and actions.",
			},
			"impact": {
				Name:        "The Popular Reformer",
				Description: "You drive meaningful change that resonates with others. Your influence helps create positive transformations.",
			},
			"clarity": {
				Name:        "The Coherent Thinker",
				Description: "You communicate complex ideas with precision. Your clear thinking helps others understand and align with your vision.",
			},
			"alignment": {
				Name:        "The Aligned Strategist",
				Description: "You ensure actions align with broader goals. Your strategic coordination helps maintain focus and direction.",
			},
			"publicApproval": {
				Name:        "The Crowd Navigator",
				Description: "You understand and respond to public sentiment effectively. Your awareness helps guide decisions that resonate with others.",
			},
		},
		DefaultProfile: domain.ProfileDescriptor{
			Name:        "The Generalist",
			Description: "You're balanced and versatile. No single trait dominates, and that's a strength too.",
		},
		CautionTags: map[string]string{
			"judgment":       "Limited Analysis: Complex situations may be challenging to navigate.",
			"trust":          "Low Trust: Others may not align with your direction.",
			"agency":         "Passive Approach: Opportunities may be missed due to hesitation.",
			"stability":      "Unstable Foundation: Changes may cause unnecessary disruption.",
			"integrity":      "Ethical Gaps: Decisions may lack moral consistency.",
			"impact":         "Limited Influence: Changes may not gain necessary support.",
			"clarity":        "Poor Communication: Your reasoning may not be clear.",
			"alignment":      "Misaligned Actions: Efforts may not support core objectives.",
			"publicApproval": "Public Resistance: Changes may face significant pushback.",
		},
		FlawTags: map[string]string{
			"judgment":       "Critical Analysis Failure: Complex decisions may lead to significant errors.",
			"trust":          "Trust Crisis: Relationships and leadership may be severely compromised.",
			"agency":         "Action Paralysis: Critical opportunities may be consistently missed.",
			"stability":      "Systemic Instability: Changes may cause widespread disruption.",
			"integrity":      "Ethical Crisis: Actions may fundamentally conflict with core values.",
			"impact":         "Impact Failure: Changes may face overwhelming resistance.",
			"clarity":        "Communication Breakdown: Core messages may be consistently misunderstood.",
			"alignment":      "Strategic Misalignment: Actions may fundamentally contradict goals.",
			"publicApproval": "Public Rejection: Changes may face overwhelming opposition.",
		},
	}
}

// Validate checks that the bands partition the integers with no gaps or overlaps.
func (r ClassifierRules) Validate() error {
	b := r.Bands
	if b.CriticalMax+1 != b.WeakMin {
		return fmt.Errorf("%w: critical_max (%d) must sit right below weak_min (%d)", ErrInvalidRules, b.CriticalMax, b.WeakMin)
	}
	if b.WeakMin > b.WeakMax {
		return fmt.Errorf("%w: weak_min (%d) > weak_max (%d)", ErrInvalidRules, b.WeakMin, b.WeakMax)
	}
	if b.WeakMax >= b.StrongMin {
		return fmt.Errorf("%w: weak_max (%d) must be below strong_min (%d)", ErrInvalidRules, b.WeakMax, b.StrongMin)
	}
	if b.StrongMin > b.StrongMax {
		return fmt.Errorf("%w: strong_min (%d) > strong_max (%d)", ErrInvalidRules, b.StrongMin, b.StrongMax)
	}
	if b.StrongMax+1 != b.DominantMin {
		return fmt.Errorf("%w: strong_max (%d) must sit right below dominant_min (%d)", ErrInvalidRules, b.StrongMax, b.DominantMin)
	}
	if r.InconsistencyThreshold < 0 {
		return fmt.Errorf("%w: inconsistency_threshold must be >= 0, got %d", ErrInvalidRules, r.InconsistencyThreshold)
	}
	for i, p := range r.RelatedPairs {
		if strings.TrimSpace(p.First) == "" || strings.TrimSpace(p.Second) == "" {
			return fmt.Errorf("%w: related pair %d has an empty trait", ErrInvalidRules, i)
		}
		if p.First == p.Second {
			return fmt.Errorf("%w: related pair %d pairs %q with itself", ErrInvalidRules, i, p.First)
		}
	}
	return nil
}

// Band classifies a single adjusted score.
func (r ClassifierRules) Band(score int) Band {
	b := r.Bands
	switch {
	case score >= b.DominantMin:
		return BandDominant
	case score >= b.StrongMin && score <= b.StrongMax:
		return BandStrong
	case score <= b.CriticalMax:
		return BandCritical
	case score >= b.WeakMin && score <= b.WeakMax:
		return BandWeak
	default:
		return BandNeutral
	}
}

// BandLabel returns the display label for the band a score falls into.
func (r ClassifierRules) BandLabel(score int) string {
	switch r.Band(score) {
	case BandDominant:
		return r.Labels.Dominant
	case BandStrong:
		return r.Labels.Strong
	case BandWeak:
		return r.Labels.Weak
	case BandCritical:
		return r.Labels.Critical
	default:
		return r.Labels.Neutral
	}
}

// ParseClassifierRules overlays YAML on top of the defaults. Maps are merged
// key by key; lists such as related_pairs replace the default list.
func ParseClassifierRules(data []byte) (ClassifierRules, error) {
	rules := DefaultClassifierRules()
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return ClassifierRules{}, fmt.Errorf("%w: decode yaml: %v", ErrInvalidRules, err)
	}
	if err := rules.Validate(); err != nil {
		return ClassifierRules{}, err
	}
	return rules, nil
}

func LoadClassifierRules(path string) (ClassifierRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ClassifierRules{}, fmt.Errorf("read rules %s: %w", path, err)
	}
	rules, err := ParseClassifierRules(data)
	if err != nil {
		return ClassifierRules{}, fmt.Errorf("load rules %s: %w", path, err)
	}
	return rules, nil
}
