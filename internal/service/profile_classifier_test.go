package service

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"character-quiz/internal/domain"
)

func newDefaultClassifier(t *testing.T) *ProfileClassifier {
	t.Helper()
	c, err := NewProfileClassifier(domain.DefaultTraitRegistry(), DefaultClassifierRules())
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	return c
}

func fullVector(scores domain.TraitVector) domain.TraitVector {
	v := domain.DefaultTraitRegistry().Zero()
	for k, s := range scores {
		v[k] = s
	}
	return v
}

func TestProfileClassifier_DominantWithInconsistentPartner(t *testing.T) {
	c := newDefaultClassifier(t)
	got := c.Analyze(fullVector(domain.TraitVector{"judgment": 9, "clarity": 2}))

	rules := DefaultClassifierRules()
	want := domain.Analysis{
		CoreIdentity:        []domain.TraitAssessment{{Trait: "judgment", Score: 9, Label: "Dominant Trait"}},
		SecondaryTendencies: []domain.TraitAssessment{},
		BlindSpots: []domain.TraitAssessment{
			{Trait: "clarity", Score: 2, Label: "Inconsistent with judgment", Partner: "judgment"},
		},
		Profile:     rules.Profiles["judgment"],
		CautionTags: []string{},
		FlawTags:    []string{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("analysis mismatch (-want +got):\n%s", diff)
	}
}

func TestProfileClassifier_NegativeScoreNeverPicksProfile(t *testing.T) {
	c := newDefaultClassifier(t)
	got := c.Analyze(fullVector(domain.TraitVector{"trust": -9, "agency": 6}))

	if got.Profile.Name != "The Executor" {
		t.Fatalf("expected profile from agency, got %q", got.Profile.Name)
	}
	if len(got.SecondaryTendencies) != 1 || got.SecondaryTendencies[0].Trait != "agency" {
		t.Fatalf("unexpected secondary: %+v", got.SecondaryTendencies)
	}

	// trust aparece por banda critica y otra vez por la inconsistencia con integrity.
	wantBlind := []domain.TraitAssessment{
		{Trait: "trust", Score: -9, Label: "Critical Weakness"},
		{Trait: "trust", Score: -9, Label: "Inconsistent with integrity", Partner: "integrity"},
	}
	if diff := cmp.Diff(wantBlind, got.BlindSpots); diff != "" {
		t.Fatalf("blind spots mismatch (-want +got):\n%s", diff)
	}
	if len(got.FlawTags) != 1 || got.FlawTags[0] != DefaultClassifierRules().FlawTags["trust"] {
		t.Fatalf("unexpected flaw tags: %v", got.FlawTags)
	}
}

func TestProfileClassifier_AllNegativeFallsBackToDefault(t *testing.T) {
	c := newDefaultClassifier(t)
	got := c.Analyze(fullVector(domain.TraitVector{"impact": -3, "clarity": -2}))

	if got.Profile.Name != "The Generalist" {
		t.Fatalf("expected generalist, got %q", got.Profile.Name)
	}
	want := []string{
		DefaultClassifierRules().CautionTags["impact"],
		DefaultClassifierRules().CautionTags["clarity"],
	}
	if diff := cmp.Diff(want, got.CautionTags); diff != "" {
		t.Fatalf("caution tags mismatch (-want +got):\n%s", diff)
	}
	if len(got.CoreIdentity) != 0 || len(got.BlindSpots) != 0 {
		t.Fatalf("unexpected entries: %+v", got)
	}
}

func TestProfileClassifier_TiesFollowRegistrationOrder(t *testing.T) {
	c := newDefaultClassifier(t)
	got := c.Analyze(fullVector(domain.TraitVector{"stability": 7, "judgment": 7}))

	if got.Profile.Name != "The Rational Strategist" {
		t.Fatalf("expected judgment to win the tie, got %q", got.Profile.Name)
	}
	if len(got.SecondaryTendencies) != 2 ||
		got.SecondaryTendencies[0].Trait != "judgment" ||
		got.SecondaryTendencies[1].Trait != "stability" {
		t.Fatalf("unexpected order: %+v", got.SecondaryTendencies)
	}
}

func TestProfileClassifier_RankingByMagnitude(t *testing.T) {
	c := newDefaultClassifier(t)
	got := c.Analyze(fullVector(domain.TraitVector{"agency": 8, "impact": 12, "clarity": 9}))

	if got.Profile.Name != "The Popular Reformer" {
		t.Fatalf("expected impact profile, got %q", got.Profile.Name)
	}
	order := []string{}
	for _, a := range got.CoreIdentity {
		order = append(order, a.Trait)
	}
	if diff := cmp.Diff([]string{"impact", "clarity", "agency"}, order); diff != "" {
		t.Fatalf("core order mismatch (-want +got):\n%s", diff)
	}
}

func TestProfileClassifier_DefaultTagsAndMissingProfile(t *testing.T) {
	registry, err := domain.NewTraitRegistry(
		domain.TraitDefinition{Key: "grit", Name: "Grit"},
		domain.TraitDefinition{Key: "focus", Name: "Focus"},
		domain.TraitDefinition{Key: "judgment", Name: "Judgment"},
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	c, err := NewProfileClassifier(registry, DefaultClassifierRules())
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}

	got := c.Analyze(domain.TraitVector{"grit": 9, "judgment": 8, "focus": -3})
	if got.Profile.Name != "The Generalist" {
		t.Fatalf("expected default profile when top trait has no entry, got %q", got.Profile.Name)
	}
	if diff := cmp.Diff([]string{"Focus: Weak Trait"}, got.CautionTags); diff != "" {
		t.Fatalf("caution mismatch (-want +got):\n%s", diff)
	}

	got = c.Analyze(domain.TraitVector{"grit": -8})
	if diff := cmp.Diff([]string{"Grit: Critical Weakness"}, got.FlawTags); diff != "" {
		t.Fatalf("flaw mismatch (-want +got):\n%s", diff)
	}
}

func TestProfileClassifier_InconsistencyThresholdIsStrict(t *testing.T) {
	c := newDefaultClassifier(t)

	got := c.Analyze(fullVector(domain.TraitVector{"stability": 5, "alignment": 0}))
	if len(got.BlindSpots) != 0 {
		t.Fatalf("gap of exactly 5 should not flag, got %+v", got.BlindSpots)
	}

	got = c.Analyze(fullVector(domain.TraitVector{"stability": 0, "alignment": 6}))
	want := []domain.TraitAssessment{
		{Trait: "stability", Score: 0, Label: "Inconsistent with alignment", Partner: "alignment"},
	}
	if diff := cmp.Diff(want, got.BlindSpots); diff != "" {
		t.Fatalf("blind spots mismatch (-want +got):\n%s", diff)
	}
}

func TestProfileClassifier_EmptyInput(t *testing.T) {
	c := newDefaultClassifier(t)
	got := c.Analyze(nil)

	if got.Profile.Name != "The Generalist" {
		t.Fatalf("expected generalist, got %q", got.Profile.Name)
	}
	if got.CoreIdentity == nil || got.SecondaryTendencies == nil || got.BlindSpots == nil ||
		got.CautionTags == nil || got.FlawTags == nil {
		t.Fatalf("expected empty non-nil lists, got %+v", got)
	}
}

func TestProfileClassifier_IsIdempotent(t *testing.T) {
	c := newDefaultClassifier(t)
	input := fullVector(domain.TraitVector{"judgment": 9, "trust": -7, "impact": 6, "clarity": -2})
	snapshot := input.Clone()

	first := c.Analyze(input)
	second := c.Analyze(input)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("analysis changed between calls (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(snapshot, input); diff != "" {
		t.Fatalf("input mutated (-before +after):\n%s", diff)
	}
}

func TestClassifierRules_BandsPartitionScores(t *testing.T) {
	rules := DefaultClassifierRules()
	for score := -20; score <= 20; score++ {
		var want Band
		switch {
		case score >= 8:
			want = BandDominant
		case score >= 6:
			want = BandStrong
		case score <= -6:
			want = BandCritical
		case score <= -1:
			want = BandWeak
		default:
			want = BandNeutral
		}
		if got := rules.Band(score); got != want {
			t.Fatalf("score %d: expected %s, got %s", score, want, got)
		}
	}
	if rules.BandLabel(0) != "Neutral Trait" || rules.BandLabel(-6) != "Critical Weakness" {
		t.Fatalf("unexpected labels")
	}
}

func TestClassifierRules_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *ClassifierRules)
	}{
		{name: "gap below weak", mutate: func(r *ClassifierRules) { r.Bands.CriticalMax = -7 }},
		{name: "gap below dominant", mutate: func(r *ClassifierRules) { r.Bands.StrongMax = 6 }},
		{name: "weak inverted", mutate: func(r *ClassifierRules) { r.Bands.WeakMax = -6; r.Bands.CriticalMax = -6 }},
		{name: "weak overlaps strong", mutate: func(r *ClassifierRules) { r.Bands.WeakMax = 6 }},
		{name: "strong inverted", mutate: func(r *ClassifierRules) { r.Bands.StrongMin = 8 }},
		{name: "negative threshold", mutate: func(r *ClassifierRules) { r.InconsistencyThreshold = -1 }},
		{name: "empty pair", mutate: func(r *ClassifierRules) { r.RelatedPairs = []TraitPair{{First: "judgment"}} }},
		{name: "self pair", mutate: func(r *ClassifierRules) { r.RelatedPairs = []TraitPair{{First: "trust", Second: "trust"}} }},
	}

	if err := DefaultClassifierRules().Validate(); err != nil {
		t.Fatalf("default rules invalid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := DefaultClassifierRules()
			tt.mutate(&rules)
			if err := rules.Validate(); !errors.Is(err, ErrInvalidRules) {
				t.Fatalf("expected ErrInvalidRules, got %v", err)
			}
			if _, err := NewProfileClassifier(domain.DefaultTraitRegistry(), rules); !errors.Is(err, ErrInvalidRules) {
				t.Fatalf("expected classifier to reject rules, got %v", err)
			}
		})
	}
}

func TestParseClassifierRules_Overlay(t *testing.T) {
	data := []byte(`
inconsistency_threshold: 3
profiles:
  judgment:
    name: The Planner
    description: Plans everything.
related_pairs:
  - first: agency
    second: trust
`)
	rules, err := ParseClassifierRules(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rules.InconsistencyThreshold != 3 {
		t.Fatalf("expected threshold 3, got %d", rules.InconsistencyThreshold)
	}
	if rules.Profiles["judgment"].Name != "The Planner" {
		t.Fatalf("expected overridden judgment profile, got %+v", rules.Profiles["judgment"])
	}
	if rules.Profiles["trust"].Name != "The Empathic Leader" {
		t.Fatalf("expected default trust profile kept, got %+v", rules.Profiles["trust"])
	}
	if diff := cmp.Diff([]TraitPair{{First: "agency", Second: "trust"}}, rules.RelatedPairs); diff != "" {
		t.Fatalf("pairs mismatch (-want +got):\n%s", diff)
	}
	if rules.Bands.DominantMin != 8 {
		t.Fatalf("expected default bands kept, got %+v", rules.Bands)
	}
}

func TestParseClassifierRules_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "bad yaml", data: "bands: ["},
		{name: "gap in bands", data: "bands:\n  critical_max: -7\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseClassifierRules([]byte(tt.data)); !errors.Is(err, ErrInvalidRules) {
				t.Fatalf("expected ErrInvalidRules, got %v", err)
			}
		})
	}
}

func TestLoadClassifierRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("default_profile:\n  name: Balanced\n  description: Even.\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	rules, err := LoadClassifierRules(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rules.DefaultProfile.Name != "Balanced" {
		t.Fatalf("unexpected default profile %+v", rules.DefaultProfile)
	}

	if _, err := LoadClassifierRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadClassifierRules_ExampleFile(t *testing.T) {
	rules, err := LoadClassifierRules(filepath.Join("..", "..", "configs", "rules.example.yaml"))
	if err != nil {
		t.Fatalf("load example rules: %v", err)
	}
	if diff := cmp.Diff(DefaultClassifierRules(), rules); diff != "" {
		t.Fatalf("example rules should restate the defaults (-want +got):\n%s", diff)
	}
}
