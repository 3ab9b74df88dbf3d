package matching

import (
	"fmt"
	"maps"

	"github.com/Ramsey-B/clover/pkg/models"
)

const (
	// ProfileStandard is the three-state profile used by default
	ProfileStandard = "standard"
	// ProfileStrict is the two-state, high-threshold profile
	ProfileStrict = "strict"

	textCutoff  = 90.0
	exactCutoff = 100.0
)

// weightKeys lists scored attributes in report order
var weightKeys = []string{
	models.FieldFirstName,
	models.FieldLastName,
	models.FieldEmail,
	models.FieldPhone,
	models.FieldHeight,
	models.FieldDateOfBirth,
	models.FieldNationality,
}

// ScoringProfile holds the weights, threshold and per-field cutoffs used to score candidates
type ScoringProfile struct {
	Name string `json:"name"`
	// Weights are keyed by field name. Missing fields weigh 0.
	Weights map[string]float64 `json:"weights"`
	// FuzzyThreshold is the minimum weighted similarity for a potential duplicate
	FuzzyThreshold float64 `json:"fuzzy_threshold"`
	// FieldCutoffs is the per-field score at which a field is reported as matched
	FieldCutoffs map[string]float64 `json:"field_cutoffs"`
	// ExactMatch enables the name + date-of-birth fast path and the EXACT_MATCH state
	ExactMatch bool `json:"exact_match"`
}

func defaultCutoffs() map[string]float64 {
	return map[string]float64{
		models.FieldFirstName:   textCutoff,
		models.FieldLastName:    textCutoff,
		models.FieldEmail:       textCutoff,
		models.FieldPhone:       exactCutoff,
		models.FieldHeight:      textCutoff,
		models.FieldDateOfBirth: exactCutoff,
		models.FieldNationality: textCutoff,
	}
}

// StandardProfile returns the three-state profile: threshold 75 with date of birth and nationality weighted
func StandardProfile() ScoringProfile {
	return ScoringProfile{
		Name: ProfileStandard,
		Weights: map[string]float64{
			models.FieldFirstName:   20,
			models.FieldLastName:    20,
			models.FieldDateOfBirth: 20,
			models.FieldNationality: 15,
			models.FieldHeight:      10,
			models.FieldEmail:       10,
			models.FieldPhone:       5,
		},
		FuzzyThreshold: 75,
		FieldCutoffs:   defaultCutoffs(),
		ExactMatch:     true,
	}
}

// StrictProfile returns the two-state profile: threshold 98 with email weighted heaviest
func StrictProfile() ScoringProfile {
	return ScoringProfile{
		Name: ProfileStrict,
		Weights: map[string]float64{
			models.FieldFirstName:   25,
			models.FieldLastName:    25,
			models.FieldEmail:       30,
			models.FieldHeight:      10,
			models.FieldPhone:       5,
			models.FieldDateOfBirth: 5,
		},
		FuzzyThreshold: 98,
		FieldCutoffs:   defaultCutoffs(),
		ExactMatch:     false,
	}
}

// ProfileByName returns a built-in profile
func ProfileByName(name string) (ScoringProfile, error) {
	switch name {
	case ProfileStandard, "":
		return StandardProfile(), nil
	case ProfileStrict:
		return StrictProfile(), nil
	default:
		return ScoringProfile{}, fmt.Errorf("unknown scoring profile %q", name)
	}
}

// WithOverrides returns a copy of the profile with a non-zero threshold and any given weights replaced
func (p ScoringProfile) WithOverrides(threshold float64, weights map[string]float64) ScoringProfile {
	out := p
	out.Weights = maps.Clone(p.Weights)
	if out.Weights == nil {
		out.Weights = make(map[string]float64, len(weights))
	}
	maps.Copy(out.Weights, weights)
	out.FieldCutoffs = maps.Clone(p.FieldCutoffs)
	if threshold != 0 {
		out.FuzzyThreshold = threshold
	}
	return out
}

// Validate checks the profile is usable
func (p ScoringProfile) Validate() error {
	if p.FuzzyThreshold <= 0 || p.FuzzyThreshold > 100 {
		return fmt.Errorf("fuzzy threshold must be in (0, 100], got %v", p.FuzzyThreshold)
	}

	known := make(map[string]bool, len(weightKeys))
	for _, k := range weightKeys {
		known[k] = true
	}

	total := 0.0
	for field, w := range p.Weights {
		if !known[field] {
			return fmt.Errorf("unknown weighted field %q", field)
		}
		if w < 0 {
			return fmt.Errorf("weight for %s must not be negative", field)
		}
		total += w
	}
	if total == 0 {
		return fmt.Errorf("profile %q has no positive weights", p.Name)
	}
	return nil
}

func (p ScoringProfile) weight(field string) float64 {
	return p.Weights[field]
}

func (p ScoringProfile) cutoff(field string) float64 {
	if c, ok := p.FieldCutoffs[field]; ok {
		return c
	}
	return defaultCutoffs()[field]
}
