package matching

import (
	"github.com/Ramsey-B/clover/pkg/models"
)

// Score is the weighted comparison of a candidate against one stored record
type Score struct {
	Similarity    float64      `json:"similarity"`
	MatchedFields []string     `json:"matched_fields"`
	Fields        []FieldScore `json:"fields"`
}

// Scorer combines field comparators into a weighted similarity
type Scorer struct {
	profile ScoringProfile
}

// NewScorer creates a Scorer for the profile
func NewScorer(profile ScoringProfile) *Scorer {
	return &Scorer{profile: profile}
}

// Profile returns the profile the scorer was built with
func (s *Scorer) Profile() ScoringProfile {
	return s.profile
}

// Compare runs every field comparator for the pair
func (s *Scorer) Compare(candidate, stored models.PlayerAttributes) []FieldScore {
	p := s.profile
	return []FieldScore{
		CompareName(models.FieldFirstName, candidate.FirstName, stored.FirstName, p.cutoff(models.FieldFirstName)),
		CompareName(models.FieldLastName, candidate.LastName, stored.LastName, p.cutoff(models.FieldLastName)),
		CompareEmail(candidate.Email, stored.Email, p.cutoff(models.FieldEmail)),
		ComparePhone(candidate.Phone, stored.Phone, p.cutoff(models.FieldPhone)),
		CompareHeight(candidate.Height, stored.Height, p.cutoff(models.FieldHeight)),
		CompareDateOfBirth(candidate.DateOfBirth, stored.DateOfBirth, p.cutoff(models.FieldDateOfBirth)),
		CompareNationality(candidate.Nationality, stored.Nationality, p.cutoff(models.FieldNationality)),
	}
}

// Score computes the weighted mean of the non-neutral field scores.
// Returns 0 when no weighted field applies.
func (s *Scorer) Score(candidate, stored models.PlayerAttributes) Score {
	fields := s.Compare(candidate, stored)
	return Score{
		Similarity:    s.weightedMean(fields),
		MatchedFields: s.matchedFields(fields),
		Fields:        fields,
	}
}

func (s *Scorer) weightedMean(fields []FieldScore) float64 {
	totalScore := 0.0
	totalWeight := 0.0
	for _, f := range fields {
		if f.Neutral {
			continue
		}
		w := s.profile.weight(f.Key)
		totalScore += f.Score * w
		totalWeight += w
	}

	if totalWeight == 0 {
		return 0
	}
	return totalScore / totalWeight
}

func (s *Scorer) matchedFields(fields []FieldScore) []string {
	matched := []string{}
	for _, f := range fields {
		if f.Neutral || !f.Counted || s.profile.weight(f.Key) == 0 {
			continue
		}
		matched = append(matched, f.Field)
	}
	return matched
}
