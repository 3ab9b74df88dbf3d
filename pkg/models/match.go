package models

// MatchType classifies a candidate against the store
type MatchType string

const (
	MatchTypeExact              MatchType = "EXACT_MATCH"
	MatchTypePotentialDuplicate MatchType = "POTENTIAL_DUPLICATE"
	MatchTypeNone               MatchType = "NO_MATCH"
)

// Field names reported in MatchResult.MatchedFields
const (
	FieldFirstName   = "firstName"
	FieldLastName    = "lastName"
	FieldEmail       = "email"
	FieldPhone       = "phone"
	FieldHeight      = "height"
	FieldDateOfBirth = "dateOfBirth"
	FieldBirthYear   = "birthYear"
	FieldNationality = "nationality"
)

// MatchResult is the outcome of matching one candidate
type MatchResult struct {
	MatchType       MatchType     `json:"match_type"`
	Player          *PlayerRecord `json:"player,omitempty"`
	SimilarityScore float64       `json:"similarity_score"`
	MatchedFields   []string      `json:"matched_fields"`
}

// NoMatch returns the NO_MATCH result
func NoMatch() MatchResult {
	return MatchResult{
		MatchType:     MatchTypeNone,
		MatchedFields: []string{},
	}
}

// IsMatch reports whether the result references an existing player
func (r MatchResult) IsMatch() bool {
	return r.MatchType != MatchTypeNone && r.Player != nil
}
