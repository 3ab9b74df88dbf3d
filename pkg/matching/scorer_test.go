package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestScorer_Score(t *testing.T) {
	scorer := NewScorer(StandardProfile())

	t.Run("OnlyNamesPresent", func(t *testing.T) {
		score := scorer.Score(
			models.PlayerAttributes{FirstName: "Jayson", LastName: "Tatum"},
			models.PlayerAttributes{FirstName: "jayson", LastName: "TATUM"},
		)
		assert.Equal(t, 100.0, score.Similarity)
		assert.Equal(t, []string{models.FieldFirstName, models.FieldLastName}, score.MatchedFields)
	})

	t.Run("OneSidedPhoneCountsAgainst", func(t *testing.T) {
		score := scorer.Score(
			models.PlayerAttributes{FirstName: "Jayson", LastName: "Tatum", Phone: models.Ptr("555-000-1111")},
			models.PlayerAttributes{FirstName: "Jayson", LastName: "Tatum"},
		)
		assert.InDelta(t, 4000.0/45.0, score.Similarity, 0.0001)
	})

	t.Run("NeutralFieldsExcludedFromWeight", func(t *testing.T) {
		score := scorer.Score(
			models.PlayerAttributes{FirstName: "Jayson", LastName: "Tatum", DateOfBirth: date(1998, time.March, 3)},
			models.PlayerAttributes{FirstName: "Jayson", LastName: "Tatum", Nationality: models.Ptr("USA")},
		)
		assert.Equal(t, 100.0, score.Similarity)
	})

	t.Run("BirthYearReported", func(t *testing.T) {
		score := scorer.Score(
			models.PlayerAttributes{FirstName: "Jayson", LastName: "Tatum", DateOfBirth: date(1998, time.March, 3)},
			models.PlayerAttributes{FirstName: "Jayson", LastName: "Tatum", DateOfBirth: date(1998, time.July, 4)},
		)
		assert.InDelta(t, (100*20+100*20+50*20)/60.0, score.Similarity, 0.0001)
		assert.Contains(t, score.MatchedFields, models.FieldBirthYear)
		assert.NotContains(t, score.MatchedFields, models.FieldDateOfBirth)
	})

	t.Run("AllFieldsAgree", func(t *testing.T) {
		attrs := models.PlayerAttributes{
			FirstName:   "Jayson",
			LastName:    "Tatum",
			Email:       models.Ptr("jt@example.com"),
			Phone:       models.Ptr("555-000-1111"),
			Height:      models.Ptr(`6'8"`),
			DateOfBirth: date(1998, time.March, 3),
			Nationality: models.Ptr("USA"),
		}
		stored := attrs
		stored.Height = models.Ptr("80 inches")

		score := scorer.Score(attrs, stored)
		assert.Equal(t, 100.0, score.Similarity)
		assert.Len(t, score.MatchedFields, 7)
	})
}

func TestScorer_ZeroWeightTotal(t *testing.T) {
	profile := ScoringProfile{
		Name:           "phone-only",
		Weights:        map[string]float64{models.FieldPhone: 5},
		FuzzyThreshold: 50,
	}
	scorer := NewScorer(profile)

	score := scorer.Score(
		models.PlayerAttributes{FirstName: "A", LastName: "B"},
		models.PlayerAttributes{FirstName: "A", LastName: "B"},
	)
	assert.Equal(t, 0.0, score.Similarity)
	assert.Empty(t, score.MatchedFields)
}

func TestScorer_StrictProfileIgnoresNationality(t *testing.T) {
	scorer := NewScorer(StrictProfile())

	score := scorer.Score(
		models.PlayerAttributes{FirstName: "Luka", LastName: "Doncic", Nationality: models.Ptr("Slovenia")},
		models.PlayerAttributes{FirstName: "Luka", LastName: "Doncic", Nationality: models.Ptr("Serbia")},
	)
	assert.Equal(t, 100.0, score.Similarity)
	assert.NotContains(t, score.MatchedFields, models.FieldNationality)
}

func TestScoringProfile(t *testing.T) {
	t.Run("BuiltInsAreValid", func(t *testing.T) {
		require.NoError(t, StandardProfile().Validate())
		require.NoError(t, StrictProfile().Validate())
	})

	t.Run("ByName", func(t *testing.T) {
		p, err := ProfileByName("strict")
		require.NoError(t, err)
		assert.Equal(t, 98.0, p.FuzzyThreshold)
		assert.False(t, p.ExactMatch)

		p, err = ProfileByName("")
		require.NoError(t, err)
		assert.Equal(t, 75.0, p.FuzzyThreshold)
		assert.True(t, p.ExactMatch)

		_, err = ProfileByName("lenient")
		assert.Error(t, err)
	})

	t.Run("Overrides", func(t *testing.T) {
		base := StandardProfile()
		p := base.WithOverrides(80, map[string]float64{models.FieldEmail: 40})

		assert.Equal(t, 80.0, p.FuzzyThreshold)
		assert.Equal(t, 40.0, p.Weights[models.FieldEmail])
		assert.Equal(t, 20.0, p.Weights[models.FieldFirstName])
		assert.Equal(t, 10.0, base.Weights[models.FieldEmail], "base profile must not change")
	})

	t.Run("Invalid", func(t *testing.T) {
		tests := []struct {
			name    string
			profile ScoringProfile
		}{
			{"threshold zero", StandardProfile().withThreshold(0)},
			{"threshold above 100", StandardProfile().withThreshold(101)},
			{"negative weight", StandardProfile().WithOverrides(0, map[string]float64{models.FieldPhone: -1})},
			{"unknown field", StandardProfile().WithOverrides(0, map[string]float64{"shoeSize": 1})},
			{"no weights", ScoringProfile{Name: "empty", FuzzyThreshold: 75}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.Error(t, tt.profile.Validate())
			})
		}
	})
}

func (p ScoringProfile) withThreshold(threshold float64) ScoringProfile {
	p.FuzzyThreshold = threshold
	return p
}
