package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"", "abc", 3},
		{"abc", "", 3},
		{"durant", "durant", 0},
		{"josé", "jose", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"->"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.expected, EditDistance(tt.a, tt.b))
			assert.Equal(t, tt.expected, EditDistance(tt.b, tt.a))
		})
	}
}

func TestEditSimilarity(t *testing.T) {
	assert.Equal(t, 100.0, EditSimilarity("", ""))
	assert.Equal(t, 100.0, EditSimilarity("curry", "curry"))
	assert.Equal(t, 0.0, EditSimilarity("", "curry"))
	assert.Equal(t, 0.0, EditSimilarity("curry", ""))
	assert.InDelta(t, 80.0, EditSimilarity("curry", "curty"), 0.0001)
	assert.InDelta(t, 100.0*4/7, EditSimilarity("kitten", "sitting"), 0.0001)
}

func TestJaroWinkler(t *testing.T) {
	t.Run("ReferenceValues", func(t *testing.T) {
		assert.InDelta(t, 96.1, JaroWinkler("MARTHA", "MARHTA"), 0.5)
		assert.InDelta(t, 84.0, JaroWinkler("DWAYNE", "DUANE"), 0.5)
		assert.InDelta(t, 81.3, JaroWinkler("DIXON", "DICKSONX"), 0.5)
	})

	t.Run("Equality", func(t *testing.T) {
		assert.Equal(t, 100.0, JaroWinkler("", ""))
		assert.Equal(t, 100.0, JaroWinkler("james", "james"))
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, 0.0, JaroWinkler("", "james"))
		assert.Equal(t, 0.0, JaroWinkler("james", ""))
	})

	t.Run("NoCommonCharacters", func(t *testing.T) {
		assert.Equal(t, 0.0, JaroWinkler("abc", "xyz"))
	})

	t.Run("PrefixBoostExceedsJaro", func(t *testing.T) {
		assert.Greater(t, JaroWinkler("MARTHA", "MARHTA"), Jaro("MARTHA", "MARHTA"))
	})
}

func TestCompare(t *testing.T) {
	t.Run("Reflexive", func(t *testing.T) {
		for _, s := range []string{"", "a", "LeBron James", "  o'neal ", "Giannis Antetokounmpo", "...", "Đorđević"} {
			assert.Equal(t, 100.0, Compare(s, s), s)
		}
	})

	t.Run("Symmetric", func(t *testing.T) {
		pairs := [][2]string{
			{"Jokic", "Jokić"},
			{"MARTHA", "MARHTA"},
			{"Antetokounmpo", "Adetokunbo"},
			{"", "Curry"},
			{"abcab", "bacba"},
			{"Smith", "Smyth-Jones"},
			{"crate", "trace"},
		}
		for _, p := range pairs {
			assert.Equal(t, Compare(p[0], p[1]), Compare(p[1], p[0]), "%s / %s", p[0], p[1])
		}
	})

	t.Run("NormalizesBeforeScoring", func(t *testing.T) {
		assert.Equal(t, 100.0, Compare("  LeBron   JAMES ", "lebron james"))
		assert.Equal(t, 100.0, Compare("O'Neal", "ONeal"))
	})

	t.Run("TakesMoreLenientAlgorithm", func(t *testing.T) {
		a, b := "martha", "marhta"
		assert.Equal(t, max(EditSimilarity(a, b), JaroWinkler(a, b)), Compare(a, b))
		assert.InDelta(t, 96.1, Compare(a, b), 0.5)
	})

	t.Run("Bounded", func(t *testing.T) {
		score := Compare("Doncic", "Porzingis")
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 100.0)
	})
}
