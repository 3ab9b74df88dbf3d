// Package similarity provides the string comparison kernel used to score player attributes.
// All scores are percentages in [0, 100].
package similarity

import (
	"github.com/agnivade/levenshtein"

	"github.com/Ramsey-B/clover/pkg/normalizers"
)

const (
	// winklerPrefixLimit caps the common prefix length rewarded by Jaro-Winkler
	winklerPrefixLimit = 4
	// winklerScalingFactor is the standard Winkler prefix weight
	winklerScalingFactor = 0.1
)

// Normalize prepares text for comparison
func Normalize(s string) string {
	return normalizers.Text(s)
}

// EditDistance returns the Levenshtein distance between a and b, counted in runes
func EditDistance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// EditSimilarity converts the edit distance into a percentage of the longer string
func EditSimilarity(a, b string) float64 {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	maxLen := max(len([]rune(a)), len([]rune(b)))
	distance := EditDistance(a, b)
	return float64(maxLen-distance) / float64(maxLen) * 100
}

// JaroWinkler calculates the Jaro-Winkler similarity between two strings as a percentage
func JaroWinkler(a, b string) float64 {
	if a == b {
		return 100
	}

	// the greedy match pass depends on operand order
	if a > b {
		a, b = b, a
	}

	ra, rb := []rune(a), []rune(b)
	jaro := jaroRunes(ra, rb)

	prefixLen := 0
	for i := 0; i < len(ra) && i < len(rb) && i < winklerPrefixLimit; i++ {
		if ra[i] != rb[i] {
			break
		}
		prefixLen++
	}

	return (jaro + float64(prefixLen)*winklerScalingFactor*(1.0-jaro)) * 100
}

// Jaro calculates the Jaro similarity between two strings as a percentage
func Jaro(a, b string) float64 {
	if a == b {
		return 100
	}
	if a > b {
		a, b = b, a
	}
	return jaroRunes([]rune(a), []rune(b)) * 100
}

func jaroRunes(a, b []rune) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	// Maximum distance for character matching
	matchDist := max(len(a), len(b))/2 - 1
	if matchDist < 0 {
		matchDist = 0
	}

	aMatches := make([]bool, len(a))
	bMatches := make([]bool, len(b))

	matches := 0
	for i := range a {
		start := max(0, i-matchDist)
		end := min(len(b), i+matchDist+1)

		for j := start; j < end; j++ {
			if bMatches[j] || a[i] != b[j] {
				continue
			}
			aMatches[i] = true
			bMatches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := range a {
		if !aMatches[i] {
			continue
		}
		for !bMatches[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2

	return (m/float64(len(a)) + m/float64(len(b)) + (m-t)/m) / 3
}

// Compare normalizes both inputs and returns the more lenient of edit similarity and Jaro-Winkler
func Compare(a, b string) float64 {
	a, b = Normalize(a), Normalize(b)
	return max(EditSimilarity(a, b), JaroWinkler(a, b))
}
