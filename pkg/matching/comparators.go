package matching

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/similarity"
)

// FieldScore is one attribute's comparison outcome
type FieldScore struct {
	// Key is the weight key the score contributes to
	Key string `json:"key"`
	// Field is the name reported when counted; differs from Key for partial date-of-birth credit
	Field   string  `json:"field"`
	Score   float64 `json:"score"`
	Counted bool    `json:"counted"`
	// Neutral fields are excluded from both the score and the weight total
	Neutral bool `json:"neutral"`
}

func neutral(key string) FieldScore {
	return FieldScore{Key: key, Field: key, Neutral: true}
}

func scored(key string, score, cutoff float64) FieldScore {
	return FieldScore{Key: key, Field: key, Score: score, Counted: score >= cutoff}
}

func present(v *string) bool {
	return v != nil && strings.TrimSpace(*v) != ""
}

// CompareName scores a first or last name
func CompareName(key, candidate, stored string, cutoff float64) FieldScore {
	return scored(key, similarity.Compare(candidate, stored), cutoff)
}

// CompareEmail gives full credit to a case-insensitive exact match and partial credit otherwise
func CompareEmail(candidate, stored *string, cutoff float64) FieldScore {
	switch {
	case !present(candidate) && !present(stored):
		return neutral(models.FieldEmail)
	case !present(candidate) || !present(stored):
		return scored(models.FieldEmail, 0, cutoff)
	}

	if normalizers.Email(*candidate) == normalizers.Email(*stored) {
		return scored(models.FieldEmail, 100, cutoff)
	}
	return scored(models.FieldEmail, similarity.Compare(*candidate, *stored), cutoff)
}

// ComparePhone compares digit strings exactly
func ComparePhone(candidate, stored *string, cutoff float64) FieldScore {
	a, b := digits(candidate), digits(stored)
	switch {
	case a == "" && b == "":
		return neutral(models.FieldPhone)
	case a == "" || b == "":
		return scored(models.FieldPhone, 0, cutoff)
	case a == b:
		return scored(models.FieldPhone, 100, cutoff)
	default:
		return scored(models.FieldPhone, 0, cutoff)
	}
}

func digits(v *string) string {
	if v == nil {
		return ""
	}
	return normalizers.DigitsOnly(*v)
}

// CompareDateOfBirth gives full credit to the same date and half credit to the same year.
// Absence on either side is neutral.
func CompareDateOfBirth(candidate, stored *time.Time, cutoff float64) FieldScore {
	if candidate == nil || stored == nil {
		return neutral(models.FieldDateOfBirth)
	}

	switch {
	case models.SameDate(*candidate, *stored):
		return scored(models.FieldDateOfBirth, 100, cutoff)
	case candidate.Year() == stored.Year():
		return FieldScore{
			Key:     models.FieldDateOfBirth,
			Field:   models.FieldBirthYear,
			Score:   50,
			Counted: true,
		}
	default:
		return scored(models.FieldDateOfBirth, 0, cutoff)
	}
}

// CompareNationality scores nationality text. Absence on either side is neutral.
func CompareNationality(candidate, stored *string, cutoff float64) FieldScore {
	if !present(candidate) || !present(stored) {
		return neutral(models.FieldNationality)
	}
	return scored(models.FieldNationality, similarity.Compare(*candidate, *stored), cutoff)
}

// CompareHeight scores heights by inch difference, falling back to text comparison when either side does not parse
func CompareHeight(candidate, stored *string, cutoff float64) FieldScore {
	switch {
	case !present(candidate) && !present(stored):
		return neutral(models.FieldHeight)
	case !present(candidate) || !present(stored):
		return scored(models.FieldHeight, 0, cutoff)
	}

	a, okA := ParseHeight(*candidate)
	b, okB := ParseHeight(*stored)
	if !okA || !okB {
		return scored(models.FieldHeight, similarity.Compare(*candidate, *stored), cutoff)
	}
	return scored(models.FieldHeight, HeightScore(math.Abs(a-b)), cutoff)
}

// HeightScore converts an absolute inch difference to a score
func HeightScore(diff float64) float64 {
	switch {
	case diff == 0:
		return 100
	case diff <= 1:
		return 95
	case diff <= 2:
		return 85
	default:
		return math.Max(0, 100-diff*10)
	}
}

var (
	heightInches     = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(?:inches|in|"|'')$`)
	heightFeetInches = regexp.MustCompile(`^(\d+)\s*'\s*(?:(\d+(?:\.\d+)?)\s*(?:"|'')?)?$`)
	heightDashed     = regexp.MustCompile(`^(\d+)\s*-\s*(\d+(?:\.\d+)?)$`)
)

// ParseHeight converts free-text height into inches.
// Recognized: `77 inches`, `77in`, `77"`, `77''`, `6'5"`, `6'`, `6-5`.
func ParseHeight(s string) (float64, bool) {
	s = strings.TrimSpace(s)

	if m := heightInches.FindStringSubmatch(s); m != nil {
		inches, err := strconv.ParseFloat(m[1], 64)
		return inches, err == nil
	}

	var feetStr, inchStr string
	if m := heightFeetInches.FindStringSubmatch(s); m != nil {
		feetStr, inchStr = m[1], m[2]
	} else if m := heightDashed.FindStringSubmatch(s); m != nil {
		feetStr, inchStr = m[1], m[2]
	} else {
		return 0, false
	}

	feet, err := strconv.ParseFloat(feetStr, 64)
	if err != nil {
		return 0, false
	}
	inches := 0.0
	if inchStr != "" {
		if inches, err = strconv.ParseFloat(inchStr, 64); err != nil {
			return 0, false
		}
	}
	return feet*12 + inches, true
}
