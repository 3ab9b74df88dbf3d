// Package matching decides whether a candidate player is already known.
//
// A candidate first goes through the exact path (case-insensitive first and last name plus
// date of birth). Failing that, a cheap prefilter bounds the stored records that are scored
// field by field and combined into a weighted similarity.
package matching

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/store"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// prefixLength is the number of name characters used by the prefilter
const prefixLength = 2

// Config contains configuration for the matcher.
type Config struct {
	Profile       ScoringProfile
	MaxCandidates int // Maximum prefiltered records scored per candidate (default: 500)
}

// DefaultConfig returns the standard profile with a bounded candidate set.
func DefaultConfig() Config {
	return Config{
		Profile:       StandardProfile(),
		MaxCandidates: 500,
	}
}

// Matcher classifies candidates against a player store
type Matcher struct {
	log    ectologger.Logger
	store  store.PlayerReader
	scorer *Scorer
	cfg    Config
}

// NewMatcher creates a new Matcher.
func NewMatcher(log ectologger.Logger, st store.PlayerReader, cfg Config) *Matcher {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultConfig().MaxCandidates
	}
	return &Matcher{
		log:    log,
		store:  st,
		scorer: NewScorer(cfg.Profile),
		cfg:    cfg,
	}
}

// With returns a matcher reading from st, typically a transaction-bound store
func (m *Matcher) With(st store.PlayerReader) *Matcher {
	c := *m
	c.store = st
	return &c
}

// Profile returns the active scoring profile
func (m *Matcher) Profile() ScoringProfile {
	return m.cfg.Profile
}

// FindMatch classifies one candidate. A NO_MATCH is a normal result; only store failures return an error.
func (m *Matcher) FindMatch(ctx context.Context, candidate models.CandidateInput) (models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Matcher.FindMatch")
	defer span.End()

	start := time.Now()
	log := m.log.WithContext(ctx).WithFields(map[string]any{
		"first_name": candidate.FirstName,
		"last_name":  candidate.LastName,
		"profile":    m.cfg.Profile.Name,
	})

	result, err := m.findMatch(ctx, log, candidate)
	if err != nil {
		return models.MatchResult{}, err
	}

	metrics.MatchDecisionsTotal.WithLabelValues(string(result.MatchType)).Inc()
	metrics.MatchDuration.WithLabelValues(string(result.MatchType)).Observe(time.Since(start).Seconds())

	return result, nil
}

func (m *Matcher) findMatch(ctx context.Context, log ectologger.Logger, candidate models.CandidateInput) (models.MatchResult, error) {
	if m.cfg.Profile.ExactMatch && candidate.DateOfBirth != nil {
		exact, err := m.store.FindExact(ctx, candidate.FirstName, candidate.LastName, models.DateOnly(*candidate.DateOfBirth))
		if err != nil {
			metrics.StoreErrorsTotal.WithLabelValues("find_exact").Inc()
			log.WithError(err).Error("Failed to query exact matches")
			return models.MatchResult{}, models.StoreError("find exact", err)
		}
		if len(exact) > 0 {
			player := lowestID(exact)
			log.WithField("player_id", player.ID).Debug("Exact match found")
			return models.MatchResult{
				MatchType:       models.MatchTypeExact,
				Player:          &player,
				SimilarityScore: 100,
				MatchedFields:   []string{models.FieldFirstName, models.FieldLastName, models.FieldDateOfBirth},
			}, nil
		}
	}

	criteria := m.prefilter(candidate)
	if criteria.IsEmpty() {
		log.Debug("Candidate has no prefilter criteria")
		return models.NoMatch(), nil
	}

	records, err := m.store.FindPrefiltered(ctx, criteria)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("find_prefiltered").Inc()
		log.WithError(err).Error("Failed to query prefiltered candidates")
		return models.MatchResult{}, models.StoreError("find prefiltered", err)
	}
	metrics.CandidatesScored.Observe(float64(len(records)))

	best, bestScore := m.best(candidate.Attributes(), records)
	if best == nil || bestScore.Similarity < m.cfg.Profile.FuzzyThreshold {
		log.WithField("candidate_count", len(records)).Debug("No match above threshold")
		return models.NoMatch(), nil
	}

	log.WithFields(map[string]any{
		"player_id":        best.ID,
		"similarity_score": bestScore.Similarity,
		"matched_fields":   bestScore.MatchedFields,
	}).Debug("Potential duplicate found")

	return models.MatchResult{
		MatchType:       models.MatchTypePotentialDuplicate,
		Player:          best,
		SimilarityScore: bestScore.Similarity,
		MatchedFields:   bestScore.MatchedFields,
	}, nil
}

// best returns the highest scoring record, preferring the lower id on ties
func (m *Matcher) best(candidate models.PlayerAttributes, records []models.PlayerRecord) (*models.PlayerRecord, Score) {
	var best *models.PlayerRecord
	var bestScore Score
	for i := range records {
		score := m.scorer.Score(candidate, records[i].Attributes())
		if best == nil ||
			score.Similarity > bestScore.Similarity ||
			(score.Similarity == bestScore.Similarity && records[i].ID < best.ID) {
			best = &records[i]
			bestScore = score
		}
	}
	return best, bestScore
}

func lowestID(records []models.PlayerRecord) models.PlayerRecord {
	lowest := records[0]
	for _, r := range records[1:] {
		if r.ID < lowest.ID {
			lowest = r
		}
	}
	return lowest
}

func (m *Matcher) prefilter(candidate models.CandidateInput) models.Prefilter {
	criteria := models.Prefilter{
		LastNamePrefix:  normalizers.Prefix(candidate.LastName, prefixLength),
		FirstNamePrefix: normalizers.Prefix(candidate.FirstName, prefixLength),
		Limit:           m.cfg.MaxCandidates,
	}
	if present(candidate.Email) {
		criteria.Email = normalizers.Email(*candidate.Email)
	}
	return criteria
}

// FindMatchesBatch classifies candidates in order. The result is index-aligned with the input.
// The context is checked between candidates.
func (m *Matcher) FindMatchesBatch(ctx context.Context, candidates []models.CandidateInput) ([]models.MatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Matcher.FindMatchesBatch")
	defer span.End()

	results := make([]models.MatchResult, 0, len(candidates))
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := m.FindMatch(ctx, candidates[i])
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}
