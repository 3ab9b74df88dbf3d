// Package importing creates and links players for a team, one row at a time.
//
// Each row is matched and applied inside its own store transaction, so a failed row leaves
// nothing behind while the rows around it still succeed.
package importing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/store"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/validation"
)

// Locker serializes work on a key across processes. *redis.Locker satisfies it.
// The context passed to fn is canceled if the lock is lost.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error
}

// Importer applies import rows to a team
type Importer struct {
	logger  ectologger.Logger
	store   store.Store
	matcher *matching.Matcher
	locker  Locker
	lockTTL time.Duration
	emitter *events.Emitter
}

// NewImporter creates a new Importer
func NewImporter(logger ectologger.Logger, st store.Store, matcher *matching.Matcher) *Importer {
	return &Importer{
		logger:  logger,
		store:   st,
		matcher: matcher,
	}
}

// WithLocker holds a per-team lock for the duration of each bulk import
func (im *Importer) WithLocker(locker Locker, ttl time.Duration) *Importer {
	c := *im
	c.locker = locker
	c.lockTTL = ttl
	return &c
}

// WithEmitter publishes an event for every created, linked and flagged row
func (im *Importer) WithEmitter(emitter *events.Emitter) *Importer {
	c := *im
	c.emitter = emitter
	return &c
}

// applied is what one row did inside its transaction
type applied struct {
	action models.RowAction
	match  models.MatchResult
	player *models.PlayerRecord
}

// BulkImportForTeam imports rows in order. Conflicts and invalid rows are reported in the result and do not
// stop the batch. A store failure or a canceled context stops it and returns the rows done so far with the error.
func (im *Importer) BulkImportForTeam(ctx context.Context, teamID int64, rows []models.ImportRow) (*models.BulkImportResult, error) {
	ctx, span := tracing.StartSpan(ctx, "importing.Importer.BulkImportForTeam")
	defer span.End()

	log := im.logger.WithContext(ctx).WithFields(map[string]any{
		"team_id":   teamID,
		"row_count": len(rows),
	})

	result := models.NewBulkImportResult(len(rows))
	run := func(ctx context.Context) error {
		for i, row := range rows {
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			if err := im.importRow(ctx, teamID, i, row, result); err != nil {
				return err
			}
		}
		return nil
	}

	var err error
	if im.locker != nil {
		err = im.locker.WithLock(ctx, teamLockKey(teamID), im.lockTTL, run)
	} else {
		err = run(ctx)
	}

	log = log.WithFields(map[string]any{
		"created":    result.Created,
		"linked":     result.Linked,
		"duplicates": result.Duplicates,
		"errors":     len(result.Errors),
	})
	if err != nil {
		log.WithError(err).Error("Bulk import stopped")
		return result, err
	}

	log.Info("Bulk import completed")
	return result, nil
}

// importRow applies one row and records its outcome. Only errors that must stop the batch are returned.
func (im *Importer) importRow(ctx context.Context, teamID int64, index int, row models.ImportRow, result *models.BulkImportResult) error {
	outcome := models.RowOutcome{RowIndex: index}

	res, err := im.applyRow(ctx, teamID, row)
	if err != nil {
		if stopsBatch(err) {
			return err
		}
		rowErr := models.NewRowError(index, err)
		outcome.Action = models.RowActionFailed
		outcome.Error = rowErr.Message
		result.Errors = append(result.Errors, rowErr)
		result.Records = append(result.Records, outcome)
		metrics.ImportRowsTotal.WithLabelValues(string(models.RowActionFailed)).Inc()

		im.logger.WithContext(ctx).WithError(err).WithField("row_index", index).Warn("Import row rejected")
		return nil
	}

	outcome.Action = res.action
	outcome.MatchType = res.match.MatchType
	outcome.SimilarityScore = res.match.SimilarityScore
	outcome.MatchedFields = res.match.MatchedFields
	if res.match.Player != nil {
		outcome.MatchedPlayerID = &res.match.Player.ID
	}
	if res.player != nil {
		outcome.PlayerID = &res.player.ID
	}

	switch res.action {
	case models.RowActionCreated:
		result.Created++
	case models.RowActionLinked:
		result.Linked++
	case models.RowActionDuplicate:
		result.Duplicates++
	}
	result.Records = append(result.Records, outcome)
	metrics.ImportRowsTotal.WithLabelValues(string(res.action)).Inc()

	im.emit(ctx, teamID, row, res)
	return nil
}

// CreateForTeam applies a single row. Conflicts are returned as errors and an unconfirmed potential
// duplicate is returned as a *models.DuplicateError. On success the created or linked player is returned.
func (im *Importer) CreateForTeam(ctx context.Context, teamID int64, row models.ImportRow) (*models.PlayerRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "importing.Importer.CreateForTeam")
	defer span.End()

	res, err := im.applyRow(ctx, teamID, row)
	if err != nil {
		metrics.ImportRowsTotal.WithLabelValues(string(models.RowActionFailed)).Inc()
		return nil, err
	}
	metrics.ImportRowsTotal.WithLabelValues(string(res.action)).Inc()
	im.emit(ctx, teamID, row, res)

	if res.action == models.RowActionDuplicate {
		return nil, &models.DuplicateError{Match: res.match}
	}
	return res.player, nil
}

// applyRow normalizes and validates the row, then matches and applies it in one transaction
func (im *Importer) applyRow(ctx context.Context, teamID int64, row models.ImportRow) (applied, error) {
	row.Candidate = row.Candidate.Normalized()
	if err := validation.Row(row); err != nil {
		return applied{}, err
	}

	var res applied
	err := im.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		match, err := im.matcher.With(tx).FindMatch(ctx, row.Candidate)
		if err != nil {
			return err
		}
		res = applied{match: match}

		switch match.MatchType {
		case models.MatchTypeExact:
			res.action = models.RowActionLinked
			res.player = match.Player
			return linkToTeam(ctx, tx, match.Player.ID, teamID, row.JerseyNumber)
		case models.MatchTypePotentialDuplicate:
			if !row.Candidate.ConfirmDuplicate {
				res.action = models.RowActionDuplicate
				return nil
			}
		}

		player, err := createForTeam(ctx, tx, teamID, row)
		if err != nil {
			return err
		}
		res.action = models.RowActionCreated
		res.player = player
		return nil
	})
	if err != nil {
		return applied{}, err
	}
	return res, nil
}

// createForTeam inserts the candidate and gives it a membership on the team
func createForTeam(ctx context.Context, tx store.Store, teamID int64, row models.ImportRow) (*models.PlayerRecord, error) {
	if row.JerseyNumber != nil {
		if err := requireFreeJersey(ctx, tx, teamID, *row.JerseyNumber, 0); err != nil {
			return nil, err
		}
	}
	if row.Candidate.Email != nil {
		owner, err := tx.FindByEmail(ctx, *row.Candidate.Email)
		if err != nil {
			return nil, models.StoreError("find by email", err)
		}
		if owner != nil {
			return nil, models.EmailConflictError(*row.Candidate.Email)
		}
	}

	player, err := tx.Insert(ctx, row.Candidate.ToRecord())
	if err != nil {
		return nil, models.StoreError("insert player", err)
	}

	_, err = tx.AddMembership(ctx, &models.TeamMembership{
		PlayerID:     player.ID,
		TeamID:       teamID,
		JerseyNumber: row.JerseyNumber,
		IsActive:     true,
	})
	if err != nil {
		return nil, models.StoreError("add membership", err)
	}
	return player, nil
}

// linkToTeam gives an existing player an active membership on the team.
// A player already active on the team keeps that membership unless a different jersey is requested,
// in which case the old membership is closed and a new one opens with the requested number.
func linkToTeam(ctx context.Context, tx store.Store, playerID, teamID int64, jersey *int) error {
	memberships, err := tx.ListMembershipsFor(ctx, playerID)
	if err != nil {
		return models.StoreError("list memberships", err)
	}

	var current *models.TeamMembership
	for i := range memberships {
		if memberships[i].TeamID == teamID && memberships[i].IsActive {
			current = &memberships[i]
			break
		}
	}
	if current != nil && (jersey == nil || wears(current, *jersey)) {
		return nil
	}

	if jersey != nil {
		if err := requireFreeJersey(ctx, tx, teamID, *jersey, playerID); err != nil {
			return err
		}
	}
	if current != nil {
		if err := tx.DeactivateMembership(ctx, current.ID, time.Now().UTC()); err != nil {
			return models.StoreError("deactivate membership", err)
		}
	}

	_, err = tx.AddMembership(ctx, &models.TeamMembership{
		PlayerID:     playerID,
		TeamID:       teamID,
		JerseyNumber: jersey,
		IsActive:     true,
	})
	if err != nil {
		return models.StoreError("add membership", err)
	}
	return nil
}

func wears(m *models.TeamMembership, jersey int) bool {
	return m.JerseyNumber != nil && *m.JerseyNumber == jersey
}

// requireFreeJersey fails with a jersey conflict when someone other than playerID wears jersey on the team
func requireFreeJersey(ctx context.Context, tx store.Store, teamID int64, jersey int, playerID int64) error {
	holder, err := tx.ActiveJerseyHolder(ctx, teamID, jersey)
	if err != nil {
		return models.StoreError("find jersey holder", err)
	}
	if holder != nil && holder.PlayerID != playerID {
		return models.JerseyConflictError(teamID, jersey)
	}
	return nil
}

// emit publishes the row's event. Failures are logged only.
func (im *Importer) emit(ctx context.Context, teamID int64, row models.ImportRow, res applied) {
	if im.emitter == nil {
		return
	}

	var err error
	switch res.action {
	case models.RowActionCreated:
		err = im.emitter.EmitPlayerCreated(ctx, res.player, teamID, row.JerseyNumber)
	case models.RowActionLinked:
		err = im.emitter.EmitPlayerLinked(ctx, res.match, teamID, row.JerseyNumber)
	case models.RowActionDuplicate:
		err = im.emitter.EmitDuplicateFlagged(ctx, res.match, teamID)
	}
	if err != nil {
		im.logger.WithContext(ctx).WithError(err).WithField("team_id", teamID).Warn("Failed to emit import event")
	}
}

// stopsBatch reports whether err ends a bulk import rather than a single row
func stopsBatch(err error) bool {
	return errors.Is(err, models.ErrStoreUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func teamLockKey(teamID int64) string {
	return fmt.Sprintf("import:team:%d", teamID)
}
