// Package merging folds a duplicate player into a target player.
package merging

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/store"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Engine merges players
type Engine struct {
	logger   ectologger.Logger
	store    store.Store
	emitter  *events.Emitter
	backfill bool
	now      func() time.Time
}

// NewEngine creates a new merge engine. Back-fill is enabled.
func NewEngine(logger ectologger.Logger, st store.Store) *Engine {
	return &Engine{
		logger:   logger,
		store:    st,
		backfill: true,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithBackfill controls whether attributes missing on the target are copied from the duplicate
func (e *Engine) WithBackfill(enabled bool) *Engine {
	c := *e
	c.backfill = enabled
	return &c
}

// WithEmitter publishes player.merged after each successful merge
func (e *Engine) WithEmitter(emitter *events.Emitter) *Engine {
	c := *e
	c.emitter = emitter
	return &c
}

// MergePlayers moves every membership, stat and roster entry of duplicateID onto targetID and deletes duplicateID.
// The whole merge runs in one transaction; on error the store is left as it was.
func (e *Engine) MergePlayers(ctx context.Context, duplicateID, targetID int64) (*models.PlayerRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.MergePlayers")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"duplicate_id": duplicateID,
		"target_id":    targetID,
	})

	if duplicateID == targetID {
		metrics.MergesTotal.WithLabelValues("rejected").Inc()
		return nil, models.ErrSelfMerge
	}

	var target *models.PlayerRecord
	err := e.store.RunInTx(ctx, func(ctx context.Context, tx store.Store) error {
		var err error
		target, err = e.merge(ctx, tx, duplicateID, targetID)
		return err
	})
	if err != nil {
		metrics.MergesTotal.WithLabelValues("failed").Inc()
		log.WithError(err).Error("Failed to merge players")
		return nil, err
	}

	metrics.MergesTotal.WithLabelValues("merged").Inc()
	log.Info("Merged players")

	if e.emitter != nil {
		if err := e.emitter.EmitPlayerMerged(ctx, duplicateID, targetID); err != nil {
			log.WithError(err).Warn("Failed to emit merge event")
		}
	}
	return target, nil
}

func (e *Engine) merge(ctx context.Context, tx store.Store, duplicateID, targetID int64) (*models.PlayerRecord, error) {
	duplicate, err := tx.GetByID(ctx, duplicateID)
	if err != nil {
		return nil, models.StoreError("get duplicate", err)
	}
	target, err := tx.GetByID(ctx, targetID)
	if err != nil {
		return nil, models.StoreError("get target", err)
	}

	if err := e.moveMemberships(ctx, tx, duplicateID, targetID); err != nil {
		return nil, err
	}
	if err := moveStats(ctx, tx, duplicateID, targetID); err != nil {
		return nil, err
	}
	if err := moveRosterEntries(ctx, tx, duplicateID, targetID); err != nil {
		return nil, err
	}
	if err := deleteRemainingMemberships(ctx, tx, duplicateID); err != nil {
		return nil, err
	}
	if err := tx.DeleteRecord(ctx, duplicateID); err != nil {
		return nil, models.StoreError("delete duplicate", err)
	}

	if e.backfill {
		if patch := backfillPatch(target, duplicate); !patch.IsEmpty() {
			if target, err = tx.Update(ctx, targetID, patch); err != nil {
				return nil, models.StoreError("backfill target", err)
			}
		}
	}

	return tx.GetByID(ctx, targetID)
}

// moveMemberships reassigns the duplicate's active memberships. On a team where the target is
// already active the duplicate's membership is deactivated instead.
func (e *Engine) moveMemberships(ctx context.Context, tx store.Store, duplicateID, targetID int64) error {
	targetMemberships, err := tx.ListMembershipsFor(ctx, targetID)
	if err != nil {
		return models.StoreError("list target memberships", err)
	}
	activeTeams := map[int64]bool{}
	for _, m := range targetMemberships {
		if m.IsActive {
			activeTeams[m.TeamID] = true
		}
	}

	memberships, err := tx.ListMembershipsFor(ctx, duplicateID)
	if err != nil {
		return models.StoreError("list duplicate memberships", err)
	}
	for _, m := range memberships {
		if !m.IsActive {
			continue
		}
		if activeTeams[m.TeamID] {
			if err := tx.DeactivateMembership(ctx, m.ID, e.now()); err != nil {
				return models.StoreError("deactivate membership", err)
			}
			continue
		}
		if err := tx.ReassignMembership(ctx, m.ID, targetID); err != nil {
			return models.StoreError("reassign membership", err)
		}
		activeTeams[m.TeamID] = true
	}
	return nil
}

func moveStats(ctx context.Context, tx store.Store, duplicateID, targetID int64) error {
	stats, err := tx.ListStatsFor(ctx, duplicateID)
	if err != nil {
		return models.StoreError("list stats", err)
	}
	for _, s := range stats {
		if err := tx.ReassignStat(ctx, s.ID, targetID); err != nil {
			return models.StoreError("reassign stat", err)
		}
	}
	return nil
}

// moveRosterEntries reassigns the duplicate's match entries, dropping those for matches the target already played
func moveRosterEntries(ctx context.Context, tx store.Store, duplicateID, targetID int64) error {
	targetEntries, err := tx.ListRosterEntriesFor(ctx, targetID)
	if err != nil {
		return models.StoreError("list target roster entries", err)
	}
	matches := map[int64]bool{}
	for _, r := range targetEntries {
		matches[r.MatchID] = true
	}

	entries, err := tx.ListRosterEntriesFor(ctx, duplicateID)
	if err != nil {
		return models.StoreError("list duplicate roster entries", err)
	}
	for _, r := range entries {
		if matches[r.MatchID] {
			if err := tx.DeleteRosterEntry(ctx, r.ID); err != nil {
				return models.StoreError("delete roster entry", err)
			}
			continue
		}
		if err := tx.ReassignRosterEntry(ctx, r.ID, targetID); err != nil {
			return models.StoreError("reassign roster entry", err)
		}
		matches[r.MatchID] = true
	}
	return nil
}

// deleteRemainingMemberships removes what is left on the duplicate, which is only inactive memberships by now
func deleteRemainingMemberships(ctx context.Context, tx store.Store, duplicateID int64) error {
	memberships, err := tx.ListMembershipsFor(ctx, duplicateID)
	if err != nil {
		return models.StoreError("list remaining memberships", err)
	}
	for _, m := range memberships {
		if err := tx.DeleteMembership(ctx, m.ID); err != nil {
			return models.StoreError("delete membership", err)
		}
	}
	return nil
}

// backfillPatch fills attributes the target lacks with the duplicate's values
func backfillPatch(target, duplicate *models.PlayerRecord) models.PlayerPatch {
	var patch models.PlayerPatch
	if target.Email == nil && duplicate.Email != nil {
		patch.Email = duplicate.Email
	}
	if target.Phone == nil && duplicate.Phone != nil {
		patch.Phone = duplicate.Phone
	}
	if target.Height == nil && duplicate.Height != nil {
		patch.Height = duplicate.Height
	}
	if target.DateOfBirth == nil && duplicate.DateOfBirth != nil {
		patch.DateOfBirth = duplicate.DateOfBirth
	}
	if target.Nationality == nil && duplicate.Nationality != nil {
		patch.Nationality = duplicate.Nationality
	}
	if target.Position == nil && duplicate.Position != nil {
		patch.Position = duplicate.Position
	}
	return patch
}
