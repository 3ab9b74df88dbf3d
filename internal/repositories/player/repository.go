// Package player is the Postgres implementation of the player store.
package player

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/store"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const (
	uniqueViolation = "23505"

	emailIndex        = "players_email_unique_idx"
	activeJerseyIndex = "team_memberships_active_jersey_idx"
)

var (
	playerColumns     = []string{"id", "first_name", "last_name", "email", "phone", "height", "date_of_birth", "nationality", "position", "created_at", "updated_at"}
	membershipColumns = []string{"id", "player_id", "team_id", "jersey_number", "is_active", "started_at", "ended_at"}
	statColumns       = []string{"id", "player_id", "match_id", "stat", "value"}
	rosterColumns     = []string{"id", "player_id", "match_id", "team_id", "starter"}
)

// Repository handles player and roster persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

var _ store.Store = (*Repository)(nil)

// NewRepository creates a new player repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// RunInTx runs fn inside a database transaction bound to the context passed to fn
func (r *Repository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.RunInTx")
	defer span.End()

	ctxTx, tx, err := r.db.GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return models.StoreError("begin transaction", err)
	}
	defer tx.Rollback(ctxTx)

	if err := fn(ctxTx, r); err != nil {
		return err
	}

	if err := tx.Commit(ctxTx); err != nil {
		return models.StoreError("commit transaction", err)
	}
	return nil
}

// FindExact finds players by case-insensitive first and last name and date of birth
func (r *Repository) FindExact(ctx context.Context, firstName, lastName string, dob time.Time) ([]models.PlayerRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.FindExact")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(playerColumns...)
	sb.From("players")
	sb.Where(
		sb.Equal("LOWER(TRIM(first_name))", normalizers.Name(firstName)),
		sb.Equal("LOWER(TRIM(last_name))", normalizers.Name(lastName)),
		sb.Equal("date_of_birth", models.DateOnly(dob)),
	)
	sb.OrderBy("id").Asc()

	query, args := sb.Build()
	players := []models.PlayerRecord{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &players, query, args...); err != nil {
		return nil, r.fail(ctx, "find exact", err)
	}
	return players, nil
}

// FindPrefiltered finds players whose names start with the given prefixes or whose email matches
func (r *Repository) FindPrefiltered(ctx context.Context, criteria models.Prefilter) ([]models.PlayerRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.FindPrefiltered")
	defer span.End()

	if criteria.IsEmpty() {
		return []models.PlayerRecord{}, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(playerColumns...)
	sb.From("players")

	conditions := []string{}
	if criteria.LastNamePrefix != "" {
		conditions = append(conditions, sb.Like("LOWER(TRIM(last_name))", escapeLike(criteria.LastNamePrefix)+"%"))
	}
	if criteria.FirstNamePrefix != "" {
		conditions = append(conditions, sb.Like("LOWER(TRIM(first_name))", escapeLike(criteria.FirstNamePrefix)+"%"))
	}
	if criteria.Email != "" {
		conditions = append(conditions, sb.Equal("LOWER(email)", normalizers.Email(criteria.Email)))
	}
	sb.Where(sb.Or(conditions...))
	sb.OrderBy("id").Asc()
	if criteria.Limit > 0 {
		sb.Limit(criteria.Limit)
	}

	query, args := sb.Build()
	players := []models.PlayerRecord{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &players, query, args...); err != nil {
		return nil, r.fail(ctx, "find prefiltered", err)
	}
	return players, nil
}

// FindByEmail returns the player owning email, or nil
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.PlayerRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.FindByEmail")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(playerColumns...)
	sb.From("players")
	sb.Where(sb.Equal("LOWER(email)", normalizers.Email(email)))
	sb.OrderBy("id").Asc()
	sb.Limit(1)

	query, args := sb.Build()
	var player models.PlayerRecord
	if err := r.db.Querier(ctx).GetContext(ctx, &player, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, r.fail(ctx, "find by email", err)
	}
	return &player, nil
}

// GetByID retrieves a player by ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.PlayerRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(playerColumns...)
	sb.From("players")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var player models.PlayerRecord
	if err := r.db.Querier(ctx).GetContext(ctx, &player, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.PlayerNotFoundError(id)
		}
		return nil, r.fail(ctx, "get player", err)
	}
	return &player, nil
}

// Insert creates a player and returns it with its assigned id
func (r *Repository) Insert(ctx context.Context, record *models.PlayerRecord) (*models.PlayerRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.Insert")
	defer span.End()

	now := time.Now().UTC()
	var dob *time.Time
	if record.DateOfBirth != nil {
		d := models.DateOnly(*record.DateOfBirth)
		dob = &d
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("players")
	ib.Cols("first_name", "last_name", "email", "phone", "height", "date_of_birth", "nationality", "position", "created_at", "updated_at")
	ib.Values(record.FirstName, record.LastName, record.Email, record.Phone, record.Height, dob, record.Nationality, record.Position, now, now)
	ib.Returning(playerColumns...)

	query, args := ib.Build()
	var player models.PlayerRecord
	if err := r.db.Querier(ctx).GetContext(ctx, &player, query, args...); err != nil {
		if conflict := conflictError(err, record.Email, nil); conflict != nil {
			return nil, conflict
		}
		return nil, r.fail(ctx, "insert player", err)
	}

	r.logger.WithContext(ctx).WithField("player_id", player.ID).Debug("Inserted player")
	return &player, nil
}

// Update applies patch to the player and returns the updated record
func (r *Repository) Update(ctx context.Context, id int64, patch models.PlayerPatch) (*models.PlayerRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.Update")
	defer span.End()

	if patch.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("players")
	assignments := []string{ub.Assign("updated_at", time.Now().UTC())}
	assign := func(col string, v any) {
		assignments = append(assignments, ub.Assign(col, v))
	}
	if patch.FirstName != nil {
		assign("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		assign("last_name", *patch.LastName)
	}
	if patch.Email != nil {
		assign("email", *patch.Email)
	}
	if patch.Phone != nil {
		assign("phone", *patch.Phone)
	}
	if patch.Height != nil {
		assign("height", *patch.Height)
	}
	if patch.DateOfBirth != nil {
		assign("date_of_birth", models.DateOnly(*patch.DateOfBirth))
	}
	if patch.Nationality != nil {
		assign("nationality", *patch.Nationality)
	}
	if patch.Position != nil {
		assign("position", *patch.Position)
	}
	ub.Set(assignments...)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	result, err := r.db.Querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		if conflict := conflictError(err, patch.Email, nil); conflict != nil {
			return nil, conflict
		}
		return nil, r.fail(ctx, "update player", err)
	}
	if err := requireRow(result, models.PlayerNotFoundError(id)); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// DeleteRecord removes a player
func (r *Repository) DeleteRecord(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.DeleteRecord")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("players")
	db.Where(db.Equal("id", id))

	query, args := db.Build()
	result, err := r.db.Querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return r.fail(ctx, "delete player", err)
	}
	return requireRow(result, models.PlayerNotFoundError(id))
}

// ListMembershipsFor lists a player's team memberships
func (r *Repository) ListMembershipsFor(ctx context.Context, playerID int64) ([]models.TeamMembership, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.ListMembershipsFor")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(membershipColumns...)
	sb.From("team_memberships")
	sb.Where(sb.Equal("player_id", playerID))
	sb.OrderBy("id").Asc()

	query, args := sb.Build()
	memberships := []models.TeamMembership{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &memberships, query, args...); err != nil {
		return nil, r.fail(ctx, "list memberships", err)
	}
	return memberships, nil
}

// ActiveJerseyHolder returns the active membership wearing jersey on team, or nil
func (r *Repository) ActiveJerseyHolder(ctx context.Context, teamID int64, jersey int) (*models.TeamMembership, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.ActiveJerseyHolder")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(membershipColumns...)
	sb.From("team_memberships")
	sb.Where(
		sb.Equal("team_id", teamID),
		sb.Equal("jersey_number", jersey),
		sb.Equal("is_active", true),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var membership models.TeamMembership
	if err := r.db.Querier(ctx).GetContext(ctx, &membership, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, r.fail(ctx, "find jersey holder", err)
	}
	return &membership, nil
}

// AddMembership creates a team membership
func (r *Repository) AddMembership(ctx context.Context, membership *models.TeamMembership) (*models.TeamMembership, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.AddMembership")
	defer span.End()

	startedAt := membership.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("team_memberships")
	ib.Cols("player_id", "team_id", "jersey_number", "is_active", "started_at", "ended_at")
	ib.Values(membership.PlayerID, membership.TeamID, membership.JerseyNumber, membership.IsActive, startedAt, membership.EndedAt)
	ib.Returning(membershipColumns...)

	query, args := ib.Build()
	var created models.TeamMembership
	if err := r.db.Querier(ctx).GetContext(ctx, &created, query, args...); err != nil {
		if conflict := conflictError(err, nil, membership); conflict != nil {
			return nil, conflict
		}
		return nil, r.fail(ctx, "add membership", err)
	}
	return &created, nil
}

// ReassignMembership moves a membership to another player
func (r *Repository) ReassignMembership(ctx context.Context, membershipID, playerID int64) error {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.ReassignMembership")
	defer span.End()

	return r.updateByID(ctx, "team_memberships", membershipID, "reassign membership", func(ub *sqlbuilder.UpdateBuilder) {
		ub.Set(ub.Assign("player_id", playerID))
	})
}

// DeactivateMembership closes a membership
func (r *Repository) DeactivateMembership(ctx context.Context, membershipID int64, endedAt time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.DeactivateMembership")
	defer span.End()

	return r.updateByID(ctx, "team_memberships", membershipID, "deactivate membership", func(ub *sqlbuilder.UpdateBuilder) {
		ub.Set(ub.Assign("is_active", false), ub.Assign("ended_at", endedAt))
	})
}

// DeleteMembership removes a membership
func (r *Repository) DeleteMembership(ctx context.Context, membershipID int64) error {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.DeleteMembership")
	defer span.End()

	return r.deleteByID(ctx, "team_memberships", membershipID, "delete membership")
}

// ListStatsFor lists a player's stat records
func (r *Repository) ListStatsFor(ctx context.Context, playerID int64) ([]models.StatRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.ListStatsFor")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(statColumns...)
	sb.From("player_stats")
	sb.Where(sb.Equal("player_id", playerID))
	sb.OrderBy("id").Asc()

	query, args := sb.Build()
	stats := []models.StatRecord{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &stats, query, args...); err != nil {
		return nil, r.fail(ctx, "list stats", err)
	}
	return stats, nil
}

// ReassignStat moves a stat record to another player
func (r *Repository) ReassignStat(ctx context.Context, statID, playerID int64) error {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.ReassignStat")
	defer span.End()

	return r.updateByID(ctx, "player_stats", statID, "reassign stat", func(ub *sqlbuilder.UpdateBuilder) {
		ub.Set(ub.Assign("player_id", playerID))
	})
}

// ListRosterEntriesFor lists a player's match roster entries
func (r *Repository) ListRosterEntriesFor(ctx context.Context, playerID int64) ([]models.RosterEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.ListRosterEntriesFor")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(rosterColumns...)
	sb.From("match_roster_entries")
	sb.Where(sb.Equal("player_id", playerID))
	sb.OrderBy("id").Asc()

	query, args := sb.Build()
	entries := []models.RosterEntry{}
	if err := r.db.Querier(ctx).SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, r.fail(ctx, "list roster entries", err)
	}
	return entries, nil
}

// ReassignRosterEntry moves a roster entry to another player
func (r *Repository) ReassignRosterEntry(ctx context.Context, entryID, playerID int64) error {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.ReassignRosterEntry")
	defer span.End()

	return r.updateByID(ctx, "match_roster_entries", entryID, "reassign roster entry", func(ub *sqlbuilder.UpdateBuilder) {
		ub.Set(ub.Assign("player_id", playerID))
	})
}

// DeleteRosterEntry removes a roster entry
func (r *Repository) DeleteRosterEntry(ctx context.Context, entryID int64) error {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.DeleteRosterEntry")
	defer span.End()

	return r.deleteByID(ctx, "match_roster_entries", entryID, "delete roster entry")
}

func (r *Repository) updateByID(ctx context.Context, table string, id int64, op string, set func(ub *sqlbuilder.UpdateBuilder)) error {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	set(ub)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	result, err := r.db.Querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return r.fail(ctx, op, err)
	}
	return requireRow(result, models.ErrNotFound)
}

func (r *Repository) deleteByID(ctx context.Context, table string, id int64, op string) error {
	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom(table)
	db.Where(db.Equal("id", id))

	query, args := db.Build()
	if _, err := r.db.Querier(ctx).ExecContext(ctx, query, args...); err != nil {
		return r.fail(ctx, op, err)
	}
	return nil
}

func (r *Repository) fail(ctx context.Context, op string, err error) error {
	r.logger.WithContext(ctx).WithError(err).Errorf("Failed to %s", op)
	return models.StoreError(op, err)
}

func requireRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return models.StoreError("rows affected", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// conflictError maps unique index violations to email and jersey conflicts
func conflictError(err error, email *string, membership *models.TeamMembership) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return nil
	}

	switch pqErr.Constraint {
	case emailIndex:
		if email != nil {
			return models.EmailConflictError(*email)
		}
		return models.ErrEmailConflict
	case activeJerseyIndex:
		if membership != nil && membership.JerseyNumber != nil {
			return models.JerseyConflictError(membership.TeamID, *membership.JerseyNumber)
		}
		return models.ErrJerseyConflict
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
