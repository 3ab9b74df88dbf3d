// Package store defines the player store capability consumed by the deduplication engine.
package store

import (
	"context"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// PlayerReader is the read side used by the matcher
type PlayerReader interface {
	// FindExact returns records whose first and last names equal the given names ignoring case
	// and whose date of birth equals dob, ordered by id.
	FindExact(ctx context.Context, firstName, lastName string, dob time.Time) ([]models.PlayerRecord, error)
	// FindPrefiltered returns records matching any non-empty prefilter criterion, ordered by id.
	FindPrefiltered(ctx context.Context, criteria models.Prefilter) ([]models.PlayerRecord, error)
	// FindByEmail returns the record owning email (case-insensitive) or nil.
	FindByEmail(ctx context.Context, email string) (*models.PlayerRecord, error)
	// GetByID returns models.ErrNotFound when id does not resolve.
	GetByID(ctx context.Context, id int64) (*models.PlayerRecord, error)
}

// Store is the full capability: reads, player and roster mutations, and a unit of work
type Store interface {
	PlayerReader

	Insert(ctx context.Context, record *models.PlayerRecord) (*models.PlayerRecord, error)
	Update(ctx context.Context, id int64, patch models.PlayerPatch) (*models.PlayerRecord, error)
	DeleteRecord(ctx context.Context, id int64) error

	ListMembershipsFor(ctx context.Context, playerID int64) ([]models.TeamMembership, error)
	// ActiveJerseyHolder returns the active membership wearing jersey on team, or nil.
	ActiveJerseyHolder(ctx context.Context, teamID int64, jersey int) (*models.TeamMembership, error)
	AddMembership(ctx context.Context, membership *models.TeamMembership) (*models.TeamMembership, error)
	ReassignMembership(ctx context.Context, membershipID, playerID int64) error
	DeactivateMembership(ctx context.Context, membershipID int64, endedAt time.Time) error
	DeleteMembership(ctx context.Context, membershipID int64) error

	ListStatsFor(ctx context.Context, playerID int64) ([]models.StatRecord, error)
	ReassignStat(ctx context.Context, statID, playerID int64) error

	ListRosterEntriesFor(ctx context.Context, playerID int64) ([]models.RosterEntry, error)
	ReassignRosterEntry(ctx context.Context, entryID, playerID int64) error
	DeleteRosterEntry(ctx context.Context, entryID int64) error

	// RunInTx runs fn as one unit of work. Any error returned by fn rolls back every write made through tx.
	// Calling RunInTx on a transaction-bound store joins the outer unit of work.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
