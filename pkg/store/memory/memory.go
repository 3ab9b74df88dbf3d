// Package memory provides an in-process player store with copy-on-write transactions.
package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/store"
)

type state struct {
	players     map[int64]models.PlayerRecord
	memberships map[int64]models.TeamMembership
	stats       map[int64]models.StatRecord
	roster      map[int64]models.RosterEntry
	nextID      int64
}

func newState() *state {
	return &state{
		players:     make(map[int64]models.PlayerRecord),
		memberships: make(map[int64]models.TeamMembership),
		stats:       make(map[int64]models.StatRecord),
		roster:      make(map[int64]models.RosterEntry),
	}
}

func (s *state) clone() *state {
	return &state{
		players:     maps.Clone(s.players),
		memberships: maps.Clone(s.memberships),
		stats:       maps.Clone(s.stats),
		roster:      maps.Clone(s.roster),
		nextID:      s.nextID,
	}
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// Store keeps players and their roster history in memory.
// A transaction works on a private copy that replaces the shared state only on success.
type Store struct {
	mu   *sync.Mutex
	data *state
	inTx bool
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// NewStore constructs an empty Store
func NewStore() *Store {
	return &Store{
		mu:   &sync.Mutex{},
		data: newState(),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// RunInTx runs fn against a copy of the store and publishes the copy when fn succeeds
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{
		mu:   s.mu,
		data: s.data.clone(),
		inTx: true,
		now:  s.now,
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.data = tx.data
	return nil
}

// FindExact returns players with equal names (ignoring case) born on dob
func (s *Store) FindExact(_ context.Context, firstName, lastName string, dob time.Time) ([]models.PlayerRecord, error) {
	defer s.lock()()

	firstName, lastName = normalizers.Name(firstName), normalizers.Name(lastName)
	return s.filterPlayers(0, func(p models.PlayerRecord) bool {
		return p.DateOfBirth != nil &&
			models.SameDate(*p.DateOfBirth, dob) &&
			normalizers.Name(p.FirstName) == firstName &&
			normalizers.Name(p.LastName) == lastName
	}), nil
}

// FindPrefiltered returns players matching any of the prefilter criteria
func (s *Store) FindPrefiltered(_ context.Context, criteria models.Prefilter) ([]models.PlayerRecord, error) {
	defer s.lock()()

	if criteria.IsEmpty() {
		return []models.PlayerRecord{}, nil
	}

	email := normalizers.Email(criteria.Email)
	return s.filterPlayers(criteria.Limit, func(p models.PlayerRecord) bool {
		if criteria.LastNamePrefix != "" && strings.HasPrefix(normalizers.Name(p.LastName), criteria.LastNamePrefix) {
			return true
		}
		if criteria.FirstNamePrefix != "" && strings.HasPrefix(normalizers.Name(p.FirstName), criteria.FirstNamePrefix) {
			return true
		}
		return email != "" && p.Email != nil && normalizers.Email(*p.Email) == email
	}), nil
}

// FindByEmail returns the player owning email, or nil
func (s *Store) FindByEmail(_ context.Context, email string) (*models.PlayerRecord, error) {
	defer s.lock()()

	return s.playerByEmail(email), nil
}

// GetByID returns the player with id
func (s *Store) GetByID(_ context.Context, id int64) (*models.PlayerRecord, error) {
	defer s.lock()()

	p, ok := s.data.players[id]
	if !ok {
		return nil, models.PlayerNotFoundError(id)
	}
	return cloneRecord(p), nil
}

// Insert stores a new player. Email uniqueness is enforced like a unique index.
func (s *Store) Insert(_ context.Context, record *models.PlayerRecord) (*models.PlayerRecord, error) {
	defer s.lock()()

	if record.Email != nil && s.playerByEmail(*record.Email) != nil {
		return nil, models.EmailConflictError(*record.Email)
	}

	p := *cloneRecord(*record)
	p.ID = s.data.id()
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	s.data.players[p.ID] = p

	return cloneRecord(p), nil
}

// Update applies patch to the player with id
func (s *Store) Update(_ context.Context, id int64, patch models.PlayerPatch) (*models.PlayerRecord, error) {
	defer s.lock()()

	p, ok := s.data.players[id]
	if !ok {
		return nil, models.PlayerNotFoundError(id)
	}
	if patch.Email != nil {
		if owner := s.playerByEmail(*patch.Email); owner != nil && owner.ID != id {
			return nil, models.EmailConflictError(*patch.Email)
		}
	}

	patch.Apply(&p)
	p = *cloneRecord(p)
	p.UpdatedAt = s.now()
	s.data.players[id] = p

	return cloneRecord(p), nil
}

// DeleteRecord removes the player with id
func (s *Store) DeleteRecord(_ context.Context, id int64) error {
	defer s.lock()()

	if _, ok := s.data.players[id]; !ok {
		return models.PlayerNotFoundError(id)
	}
	delete(s.data.players, id)
	return nil
}

// ListMembershipsFor returns the player's memberships ordered by id
func (s *Store) ListMembershipsFor(_ context.Context, playerID int64) ([]models.TeamMembership, error) {
	defer s.lock()()

	return collect(s.data.memberships, func(m models.TeamMembership) bool { return m.PlayerID == playerID }), nil
}

// ActiveJerseyHolder returns the active membership wearing jersey on team, or nil
func (s *Store) ActiveJerseyHolder(_ context.Context, teamID int64, jersey int) (*models.TeamMembership, error) {
	defer s.lock()()

	return s.jerseyHolder(teamID, jersey), nil
}

// AddMembership stores a membership. An active jersey is unique per team.
func (s *Store) AddMembership(_ context.Context, membership *models.TeamMembership) (*models.TeamMembership, error) {
	defer s.lock()()

	if membership.IsActive && membership.JerseyNumber != nil {
		if holder := s.jerseyHolder(membership.TeamID, *membership.JerseyNumber); holder != nil {
			return nil, models.JerseyConflictError(membership.TeamID, *membership.JerseyNumber)
		}
	}

	m := *membership
	m.ID = s.data.id()
	if m.StartedAt.IsZero() {
		m.StartedAt = s.now()
	}
	s.data.memberships[m.ID] = m
	return &m, nil
}

// ReassignMembership moves a membership to another player
func (s *Store) ReassignMembership(_ context.Context, membershipID, playerID int64) error {
	defer s.lock()()

	m, ok := s.data.memberships[membershipID]
	if !ok {
		return models.ErrNotFound
	}
	m.PlayerID = playerID
	s.data.memberships[membershipID] = m
	return nil
}

// DeactivateMembership closes a membership at endedAt
func (s *Store) DeactivateMembership(_ context.Context, membershipID int64, endedAt time.Time) error {
	defer s.lock()()

	m, ok := s.data.memberships[membershipID]
	if !ok {
		return models.ErrNotFound
	}
	m.IsActive = false
	m.EndedAt = &endedAt
	s.data.memberships[membershipID] = m
	return nil
}

// DeleteMembership removes a membership
func (s *Store) DeleteMembership(_ context.Context, membershipID int64) error {
	defer s.lock()()

	delete(s.data.memberships, membershipID)
	return nil
}

// ListStatsFor returns the player's stat records ordered by id
func (s *Store) ListStatsFor(_ context.Context, playerID int64) ([]models.StatRecord, error) {
	defer s.lock()()

	return collect(s.data.stats, func(r models.StatRecord) bool { return r.PlayerID == playerID }), nil
}

// ReassignStat moves a stat record to another player
func (s *Store) ReassignStat(_ context.Context, statID, playerID int64) error {
	defer s.lock()()

	r, ok := s.data.stats[statID]
	if !ok {
		return models.ErrNotFound
	}
	r.PlayerID = playerID
	s.data.stats[statID] = r
	return nil
}

// ListRosterEntriesFor returns the player's match roster entries ordered by id
func (s *Store) ListRosterEntriesFor(_ context.Context, playerID int64) ([]models.RosterEntry, error) {
	defer s.lock()()

	return collect(s.data.roster, func(e models.RosterEntry) bool { return e.PlayerID == playerID }), nil
}

// ReassignRosterEntry moves a roster entry to another player
func (s *Store) ReassignRosterEntry(_ context.Context, entryID, playerID int64) error {
	defer s.lock()()

	e, ok := s.data.roster[entryID]
	if !ok {
		return models.ErrNotFound
	}
	e.PlayerID = playerID
	s.data.roster[entryID] = e
	return nil
}

// DeleteRosterEntry removes a roster entry
func (s *Store) DeleteRosterEntry(_ context.Context, entryID int64) error {
	defer s.lock()()

	delete(s.data.roster, entryID)
	return nil
}

// AddStat stores a stat record
func (s *Store) AddStat(_ context.Context, stat *models.StatRecord) (*models.StatRecord, error) {
	defer s.lock()()

	r := *stat
	r.ID = s.data.id()
	s.data.stats[r.ID] = r
	return &r, nil
}

// AddRosterEntry stores a roster entry. A player appears at most once per match.
func (s *Store) AddRosterEntry(_ context.Context, entry *models.RosterEntry) (*models.RosterEntry, error) {
	defer s.lock()()

	for _, existing := range s.data.roster {
		if existing.PlayerID == entry.PlayerID && existing.MatchID == entry.MatchID {
			return &existing, nil
		}
	}

	e := *entry
	e.ID = s.data.id()
	s.data.roster[e.ID] = e
	return &e, nil
}

// Count returns the number of stored players
func (s *Store) Count() int {
	defer s.lock()()

	return len(s.data.players)
}

func (s *Store) filterPlayers(limit int, match func(models.PlayerRecord) bool) []models.PlayerRecord {
	records := collect(s.data.players, match)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	for i := range records {
		records[i] = *cloneRecord(records[i])
	}
	return records
}

func (s *Store) playerByEmail(email string) *models.PlayerRecord {
	email = normalizers.Email(email)
	if email == "" {
		return nil
	}
	for _, id := range slices.Sorted(maps.Keys(s.data.players)) {
		p := s.data.players[id]
		if p.Email != nil && normalizers.Email(*p.Email) == email {
			return cloneRecord(p)
		}
	}
	return nil
}

func (s *Store) jerseyHolder(teamID int64, jersey int) *models.TeamMembership {
	for _, id := range slices.Sorted(maps.Keys(s.data.memberships)) {
		m := s.data.memberships[id]
		if m.TeamID == teamID && m.IsActive && m.JerseyNumber != nil && *m.JerseyNumber == jersey {
			return &m
		}
	}
	return nil
}

// collect returns the values accepted by match, ordered by key
func collect[T any](items map[int64]T, match func(T) bool) []T {
	result := []T{}
	for _, id := range slices.Sorted(maps.Keys(items)) {
		if match(items[id]) {
			result = append(result, items[id])
		}
	}
	return result
}

func cloneRecord(p models.PlayerRecord) *models.PlayerRecord {
	c := p
	c.Email = clonePtr(p.Email)
	c.Phone = clonePtr(p.Phone)
	c.Height = clonePtr(p.Height)
	c.DateOfBirth = clonePtr(p.DateOfBirth)
	c.Nationality = clonePtr(p.Nationality)
	c.Position = clonePtr(p.Position)
	return &c
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
