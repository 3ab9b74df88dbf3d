package models

import "time"

// TeamMembership associates a player with a team and an optional jersey number
type TeamMembership struct {
	ID           int64      `json:"id" db:"id"`
	PlayerID     int64      `json:"player_id" db:"player_id"`
	TeamID       int64      `json:"team_id" db:"team_id"`
	JerseyNumber *int       `json:"jersey_number,omitempty" db:"jersey_number"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty" db:"ended_at"`
}

// StatRecord is a per-match statistical line owned by a player
type StatRecord struct {
	ID       int64  `json:"id" db:"id"`
	PlayerID int64  `json:"player_id" db:"player_id"`
	MatchID  int64  `json:"match_id" db:"match_id"`
	Stat     string `json:"stat" db:"stat"`
	Value    int    `json:"value" db:"value"`
}

// RosterEntry records a player's participation in a match. A player appears at most once per match.
type RosterEntry struct {
	ID       int64 `json:"id" db:"id"`
	PlayerID int64 `json:"player_id" db:"player_id"`
	MatchID  int64 `json:"match_id" db:"match_id"`
	TeamID   int64 `json:"team_id" db:"team_id"`
	Starter  bool  `json:"starter" db:"starter"`
}
