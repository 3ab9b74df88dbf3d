package models

import (
	"strings"
	"time"
)

// PlayerRecord is a stored player. Optional attributes are nil when absent.
type PlayerRecord struct {
	ID          int64      `json:"id" db:"id"`
	FirstName   string     `json:"first_name" db:"first_name"`
	LastName    string     `json:"last_name" db:"last_name"`
	Email       *string    `json:"email,omitempty" db:"email"`
	Phone       *string    `json:"phone,omitempty" db:"phone"`
	Height      *string    `json:"height,omitempty" db:"height"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`
	Nationality *string    `json:"nationality,omitempty" db:"nationality"`
	Position    *string    `json:"position,omitempty" db:"position"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Attributes returns the record's comparable attributes
func (p *PlayerRecord) Attributes() PlayerAttributes {
	return PlayerAttributes{
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Email:       p.Email,
		Phone:       p.Phone,
		Height:      p.Height,
		DateOfBirth: p.DateOfBirth,
		Nationality: p.Nationality,
	}
}

// CandidateInput is an unpersisted player submitted for matching
type CandidateInput struct {
	FirstName   string     `json:"first_name" validate:"required,notblank"`
	LastName    string     `json:"last_name" validate:"required,notblank"`
	Email       *string    `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string    `json:"phone,omitempty"`
	Height      *string    `json:"height,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Nationality *string    `json:"nationality,omitempty"`
	Position    *string    `json:"position,omitempty"`

	// ConfirmDuplicate forces creation when the candidate is classified as a potential duplicate
	ConfirmDuplicate bool `json:"confirm_duplicate,omitempty"`
}

// Attributes returns the candidate's comparable attributes
func (c *CandidateInput) Attributes() PlayerAttributes {
	return PlayerAttributes{
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		Phone:       c.Phone,
		Height:      c.Height,
		DateOfBirth: c.DateOfBirth,
		Nationality: c.Nationality,
	}
}

// Normalized returns a copy of the candidate with blank optional strings set to nil
func (c *CandidateInput) Normalized() CandidateInput {
	n := *c
	n.Email = nonBlank(c.Email)
	n.Phone = nonBlank(c.Phone)
	n.Height = nonBlank(c.Height)
	n.Nationality = nonBlank(c.Nationality)
	n.Position = nonBlank(c.Position)
	return n
}

func nonBlank(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return v
}

// ToRecord builds an unsaved PlayerRecord from the candidate
func (c *CandidateInput) ToRecord() *PlayerRecord {
	record := &PlayerRecord{
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		Phone:       c.Phone,
		Height:      c.Height,
		Nationality: c.Nationality,
		Position:    c.Position,
	}
	if c.DateOfBirth != nil {
		dob := DateOnly(*c.DateOfBirth)
		record.DateOfBirth = &dob
	}
	return record
}

// PlayerAttributes is the attribute shape shared by candidates and stored records
type PlayerAttributes struct {
	FirstName   string
	LastName    string
	Email       *string
	Phone       *string
	Height      *string
	DateOfBirth *time.Time
	Nationality *string
}

// PlayerPatch holds attribute updates. Nil fields are left unchanged.
type PlayerPatch struct {
	FirstName   *string
	LastName    *string
	Email       *string
	Phone       *string
	Height      *string
	DateOfBirth *time.Time
	Nationality *string
	Position    *string
}

// IsEmpty reports whether the patch changes nothing
func (p PlayerPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.Phone == nil &&
		p.Height == nil && p.DateOfBirth == nil && p.Nationality == nil && p.Position == nil
}

// Apply copies the patch's present fields onto the record
func (p PlayerPatch) Apply(record *PlayerRecord) {
	if p.FirstName != nil {
		record.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		record.LastName = *p.LastName
	}
	if p.Email != nil {
		record.Email = p.Email
	}
	if p.Phone != nil {
		record.Phone = p.Phone
	}
	if p.Height != nil {
		record.Height = p.Height
	}
	if p.DateOfBirth != nil {
		dob := DateOnly(*p.DateOfBirth)
		record.DateOfBirth = &dob
	}
	if p.Nationality != nil {
		record.Nationality = p.Nationality
	}
	if p.Position != nil {
		record.Position = p.Position
	}
}

// Prefilter is the loose criteria used to bound the fuzzy candidate set.
// Empty criteria are ignored; a record matches when any non-empty criterion does.
type Prefilter struct {
	LastNamePrefix  string
	FirstNamePrefix string
	Email           string
	Limit           int
}

// IsEmpty reports whether no criterion is set
func (p Prefilter) IsEmpty() bool {
	return p.LastNamePrefix == "" && p.FirstNamePrefix == "" && p.Email == ""
}

// DateOnly truncates t to its calendar date in UTC
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether a and b fall on the same calendar date
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}
