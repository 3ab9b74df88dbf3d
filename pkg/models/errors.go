package models

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

var (
	// ErrStoreUnavailable wraps any failure of the player store
	ErrStoreUnavailable = errors.New("player store unavailable")
	// ErrNotFound is returned when an id does not resolve to a record
	ErrNotFound = errors.New("not found")
	// ErrSelfMerge is returned when a player is merged into itself
	ErrSelfMerge = errors.New("cannot merge a player into itself")
	// ErrJerseyConflict is returned when a jersey number is already active on the team
	ErrJerseyConflict = errors.New("jersey number already in use")
	// ErrEmailConflict is returned when an email already belongs to another player
	ErrEmailConflict = errors.New("email already in use")
	// ErrPotentialDuplicate is returned when a single-row create hits an unconfirmed potential duplicate
	ErrPotentialDuplicate = errors.New("potential duplicate player")
	// ErrValidation is returned for malformed candidates
	ErrValidation = errors.New("validation failed")
)

// StoreError marks err as a store failure for op. Errors that already carry a kind are returned unchanged.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrJerseyConflict) ||
		errors.Is(err, ErrEmailConflict) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

// JerseyConflictError reports the team and jersey that collided
func JerseyConflictError(teamID int64, jersey int) error {
	return fmt.Errorf("%w: jersey %d is active on team %d", ErrJerseyConflict, jersey, teamID)
}

// EmailConflictError reports the email that collided
func EmailConflictError(email string) error {
	return fmt.Errorf("%w: %s", ErrEmailConflict, email)
}

// PlayerNotFoundError reports the missing player id
func PlayerNotFoundError(id int64) error {
	return fmt.Errorf("player %d %w", id, ErrNotFound)
}

// DuplicateError carries the match that blocked a single-row create
type DuplicateError struct {
	Match MatchResult
}

func (e *DuplicateError) Error() string {
	if e.Match.Player == nil {
		return ErrPotentialDuplicate.Error()
	}
	return fmt.Sprintf("%s: player %d scored %.1f", ErrPotentialDuplicate, e.Match.Player.ID, e.Match.SimilarityScore)
}

func (e *DuplicateError) Unwrap() error {
	return ErrPotentialDuplicate
}

// ToHTTPError maps an engine error to an HTTP error for the API boundary
func ToHTTPError(err error) error {
	if err == nil {
		return nil
	}
	if httperror.IsHTTPError(err) {
		return err
	}

	switch {
	case errors.Is(err, ErrJerseyConflict),
		errors.Is(err, ErrEmailConflict),
		errors.Is(err, ErrSelfMerge),
		errors.Is(err, ErrPotentialDuplicate):
		return httperror.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotFound):
		return httperror.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrValidation):
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrStoreUnavailable):
		return httperror.NewHTTPError(http.StatusServiceUnavailable, "player store unavailable")
	default:
		return httperror.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
