package models

import (
	"errors"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
)

func TestStoreError(t *testing.T) {
	cause := errors.New("connection refused")

	err := StoreError("insert player", cause)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "insert player")

	// errors that already carry a kind keep it
	for _, kind := range []error{PlayerNotFoundError(3), JerseyConflictError(7, 23), EmailConflictError("a@b.c"), err} {
		assert.Same(t, kind, StoreError("op", kind))
	}
	assert.NoError(t, StoreError("op", nil))
}

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "JerseyConflict", err: JerseyConflictError(7, 23), code: http.StatusConflict},
		{name: "EmailConflict", err: EmailConflictError("a@b.c"), code: http.StatusConflict},
		{name: "SelfMerge", err: ErrSelfMerge, code: http.StatusConflict},
		{name: "Duplicate", err: &DuplicateError{Match: MatchResult{MatchType: MatchTypePotentialDuplicate, Player: &PlayerRecord{ID: 4}}}, code: http.StatusConflict},
		{name: "NotFound", err: PlayerNotFoundError(9), code: http.StatusNotFound},
		{name: "Validation", err: ErrValidation, code: http.StatusBadRequest},
		{name: "StoreUnavailable", err: StoreError("get", errors.New("timeout")), code: http.StatusServiceUnavailable},
		{name: "Unknown", err: errors.New("boom"), code: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ToHTTPError(tt.err)
			assert.True(t, httperror.IsHTTPError(err))
			assert.Equal(t, tt.code, httperror.GetStatusCode(err))
		})
	}

	assert.NoError(t, ToHTTPError(nil))
}

func TestDuplicateError(t *testing.T) {
	err := &DuplicateError{Match: MatchResult{Player: &PlayerRecord{ID: 4}, SimilarityScore: 80}}
	assert.ErrorIs(t, err, ErrPotentialDuplicate)
	assert.Contains(t, err.Error(), "player 4 scored 80.0")
}
