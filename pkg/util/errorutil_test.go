package util

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError_PassesThrough(t *testing.T) {
	err := NewInvalidCredentials()

	de := ToDomainError(err)
	assert.Equal(t, "INVALID_CREDENTIALS", de.Code)
	assert.Equal(t, http.StatusUnauthorized, de.HTTPStatus)
	assert.Equal(t, "invalid email or password", de.Message)
}

func TestToDomainError_WrapsNoRows(t *testing.T) {
	de := ToDomainError(pgx.ErrNoRows)
	assert.Equal(t, "NOT_FOUND", de.Code)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
}

func TestToDomainError_WrapsUnknown(t *testing.T) {
	de := ToDomainError(errors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
}

func TestNewPersistenceError_Unwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewPersistenceError(cause)

	de := ToDomainError(err)
	assert.Equal(t, "PERSISTENCE_ERROR", de.Code)
	assert.ErrorIs(t, err, cause)
}
