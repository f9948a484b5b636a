package testutil

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pocketledger/internal/errors"
)

// AssertAppError checks that err is an *AppError with the expected error code.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	require.Errorf(t, err, "expected AppError with code %q", expectedCode)

	var appErr *apperrors.AppError
	require.ErrorAsf(t, err, &appErr, "expected *AppError, got %T", err)

	assert.Equalf(t, expectedCode, appErr.Code, "error code (message: %s)", appErr.Message)
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	require.NoError(t, err)
}

// AssertDecimal fails the test if got and want differ numerically.
func AssertDecimal(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	assert.Truef(t, got.Equal(decimal.RequireFromString(want)), "expected %s, got %s", want, got.String())
}
