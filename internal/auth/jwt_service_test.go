package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formini/internal/model"
)

func TestJWTService_SessionRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret")
	user := model.NewStudent("Ada", "Lovelace", "ada@example.com", time.Now())

	token, err := svc.GenerateSessionToken(user, SessionTokenExpiry)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, model.RoleStudent, claims.Role)
	assert.Equal(t, PurposeSession, claims.Purpose)
	assert.WithinDuration(t, time.Now().Add(SessionTokenExpiry), claims.ExpiresAt.Time, 5*time.Second)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	svc := NewJWTService("test-secret")
	issued := time.Now().Add(-25 * time.Hour)
	svc.now = func() time.Time { return issued }
	user := model.NewStudent("Ada", "Lovelace", "ada@example.com", issued)

	token, err := svc.GenerateSessionToken(user, SessionTokenExpiry)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTService_RejectsForeignSignature(t *testing.T) {
	user := model.NewStudent("Ada", "Lovelace", "ada@example.com", time.Now())
	token, err := NewJWTService("other-secret").GenerateSessionToken(user, time.Hour)
	require.NoError(t, err)

	_, err = NewJWTService("test-secret").ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_ValidatePurpose(t *testing.T) {
	svc := NewJWTService("test-secret")
	user := model.NewStudent("", "", "ada@example.com", time.Now())

	completion, err := svc.GenerateProfileCompletionToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidatePurpose(completion, PurposeProfileCompletion)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, err = svc.ValidatePurpose(completion, PurposeSession)
	assert.Error(t, err)
}
