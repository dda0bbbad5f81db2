package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", time.Hour, "identity")
	id := uuid.New()

	token, err := svc.GenerateToken(id, "ada@example.com", "Ada Lovelace")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)

	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "Ada Lovelace", claims.UserMetadata.FullName)
}

func TestJWTService_RejectsForeignSecret(t *testing.T) {
	issuer := NewJWTService("secret", time.Hour, "identity")
	other := NewJWTService("other-secret", time.Hour, "identity")

	token, err := issuer.GenerateToken(uuid.New(), "a@b.c", "")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	svc := NewJWTService("secret", -time.Minute, "identity")

	token, err := svc.GenerateToken(uuid.New(), "a@b.c", "")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
