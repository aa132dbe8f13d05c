package accounts

import (
	"testing"
	"time"

	types "github.com/trainwise/backend/pkg/types"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := &TokenIssuer{secret: []byte("unit-test-secret"), ttl: time.Hour}

	token, err := issuer.Issue("user-1", types.RoleTrainer)
	require.NoError(t, err)

	claims, err := issuer.Validate(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, types.RoleTrainer, claims.Role)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	issuer := &TokenIssuer{secret: []byte("unit-test-secret"), ttl: time.Hour}
	other := &TokenIssuer{secret: []byte("different-secret"), ttl: time.Hour}

	token, err := issuer.Issue("user-1", types.RoleMember)
	require.NoError(t, err)

	_, err = other.Validate(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpiredRejected(t *testing.T) {
	issuer := &TokenIssuer{secret: []byte("unit-test-secret"), ttl: -time.Hour}

	token, err := issuer.Issue("user-1", types.RoleMember)
	require.NoError(t, err)

	_, err = issuer.Validate(token)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenBogusRoleRejected(t *testing.T) {
	issuer := &TokenIssuer{secret: []byte("unit-test-secret"), ttl: time.Hour}

	claims := Claims{
		UserID: "user-1",
		Role:   types.Role("superuser"),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(issuer.secret)
	require.NoError(t, err)

	_, err = issuer.Validate(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenGarbageRejected(t *testing.T) {
	issuer := &TokenIssuer{secret: []byte("unit-test-secret"), ttl: time.Hour}
	_, err := issuer.Validate("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
