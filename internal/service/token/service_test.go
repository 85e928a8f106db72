package token

import (
	"errors"
	"testing"
	"time"

	"shoplite/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestIssueAndVerify(t *testing.T) {
	svc := New(secret, 0)

	raw, err := svc.Issue(domain.User{ID: "u-1", IsAdmin: true})
	require.NoError(t, err)

	claims, err := svc.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, Claims{UserID: "u-1", Admin: true}, claims)
}

func TestIssueWithoutTTLHasNoExpiry(t *testing.T) {
	svc := New(secret, 0)
	raw, err := svc.Issue(domain.User{ID: "u-1"})
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	require.NoError(t, err)
	_, hasExp := parsed.Claims.(jwt.MapClaims)["exp"]
	require.False(t, hasExp)
}

func TestVerifyExpired(t *testing.T) {
	svc := New(secret, time.Hour)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	raw, err := svc.Issue(domain.User{ID: "u-1"})
	require.NoError(t, err)

	_, err = svc.Verify(raw)
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, err = svc.Verify(raw)
	require.True(t, errors.Is(err, domain.ErrUnauthorized), "got %v", err)
}

func TestVerifyIdentifierClaimOrder(t *testing.T) {
	svc := New(secret, 0)
	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   string
	}{
		{"id wins", jwt.MapClaims{"id": "a", "_id": "b", "userId": "c", "sub": "d"}, "a"},
		{"_id next", jwt.MapClaims{"_id": "b", "userId": "c", "sub": "d"}, "b"},
		{"userId next", jwt.MapClaims{"userId": "c", "sub": "d"}, "c"},
		{"sub last", jwt.MapClaims{"sub": "d"}, "d"},
		{"blank id skipped", jwt.MapClaims{"id": "  ", "sub": "d"}, "d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Verify(sign(t, jwt.SigningMethodHS256, []byte(secret), tt.claims))
			require.NoError(t, err)
			require.Equal(t, tt.want, got.UserID)
		})
	}
}

func TestVerifyRejects(t *testing.T) {
	svc := New(secret, 0)
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "", ErrMissingToken},
		{"garbage", "not.a.token", ErrInvalidToken},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"id": "u-1"}), ErrInvalidToken},
		{"no identifier", sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"name": "x"}), ErrInvalidPayload},
		{"alg none", sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"id": "u-1"}), ErrInvalidToken},
		{"hs512", sign(t, jwt.SigningMethodHS512, []byte(secret), jwt.MapClaims{"id": "u-1"}), ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(tt.raw)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}

func TestBearerToken(t *testing.T) {
	require.Equal(t, "abc", BearerToken("Bearer abc"))
	require.Equal(t, "abc", BearerToken("bearer   abc "))
	require.Equal(t, "", BearerToken("Basic abc"))
	require.Equal(t, "", BearerToken(""))
	require.Equal(t, "", BearerToken("Bearer"))
}
