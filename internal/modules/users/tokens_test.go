package users

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tokens := NewTokenManager("secret", time.Hour)

	token, expiresAt, err := tokens.Issue(42)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	userID, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestTokenManager_Expired(t *testing.T) {
	tokens := NewTokenManager("secret", time.Hour)
	tokens.now = func() time.Time { return fixedNow }

	token, _, err := tokens.Issue(1)
	require.NoError(t, err)

	tokens.now = func() time.Time { return fixedNow.Add(2 * time.Hour) }
	_, err = tokens.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret", time.Hour).Issue(1)
	require.NoError(t, err)

	_, err = NewTokenManager("other", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsUnsignedToken(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "1",
		Issuer:    tokenIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Hour).Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticator(t *testing.T) {
	tokens := NewTokenManager("secret", time.Hour)
	token, _, err := tokens.Issue(7)
	require.NoError(t, err)

	var seen int64
	handler := Authenticator(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name     string
		header   string
		query    string
		expected int
		userID   int64
	}{
		{"bearer header", "Bearer " + token, "", http.StatusNoContent, 7},
		{"lowercase scheme", "bearer " + token, "", http.StatusNoContent, 7},
		{"query parameter", "", "?access_token=" + token, http.StatusNoContent, 7},
		{"missing", "", "", http.StatusUnauthorized, 0},
		{"wrong scheme", "Basic " + token, "", http.StatusUnauthorized, 0},
		{"garbage", "Bearer garbage", "", http.StatusUnauthorized, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = 0
			req := httptest.NewRequest(http.MethodGet, "/api/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expected, w.Code)
			assert.Equal(t, tt.userID, seen)
		})
	}
}
