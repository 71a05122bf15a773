package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/farxc/cuipo/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type fakeUsers map[string]*store.User

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*store.User, error) {
	u, ok := f[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(email string) Claims {
	return Claims{
		UserID: float64(7),
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newVerifier() *Verifier {
	users := fakeUsers{
		"ana@cali.gov.co":  {ID: 7, Email: "ana@cali.gov.co", Role: "Administrador", DependencyName: "SECRETARÍA DE HACIENDA"},
		"luis@cali.gov.co": {ID: 8, Email: "luis@cali.gov.co", Role: "Consulta", DependencyName: "SECRETARÍA DE SALUD"},
	}
	return NewVerifier(secret, users, []string{" administrador ", "superadmin"})
}

func TestVerify(t *testing.T) {
	v := newVerifier()

	id, err := v.Verify(context.Background(), sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims("ana@cali.gov.co")))
	require.NoError(t, err)
	assert.Equal(t, int64(7), id.User.ID)
	assert.True(t, id.Admin)
	assert.Equal(t, float64(7), id.Claims.UserID)

	id, err = v.Verify(context.Background(), sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims("luis@cali.gov.co")))
	require.NoError(t, err)
	assert.False(t, id.Admin)
}

func TestVerifyRejects(t *testing.T) {
	v := newVerifier()
	expired := validClaims("ana@cali.gov.co")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"missing", "", ErrMissingToken},
		{"garbage", "not-a-token", ErrInvalidToken},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims("ana@cali.gov.co")), ErrInvalidToken},
		{"wrong method", sign(t, jwt.SigningMethodHS512, []byte(secret), validClaims("ana@cali.gov.co")), ErrInvalidToken},
		{"expired", sign(t, jwt.SigningMethodHS256, []byte(secret), expired), ErrInvalidToken},
		{"no email", sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims("")), ErrMissingClaims},
		{"unknown user", sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims("nadie@cali.gov.co")), ErrUnknownUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMiddleware(t *testing.T) {
	v := newVerifier()

	var seen *Identity
	handler := v.Middleware(func(w http.ResponseWriter, _ *http.Request, err error) {
		http.Error(w, err.Error(), http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims("luis@cali.gov.co")))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "SECRETARÍA DE SALUD", seen.User.DependencyName)
}

func TestFromContextEmpty(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
}
