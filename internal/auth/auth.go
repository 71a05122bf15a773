// Package auth verifies HS256 bearer tokens and resolves the caller against the
// users schema.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/farxc/cuipo/internal/store"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken  = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrMissingClaims = errors.New("token does not carry the required claims")
	ErrUnknownUser   = errors.New("user not found")
)

type Claims struct {
	UserID  any    `json:"id,omitempty"`
	Email   string `json:"email"`
	Program any    `json:"program,omitempty"`
	jwt.RegisteredClaims
}

type Identity struct {
	User   *store.User
	Claims *Claims
	Admin  bool
}

type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*store.User, error)
}

type Verifier struct {
	secret     []byte
	users      UserFinder
	adminRoles map[string]bool
}

func NewVerifier(secret string, users UserFinder, adminRoles []string) *Verifier {
	roles := make(map[string]bool, len(adminRoles))
	for _, r := range adminRoles {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			roles[r] = true
		}
	}
	return &Verifier{secret: []byte(secret), users: users, adminRoles: roles}
}

func (v *Verifier) IsAdmin(role string) bool {
	return v.adminRoles[strings.ToLower(strings.TrimSpace(role))]
}

// Verify checks the signature and expiry of token and loads the user named by its
// email claim.
func (v *Verifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Email == "" {
		return nil, ErrMissingClaims
	}

	user, err := v.users.GetByEmail(ctx, claims.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}
	return &Identity{User: user, Claims: claims, Admin: v.IsAdmin(user.Role)}, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Middleware rejects requests without a valid token through unauthorized and
// stores the identity in the request context otherwise.
func (v *Verifier) Middleware(unauthorized func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.Verify(r.Context(), BearerToken(r))
			if err != nil {
				unauthorized(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(*Identity)
	return id, ok && id != nil
}
