package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/farxc/cuipo/internal/auth"
	"github.com/farxc/cuipo/internal/store"
)

type TokenInfo struct {
	IssuedAt  *time.Time `json:"issuedAt,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Program   any        `json:"program,omitempty"`
}

type VerifyTokenResponse struct {
	Valid     bool        `json:"valid"`
	User      *store.User `json:"user,omitempty"`
	Admin     bool        `json:"admin"`
	TokenInfo *TokenInfo  `json:"tokenInfo,omitempty"`
	Error     string      `json:"error,omitempty"`
	Details   string      `json:"details,omitempty"`
}

// isAuthFailure separates rejected credentials from lookup failures.
func isAuthFailure(err error) bool {
	return errors.Is(err, auth.ErrMissingToken) || errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, auth.ErrMissingClaims) || errors.Is(err, auth.ErrUnknownUser)
}

func (app *application) unauthorizedResponse(w http.ResponseWriter, r *http.Request, err error) {
	if !isAuthFailure(err) {
		app.appLogger.Error("Auth", "Token verification failed: path=%s err=%v", r.URL.Path, err)
		writeJSONError(w, http.StatusInternalServerError, "failed to verify token")
		return
	}
	writeJSONErrorDetails(w, http.StatusUnauthorized, "unauthorized", err)
}

// @Summary		Verify token
// @Description	Validates the bearer token and returns the user it belongs to.
// @Tags			Auth
// @Produce		json
// @Success		200	{object}	VerifyTokenResponse
// @Failure		401	{object}	VerifyTokenResponse
// @Router			/auth/verify [get]
func (app *application) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	id, err := app.verifier.Verify(r.Context(), auth.BearerToken(r))
	if err == nil && id.Claims.UserID == nil {
		err = auth.ErrMissingClaims
	}
	if err != nil {
		status := http.StatusUnauthorized
		msg := "authentication failed"
		if !isAuthFailure(err) {
			status = http.StatusInternalServerError
			msg = "failed to verify token"
		}
		writeJSON(w, status, &VerifyTokenResponse{Valid: false, Error: msg, Details: err.Error()})
		return
	}

	info := &TokenInfo{Program: id.Claims.Program}
	if id.Claims.IssuedAt != nil {
		info.IssuedAt = &id.Claims.IssuedAt.Time
	}
	if id.Claims.ExpiresAt != nil {
		info.ExpiresAt = &id.Claims.ExpiresAt.Time
	}

	response := &VerifyTokenResponse{
		Valid:     true,
		User:      id.User,
		Admin:     id.Admin,
		TokenInfo: info,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
