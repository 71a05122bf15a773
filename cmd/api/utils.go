package main

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/farxc/cuipo/internal/auth"
	"github.com/go-chi/chi/v5"
)

func parseLimit(r *http.Request, fallback, max int) int {
	limit := fallback
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	if limit > max {
		limit = max
	}
	return limit
}

// pathParam returns the unescaped value of a route parameter.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// dependencyScope is the secretaría a request may see. Administrators choose it
// with the query parameter (empty means all); everyone else is pinned to their own
// dependency.
func dependencyScope(r *http.Request, param string) string {
	id, ok := auth.FromContext(r.Context())
	if ok && !id.Admin {
		return id.User.DependencyName
	}
	return r.URL.Query().Get(param)
}

// canSee reports whether the caller may read data of the given secretaría.
func canSee(r *http.Request, secretaria string) bool {
	id, ok := auth.FromContext(r.Context())
	if !ok || id.Admin {
		return true
	}
	return id.User.DependencyName == secretaria
}
