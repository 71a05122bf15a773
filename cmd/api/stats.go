package main

import (
	"errors"
	"net/http"

	"github.com/farxc/cuipo/internal/response"
	"github.com/farxc/cuipo/internal/store"
	"golang.org/x/sync/errgroup"
)

type ProjectsBySecretariaResponse = response.APIResponse[[]store.SecretariaProjects]
type ProjectDetailResponse = response.APIResponse[*store.ProjectDetail]
type ProjectChartResponse = response.APIResponse[*store.ProjectChart]

type Dashboard struct {
	Totals      store.GlobalTotals      `json:"totals"`
	Secretarias []store.SecretariaCount `json:"secretarias"`
}

type DashboardResponse = response.APIResponse[*Dashboard]

// @Summary		Projects per secretaría
// @Tags			Statistics
// @Produce		json
// @Param			dependencia	query		string	false	"Secretaría filter (admins only)"
// @Success		200			{object}	ProjectsBySecretariaResponse
// @Router			/cuipo/estadisticas/proyectos [get]
func (app *application) handleGetProjectsBySecretaria(w http.ResponseWriter, r *http.Request) {
	filter := store.StatsFilter{Dependencia: dependencyScope(r, "dependencia")}

	data, err := app.store.Stats.ProjectsBySecretaria(r.Context(), filter)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to get projects: "+err.Error())
		return
	}

	response := &ProjectsBySecretariaResponse{
		Success: true,
		Data:    data,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Project detail
// @Tags			Statistics
// @Produce		json
// @Param			secretaria	path		string	true	"Secretaría"
// @Param			proyecto	path		string	true	"Project code"
// @Success		200			{object}	ProjectDetailResponse
// @Failure		403			{object}	response.ErrorResponse
// @Failure		404			{object}	response.ErrorResponse
// @Router			/cuipo/estadisticas/proyectos/{secretaria}/{proyecto} [get]
func (app *application) handleGetProjectDetail(w http.ResponseWriter, r *http.Request) {
	secretaria, proyecto := pathParam(r, "secretaria"), pathParam(r, "proyecto")
	if !canSee(r, secretaria) {
		writeJSONError(w, http.StatusForbidden, "secretaría outside the user's dependency")
		return
	}

	data, err := app.store.Stats.ProjectDetail(r.Context(), secretaria, proyecto)
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to get project detail: "+err.Error())
		return
	}

	response := &ProjectDetailResponse{
		Success: true,
		Data:    data,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Project chart totals
// @Description	Amounts summed over every row whose project code starts with the first 6 characters given.
// @Tags			Statistics
// @Produce		json
// @Param			secretaria	path		string	true	"Secretaría"
// @Param			proyecto	path		string	true	"Project code"
// @Success		200			{object}	ProjectChartResponse
// @Failure		403			{object}	response.ErrorResponse
// @Failure		404			{object}	response.ErrorResponse
// @Router			/cuipo/estadisticas/grafico/{secretaria}/{proyecto} [get]
func (app *application) handleGetProjectChart(w http.ResponseWriter, r *http.Request) {
	secretaria, proyecto := pathParam(r, "secretaria"), pathParam(r, "proyecto")
	if !canSee(r, secretaria) {
		writeJSONError(w, http.StatusForbidden, "secretaría outside the user's dependency")
		return
	}

	data, err := app.store.Stats.ProjectChart(r.Context(), secretaria, proyecto)
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to get project chart: "+err.Error())
		return
	}

	response := &ProjectChartResponse{
		Success: true,
		Data:    data,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Dashboard
// @Description	Global totals and project counts per secretaría.
// @Tags			Statistics
// @Produce		json
// @Param			dependencia	query		string	false	"Secretaría filter (admins only)"
// @Success		200			{object}	DashboardResponse
// @Router			/cuipo/estadisticas/dashboard [get]
func (app *application) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	filter := store.StatsFilter{Dependencia: dependencyScope(r, "dependencia")}
	data := &Dashboard{}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		totals, err := app.store.Stats.GlobalTotals(ctx, filter)
		data.Totals = totals
		return err
	})
	g.Go(func() error {
		counts, err := app.store.Stats.ProjectCounts(ctx, filter)
		data.Secretarias = counts
		return err
	})
	if err := g.Wait(); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to build dashboard: "+err.Error())
		return
	}

	response := &DashboardResponse{
		Success: true,
		Data:    data,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
