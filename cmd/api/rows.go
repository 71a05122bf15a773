package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/farxc/cuipo/internal/response"
	"github.com/farxc/cuipo/internal/store"
)

type UpdateRowResponse = response.APIResponse[map[string]int64]

// @Summary		Get working rows
// @Description	Working table rows, Totales last. Non-admin users only see their secretaría.
// @Tags			Execution
// @Produce		json
// @Param			secretaria	query		string	false	"Secretaría filter (admins only)"
// @Success		200			{object}	TableDataResponse
// @Router			/cuipo/ejecucion/rows [get]
func (app *application) handleGetWorkingRows(w http.ResponseWriter, r *http.Request) {
	data, err := app.store.Working.List(r.Context(), dependencyScope(r, "secretaria"))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to read working table: "+err.Error())
		return
	}

	response := &TableDataResponse{
		Success: true,
		Data:    data,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Update validator fields
// @Description	Sparse update of the manually edited CPC and MGA validator fields of one row. null clears a field.
// @Tags			Execution
// @Accept			json
// @Produce		json
// @Param			id		path		int					true	"Row id"
// @Param			fields	body		map[string]string	true	"Validator fields"
// @Success		200		{object}	UpdateRowResponse
// @Failure		400		{object}	response.ErrorResponse
// @Failure		404		{object}	response.ErrorResponse
// @Router			/cuipo/ejecucion/rows/{id} [patch]
func (app *application) handleUpdateWorkingRow(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(pathParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid row id")
		return
	}

	var fields map[string]*string
	if err := readJSON(w, r, &fields); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	err = app.store.Working.UpdateValidators(r.Context(), id, fields)
	switch {
	case errors.Is(err, store.ErrNoFields):
		writeJSONError(w, http.StatusBadRequest, "no fields to update")
		return
	case errors.Is(err, store.ErrUnknownField):
		writeJSONErrorDetails(w, http.StatusBadRequest, "field cannot be edited", err)
		return
	case errors.Is(err, store.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "row not found")
		return
	case err != nil:
		writeJSONError(w, http.StatusInternalServerError, "failed to update row: "+err.Error())
		return
	}

	response := &UpdateRowResponse{
		Success: true,
		Data:    map[string]int64{"id": id},
		Message: "Row updated",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
