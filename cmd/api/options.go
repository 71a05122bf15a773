package main

import (
	"errors"
	"net/http"

	"github.com/farxc/cuipo/internal/response"
	"github.com/farxc/cuipo/internal/store"
)

type CPCOptionsResponse = response.APIResponse[[]store.Option]

type ProductOptions struct {
	Options []store.ProductOption `json:"options"`
	Count   int                   `json:"count"`
}

type ProductOptionsResponse = response.APIResponse[*ProductOptions]

func isSingleDigit(s string) bool {
	return len(s) == 1 && s[0] >= '0' && s[0] <= '9'
}

// @Summary		CPC options
// @Description	CPC classes whose cpc digit matches the last digit of the budget line.
// @Tags			Execution
// @Produce		json
// @Param			lastDigit	path		string	true	"Single digit"
// @Success		200			{object}	CPCOptionsResponse
// @Failure		400			{object}	response.ErrorResponse
// @Failure		404			{object}	response.ErrorResponse
// @Router			/cuipo/ejecucion/cpc-options/{lastDigit} [get]
func (app *application) handleGetCPCOptions(w http.ResponseWriter, r *http.Request) {
	lastDigit := pathParam(r, "lastDigit")
	if !isSingleDigit(lastDigit) {
		writeJSONError(w, http.StatusBadRequest, "lastDigit must be a single digit")
		return
	}

	data, err := app.store.Options.CPCOptions(r.Context(), lastDigit)
	if errors.Is(err, store.ErrTableNotFound) {
		writeJSONError(w, http.StatusNotFound, "cpc table not found")
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to get cpc options: "+err.Error())
		return
	}

	response := &CPCOptionsResponse{
		Success: true,
		Data:    data,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		MGA product options
// @Description	Products registered for a SAP project code.
// @Tags			Execution
// @Produce		json
// @Param			codigoSap	query		string	true	"SAP project code"
// @Success		200			{object}	ProductOptionsResponse
// @Failure		400			{object}	response.ErrorResponse
// @Router			/cuipo/ejecucion/productos-mga-options [get]
func (app *application) handleGetProductOptions(w http.ResponseWriter, r *http.Request) {
	codigoSap := r.URL.Query().Get("codigoSap")
	if codigoSap == "" {
		writeJSONError(w, http.StatusBadRequest, "codigoSap is required")
		return
	}

	data, err := app.store.Options.ProductOptions(r.Context(), codigoSap)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to get product options: "+err.Error())
		return
	}

	response := &ProductOptionsResponse{
		Success: true,
		Data:    &ProductOptions{Options: data, Count: len(data)},
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
