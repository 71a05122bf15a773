package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/farxc/cuipo/internal/ingest"
	"github.com/farxc/cuipo/internal/response"
	"github.com/farxc/cuipo/internal/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type UploadResponse = response.APIResponse[*ingest.Result]
type ListTablesResponse = response.APIResponse[[]string]
type TableDataResponse = response.APIResponse[*store.TableData]

type ExecutionTables struct {
	Tablas       []string         `json:"tablasDisponibles"`
	Datos        *store.TableData `json:"datosTabla"`
	Seleccionada *string          `json:"tablaSeleccionada"`
}

type ExecutionTablesResponse = response.APIResponse[*ExecutionTables]

// @Summary		Upload spreadsheet
// @Description	Replaces the table named after the file with its first sheet (.xlsx, .xlsm or .csv).
// @Tags			Tables
// @Accept			mpfd
// @Produce		json
// @Param			file	formData	file	true	"Spreadsheet"
// @Success		201		{object}	UploadResponse
// @Failure		400		{object}	response.ErrorResponse
// @Failure		500		{object}	response.ErrorResponse
// @Router			/cuipo/upload [post]
func (app *application) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(app.config.uploadMaxMB)<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSONErrorDetails(w, http.StatusBadRequest, "invalid multipart upload", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	res, err := app.ingester.Ingest(r.Context(), header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrUnsupportedFormat), errors.Is(err, ingest.ErrEmptySheet), errors.Is(err, ingest.ErrReservedTable):
			writeJSONErrorDetails(w, http.StatusBadRequest, "file rejected", err)
		default:
			app.appLogger.Error("API-Upload", "Upload failed: file=%s err=%v", header.Filename, err)
			writeJSONErrorDetails(w, http.StatusInternalServerError, "failed to process file", err)
		}
		return
	}

	response := &UploadResponse{
		Success: true,
		Data:    res,
		Message: fmt.Sprintf("Table %s replaced with %d rows", res.Table, res.Inserted),
	}

	if err := writeJSON(w, http.StatusCreated, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		List tables
// @Tags			Tables
// @Produce		json
// @Success		200	{object}	ListTablesResponse
// @Router			/cuipo/tables [get]
func (app *application) handleListTables(w http.ResponseWriter, r *http.Request) {
	data, err := app.store.Tables.List(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list tables: "+err.Error())
		return
	}

	response := &ListTablesResponse{
		Success: true,
		Data:    data,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Get table rows
// @Description	All rows of a table. The working table comes with Totales last, then by id.
// @Tags			Tables
// @Produce		json
// @Param			name	path		string	true	"Table name"
// @Success		200		{object}	TableDataResponse
// @Failure		404		{object}	response.ErrorResponse
// @Router			/cuipo/tables/{name} [get]
func (app *application) handleGetTable(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")

	data, err := app.store.Tables.Rows(r.Context(), name)
	if errors.Is(err, store.ErrTableNotFound) {
		writeJSONError(w, http.StatusNotFound, "table not found: "+name)
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to read table "+name+": "+err.Error())
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

// @Summary		Execution tables
// @Description	Working table, snapshot table and execution exports, plus the rows of the selected one.
// @Tags			Tables
// @Produce		json
// @Param			tabla	query		string	false	"Table to read"
// @Success		200		{object}	ExecutionTablesResponse
// @Router			/cuipo/ejecucion/tablas-disponibles [get]
func (app *application) handleGetExecutionTables(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tables, err := app.store.Tables.ListExecution(ctx)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list execution tables: "+err.Error())
		return
	}

	data := &ExecutionTables{Tablas: tables}
	if tabla := r.URL.Query().Get("tabla"); tabla != "" {
		data.Seleccionada = &tabla
		if slices.Contains(tables, tabla) {
			rows, err := app.store.Tables.Rows(ctx, tabla)
			if err != nil {
				writeJSONError(w, http.StatusInternalServerError, "failed to read table "+tabla+": "+err.Error())
				return
			}
			data.Datos = rows
		}
	}

	response := &ExecutionTablesResponse{
		Success: true,
		Data:    data,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Export working table
// @Description	Working table as an XLSX workbook, restricted to the caller's secretaría unless admin.
// @Tags			Tables
// @Produce		application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param			secretaria	query	string	false	"Secretaría filter (admins only)"
// @Success		200
// @Router			/cuipo/ejecucion/export.xlsx [get]
func (app *application) handleExportWorkingTable(w http.ResponseWriter, r *http.Request) {
	data, err := app.store.Working.List(r.Context(), dependencyScope(r, "secretaria"))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to read working table: "+err.Error())
		return
	}

	var buf bytes.Buffer
	if err := ingest.WriteWorkbook(&buf, data); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to build workbook: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, app.catalog.WorkingTable))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
