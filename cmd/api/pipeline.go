package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/farxc/cuipo/internal/pipeline"
	"github.com/farxc/cuipo/internal/response"
	"github.com/farxc/cuipo/internal/store"
)

type StageInfo struct {
	Number         int      `json:"number"`
	Name           string   `json:"name"`
	DependsOn      []int    `json:"depends_on"`
	Reads          []string `json:"reads"`
	Writes         []string `json:"writes"`
	RequiredTables []string `json:"required_tables"`
}

type ListStagesResponse = response.APIResponse[[]StageInfo]
type RunStageResponse = response.APIResponse[*pipeline.Result]
type RunAllResponse = response.APIResponse[[]pipeline.Result]
type GetRunsResponse = response.APIResponse[[]store.Run]

// RunAllFailure reports the stage that stopped a batch and what committed before it.
type RunAllFailure struct {
	response.StageErrorResponse
	Completed []pipeline.Result `json:"completed"`
}

func stageErrorBody(err error) (int, *response.StageErrorResponse) {
	if errors.Is(err, pipeline.ErrUnknownStage) {
		return http.StatusNotFound, &response.StageErrorResponse{Error: "unknown stage", Kind: string(pipeline.KindPrecondition), Details: err.Error()}
	}

	var se *pipeline.StageError
	if errors.As(err, &se) {
		return http.StatusInternalServerError, &response.StageErrorResponse{
			Error:        "stage failed and was rolled back",
			Stage:        se.Stage,
			Kind:         string(se.Kind),
			MissingTable: se.Table,
			Details:      se.Err.Error(),
		}
	}
	return http.StatusInternalServerError, &response.StageErrorResponse{Error: "stage failed", Kind: string(pipeline.KindInternal), Details: err.Error()}
}

func (app *application) writeStageError(w http.ResponseWriter, err error) {
	status, body := stageErrorBody(err)
	app.appLogger.Error("API-Pipeline", "Stage request failed: stage=%d kind=%s err=%v", body.Stage, body.Kind, err)
	writeJSON(w, status, body)
}

// @Summary		List stages
// @Description	Stages in execution order with their read and write sets.
// @Tags			Pipeline
// @Produce		json
// @Success		200	{object}	ListStagesResponse
// @Router			/cuipo/pipeline/stages [get]
func (app *application) handleListStages(w http.ResponseWriter, r *http.Request) {
	var data []StageInfo
	for _, st := range app.pipeline.Stages() {
		data = append(data, StageInfo{
			Number:         st.Number,
			Name:           st.Name,
			DependsOn:      st.DependsOn,
			Reads:          st.Reads,
			Writes:         st.Writes(),
			RequiredTables: st.RequiredTables(app.catalog),
		})
	}

	response := &ListStagesResponse{
		Success: true,
		Data:    data,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Load snapshot
// @Description	Replaces the working table with the snapshot source. Every stage must run again afterwards.
// @Tags			Pipeline
// @Produce		json
// @Success		200	{object}	RunStageResponse
// @Failure		500	{object}	response.StageErrorResponse
// @Router			/cuipo/pipeline/snapshot [post]
func (app *application) handleLoadSnapshot(w http.ResponseWriter, r *http.Request) {
	res, err := app.pipeline.LoadSnapshot(r.Context())
	if err != nil {
		app.writeStageError(w, err)
		return
	}

	response := &RunStageResponse{
		Success: true,
		Data:    res,
		Message: "Snapshot loaded into the working table",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Run stage
// @Description	Runs one enrichment stage in its own transaction.
// @Tags			Pipeline
// @Produce		json
// @Param			stage	path		int	true	"Stage number"
// @Success		200		{object}	RunStageResponse
// @Failure		400		{object}	response.ErrorResponse
// @Failure		404		{object}	response.StageErrorResponse
// @Failure		500		{object}	response.StageErrorResponse
// @Router			/cuipo/pipeline/stages/{stage} [post]
func (app *application) handleRunStage(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(pathParam(r, "stage"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid stage number")
		return
	}

	res, err := app.pipeline.RunStage(r.Context(), number)
	if err != nil {
		app.writeStageError(w, err)
		return
	}

	response := &RunStageResponse{
		Success: true,
		Data:    res,
		Message: "Stage committed",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Run all stages
// @Description	Runs every stage in dependency order, optionally reloading the snapshot first.
// @Tags			Pipeline
// @Produce		json
// @Param			snapshot	query		bool	false	"Reload the snapshot before stage 1"
// @Success		200			{object}	RunAllResponse
// @Failure		500			{object}	RunAllFailure
// @Router			/cuipo/pipeline/run [post]
func (app *application) handleRunAll(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.RunOptions
	if v := r.URL.Query().Get("snapshot"); v != "" {
		snapshot, err := strconv.ParseBool(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid snapshot parameter")
			return
		}
		opts.Snapshot = snapshot
	}

	results, err := app.pipeline.RunAll(r.Context(), opts)
	if err != nil {
		status, body := stageErrorBody(err)
		app.appLogger.Error("API-Pipeline", "Batch failed: stage=%d kind=%s err=%v", body.Stage, body.Kind, err)
		writeJSON(w, status, &RunAllFailure{StageErrorResponse: *body, Completed: results})
		return
	}

	response := &RunAllResponse{
		Success: true,
		Data:    results,
		Message: "All stages committed",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Get run history
// @Description	Latest snapshot loads and stage runs, newest first.
// @Tags			Pipeline
// @Produce		json
// @Param			limit	query		int	false	"Limit the number of results"	default(20)
// @Success		200		{object}	GetRunsResponse
// @Failure		500		{object}	response.ErrorResponse
// @Router			/cuipo/ejecucion/runs [get]
func (app *application) handleGetRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 20, 500)

	data, err := app.store.Runs.Latest(r.Context(), limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to get run history: "+err.Error())
		return
	}

	response := &GetRunsResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved latest pipeline runs",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
