package main

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/farxc/cuipo/internal/auth"
	tablecfg "github.com/farxc/cuipo/internal/config"
	"github.com/farxc/cuipo/internal/ingest"
	"github.com/farxc/cuipo/internal/logger"
	"github.com/farxc/cuipo/internal/pipeline"
	"github.com/farxc/cuipo/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage runs hold their request open until the transaction commits.
const pipelineTimeout = 15 * time.Minute

type stageRunner interface {
	Stages() []pipeline.Stage
	RunStage(ctx context.Context, number int) (*pipeline.Result, error)
	RunAll(ctx context.Context, opts pipeline.RunOptions) ([]pipeline.Result, error)
	LoadSnapshot(ctx context.Context) (*pipeline.Result, error)
}

type ingester interface {
	Ingest(ctx context.Context, filename string, r io.Reader) (*ingest.Result, error)
}

type application struct {
	config    config
	store     store.Storage
	catalog   tablecfg.Catalog
	pipeline  stageRunner
	ingester  ingester
	verifier  *auth.Verifier
	appLogger *logger.Logger
	gatherer  prometheus.Gatherer
}

type config struct {
	addr        string
	db          dbConfig
	jwtSecret   string
	adminRoles  []string
	uploadMaxMB int
}

type dbConfig struct {
	addr         string
	maxOpenConns int
	maxIdleConns int
	maxIdleTime  string
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("CUIPO service running"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(app.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.With(middleware.Timeout(60*time.Second)).Get("/health", app.healthCheckHandler)
		r.With(middleware.Timeout(60*time.Second)).Get("/auth/verify", app.handleVerifyToken)

		r.Route("/cuipo", func(r chi.Router) {
			r.Use(app.verifier.Middleware(app.unauthorizedResponse))

			r.Group(func(r chi.Router) {
				// Set a timeout value on the request context (ctx), that will signal
				// through ctx.Done() that the request has timed out and further
				// processing should be stopped.
				r.Use(middleware.Timeout(60 * time.Second))

				r.Post("/upload", app.handleUpload)
				r.Get("/tables", app.handleListTables)
				r.Get("/tables/{name}", app.handleGetTable)

				r.Route("/ejecucion", func(r chi.Router) {
					r.Get("/tablas-disponibles", app.handleGetExecutionTables)
					r.Get("/rows", app.handleGetWorkingRows)
					r.Patch("/rows/{id}", app.handleUpdateWorkingRow)
					r.Get("/export.xlsx", app.handleExportWorkingTable)
					r.Get("/cpc-options/{lastDigit}", app.handleGetCPCOptions)
					r.Get("/productos-mga-options", app.handleGetProductOptions)
					r.Get("/runs", app.handleGetRuns)
				})

				r.Route("/estadisticas", func(r chi.Router) {
					r.Get("/proyectos", app.handleGetProjectsBySecretaria)
					r.Get("/proyectos/{secretaria}/{proyecto}", app.handleGetProjectDetail)
					r.Get("/grafico/{secretaria}/{proyecto}", app.handleGetProjectChart)
					r.Get("/dashboard", app.handleGetDashboard)
				})
			})

			r.Route("/pipeline", func(r chi.Router) {
				r.Use(middleware.Timeout(pipelineTimeout))

				r.Get("/stages", app.handleListStages)
				r.Post("/snapshot", app.handleLoadSnapshot)
				r.Post("/stages/{stage}", app.handleRunStage)
				r.Post("/run", app.handleRunAll)
			})
		})
	})

	return r
}

func (app *application) run(mux http.Handler) error {

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: pipelineTimeout + time.Minute,
		ReadTimeout:  time.Second * 40,
		IdleTimeout:  time.Minute,
	}

	app.appLogger.Info(component, "Server started on %s", app.config.addr)
	return srv.ListenAndServe()
}
