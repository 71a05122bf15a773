package store

import (
	"context"

	"github.com/farxc/cuipo/internal/config"
	"github.com/jmoiron/sqlx"
)

type Storage struct {
	Tables interface {
		Exists(ctx context.Context, table string) (bool, error)
		List(ctx context.Context) ([]string, error)
		ListExecution(ctx context.Context) ([]string, error)
		Rows(ctx context.Context, table string) (*TableData, error)
		Preview(ctx context.Context, table string, limit int) (*TableData, error)
	}

	Working interface {
		List(ctx context.Context, secretaria string) (*TableData, error)
		UpdateValidators(ctx context.Context, id int64, fields map[string]*string) error
	}

	Uploads interface {
		Replace(ctx context.Context, table string, columns []string, rows [][]string) (int64, error)
	}

	Runs interface {
		Insert(ctx context.Context, run *Run) error
		Latest(ctx context.Context, limit int) ([]Run, error)
		LastSuccess(ctx context.Context, stage int) (int64, error)
	}

	Pipeline interface {
		Begin(ctx context.Context) (PipelineTx, error)
	}

	Options interface {
		CPCOptions(ctx context.Context, lastDigit string) ([]Option, error)
		ProductOptions(ctx context.Context, codigoSap string) ([]ProductOption, error)
	}

	Stats interface {
		ProjectsBySecretaria(ctx context.Context, f StatsFilter) ([]SecretariaProjects, error)
		ProjectDetail(ctx context.Context, secretaria, proyecto string) (*ProjectDetail, error)
		ProjectChart(ctx context.Context, secretaria, proyecto string) (*ProjectChart, error)
		GlobalTotals(ctx context.Context, f StatsFilter) (GlobalTotals, error)
		ProjectCounts(ctx context.Context, f StatsFilter) ([]SecretariaCount, error)
	}

	Users interface {
		GetByEmail(ctx context.Context, email string) (*User, error)
	}
}

func NewStorage(db *sqlx.DB, catalog config.Catalog) *Storage {
	return &Storage{
		Tables:   &TableStore{db: db, catalog: catalog},
		Working:  &WorkingStore{db: db, catalog: catalog},
		Uploads:  &UploadStore{db: db, catalog: catalog},
		Runs:     &RunStore{db: db, catalog: catalog},
		Pipeline: &PipelineStore{db: db, catalog: catalog},
		Options:  &OptionsStore{db: db, catalog: catalog},
		Stats:    &StatsStore{db: db, catalog: catalog},
		Users:    &UserStore{db: db, catalog: catalog},
	}
}
