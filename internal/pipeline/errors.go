package pipeline

import (
	"errors"
	"fmt"

	"github.com/farxc/cuipo/internal/cuipo"
	"github.com/lib/pq"
)

type Kind string

const (
	KindPrecondition Kind = "precondition"
	KindSchema       Kind = "schema"
	KindDataShape    Kind = "data_shape"
	KindDependency   Kind = "dependency"
	KindInternal     Kind = "internal"
)

var (
	ErrMissingTable = errors.New("required table does not exist")
	ErrDependency   = errors.New("dependency has not completed since the last snapshot load")
	ErrUnknownStage = errors.New("unknown stage")
	ErrInvalidGraph = errors.New("invalid stage graph")
)

// StageError is the single failure value of a stage or snapshot load. The
// transaction it ran in has been rolled back.
type StageError struct {
	Stage int
	Name  string
	Kind  Kind
	Table string
	Err   error
}

func (e *StageError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("stage %d (%s) %s error on %s: %v", e.Stage, e.Name, e.Kind, e.Table, e.Err)
	}
	return fmt.Sprintf("stage %d (%s) %s error: %v", e.Stage, e.Name, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// classify turns any failure of a stage into a StageError. Undefined tables and
// columns reported by Postgres are schema mismatches.
func classify(number int, name string, err error) *StageError {
	var se *StageError
	if errors.As(err, &se) {
		return se
	}

	out := &StageError{Stage: number, Name: name, Kind: KindInternal, Err: err}

	var pqErr *pq.Error
	switch {
	case errors.Is(err, cuipo.ErrDataShape):
		out.Kind = KindDataShape
	case errors.As(err, &pqErr) && (pqErr.Code == "42P01" || pqErr.Code == "42703"):
		out.Kind = KindSchema
		out.Table = pqErr.Table
	}
	return out
}
