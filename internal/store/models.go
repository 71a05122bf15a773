package store

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Record is one row of an arbitrary table, keyed by column name.
type Record map[string]any

// TableData keeps the column order of a SELECT * next to its rows.
type TableData struct {
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`
}

// Row is a working-table row as read by a pipeline stage: every requested column
// cast to text.
type Row struct {
	ID     int64
	Values map[string]sql.NullString
}

func (r Row) Get(col string) sql.NullString {
	return r.Values[col]
}

type ColumnType string

const (
	TextColumn    ColumnType = "text"
	IntegerColumn ColumnType = "integer"
)

type Column struct {
	Name string
	Type ColumnType
}

// RowUpdate carries new values for one row, aligned with the columns passed to
// ApplyUpdates.
type RowUpdate struct {
	ID     int64
	Values []sql.NullString
}

// CopyColumn maps a snapshot column onto the working column it refreshes.
type CopyColumn struct {
	Dest   string
	Source string
}

type StepCount struct {
	Step string `json:"step"`
	Rows int64  `json:"rows"`
}

// StepCounts is stored as JSONB.
type StepCounts []StepCount

func (s StepCounts) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func (s *StepCounts) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StepCounts", src)
	}
}

var (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// SnapshotStage is the stage number the ledger uses for snapshot loads.
const SnapshotStage = 0

// Run is one entry of the pipeline run ledger.
type Run struct {
	ID         int64      `db:"id" json:"id"`
	BatchID    *string    `db:"batch_id" json:"batch_id,omitempty"`
	Stage      int        `db:"stage" json:"stage"`
	Name       string     `db:"name" json:"name"`
	Status     string     `db:"status" json:"status"`
	Steps      StepCounts `db:"steps" json:"steps"`
	ErrorKind  *string    `db:"error_kind" json:"error_kind,omitempty"`
	Error      *string    `db:"error" json:"error,omitempty"`
	StartedAt  time.Time  `db:"started_at" json:"started_at"`
	FinishedAt time.Time  `db:"finished_at" json:"finished_at"`
}

type User struct {
	ID             int64   `db:"id_user" json:"id"`
	Name           string  `db:"name_user" json:"name"`
	Email          string  `db:"email_user" json:"email"`
	RoleID         int64   `db:"id_role_user" json:"id_role_user"`
	DependencyID   int64   `db:"id_dependency_user" json:"id_dependency_user"`
	Role           string  `db:"rol_name" json:"role"`
	DependencyName string  `db:"user_secretaria_name" json:"dependencyName"`
	Program        *string `db:"id_programm_user" json:"program"`
}

type Option struct {
	Label string `db:"option_label" json:"label"`
	Value string `db:"option_value" json:"value"`
}

type ProductOption struct {
	Value          string `json:"value"`
	Label          string `json:"label"`
	ProductoCodigo string `json:"producto_codigo"`
}

type ProjectRef struct {
	Codigo *string `json:"codigo"`
	Nombre *string `json:"nombre"`
	Fuente *string `json:"fuente"`
}

// ProjectRefs is scanned from a jsonb_agg column.
type ProjectRefs []ProjectRef

func (p *ProjectRefs) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("cannot scan %T into ProjectRefs", src)
	}
}

type SecretariaProjects struct {
	Secretaria                string      `db:"secretaria" json:"secretaria"`
	TotalProyectos            int         `db:"total_proyectos" json:"total_proyectos"`
	CentroGestor              *string     `db:"centro_gestor" json:"centro_gestor"`
	DependenciaNombreCompleto *string     `db:"dependencia_nombre_completo" json:"dependencia_nombre_completo"`
	Tipo                      string      `db:"tipo" json:"tipo"`
	Proyectos                 ProjectRefs `db:"proyectos" json:"proyectos"`
}

type ProjectDetail struct {
	Fuente          *string `db:"fuente" json:"fuente"`
	Dependencia     *string `db:"dependencia" json:"dependencia"`
	Pospre          *string `db:"pospre" json:"pospre"`
	Proyecto        *string `db:"proyecto_" json:"proyecto_"`
	NombreProyecto  *string `db:"nombre_proyecto" json:"nombre_proyecto"`
	PptoInicial     *string `db:"ppto_inicial" json:"ppto_inicial"`
	Reducciones     *string `db:"reducciones" json:"reducciones"`
	Adiciones       *string `db:"adiciones" json:"adiciones"`
	Creditos        *string `db:"creditos" json:"creditos"`
	Contracreditos  *string `db:"contracreditos" json:"contracreditos"`
	TotalPptoActual *string `db:"total_ppto_actual" json:"total_ppto_actual"`
	Disponibilidad  *string `db:"disponibilidad" json:"disponibilidad"`
	Compromiso      *string `db:"compromiso" json:"compromiso"`
	Factura         *string `db:"factura" json:"factura"`
	Pagos           *string `db:"pagos" json:"pagos"`
	DisponibleNeto  *string `db:"disponible_neto" json:"disponible_neto"`
	Ejecucion       *string `db:"ejecucion" json:"ejecucion"`
	PctEjecucion    *string `db:"_ejecucion" json:"_ejecucion"`
}

type ProjectChart struct {
	Dependencia     string  `db:"dependencia" json:"dependencia"`
	Proyecto        string  `db:"proyecto" json:"proyecto"`
	NombreProyecto  *string `db:"nombre_proyecto" json:"nombre_proyecto"`
	PptoInicial     float64 `db:"ppto_inicial" json:"ppto_inicial"`
	Reducciones     float64 `db:"reducciones" json:"reducciones"`
	Adiciones       float64 `db:"adiciones" json:"adiciones"`
	Creditos        float64 `db:"creditos" json:"creditos"`
	Contracreditos  float64 `db:"contracreditos" json:"contracreditos"`
	TotalPptoActual float64 `db:"total_ppto_actual" json:"total_ppto_actual"`
	Disponibilidad  float64 `db:"disponibilidad" json:"disponibilidad"`
	Compromiso      float64 `db:"compromiso" json:"compromiso"`
	Factura         float64 `db:"factura" json:"factura"`
	Pagos           float64 `db:"pagos" json:"pagos"`
	DisponibleNeto  float64 `db:"disponible_neto" json:"disponible_neto"`
	Ejecucion       float64 `db:"ejecucion" json:"ejecucion"`
}

type GlobalTotals struct {
	Rows            int     `db:"total_rows" json:"rows"`
	Secretarias     int     `db:"secretarias" json:"secretarias"`
	Proyectos       int     `db:"proyectos" json:"proyectos"`
	PptoInicial     float64 `db:"ppto_inicial" json:"ppto_inicial"`
	TotalPptoActual float64 `db:"total_ppto_actual" json:"total_ppto_actual"`
	Compromiso      float64 `db:"compromiso" json:"compromiso"`
	Pagos           float64 `db:"pagos" json:"pagos"`
}

type SecretariaCount struct {
	Secretaria string `db:"secretaria" json:"secretaria"`
	Proyectos  int    `db:"proyectos" json:"proyectos"`
}
