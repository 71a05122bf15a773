// Package config describes where the pipeline finds its tables: the working table,
// the snapshot source and every reference table with the columns each lookup uses.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/lib/pq"
	"gopkg.in/yaml.v3"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Reference is a key -> values lookup over one table. Lookups compare trimmed
// strings and resolve duplicate keys to the row with the lowest id.
type Reference struct {
	Table  string   `yaml:"table"`
	Key    string   `yaml:"key"`
	Values []string `yaml:"values"`
}

type UsersCatalog struct {
	Schema       string `yaml:"schema"`
	Users        string `yaml:"users"`
	Roles        string `yaml:"roles"`
	Dependencies string `yaml:"dependencies"`
}

type Catalog struct {
	Schema               string `yaml:"schema"`
	WorkingTable         string `yaml:"working_table"`
	SnapshotTable        string `yaml:"snapshot_table"`
	RunsTable            string `yaml:"runs_table"`
	ExecutionTablePrefix string `yaml:"execution_table_prefix"`

	Fuentes          Reference `yaml:"fuentes"`
	Dependencias     Reference `yaml:"dependencias"`
	Establecimientos Reference `yaml:"establecimientos"`
	Terceros         Reference `yaml:"terceros"`
	Pospre           Reference `yaml:"pospre"`
	PospreCuipo      Reference `yaml:"pospre_cuipo"`
	Proyectos        Reference `yaml:"proyectos"`
	EducacionDetalle Reference `yaml:"educacion_detalle"`
	SaludDetalle     Reference `yaml:"salud_detalle"`
	EducacionCodigos Reference `yaml:"educacion_codigos"`
	SaludCodigos     Reference `yaml:"salud_codigos"`
	SaludGasto       Reference `yaml:"salud_gasto"`
	CPC              Reference `yaml:"cpc"`
	ProductosMGA     Reference `yaml:"productos_mga"`

	Users UsersCatalog `yaml:"users"`
}

func Default() Catalog {
	return Catalog{
		Schema:               "sis_cuipo",
		WorkingTable:         "cuipo_plantilla_distrito_2025_vf",
		SnapshotTable:        "base_de_ejecucion_presupuestal_31032025",
		RunsTable:            "pipeline_runs",
		ExecutionTablePrefix: "cuipo2",

		Fuentes:          Reference{Table: "fuentes_cuipo", Key: "cod", Values: []string{"cod_cuipo", "situacion_de_fondos"}},
		Dependencias:     Reference{Table: "dependencias", Key: "centro_gestor", Values: []string{"seccion_presupuestal", "dependencia"}},
		Establecimientos: Reference{Table: "estapublicos", Key: "proyecto", Values: []string{"establecimiento_publico"}},
		Terceros:         Reference{Table: "terceros", Key: "establecimientos_publicos", Values: []string{"codigo"}},
		Pospre:           Reference{Table: "pospre_con_cpc_y_listas", Key: "pospre", Values: []string{"pospre_cuipo"}},
		PospreCuipo:      Reference{Table: "pospre_con_cpc_y_listas", Key: "pospre_cuipo", Values: []string{"pospre_cuipo"}},
		Proyectos:        Reference{Table: "proyectos", Key: "p", Values: []string{"distrito_m1", "nombre_proyecto"}},
		EducacionDetalle: Reference{Table: "detalle_sectorial_educacion", Key: "sector", Values: []string{"detalle_sectorial"}},
		SaludDetalle:     Reference{Table: "detalle_sectorial_salud", Key: "sector", Values: []string{"detalle_sectorial"}},
		EducacionCodigos: Reference{Table: "detalle_sectorial_educacion", Key: "codigo"},
		SaludCodigos:     Reference{Table: "detalle_sectorial_salud", Key: "codigo"},
		SaludGasto:       Reference{Table: "salud_gasto_mapping", Key: "codigo_ejecucion", Values: []string{"codigo_programacion"}},
		CPC:              Reference{Table: "cpc", Key: "cpc", Values: []string{"codigo_clase_o_subclase"}},
		ProductosMGA:     Reference{Table: "productos_por_proyecto", Key: "codigo_sap", Values: []string{"productos_del_proyecto", "cod_pdto_y_nombre"}},

		Users: UsersCatalog{
			Schema:       "sis_catastro_verificacion",
			Users:        "tbl_users",
			Roles:        "tbl_role",
			Dependencies: "tbl_dependency",
		},
	}
}

// Load returns the default catalog overridden by the YAML file at path. An empty
// path or a missing file yields the defaults.
func Load(path string) (Catalog, error) {
	c := Default()
	if path == "" {
		return c, c.Validate()
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, c.Validate()
	}
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return c, c.Validate()
}

// Qualify returns the quoted schema.table identifier.
func (c Catalog) Qualify(table string) string {
	return pq.QuoteIdentifier(c.Schema) + "." + pq.QuoteIdentifier(table)
}

func (c Catalog) Working() string  { return c.Qualify(c.WorkingTable) }
func (c Catalog) Snapshot() string { return c.Qualify(c.SnapshotTable) }
func (c Catalog) Runs() string     { return c.Qualify(c.RunsTable) }

func (c Catalog) references() map[string]Reference {
	return map[string]Reference{
		"fuentes":           c.Fuentes,
		"dependencias":      c.Dependencias,
		"establecimientos":  c.Establecimientos,
		"terceros":          c.Terceros,
		"pospre":            c.Pospre,
		"pospre_cuipo":      c.PospreCuipo,
		"proyectos":         c.Proyectos,
		"educacion_detalle": c.EducacionDetalle,
		"salud_detalle":     c.SaludDetalle,
		"educacion_codigos": c.EducacionCodigos,
		"salud_codigos":     c.SaludCodigos,
		"salud_gasto":       c.SaludGasto,
		"cpc":               c.CPC,
		"productos_mga":     c.ProductosMGA,
	}
}

func (c Catalog) Validate() error {
	names := map[string]string{
		"schema":                 c.Schema,
		"working_table":          c.WorkingTable,
		"snapshot_table":         c.SnapshotTable,
		"runs_table":             c.RunsTable,
		"users.schema":           c.Users.Schema,
		"users.users":            c.Users.Users,
		"users.roles":            c.Users.Roles,
		"users.dependencies":     c.Users.Dependencies,
		"execution_table_prefix": c.ExecutionTablePrefix,
	}
	for field, ref := range c.references() {
		names[field+".table"] = ref.Table
		names[field+".key"] = ref.Key
		for i, v := range ref.Values {
			names[fmt.Sprintf("%s.values[%d]", field, i)] = v
		}
	}

	var errs []error
	for field, name := range names {
		if !identifierPattern.MatchString(name) {
			errs = append(errs, fmt.Errorf("catalog field %s: invalid identifier %q", field, name))
		}
	}
	return errors.Join(errs...)
}
