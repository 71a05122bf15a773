package pipeline

import (
	"database/sql"
	"strconv"

	"github.com/farxc/cuipo/internal/config"
	"github.com/farxc/cuipo/internal/cuipo"
	"github.com/farxc/cuipo/internal/store"
)

func textCols(names ...string) []store.Column {
	cols := make([]store.Column, len(names))
	for i, n := range names {
		cols[i] = store.Column{Name: n, Type: store.TextColumn}
	}
	return cols
}

// Stages returns the six enrichment stages wired to the tables of c.
func Stages(c config.Catalog) []Stage {
	return []Stage{
		fundStage(c),
		unitStage(c),
		pospreStage(c),
		projectStage(c),
		areaStage(c),
		sectorStage(c),
	}
}

func fundStage(c config.Catalog) Stage {
	return Stage{
		Number:     1,
		Name:       "fund_source",
		Reads:      []string{"fondo"},
		References: map[string]config.Reference{"fuentes": c.Fuentes},
		Passes: []Pass{
			{
				Name:     "fuente",
				Writes:   textCols("fuente", "vigencia_gasto"),
				Eligible: func(r store.Row) bool { return r.Get("fondo").Valid },
				Compute: func(r store.Row, _ Refs) ([]sql.NullString, error) {
					fondo := r.Get("fondo").String
					out := []sql.NullString{null(), null()}
					if f, ok := cuipo.Fuente(fondo); ok {
						out[0] = text(f)
					}
					if v, ok := cuipo.VigenciaGasto(fondo); ok {
						out[1] = text(v)
					}
					return out, nil
				},
			},
			{
				Name:     "fuente_cuipo",
				Writes:   textCols("fuente_cuipo", "situacion_de_fondos"),
				Eligible: func(r store.Row) bool { return r.Get("fuente").Valid },
				Compute: func(r store.Row, refs Refs) ([]sql.NullString, error) {
					fs := cuipo.ResolveFundSource(r.Get("fuente").String, refs["fuentes"])
					return []sql.NullString{text(fs.FuenteCuipo), text(fs.SituacionDeFondos)}, nil
				},
			},
		},
	}
}

func unitStage(c config.Catalog) Stage {
	return Stage{
		Number:    2,
		Name:      "managing_unit",
		DependsOn: []int{1},
		CopyForward: []store.CopyColumn{
			{Dest: "centro_gestor", Source: "centro_gestor"},
			{Dest: "proyecto", Source: "proyecto"},
		},
		Reads: []string{"centro_gestor", "proyecto"},
		References: map[string]config.Reference{
			"dependencias":     c.Dependencias,
			"establecimientos": c.Establecimientos,
			"terceros":         c.Terceros,
		},
		Passes: []Pass{
			{
				Name:     "unidad",
				Writes:   textCols("seccion_ptal_cuipo", "secretaria", "tercero_cuipo"),
				Eligible: func(r store.Row) bool { return present(r, "centro_gestor") },
				Compute: func(r store.Row, refs Refs) ([]sql.NullString, error) {
					mu := cuipo.ResolveManagingUnit(r.Get("centro_gestor").String, r.Get("proyecto"), cuipo.UnitRefs{
						Dependencias:     refs["dependencias"],
						Establecimientos: refs["establecimientos"],
						Terceros:         refs["terceros"],
					})
					return []sql.NullString{text(mu.SeccionPtalCuipo), text(mu.Secretaria), text(mu.TerceroCuipo)}, nil
				},
			},
		},
	}
}

func pospreStage(c config.Catalog) Stage {
	return Stage{
		Number:      3,
		Name:        "budget_line",
		DependsOn:   []int{2},
		CopyForward: []store.CopyColumn{{Dest: "pospre", Source: "posicion_presupuestaria"}},
		Reads:       []string{"pospre"},
		References: map[string]config.Reference{
			"pospre":       c.Pospre,
			"pospre_cuipo": c.PospreCuipo,
		},
		Passes: []Pass{
			{
				Name:     "pospre_cuipo",
				Writes:   textCols("validacion_pospre", "pospre_cuipo"),
				Eligible: func(r store.Row) bool { return present(r, "pospre") },
				Compute: func(r store.Row, refs Refs) ([]sql.NullString, error) {
					v := cuipo.ResolvePospre(r.Get("pospre").String, refs["pospre"])
					return []sql.NullString{text(v), text(v)}, nil
				},
			},
			{
				Name:     "tiene_cpc",
				Writes:   textCols("tiene_cpc"),
				Eligible: func(r store.Row) bool { return present(r, "pospre_cuipo") },
				Compute: func(r store.Row, refs Refs) ([]sql.NullString, error) {
					return []sql.NullString{text(cuipo.TieneCPC(r.Get("pospre_cuipo").String, refs["pospre_cuipo"]))}, nil
				},
			},
		},
	}
}

func projectStage(c config.Catalog) Stage {
	return Stage{
		Number:      4,
		Name:        "project",
		DependsOn:   []int{2},
		CopyForward: []store.CopyColumn{{Dest: "proyecto", Source: "proyecto"}},
		Reads:       []string{"proyecto"},
		References:  map[string]config.Reference{"proyectos": c.Proyectos},
		Passes: []Pass{
			{
				Name:     "proyecto",
				Writes:   textCols("bpin", "nombre_proyecto"),
				Eligible: func(r store.Row) bool { return present(r, "proyecto") },
				Compute: func(r store.Row, refs Refs) ([]sql.NullString, error) {
					p := cuipo.ResolveProject(r.Get("proyecto").String, refs["proyectos"])
					return []sql.NullString{text(p.BPIN), text(p.NombreProyecto)}, nil
				},
			},
		},
	}
}

func areaStage(c config.Catalog) Stage {
	return Stage{
		Number:      5,
		Name:        "functional_area",
		DependsOn:   []int{2},
		CopyForward: []store.CopyColumn{{Dest: "area_funcional", Source: "area_funcional"}},
		Reads:       []string{"area_funcional"},
		Passes: []Pass{
			{
				Name: "area_funcional",
				Writes: []store.Column{
					{Name: "sector_cuipo", Type: store.TextColumn},
					{Name: "producto_ppal", Type: store.TextColumn},
					{Name: "cantidad_producto", Type: store.IntegerColumn},
					{Name: "producto_a_reportar", Type: store.TextColumn},
				},
				Eligible: func(r store.Row) bool { return present(r, "area_funcional") },
				Compute: func(r store.Row, _ Refs) ([]sql.NullString, error) {
					fa, err := cuipo.ParseFunctionalArea(r.Get("area_funcional").String)
					if err != nil {
						return nil, err
					}
					return []sql.NullString{
						text(fa.SectorCuipo),
						text(fa.ProductoPpal),
						text(strconv.Itoa(fa.CantidadProducto)),
						text(fa.ProductoAReportar),
					}, nil
				},
			},
		},
	}
}

func sectorStage(c config.Catalog) Stage {
	return Stage{
		Number:    6,
		Name:      "sector_detail",
		DependsOn: []int{3, 4, 5},
		Reads:     []string{"secretaria"},
		References: map[string]config.Reference{
			"educacion_detalle": c.EducacionDetalle,
			"salud_detalle":     c.SaludDetalle,
			"educacion_codigos": c.EducacionCodigos,
			"salud_codigos":     c.SaludCodigos,
			"salud_gasto":       c.SaludGasto,
		},
		Passes: []Pass{
			{
				Name:   "detalle_sectorial",
				Writes: textCols("detalle_sectorial", "extrae_detalle_sectorial", "detalle_sectorial_prog_gasto"),
				Compute: func(r store.Row, refs Refs) ([]sql.NullString, error) {
					sd := cuipo.ResolveSectorDetail(r.Get("secretaria"), cuipo.SectorRefs{
						EducacionDetalle: refs["educacion_detalle"],
						SaludDetalle:     refs["salud_detalle"],
						EducacionCodigos: refs["educacion_codigos"],
						SaludCodigos:     refs["salud_codigos"],
						SaludGasto:       refs["salud_gasto"],
					})
					return []sql.NullString{sd.Detalle, text(sd.Extrae), text(sd.ProgGasto)}, nil
				},
			},
		},
	}
}
