package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/farxc/cuipo/internal/config"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type StatsStore struct {
	db      *sqlx.DB
	catalog config.Catalog
}

// StatsFilter restricts statistics to one dependency. Empty means everything.
type StatsFilter struct {
	Dependencia string
}

// cleanSum sums a text amount after stripping everything but digits, dots and
// minus signs.
func cleanSum(col string) string {
	c := pq.QuoteIdentifier(col)
	return fmt.Sprintf(`COALESCE(SUM(NULLIF(regexp_replace(%s::text, '[^0-9.-]', '', 'g'), '')::numeric), 0)`, c)
}

/*
ProjectsBySecretaria groups the projects of the working table by secretariat and
adds the projects of every public establishment. With a dependency filter, only
groups whose secretariat, managing unit or dependency name equals it remain.
*/
func (ss *StatsStore) ProjectsBySecretaria(ctx context.Context, f StatsFilter) ([]SecretariaProjects, error) {
	c := ss.catalog
	query := fmt.Sprintf(`
	WITH proyectos_secretarias AS (
		SELECT
			TRIM(cp.secretaria) AS nombre,
			TRIM(cp.proyecto) AS codigo,
			TRIM(p.nombre_proyecto) AS nombre_proyecto,
			TRIM(cp.fuente) AS fuente,
			TRIM(d.centro_gestor) AS centro_gestor,
			TRIM(d.dependencia) AS dependencia_nombre_completo,
			'secretaria'::text AS tipo
		FROM
			%[1]s AS cp
		LEFT JOIN
			%[2]s AS d
				ON TRIM(cp.secretaria) = TRIM(d.dependencia)
				AND TRIM(cp.centro_gestor) = TRIM(d.centro_gestor)
		LEFT JOIN
			%[3]s AS p
				ON TRIM(cp.proyecto) = TRIM(p.%[4]s)
		WHERE
			TRIM(cp.secretaria) IS NOT NULL
			AND TRIM(cp.secretaria) != ''
			AND ($1::text = '' OR TRIM(cp.secretaria) = $1 OR TRIM(d.centro_gestor) = $1 OR TRIM(d.dependencia) = $1)
	),
	proyectos_estapublicos AS (
		SELECT
			TRIM(e.establecimiento_publico) AS nombre,
			TRIM(e.proyecto) AS codigo,
			TRIM(e.nombre) AS nombre_proyecto,
			NULL::text AS fuente,
			TRIM(e.centro_gestor) AS centro_gestor,
			TRIM(e.establecimiento_publico) AS dependencia_nombre_completo,
			'establecimiento'::text AS tipo
		FROM
			%[5]s AS e
		WHERE
			TRIM(e.establecimiento_publico) IS NOT NULL
			AND TRIM(e.establecimiento_publico) != ''
			AND ($1::text = '' OR TRIM(e.centro_gestor) = $1 OR TRIM(e.establecimiento_publico) = $1)
	)
	SELECT
		pb.nombre AS secretaria,
		COUNT(DISTINCT pb.codigo) AS total_proyectos,
		pb.centro_gestor,
		pb.dependencia_nombre_completo,
		pb.tipo,
		jsonb_agg(
			jsonb_build_object('codigo', pb.codigo, 'nombre', pb.nombre_proyecto, 'fuente', pb.fuente)
			ORDER BY pb.codigo
		) AS proyectos
	FROM (
		SELECT * FROM proyectos_secretarias
		UNION ALL
		SELECT * FROM proyectos_estapublicos
	) pb
	GROUP BY
		pb.nombre,
		pb.centro_gestor,
		pb.dependencia_nombre_completo,
		pb.tipo
	ORDER BY
		pb.nombre`,
		c.Working(), c.Qualify(c.Dependencias.Table), c.Qualify(c.Proyectos.Table),
		pq.QuoteIdentifier(c.Proyectos.Key), c.Qualify(c.Establecimientos.Table))

	result := []SecretariaProjects{}
	if err := ss.db.SelectContext(ctx, &result, query, strings.TrimSpace(f.Dependencia)); err != nil {
		return nil, fmt.Errorf("failed to query projects by secretaria: %w", err)
	}
	return result, nil
}

// ProjectDetail returns one line of the given project within a secretariat.
func (ss *StatsStore) ProjectDetail(ctx context.Context, secretaria, proyecto string) (*ProjectDetail, error) {
	amounts := make([]string, len(AmountColumns))
	for i, a := range AmountColumns {
		amounts[i] = pq.QuoteIdentifier(a)
	}

	query := fmt.Sprintf(`
	SELECT DISTINCT ON (TRIM(proyecto))
		TRIM(fuente) AS fuente,
		TRIM(secretaria) AS dependencia,
		TRIM(pospre) AS pospre,
		TRIM(proyecto) AS proyecto_,
		TRIM(nombre_proyecto) AS nombre_proyecto,
		%s
	FROM %s
	WHERE TRIM(secretaria) = $1
		AND TRIM(proyecto) = $2
	ORDER BY TRIM(proyecto), TRIM(fuente)`, strings.Join(amounts, ",\n\t\t"), ss.catalog.Working())

	var d ProjectDetail
	err := ss.db.GetContext(ctx, &d, query, strings.TrimSpace(secretaria), strings.TrimSpace(proyecto))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query project detail: %w", err)
	}
	return &d, nil
}

// ProjectChart sums the amounts of a project, matched on the first six characters
// of its code.
func (ss *StatsStore) ProjectChart(ctx context.Context, secretaria, proyecto string) (*ProjectChart, error) {
	sums := []string{}
	for _, a := range AmountColumns {
		if a == "_ejecucion" {
			continue
		}
		sums = append(sums, cleanSum(a)+" AS "+pq.QuoteIdentifier(a))
	}

	query := fmt.Sprintf(`
	SELECT
		TRIM(secretaria) AS dependencia,
		TRIM(proyecto) AS proyecto,
		TRIM(nombre_proyecto) AS nombre_proyecto,
		%s
	FROM %s
	WHERE TRIM(secretaria) = $1
		AND LEFT(TRIM(proyecto), 6) = $2
	GROUP BY TRIM(secretaria), TRIM(proyecto), TRIM(nombre_proyecto)
	LIMIT 1`, strings.Join(sums, ",\n\t\t"), ss.catalog.Working())

	code := []rune(strings.TrimSpace(proyecto))
	if len(code) > 6 {
		code = code[:6]
	}

	var chart ProjectChart
	err := ss.db.GetContext(ctx, &chart, query, strings.TrimSpace(secretaria), string(code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query project chart: %w", err)
	}
	return &chart, nil
}

// GlobalTotals aggregates the working table, totals row excluded.
func (ss *StatsStore) GlobalTotals(ctx context.Context, f StatsFilter) (GlobalTotals, error) {
	query := fmt.Sprintf(`
	SELECT
		COUNT(*) AS total_rows,
		COUNT(DISTINCT NULLIF(TRIM(secretaria), '')) AS secretarias,
		COUNT(DISTINCT NULLIF(TRIM(proyecto), '')) AS proyectos,
		%s AS ppto_inicial,
		%s AS total_ppto_actual,
		%s AS compromiso,
		%s AS pagos
	FROM %s
	WHERE fondo IS DISTINCT FROM 'Totales'
		AND ($1::text = '' OR TRIM(secretaria) = $1)`,
		cleanSum("ppto_inicial"), cleanSum("total_ppto_actual"), cleanSum("compromiso"), cleanSum("pagos"),
		ss.catalog.Working())

	var totals GlobalTotals
	if err := ss.db.GetContext(ctx, &totals, query, strings.TrimSpace(f.Dependencia)); err != nil {
		return GlobalTotals{}, fmt.Errorf("failed to query global totals: %w", err)
	}
	return totals, nil
}

// ProjectCounts counts distinct projects per secretariat.
func (ss *StatsStore) ProjectCounts(ctx context.Context, f StatsFilter) ([]SecretariaCount, error) {
	query := fmt.Sprintf(`
	SELECT
		TRIM(secretaria) AS secretaria,
		COUNT(DISTINCT NULLIF(TRIM(proyecto), '')) AS proyectos
	FROM %s
	WHERE NULLIF(TRIM(secretaria), '') IS NOT NULL
		AND ($1::text = '' OR TRIM(secretaria) = $1)
	GROUP BY TRIM(secretaria)
	ORDER BY proyectos DESC, secretaria`, ss.catalog.Working())

	counts := []SecretariaCount{}
	if err := ss.db.SelectContext(ctx, &counts, query, strings.TrimSpace(f.Dependencia)); err != nil {
		return nil, fmt.Errorf("failed to query project counts: %w", err)
	}
	return counts, nil
}
