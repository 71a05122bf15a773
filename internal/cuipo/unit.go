package cuipo

import "database/sql"

// UnitRefs are the reference tables consulted for a managing unit.
type UnitRefs struct {
	// Dependencias: centro_gestor -> (seccion_presupuestal, dependencia)
	Dependencias *Lookup
	// Establecimientos: proyecto -> (establecimiento_publico)
	Establecimientos *Lookup
	// Terceros: establecimientos_publicos -> (codigo)
	Terceros *Lookup
}

// ManagingUnit is the stage 2 output for one row.
type ManagingUnit struct {
	SeccionPtalCuipo string
	Secretaria       string
	TerceroCuipo     string
}

// IsEstablishment reports whether a managing-unit code belongs to a public
// establishment, whose secretariat is resolved through the project instead.
func IsEstablishment(centroGestor string) bool {
	return Left(Trim(centroGestor), 3) == EstablishmentUnit
}

// ResolveManagingUnit computes the budget section, the secretariat and the
// third-party code for a managing unit. tercero is keyed by the secretariat
// computed here, not by the stored column.
func ResolveManagingUnit(centroGestor string, proyecto sql.NullString, refs UnitRefs) ManagingUnit {
	var mu ManagingUnit
	mu.SeccionPtalCuipo = refs.Dependencias.GetOr(centroGestor, 0, "")

	if IsEstablishment(centroGestor) {
		if v, ok := refs.Establecimientos.GetNull(proyecto, 0); ok {
			mu.Secretaria = v
		} else {
			mu.Secretaria = SecretariaHacienda
		}
	} else {
		mu.Secretaria = refs.Dependencias.GetOr(centroGestor, 1, SecretariaHacienda)
	}

	mu.TerceroCuipo = refs.Terceros.GetOr(mu.Secretaria, 0, DefaultTercero)
	return mu
}
