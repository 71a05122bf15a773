package cuipo

import (
	"database/sql"
	"strings"
)

// SectorRefs are the health and education reference tables.
type SectorRefs struct {
	// EducacionDetalle and SaludDetalle: sector -> (detalle_sectorial)
	EducacionDetalle *Lookup
	SaludDetalle     *Lookup
	// EducacionCodigos and SaludCodigos: codigo -> (codigo)
	EducacionCodigos *Lookup
	SaludCodigos     *Lookup
	// SaludGasto: codigo_ejecucion -> (codigo_programacion)
	SaludGasto *Lookup
}

// SectorDetail is the stage 6 output for one row.
type SectorDetail struct {
	Detalle   sql.NullString
	Extrae    string
	ProgGasto string
}

// DetailPrefix returns the part of detalle before the first " - ", untrimmed.
// Without a separator the whole trimmed value is the prefix.
func DetailPrefix(detalle string) string {
	prefix, _, found := strings.Cut(detalle, DetailSeparator)
	if !found {
		return Trim(detalle)
	}
	return prefix
}

// ExtractDetailCode validates the prefix of a sector detail against the code
// tables: 8-character codes may come from either sector, 9-character codes only
// from health. Anything else yields "0".
func ExtractDetailCode(detalle sql.NullString, refs SectorRefs) string {
	if !detalle.Valid || Trim(detalle.String) == "" {
		return NoDetalle
	}
	prefix := DetailPrefix(detalle.String)
	switch Length(prefix) {
	case 8:
		if refs.EducacionCodigos.Has(prefix) || refs.SaludCodigos.Has(prefix) {
			return prefix
		}
	case 9:
		if refs.SaludCodigos.Has(prefix) {
			return prefix
		}
	}
	return NoDetalle
}

// ResolveSectorDetail computes the sector detail of a row from its secretariat.
func ResolveSectorDetail(secretaria sql.NullString, refs SectorRefs) SectorDetail {
	var sd SectorDetail
	sec := ""
	if secretaria.Valid {
		sec = Trim(secretaria.String)
	}

	switch sec {
	case SecretariaEducacion:
		if v, ok := refs.EducacionDetalle.Get(SectorEducacion, 0); ok {
			sd.Detalle = sql.NullString{String: v, Valid: true}
		}
	case SecretariaSalud:
		if v, ok := refs.SaludDetalle.Get(SectorSalud, 0); ok {
			sd.Detalle = sql.NullString{String: v, Valid: true}
		}
	}

	sd.Extrae = ExtractDetailCode(sd.Detalle, refs)
	if sec == SecretariaSalud {
		sd.ProgGasto = refs.SaludGasto.GetOr(sd.Extrae, 0, "")
	}
	return sd
}
