package cuipo

// Fuente extracts the five-digit funding-source code at characters 5-9 of fondo.
// ok is false for the totals row, short codes and non-digit runs.
func Fuente(fondo string) (string, bool) {
	if fondo == TotalsFondo {
		return "", false
	}
	if Length(fondo) < 9 {
		return "", false
	}
	code := Substr(fondo, 5, 5)
	if len(code) != 5 || !isASCIIDigits(code) {
		return "", false
	}
	return code, true
}

// VigenciaGasto is "2" when fondo starts with the digits 16, "1" otherwise and
// NULL (ok=false) for the totals row.
func VigenciaGasto(fondo string) (string, bool) {
	if fondo == TotalsFondo {
		return "", false
	}
	prefix := Left(fondo, 2)
	if isASCIIDigits(prefix) && prefix == "16" {
		return "2", true
	}
	return "1", true
}

// FundSource is the fuentes_cuipo match of a funding-source code.
type FundSource struct {
	FuenteCuipo       string
	SituacionDeFondos string
}

// ResolveFundSource looks fuente up in the funding-source table. Value columns are
// cod_cuipo and situacion_de_fondos, copied as stored; both default to "".
func ResolveFundSource(fuente string, fuentes *Lookup) FundSource {
	var fs FundSource
	fs.FuenteCuipo, _ = fuentes.GetRaw(fuente, 0)
	fs.SituacionDeFondos, _ = fuentes.GetRaw(fuente, 1)
	return fs
}
