// Package cuipo holds the CUIPO classification rules applied by the enrichment
// stages. Every rule is a pure function over code strings and in-memory lookups;
// the pipeline package feeds them rows read from the working table.
package cuipo

import "strings"

const (
	// TotalsFondo marks the grand-total line of the working table.
	TotalsFondo = "Totales"

	SecretariaHacienda  = "SECRETARÍA DE HACIENDA"
	SecretariaEducacion = "SECRETARÍA DE EDUCACIÓN"
	SecretariaSalud     = "SECRETARÍA DE SALUD"

	SectorEducacion = "EDUCACION"
	SectorSalud     = "SALUD"

	DefaultTercero    = "1"
	NoAplica          = "NO APLICA"
	Seleccionar       = "SELECCIONAR"
	NoDetalle         = "0"
	DetailSeparator   = " - "
	EstablishmentUnit = "704"
)

// Trim removes leading and trailing spaces only, like Postgres TRIM(text).
func Trim(s string) string {
	return strings.Trim(s, " ")
}

// Substr mirrors SUBSTRING(s FROM from FOR count) with 1-based character
// positions. Positions past the end yield a shorter (possibly empty) result.
func Substr(s string, from, count int) string {
	if count <= 0 {
		return ""
	}
	r := []rune(s)
	start := from - 1
	end := start + count
	if start < 0 {
		start = 0
	}
	if end > len(r) {
		end = len(r)
	}
	if start >= end {
		return ""
	}
	return string(r[start:end])
}

// Left returns the first n characters of s.
func Left(s string, n int) string {
	return Substr(s, 1, n)
}

// Length counts characters, not bytes.
func Length(s string) int {
	return len([]rune(s))
}

func isASCIIDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
