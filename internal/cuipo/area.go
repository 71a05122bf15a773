package cuipo

import (
	"errors"
	"fmt"
)

// ErrDataShape marks a code whose characters do not have the expected shape.
var ErrDataShape = errors.New("data shape violation")

// ShapeError describes which character of which value broke the expected shape.
type ShapeError struct {
	Field    string
	Value    string
	Position int
	Reason   string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s %q: position %d %s", e.Field, e.Value, e.Position, e.Reason)
}

func (e *ShapeError) Unwrap() error { return ErrDataShape }

// FunctionalArea is the product breakdown encoded in an area_funcional code.
type FunctionalArea struct {
	SectorCuipo       string
	ProductoPpal      string
	CantidadProducto  int
	ProductoAReportar string
}

const quantityPosition = 13

// ParseFunctionalArea splits a functional-area code. The character at position 13
// must be a decimal digit.
func ParseFunctionalArea(areaFuncional string) (FunctionalArea, error) {
	code := Trim(areaFuncional)

	qty := Substr(code, quantityPosition, 1)
	if len(qty) != 1 || !isASCIIDigits(qty) {
		return FunctionalArea{}, &ShapeError{
			Field:    "area_funcional",
			Value:    areaFuncional,
			Position: quantityPosition,
			Reason:   "is not a digit",
		}
	}

	fa := FunctionalArea{
		SectorCuipo:      Left(code, 4),
		ProductoPpal:     Substr(code, 1, 4) + Substr(code, 10, 3),
		CantidadProducto: int(qty[0] - '0'),
	}
	if fa.CantidadProducto == 1 {
		fa.ProductoAReportar = fa.ProductoPpal
	} else {
		fa.ProductoAReportar = Seleccionar
	}
	return fa, nil
}
