package store

import "errors"

var (
	ErrNotFound      = errors.New("resource not found")
	ErrNoFields      = errors.New("no fields to update")
	ErrUnknownField  = errors.New("field is not editable")
	ErrTableNotFound = errors.New("table does not exist")
)
