package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrCorruptCatalog = errors.New("corrupt catalog artifact")
)
