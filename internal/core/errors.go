package core

import "errors"

// Sentinel errors. Their text doubles as the pattern MapError matches on,
// so wrapping them with fmt.Errorf("...: %w") keeps both errors.Is and the
// user-facing message working.
var (
	ErrMissingColumn = errors.New("missing required column")
	ErrInvalidCSV    = errors.New("invalid csv")
	ErrEmptyFile     = errors.New("empty file")
	ErrEmptyMapping  = errors.New("empty mapping")
	ErrEmptyCell     = errors.New("required field is empty")
	ErrFileMissing   = errors.New("config file does not exist")
	ErrFileTooLarge  = errors.New("file too large")

	ErrInvalidParams = errors.New("invalid parameter")
	ErrInvalidColumn = errors.New("invalid column")
	ErrTooManyRows   = errors.New("too many rows")

	ErrConfigNotFound = errors.New("config not found")
	ErrInvalidName    = errors.New("invalid config name")
)
