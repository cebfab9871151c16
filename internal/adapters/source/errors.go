package source

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrDataUnavailable wraps every failure to fetch or parse the dataset.
	ErrDataUnavailable = errors.New("case dataset unavailable")
	ErrMissingColumn   = errors.New("missing column")
	ErrBadRow          = errors.New("malformed row")
)
