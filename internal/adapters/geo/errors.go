package geo

import "errors"

// ErrBoundaryUnavailable wraps every failure to read or decode the boundary
// file.
var ErrBoundaryUnavailable = errors.New("boundary file unavailable")
