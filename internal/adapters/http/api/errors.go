package api

import "errors"

// ErrBadRequest marks a request the handlers could not interpret.
var ErrBadRequest = errors.New("bad request")
