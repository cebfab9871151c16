package service

import "errors"

// Sentinel error kinds returned to the API layer.
var (
	ErrNotStarted       = errors.New("dashboard state not loaded")
	ErrInvalidSelection = errors.New("invalid selection")
	ErrUnknownFigure    = errors.New("unknown figure")
)
