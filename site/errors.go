package site

import "errors"

var (
	// ErrPageNotFound signals that no loaded bundle serves the requested route.
	ErrPageNotFound = errors.New("page not found")
	ErrNoSources    = errors.New("no markdown sources found")
)
