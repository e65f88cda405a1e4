package core

import "errors"

var (
	ErrNotFound           = errors.New("value not found")
	ErrDateNotFound       = errors.New("today's date not found in date range")
	ErrAnchorNotFound     = errors.New("anchor not found")
	ErrManagerNotFound    = errors.New("manager label not found in surname range")
	ErrInvalidColumnLabel = errors.New("invalid column label")
	ErrInvalidRange       = errors.New("invalid range")
	ErrInvalidLayout      = errors.New("invalid sheet layout")
)
