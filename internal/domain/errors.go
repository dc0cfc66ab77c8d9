package domain

import "errors"

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrEmptyWindow     = errors.New("process name and window title are both empty")
	ErrInvalidPlatform = errors.New("invalid platform")
	ErrInvalidRange    = errors.New("invalid time range")
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptySummary    = errors.New("summary text is empty")
)
