package models

import "errors"

// Validation errors. Their messages are shown to users as-is.
var (
	ErrMissingRequired = errors.New("Please fill in all required fields (Date, Superintendent, Project)")
	ErrInvalidDate     = errors.New("date must be formatted as YYYY-MM-DD")
	ErrInvalidSection  = errors.New("unknown section type")
	ErrInvalidStatus   = errors.New("status must be one of open, in_progress, completed")
	ErrInvalidPriority = errors.New("priority must be one of urgent, high, medium, low")
	ErrEmptyContent    = errors.New("content is required")
	ErrNameRequired    = errors.New("name is required")
)

// ErrUnknownProject is returned when a write references a project that does not exist.
var ErrUnknownProject = errors.New("project not found")
