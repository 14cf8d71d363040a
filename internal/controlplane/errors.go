package controlplane

import "errors"

// Sentinel errors for control plane operations.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrEmptyMessage = errors.New("message must not be empty")
	ErrNoArchive    = errors.New("archive is not configured")
)
