package service

import "errors"

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("invalid input")
	ErrState            = errors.New("illegal status transition")
	ErrWorkflowPaused   = errors.New("ticket workflow is paused")
	ErrGeofence         = errors.New("outside completion geofence")
	ErrNotRollbackable  = errors.New("audit entry cannot be rolled back")
	ErrConflict         = errors.New("conflict")
)
