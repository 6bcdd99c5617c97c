package services

import "errors"

// Dashboard service errors
var (
	// Dataset errors
	ErrNoData          = errors.New("no records in dataset")
	ErrNoLiveData      = errors.New("no live dataset loaded")
	ErrEmptyWorkbook   = errors.New("workbook produced no usable records")
	ErrInvalidWorkbook = errors.New("workbook could not be read")

	// Snapshot errors
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// Rate errors
	ErrInvalidRates = errors.New("invalid rate table")

	// Container errors
	ErrContainerNotFound = errors.New("container not found")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
)
