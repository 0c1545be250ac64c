package convert

import "errors"

// Common errors
var (
	// ErrMissingData reports a requested spectral subset absent from the
	// parsed input.
	ErrMissingData = errors.New("convert: spectral subset not present")

	// ErrConsistency reports arrays that disagree in length after a reindex
	// that must apply to all of them atomically. It indicates a logic defect
	// or corrupt input and is never silently repaired.
	ErrConsistency = errors.New("convert: reindexed arrays disagree in length")

	// ErrSchema reports parsed input whose shape disagrees with the declared
	// header-field or feature-family schema.
	ErrSchema = errors.New("convert: input disagrees with declared schema")
)
