package model

import "errors"

var (
	// ErrInvalidArtifact marks an artifact that could not be read or decoded.
	ErrInvalidArtifact = errors.New("invalid model artifact")
	// ErrSchemaMismatch marks an artifact or row that disagrees with the expected schema.
	ErrSchemaMismatch = errors.New("model schema mismatch")
	// ErrUnknownCategory marks a categorical value the encoder was not fitted on.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrOutputShape marks predictions that do not have the expected shape or are not finite.
	ErrOutputShape = errors.New("unexpected model output")
)
