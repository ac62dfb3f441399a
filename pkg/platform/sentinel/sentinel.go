package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: row does not exist in store
// - ErrConflict: write would violate a uniqueness constraint
// - ErrAlreadyMerged: entity is a tombstone and cannot participate again
// - ErrAlreadyApplied: identifier update record was already applied
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrAlreadyMerged  = errors.New("already merged")
	ErrAlreadyApplied = errors.New("already applied")
)
