package services

import "errors"

// Authorization failures surfaced by the export pipeline and the trainer
// endpoints. Handlers map these onto 401/403 responses.
var (
	ErrUnauthenticated    = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotATrainer        = errors.New("requester is not a trainer")
	ErrExportNotPermitted = errors.New("client has not granted export permission")
	ErrNoTrainer          = errors.New("no assigned trainer")
)
