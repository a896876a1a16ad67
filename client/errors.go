package client

import "errors"

var (
	errMissingHost     = errors.New("missing scheme or host")
	errUnexpectedShape = errors.New("unexpected JSON shape")

	// ErrNoObjectID is returned when a response does not carry the id of
	// the object that was created.
	ErrNoObjectID = errors.New("client: response without cmis:objectId")
	// ErrRepositoryNotFound is returned when the repositoryInfo response
	// does not describe the configured repository.
	ErrRepositoryNotFound = errors.New("client: repository not found")
)
