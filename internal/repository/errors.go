package repository

import "errors"

var (
	// ErrNotFound is returned by point reads when no document has the
	// requested (id, partition key) pair. It is an expected outcome.
	ErrNotFound = errors.New("repository: document not found")

	// ErrSchemaMismatch is returned by Describe when the table exists but does
	// not have the key schema or index this client relies on.
	ErrSchemaMismatch = errors.New("repository: table schema mismatch")
)
