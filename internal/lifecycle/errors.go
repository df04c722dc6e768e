package lifecycle

import "errors"

var (
	// ErrNoSchemaInstalled means the metadata table is absent: nothing to
	// migrate. install-schema creates the initial schema.
	ErrNoSchemaInstalled = errors.New("no schema is currently installed")

	// ErrSchemaRead means the metadata table exists but holds no version
	// row, which only happens when an install was interrupted.
	ErrSchemaRead = errors.New("could not read current schema version")

	// ErrUnknownVersion means the requested version is not in the registry.
	ErrUnknownVersion = errors.New("unknown schema version")

	// ErrUnsupportedOperation means the resolved version module does not
	// implement the requested capability.
	ErrUnsupportedOperation = errors.New("operation not supported")

	// ErrAlreadyAtVersion rejects a migration whose target equals the
	// installed version.
	ErrAlreadyAtVersion = errors.New("schema version is already installed")

	// ErrVersionMismatch means the installed version is not the latest
	// known to the registry.
	ErrVersionMismatch = errors.New("installed schema version does not match expected version")
)
