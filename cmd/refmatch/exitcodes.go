package main

// Exit codes
const (
	ExitSuccess            = 0 // Success
	ExitError              = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError        = 2 // Configuration error (invalid file, unknown backend, bad threshold)
	ExitDataError          = 3 // Data error (unreadable input, malformed works file)
	ExitBackendUnavailable = 4 // No extraction backend available
	ExitNotFound           = 5 // Record not found in ORCID or OpenAlex
	ExitAPIError           = 6 // Upstream API error (rate limit, auth, network)
)
