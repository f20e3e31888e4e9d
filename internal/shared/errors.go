package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Validation errors: detected before any network call
	ErrValidation      = fmt.Errorf("validation failed")
	ErrEmptyBatch      = fmt.Errorf("%w: no playlists selected", ErrValidation)
	ErrInvalidProvider = fmt.Errorf("%w: unsupported provider", ErrValidation)
	ErrSameProvider    = fmt.Errorf("%w: source and destination must differ", ErrValidation)
	ErrPseudoPlaylist  = fmt.Errorf("%w: favorite items cannot be transferred as playlists", ErrValidation)
	ErrInvalidPlaylist = fmt.Errorf("%w: invalid playlist", ErrValidation)

	// Authentication errors
	ErrAuth         = fmt.Errorf("authentication failed")
	ErrMissingToken = fmt.Errorf("%w: no auth token", ErrAuth)
	ErrTokenExpired = fmt.Errorf("%w: access token expired", ErrAuth)
	ErrNotConnected = fmt.Errorf("%w: provider not connected", ErrAuth)

	// Remote errors
	ErrTransport = fmt.Errorf("transport error")
	ErrRemoteJob = fmt.Errorf("remote job failed")
	ErrTimeout   = fmt.Errorf("operation timed out")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
