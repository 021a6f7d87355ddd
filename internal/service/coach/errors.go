package coach

import "errors"

var (
	// ErrInvalidRequest means the query was empty or malformed.
	ErrInvalidRequest = errors.New("coach: invalid request")

	// ErrMissingAPIKey means no model credential is configured.
	ErrMissingAPIKey = errors.New("coach: missing api key")

	// ErrInvalidJSON means no usable analysis could be recovered from the
	// model's reply. It never escapes Ask; callers see ErrCoachUnavailable.
	ErrInvalidJSON = errors.New("coach: invalid json")

	// ErrCoachUnavailable means the model could not produce an answer.
	ErrCoachUnavailable = errors.New("coach: unavailable")
)
