package headlines

import "errors"

var (
	// ErrEmptyInput is returned when an operation receives no items. Nothing is written.
	ErrEmptyInput = errors.New("no headlines given")

	// ErrEndpointUnavailable is returned when no text-generation provider is
	// configured. It is reported once per invocation and nothing is written.
	ErrEndpointUnavailable = errors.New("text-generation endpoint not configured")

	// ErrEndpointCallFailed wraps a failed call, an unusable response, or a
	// failed write for a single item.
	ErrEndpointCallFailed = errors.New("headline generation failed")
)
