package mirror

import "errors"

// Sentinel kinds for sink failures. All of them are non-fatal to the
// punch-recording path; they classify what gets logged and counted.
var (
	// ErrNotConfigured means no sink identity was provided. Expected in
	// development; not an upstream fault.
	ErrNotConfigured = errors.New("mirror not configured")

	// ErrUpstreamAuth marks a credential or permission failure.
	ErrUpstreamAuth = errors.New("mirror auth failed")

	// ErrUpstreamTransient marks a network, quota, or availability failure
	// worth retrying on a later punch.
	ErrUpstreamTransient = errors.New("mirror temporarily unavailable")

	// ErrMalformedData marks rows the sink returned that could not be
	// interpreted. Rebuilds skip such rows instead of aborting.
	ErrMalformedData = errors.New("malformed mirror data")
)

// Classify maps a sink failure to a stable label for logs and metrics.
func Classify(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, ErrUpstreamAuth):
		return "auth"
	case errors.Is(err, ErrMalformedData):
		return "malformed"
	case errors.Is(err, ErrUpstreamTransient):
		return "transient"
	default:
		return "transient"
	}
}
