package domain

import "errors"

var (
	// ErrInvalidInput is returned before any network call when a request is
	// blank or out of range.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoResults means the gazetteer found no match for the query.
	ErrNoResults = errors.New("no results")
	// ErrUpstreamUnavailable covers transport failures, timeouts, non-2xx
	// statuses, and open circuit breakers.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUpstreamMalformed means the upstream answered with a body that could
	// not be decoded.
	ErrUpstreamMalformed = errors.New("upstream malformed response")
	// ErrSchemaViolation means a generated report did not match the report schema.
	ErrSchemaViolation = errors.New("report schema violation")
)
