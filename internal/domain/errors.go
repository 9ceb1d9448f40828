package domain

import "errors"

// ErrNoProviders aborts an aggregation run before any fetch: with neither
// provider credential configured there is nothing to aggregate.
var ErrNoProviders = errors.New("no news provider credentials configured")

// RecipientLookupError is fatal to a digest run: the verified-user directory
// could not be read, so no sends were attempted.
type RecipientLookupError struct {
	Err error
}

func (e *RecipientLookupError) Error() string {
	return "resolve recipients: " + e.Err.Error()
}

func (e *RecipientLookupError) Unwrap() error { return e.Err }
