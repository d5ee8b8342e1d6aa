package airzone

import "errors"

// Sentinel errors for Airzone Cloud operations.
var (
	// ErrAuthenticationFailed indicates the vendor rejected the configured
	// account credentials during sign-in.
	ErrAuthenticationFailed = errors.New("airzone: authentication failed")

	// ErrRequestFailed indicates an HTTP request could not be completed.
	ErrRequestFailed = errors.New("airzone: request failed")

	// ErrUnexpectedStatus indicates the vendor returned a non-success
	// HTTP status code.
	ErrUnexpectedStatus = errors.New("airzone: unexpected response status")

	// ErrDecodeFailed indicates a vendor response body could not be parsed.
	ErrDecodeFailed = errors.New("airzone: decoding response failed")
)
