package accessory

import "errors"

var (
	// ErrAuthRequired indicates the bridge rejected the request; it must run in insecure mode
	ErrAuthRequired = errors.New("bridge requires insecure mode")

	// ErrUnavailable indicates the bridge could not be reached or answered with an error
	ErrUnavailable = errors.New("bridge unavailable")

	// ErrNotFound indicates a service or characteristic was not found
	ErrNotFound = errors.New("accessory not found")

	// ErrNotConfigured indicates the bridge port is not configured
	ErrNotConfigured = errors.New("bridge not configured")
)
