// Package services holds the lookup pipeline and guild settings logic.
// This file centralizes the service-level error values so that callers can
// map them onto replies with errors.Is.
package services

import "errors"

// Registration errors.
var (
	// ErrInvalidKeyFormat is returned when a candidate key is not 32
	// lowercase alphanumeric characters. No network call is made.
	ErrInvalidKeyFormat = errors.New("api key has an invalid format")

	// ErrKeyRejected is returned when the search API refuses the candidate key.
	ErrKeyRejected = errors.New("api key rejected by upstream")

	// ErrKeyIneligible is returned for free-tier keys, which are IP-bound and
	// cannot be shared by a guild.
	ErrKeyIneligible = errors.New("api key belongs to a free account")
)

// Lookup errors.
var (
	// ErrRateLimitedUpstream means the short or daily search quota is exhausted.
	ErrRateLimitedUpstream = errors.New("upstream search quota exhausted")

	// ErrInvalidCredential means the resolved key was rejected. The default
	// key is not tried in its place.
	ErrInvalidCredential = errors.New("stored api key rejected by upstream")

	// ErrInvalidInput means the URL did not resolve to a usable image.
	ErrInvalidInput = errors.New("no usable image at url")

	// ErrUpstreamUnavailable covers every other upstream failure.
	ErrUpstreamUnavailable = errors.New("upstream search unavailable")
)
