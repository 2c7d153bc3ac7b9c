package saucenao

import (
	"errors"
	"fmt"
)

// ErrorKind classifies upstream failures.
type ErrorKind int

const (
	// KindOther covers transport failures, server errors and anything unrecognized.
	KindOther ErrorKind = iota
	// KindShortLimit means the 30-second search quota is exhausted.
	KindShortLimit
	// KindDailyLimit means the 24-hour search quota is exhausted.
	KindDailyLimit
	// KindInvalidKey means the API key was rejected.
	KindInvalidKey
	// KindInvalidImage means the URL did not resolve to a usable image.
	KindInvalidImage
)

func (k ErrorKind) String() string {
	switch k {
	case KindShortLimit:
		return "short_limit"
	case KindDailyLimit:
		return "daily_limit"
	case KindInvalidKey:
		return "invalid_key"
	case KindInvalidImage:
		return "invalid_image"
	default:
		return "other"
	}
}

// APIError is returned by Client for every failed request.
type APIError struct {
	Kind       ErrorKind
	StatusCode int    // HTTP status, 0 when no response was received
	Status     int    // header.status from the body, when present
	Message    string // header.message from the body, when present
	Err        error  // underlying transport/decode error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("saucenao %s", e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (http %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }

// KindOf extracts the ErrorKind from err, or KindOther.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindOther
}
