package domain

import "errors"

var (
	// ErrParse is returned when an input file is malformed or lacks required columns
	ErrParse = errors.New("malformed input file")

	// ErrEncoding is returned when input bytes do not decode with the declared encoding,
	// or when output text cannot be represented in the target encoding
	ErrEncoding = errors.New("text encoding mismatch")

	// ErrType is returned when a numeric field holds non-numeric or negative text
	ErrType = errors.New("invalid numeric value")

	// ErrSearchUnavailable is returned when the market search API call fails
	ErrSearchUnavailable = errors.New("market search unavailable")

	// ErrDivisionByZero is returned by margin arithmetic when the price is zero
	ErrDivisionByZero = errors.New("division by zero")

	// ErrEmptyKeyword is returned when a search is requested without a keyword.
	// Callers render it as a prompt rather than a failure.
	ErrEmptyKeyword = errors.New("search keyword is empty")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrRunNotFound is returned when a run ID is unknown or expired
	ErrRunNotFound = errors.New("run not found")

	// ErrUnknownPlatform is returned for an unsupported export target
	ErrUnknownPlatform = errors.New("unknown export platform")
)
