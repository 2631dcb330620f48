package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeFetch represents transport or status failures while fetching
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeParse represents malformed embedded data or sitemaps
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeIdentifier represents a page with no resolvable product identifier
	ErrorTypeIdentifier ErrorType = "identifier"
	// ErrorTypeOutput represents failures writing output tables
	ErrorTypeOutput ErrorType = "output"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// Sentinels for errors.Is checks against ExtractError values
var (
	ErrFetch             = errors.New("fetch failed")
	ErrParse             = errors.New("parse failed")
	ErrMissingIdentifier = errors.New("missing product identifier")
	ErrOutput            = errors.New("output failed")
	ErrConfiguration     = errors.New("invalid configuration")
)

// ExtractError represents an extractor-specific error
type ExtractError struct {
	Type    ErrorType
	Site    string
	URL     string
	Message string
	Err     error
	Time    time.Time

	// Permanent marks a failure that another attempt cannot fix, such as a
	// 404 or an undecodable body
	Permanent bool
}

// Error implements the error interface
func (e *ExtractError) Error() string {
	where := e.Site
	if e.URL != "" {
		where = fmt.Sprintf("%s %s", e.Site, e.URL)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, where, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, where, e.Message)
}

// Unwrap returns the underlying error
func (e *ExtractError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's type
func (e *ExtractError) Is(target error) bool {
	switch target {
	case ErrFetch:
		return e.Type == ErrorTypeFetch
	case ErrParse:
		return e.Type == ErrorTypeParse
	case ErrMissingIdentifier:
		return e.Type == ErrorTypeIdentifier
	case ErrOutput:
		return e.Type == ErrorTypeOutput
	case ErrConfiguration:
		return e.Type == ErrorTypeConfiguration
	}
	return false
}

// IsRetryable returns true if the error is retryable
func (e *ExtractError) IsRetryable() bool {
	return e.Type == ErrorTypeFetch && !e.Permanent
}

// NewError creates a new ExtractError
func NewError(errType ErrorType, site, url, message string, err error) *ExtractError {
	return &ExtractError{
		Type:    errType,
		Site:    site,
		URL:     url,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewFetchError creates a new fetch error
func NewFetchError(site, url, message string, err error) *ExtractError {
	return NewError(ErrorTypeFetch, site, url, message, err)
}

// NewPermanentFetchError creates a fetch error that is not worth retrying
func NewPermanentFetchError(site, url, message string, err error) *ExtractError {
	e := NewError(ErrorTypeFetch, site, url, message, err)
	e.Permanent = true
	return e
}

// NewParseError creates a new parse error
func NewParseError(site, url, message string, err error) *ExtractError {
	return NewError(ErrorTypeParse, site, url, message, err)
}

// NewMissingIdentifierError creates a new identifier error
func NewMissingIdentifierError(site, url string) *ExtractError {
	return NewError(ErrorTypeIdentifier, site, url, "no product identifier found", nil)
}

// NewOutputError creates a new output error
func NewOutputError(site, path, message string, err error) *ExtractError {
	return NewError(ErrorTypeOutput, site, path, message, err)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(message string, err error) *ExtractError {
	return NewError(ErrorTypeConfiguration, "", "", message, err)
}

// IsRetryable reports whether err is an ExtractError marked retryable
func IsRetryable(err error) bool {
	var e *ExtractError
	if errors.As(err, &e) {
		return e.IsRetryable()
	}
	return false
}
