// Package errors provides standardized error types and helpers for the ScoreWeave codebase.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownFormat indicates a format hint that resolves to nothing
	ErrUnknownFormat = errors.New("unknown format")
	// ErrHandlerDisabled indicates a known format whose handler is deregistered
	ErrHandlerDisabled = errors.New("handler disabled")
	// ErrDownloadDisabled indicates a URL source while automatic downloads are off
	ErrDownloadDisabled = errors.New("download disabled")
	// ErrUnsupported indicates an unsupported operation or format
	ErrUnsupported = errors.New("unsupported")
)

// UnknownFormatError is returned when a format hint cannot be resolved to
// any registered format name, alias, or extension.
type UnknownFormatError struct {
	Hint string // The hint that failed to resolve (name, alias, or extension)
	Err  error  // Underlying error, if any
}

func (e *UnknownFormatError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("unknown format: %q", e.Hint)
	}
	return "unknown format"
}

func (e *UnknownFormatError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnknownFormat
}

// HandlerDisabledError is returned when a format name resolves but its
// handler has been deregistered or was never installed. Callers must be
// able to distinguish this from UnknownFormatError: the former means "fix
// your hint", this one means "re-enable or install the handler".
type HandlerDisabledError struct {
	Format string // The resolved format name
	Err    error  // Underlying error, if any
}

func (e *HandlerDisabledError) Error() string {
	return fmt.Sprintf("format %q is known but its handler is disabled", e.Format)
}

func (e *HandlerDisabledError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrHandlerDisabled
}

// DownloadDisabledError is returned when a URL source is given while the
// automatic-download preference is off. It names the current preference
// value so the caller knows exactly what to change.
type DownloadDisabledError struct {
	URL        string // The URL that was refused
	Preference string // Current value of the allow-download preference
}

func (e *DownloadDisabledError) Error() string {
	return fmt.Sprintf("cannot fetch %s: automatic downloads are disabled (allowDownload=%s)", e.URL, e.Preference)
}

func (e *DownloadDisabledError) Unwrap() error {
	return ErrDownloadDisabled
}

// TranslateError annotates a per-element failure with the part and measure
// where it happened. This is the only error class that aborts a document's
// translation, so it must localize the failure for the user.
type TranslateError struct {
	PartID  string // Part id from the source document
	Measure string // Measure number as written in the source
	Err     error  // The underlying failure
}

func (e *TranslateError) Error() string {
	if e.Measure != "" {
		return fmt.Sprintf("part %s, measure %s: %v", e.PartID, e.Measure, e.Err)
	}
	return fmt.Sprintf("part %s: %v", e.PartID, e.Err)
}

func (e *TranslateError) Unwrap() error {
	return e.Err
}

// ArchiveError represents a container that claims a kind it cannot deliver
// (e.g. a compressed score with no payload document inside).
type ArchiveError struct {
	Path    string // Archive path
	Message string // What went wrong
	Err     error  // Underlying error, if any
}

func (e *ArchiveError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("archive %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("archive: %s", e.Message)
}

func (e *ArchiveError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "file", "cache artifact", "part")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError represents a parsing or deserialization error
type ParseError struct {
	Format  string // Format being parsed (e.g., "MusicXML", "tinynotation")
	Path    string // File path, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// UnsupportedError represents an unsupported feature or format
type UnsupportedError struct {
	Feature string // Feature or format that is unsupported
	Reason  string // Why it's not supported
	Err     error  // Underlying error, if any
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// Helper functions for creating common errors

// NewUnknownFormat creates an UnknownFormatError
func NewUnknownFormat(hint string) *UnknownFormatError {
	return &UnknownFormatError{Hint: hint}
}

// NewHandlerDisabled creates a HandlerDisabledError
func NewHandlerDisabled(format string) *HandlerDisabledError {
	return &HandlerDisabledError{Format: format}
}

// NewDownloadDisabled creates a DownloadDisabledError
func NewDownloadDisabled(url, preference string) *DownloadDisabledError {
	return &DownloadDisabledError{URL: url, Preference: preference}
}

// NewTranslate creates a TranslateError wrapping err with part/measure context
func NewTranslate(partID, measure string, err error) *TranslateError {
	return &TranslateError{PartID: partID, Measure: measure, Err: err}
}

// NewArchive creates an ArchiveError
func NewArchive(path, message string) *ArchiveError {
	return &ArchiveError{Path: path, Message: message}
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

// NewParse creates a ParseError
func NewParse(format, path, message string) *ParseError {
	return &ParseError{Format: format, Path: path, Message: message}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{Feature: feature, Reason: reason}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
