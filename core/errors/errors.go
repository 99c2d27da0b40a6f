// Package errors provides standardized error types and helpers for the taxonomist codebase.
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
	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("already exists")
	// ErrInternal indicates an internal system error
	ErrInternal = errors.New("internal error")
	// ErrUnsupported indicates an unsupported operation or format
	ErrUnsupported = errors.New("unsupported")
)

// Sentinel errors for taxonomy parsing and graph loading.
var (
	// ErrDuplicateID indicates a block tried to take an id that was already assigned
	ErrDuplicateID = errors.New("duplicate id")
	// ErrMalformedProperty indicates a property line that is not name:lc:value
	ErrMalformedProperty = errors.New("malformed property")
	// ErrMissingLanguageCode indicates a one-liner without a language code
	ErrMissingLanguageCode = errors.New("missing language code")
	// ErrDanglingParent indicates a parent reference that matches no entry
	ErrDanglingParent = errors.New("dangling parent reference")
	// ErrLinkCountMismatch indicates the store created fewer links than requested
	ErrLinkCountMismatch = errors.New("link count mismatch")
	// ErrBrokenChain indicates the ordering links do not form a single chain
	ErrBrokenChain = errors.New("broken ordering chain")
)

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "node", "project", "original text")
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

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation (may be redacted)
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "open")
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
	Format  string // Format being parsed (e.g., "taxonomy", "line ranges")
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

// DecodeError is returned when a source line is not valid UTF-8.
type DecodeError struct {
	Path string
	Line int
}

func (e *DecodeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("invalid UTF-8 in %s at line %d", e.Path, e.Line)
	}
	return fmt.Sprintf("invalid UTF-8 at line %d", e.Line)
}

func (e *DecodeError) Unwrap() error {
	return ErrInvalidInput
}

// DuplicateIDError is raised when a block wants an id while it already has one,
// or when an id was already emitted earlier in the file.
type DuplicateIDError struct {
	Line int    // 1-based line number of the offending line, 0 if unknown
	ID   string // The id in conflict, if known
}

func (e *DuplicateIDError) Error() string {
	switch {
	case e.ID != "" && e.Line > 0:
		return fmt.Sprintf("duplicate id %s at line %d", e.ID, e.Line)
	case e.ID != "":
		return fmt.Sprintf("duplicate id %s", e.ID)
	default:
		return fmt.Sprintf("duplicate id at line %d, missing blank line between entries?", e.Line)
	}
}

func (e *DuplicateIDError) Unwrap() error {
	return ErrDuplicateID
}

// MalformedPropertyError is raised for a property line that cannot be split
// into a valid name, language code and value.
type MalformedPropertyError struct {
	Line int
	Text string
}

func (e *MalformedPropertyError) Error() string {
	return fmt.Sprintf("reading error at line %d, unexpected format: %q", e.Line, e.Text)
}

func (e *MalformedPropertyError) Unwrap() error {
	return ErrMalformedProperty
}

// MissingLanguageCodeError is raised for a stopwords or synonyms line
// without a language code.
type MissingLanguageCodeError struct {
	Line int
	Text string
}

func (e *MissingLanguageCodeError) Error() string {
	return fmt.Sprintf("missing language code at line %d: %q", e.Line, e.Text)
}

func (e *MissingLanguageCodeError) Unwrap() error {
	return ErrMissingLanguageCode
}

// DanglingParentError reports a parent reference that resolves to no entry.
type DanglingParentError struct {
	ParentID string
	ChildID  string
}

func (e *DanglingParentError) Error() string {
	return fmt.Sprintf("parent %s of %s not found", e.ParentID, e.ChildID)
}

func (e *DanglingParentError) Unwrap() error {
	return ErrDanglingParent
}

// LinkCountMismatchError reports that the store created fewer links than requested.
// Links that were created are kept.
type LinkCountMismatchError struct {
	Kind     string // "ordering" or "child"
	Expected int
	Actual   int
}

func (e *LinkCountMismatchError) Error() string {
	return fmt.Sprintf("created %d %s links, expected %d", e.Actual, e.Kind, e.Expected)
}

func (e *LinkCountMismatchError) Unwrap() error {
	return ErrLinkCountMismatch
}

// BrokenChainError reports a problem found while walking the ordering links.
type BrokenChainError struct {
	NodeID string
	Reason string
}

func (e *BrokenChainError) Error() string {
	return fmt.Sprintf("ordering chain broken at %s: %s", e.NodeID, e.Reason)
}

func (e *BrokenChainError) Unwrap() error {
	return ErrBrokenChain
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

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewParse creates a ParseError
func NewParse(format, path, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Path:    path,
		Message: message,
	}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{
		Feature: feature,
		Reason:  reason,
	}
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
