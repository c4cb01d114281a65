package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Category errors let callers tell "fix your input" failures apart from
// "try again later" failures with errors.Is.
var (
	// ErrInvalidInput indicates the caller supplied something unusable:
	// bad configuration, an unsupported file or a corrupt document.
	ErrInvalidInput = errors.New("invalid input")

	// ErrServiceUnavailable indicates a backend failed after retries.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Domain errors. Typed errors below match these with errors.Is.
var (
	// ErrConfiguration indicates invalid parameters, detected at construction.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrUnsupportedFormat indicates no loader handles a file type.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrDocumentProcessing indicates malformed or unreadable source content.
	ErrDocumentProcessing = errors.New("document processing failed")

	// ErrEmbeddingService indicates the embedding backend failed after retries.
	ErrEmbeddingService = errors.New("embedding service failed")

	// ErrGenerationService indicates the generative backend failed after retries.
	ErrGenerationService = errors.New("generation service failed")

	// ErrDimensionMismatch indicates a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrEmptyIndex indicates a search against an index with no vectors.
	// It means "no index built yet", not "no relevant matches".
	ErrEmptyIndex = errors.New("index is empty")

	// ErrAPIKeyMissing indicates a cloud provider was selected without a key.
	ErrAPIKeyMissing = errors.New("API key missing")

	// ErrIndexStore indicates the persisted index could not be read or written.
	ErrIndexStore = errors.New("index store failure")

	// ErrNotFound indicates a requested file or entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates a backend rejected a call for exceeding its quota.
	ErrRateLimited = errors.New("rate limited")
)

// Ensure typed errors implement error.
var (
	_ error = (*ConfigurationError)(nil)
	_ error = (*UnsupportedFormatError)(nil)
	_ error = (*DocumentProcessingError)(nil)
	_ error = (*EmbeddingServiceError)(nil)
	_ error = (*GenerationServiceError)(nil)
	_ error = (*DimensionMismatchError)(nil)
	_ error = (*BackendError)(nil)
)

// ConfigurationError reports an invalid parameter.
type ConfigurationError struct {
	// Field is the dotted name of the offending setting.
	Field string

	// Reason explains what is wrong with it.
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

// Is matches ErrConfiguration and ErrInvalidInput.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration || target == ErrInvalidInput
}

// UnsupportedFormatError reports a path no registered loader can handle.
type UnsupportedFormatError struct {
	Path      string
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	ext := e.Extension
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Sprintf("%s: %s (extension %s)", ErrUnsupportedFormat, e.Path, ext)
}

// Is matches ErrUnsupportedFormat and ErrInvalidInput.
func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat || target == ErrInvalidInput
}

// UnitFailure is the failure of one logical unit of a source, such as a page.
type UnitFailure struct {
	// Unit names the failed unit, e.g. "page 3". Empty means the whole file.
	Unit string

	// Err is the underlying cause.
	Err error
}

// DocumentProcessingError reports one or more failures reading a source file.
// In lenient mode every failed unit is listed.
type DocumentProcessingError struct {
	Path     string
	Failures []UnitFailure
}

// NewDocumentProcessingError builds an error for a whole-file failure.
func NewDocumentProcessingError(path string, err error) *DocumentProcessingError {
	return &DocumentProcessingError{Path: path, Failures: []UnitFailure{{Err: err}}}
}

func (e *DocumentProcessingError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Unit == "" {
			parts = append(parts, f.Err.Error())
			continue
		}
		parts = append(parts, f.Unit+": "+f.Err.Error())
	}
	if len(parts) == 1 {
		return fmt.Sprintf("%s: %s: %s", ErrDocumentProcessing, e.Path, parts[0])
	}
	return fmt.Sprintf("%s: %s: %d failures: %s", ErrDocumentProcessing, e.Path, len(parts), strings.Join(parts, "; "))
}

// Is matches ErrDocumentProcessing and ErrInvalidInput.
func (e *DocumentProcessingError) Is(target error) bool {
	return target == ErrDocumentProcessing || target == ErrInvalidInput
}

// Unwrap exposes the per-unit causes.
func (e *DocumentProcessingError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// EmbeddingServiceError reports an embedding backend failure that retries
// could not recover. Err is the last underlying cause.
type EmbeddingServiceError struct {
	Model    string
	Attempts int
	Err      error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("%s: model %s after %d attempt(s): %v", ErrEmbeddingService, e.Model, e.Attempts, e.Err)
}

// Is matches ErrEmbeddingService and ErrServiceUnavailable.
func (e *EmbeddingServiceError) Is(target error) bool {
	return target == ErrEmbeddingService || target == ErrServiceUnavailable
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// GenerationServiceError reports a generative backend failure.
type GenerationServiceError struct {
	Model    string
	Attempts int
	Err      error
}

func (e *GenerationServiceError) Error() string {
	return fmt.Sprintf("%s: model %s after %d attempt(s): %v", ErrGenerationService, e.Model, e.Attempts, e.Err)
}

// Is matches ErrGenerationService and ErrServiceUnavailable.
func (e *GenerationServiceError) Is(target error) bool {
	return target == ErrGenerationService || target == ErrServiceUnavailable
}

func (e *GenerationServiceError) Unwrap() error { return e.Err }

// DimensionMismatchError reports a vector whose length disagrees with the index.
type DimensionMismatchError struct {
	Expected int
	Got      int

	// Position is the offending item's offset within its batch, or -1 for a query.
	Position int
}

func (e *DimensionMismatchError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("%s: query has %d dimensions, index has %d", ErrDimensionMismatch, e.Got, e.Expected)
	}
	return fmt.Sprintf("%s: vector %d has %d dimensions, index has %d", ErrDimensionMismatch, e.Position, e.Got, e.Expected)
}

// Is matches ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// BackendError is a classified failure from a remote embedding or
// generative service.
type BackendError struct {
	// Service names the backend, e.g. "openai".
	Service string

	// StatusCode is the HTTP status, or 0 if the request never completed.
	StatusCode int

	// Transient marks failures worth retrying.
	Transient bool

	Err error
}

// NewBackendError classifies a failure by HTTP status code.
// Rate limiting, timeouts and server errors are transient; everything
// else (bad credentials, malformed requests) is terminal.
func NewBackendError(service string, statusCode int, err error) *BackendError {
	return &BackendError{
		Service:    service,
		StatusCode: statusCode,
		Transient:  IsTransientStatus(statusCode),
		Err:        err,
	}
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

// Is matches ErrRateLimited for 429 responses.
func (e *BackendError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsTransientStatus reports whether an HTTP status is worth retrying.
// A zero status means the request failed in transport and is retried.
func IsTransientStatus(code int) bool {
	switch {
	case code == 0:
		return true
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code >= 500:
		return true
	default:
		return false
	}
}

// IsTransient reports whether err is worth retrying.
// Caller cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrRateLimited) {
		return true
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be.Transient
	}
	return false
}

// IsInputError reports whether err asks the user to fix their input.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRetryLater reports whether err asks the user to try again later.
func IsRetryLater(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}
