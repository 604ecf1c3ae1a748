package llm

import (
	"errors"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
)

// ErrClientNotInitialised is returned when no API key was configured.
var ErrClientNotInitialised = errors.New("llm client not initialised")

// ErrorKind classifies a failed generation.
type ErrorKind int

const (
	// ServiceUnavailable covers every failure that is not worth retrying.
	ServiceUnavailable ErrorKind = iota
	// QuotaExceeded means the endpoint kept rate limiting after all retries.
	QuotaExceeded
)

func (k ErrorKind) String() string {
	switch k {
	case QuotaExceeded:
		return "quota_exceeded"
	default:
		return "service_unavailable"
	}
}

const quotaMessage = "AI quota exceeded (429). Upgrade to paid tier or wait 24h. Tip: Use fewer emails to reduce calls."

// GenerationError is the only error Client.Generate returns. Message is safe
// to show to the user.
type GenerationError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	return e.Message
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsQuotaExceeded reports whether err (or any error in its chain) is a
// GenerationError of kind QuotaExceeded.
func IsQuotaExceeded(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr) && genErr.Kind == QuotaExceeded
}

// UserMessage returns the user-facing text for err, or fallback when err is
// not a GenerationError.
func UserMessage(err error, fallback string) string {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Message
	}
	return fallback
}

func quotaExceeded(err error) *GenerationError {
	return &GenerationError{Kind: QuotaExceeded, Message: quotaMessage, Err: err}
}

func unavailable(err error) *GenerationError {
	return &GenerationError{
		Kind:    ServiceUnavailable,
		Message: "AI service unavailable: " + err.Error(),
		Err:     err,
	}
}

// isQuotaError is the single place where backend failures are inspected for
// rate limiting. The hosted API does not expose a stable error type for every
// transport, so the text markers are checked as well.
func isQuotaError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "429") || strings.Contains(text, "quota")
}
