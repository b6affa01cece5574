package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// ErrUnavailable is satisfied by every error this package returns from a gateway call.
var ErrUnavailable = errors.New("ai service unavailable")

// Failure kinds. Each Error carries exactly one.
var (
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrQuotaExhausted    = errors.New("ai credits exhausted")
	ErrTimeout           = errors.New("ai request timed out")
	ErrMalformedResponse = errors.New("malformed ai response")
	ErrUpstream          = errors.New("ai gateway error")
)

// Error describes a failed gateway call.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ai %s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("ai %s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes ErrUnavailable, the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := []error{ErrUnavailable, e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Kind returns a short label for the failure kind of err, used for metrics and logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrQuotaExhausted):
		return "quota_exhausted"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	default:
		return "upstream"
	}
}

func malformed(op string, cause error) error {
	return &Error{Op: op, Kind: ErrMalformedResponse, Err: cause}
}

// classify maps a go-openai client error onto one of the failure kinds.
func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Op: op, Kind: ErrTimeout, Err: err}
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusTooManyRequests:
		return &Error{Op: op, Kind: ErrRateLimited, Err: err}
	case http.StatusPaymentRequired:
		return &Error{Op: op, Kind: ErrQuotaExhausted, Err: err}
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return &Error{Op: op, Kind: ErrTimeout, Err: err}
	}
	return &Error{Op: op, Kind: ErrUpstream, Err: errors.Wrap(err, "chat completion")}
}
