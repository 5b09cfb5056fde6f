package venue

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// NetworkError is returned when a request never produced a response: the
// transport failed, the rate limiter gave up, or the bounded wait expired.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was an expired wait.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// ServiceError is returned when the remote service answered with a
// non-success status (rate limiting, bad request, server error).
type ServiceError struct {
	Op     string
	Code   int
	Type   string
	Detail string
}

func (e *ServiceError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: service error %d (%s): %s", e.Op, e.Code, e.Type, e.Detail)
	}
	return fmt.Sprintf("%s: service error %d: %s", e.Op, e.Code, e.Detail)
}

// RateLimited reports whether the service rejected the call for quota reasons.
func (e *ServiceError) RateLimited() bool {
	return e.Code == 429 || e.Type == "rate_limit_exceeded" || e.Type == "quota_exceeded"
}

// MalformedError is returned when a success response cannot be decoded or is
// missing a required part.
type MalformedError struct {
	Op  string
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }
