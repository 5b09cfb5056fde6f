package mapctl

import (
	"errors"
	"fmt"
	"time"

	"github.com/venuemap/explorer/internal/venue"
)

// NotificationKind classifies a user-visible notification.
type NotificationKind string

const (
	KindEmptyResult    NotificationKind = "empty_result"
	KindPartialFailure NotificationKind = "partial_failure"
	KindNetworkError   NotificationKind = "network_error"
	KindServiceError   NotificationKind = "service_error"
	KindMalformed      NotificationKind = "malformed_response"
)

// Notification is surfaced to the user after a query round.
type Notification struct {
	Kind       NotificationKind `json:"kind"`
	Generation uint64           `json:"generation"`
	Message    string           `json:"message"`
	Code       int              `json:"code,omitempty"`
	Timeout    bool             `json:"timeout,omitempty"`
	Failed     int              `json:"failed,omitempty"`
	Expected   int              `json:"expected,omitempty"`
	Time       time.Time        `json:"time"`
}

// Notifier receives notifications. It is called with the controller lock
// held and must not call back into the controller.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

type discard struct{}

func (discard) Notify(Notification) {}

// classify turns an explore failure into a notification.
func classify(gen uint64, err error) Notification {
	n := Notification{Generation: gen, Time: time.Now()}

	var netErr *venue.NetworkError
	var svcErr *venue.ServiceError
	var badErr *venue.MalformedError
	switch {
	case errors.As(err, &svcErr):
		n.Kind = KindServiceError
		n.Code = svcErr.Code
		if svcErr.RateLimited() {
			n.Message = "The venue service is rate limiting requests. Try again shortly."
		} else {
			n.Message = fmt.Sprintf("The venue service rejected the search (%d): %s", svcErr.Code, svcErr.Detail)
		}
	case errors.As(err, &badErr):
		n.Kind = KindMalformed
		n.Message = "The venue service returned a response that could not be read."
	case errors.As(err, &netErr) && netErr.Timeout():
		n.Kind = KindNetworkError
		n.Timeout = true
		n.Message = "The venue search timed out."
	default:
		n.Kind = KindNetworkError
		n.Message = "Could not reach the venue service."
	}
	return n
}

// errorKind is a low-cardinality label for metrics.
func errorKind(err error) string {
	var netErr *venue.NetworkError
	var svcErr *venue.ServiceError
	var badErr *venue.MalformedError
	switch {
	case errors.As(err, &svcErr):
		return "service"
	case errors.As(err, &badErr):
		return "malformed"
	case errors.As(err, &netErr):
		return "network"
	default:
		return "other"
	}
}
