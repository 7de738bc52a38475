package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// Kind tags where and how an external call failed.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindTimeout
	KindHTTPStatus
	KindStoreConstraint
	KindStoreOther
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindHTTPStatus:
		return "http_status"
	case KindStoreConstraint:
		return "store_constraint"
	case KindStoreOther:
		return "store_other"
	default:
		return "unknown"
	}
}

// Error is a failure classified once at the fetch or store boundary.
type Error struct {
	Kind   Kind
	Status int // HTTP status code, set when Kind is KindHTTPStatus
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Kind == KindHTTPStatus {
		fmt.Fprintf(&b, " %d", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindUnknown if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusOf returns the HTTP status recorded in err's chain, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindHTTPStatus {
		return e.Status
	}
	return 0
}

// HTTPStatusError reports a non-2xx response.
func HTTPStatusError(status int, detail string) *Error {
	return &Error{Kind: KindHTTPStatus, Status: status, Detail: detail}
}

// StoreConstraintError reports a uniqueness or check violation.
func StoreConstraintError(err error, detail string) *Error {
	return &Error{Kind: KindStoreConstraint, Detail: detail, Err: err}
}

// StoreError reports any other store failure.
func StoreError(err error, detail string) *Error {
	return &Error{Kind: KindStoreOther, Detail: detail, Err: err}
}

// FromTransport classifies an error returned by http.Client.Do.
func FromTransport(err error, detail string) *Error {
	if err == nil {
		return nil
	}
	kind := KindNetwork
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	case errors.Is(err, context.Canceled):
		kind = KindUnknown
	}
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// TransientError wraps an error that is safe to retry (429, 5xx, network timeout).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient reports whether err is worth retrying: an explicit
// TransientError, a tagged network/timeout failure or transient HTTP status,
// or a recognisable connection-level failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var tagged *Error
	if errors.As(err, &tagged) {
		switch tagged.Kind {
		case KindNetwork, KindTimeout:
			return true
		case KindHTTPStatus:
			return IsTransientHTTPStatus(tagged.Status)
		case KindStoreConstraint, KindStoreOther, KindUnknown:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
