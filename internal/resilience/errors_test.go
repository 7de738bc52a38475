package resilience

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial tcp: i/o deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestKindOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindHTTPStatus, KindOf(HTTPStatusError(404, "GET /x")))
	assert.Equal(t, KindStoreConstraint, KindOf(eris.Wrap(StoreConstraintError(errors.New("dup"), "insert"), "store")))
	assert.Equal(t, KindStoreOther, KindOf(fmt.Errorf("wrapped: %w", StoreError(errors.New("io"), "insert"))))
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 503, StatusOf(eris.Wrap(HTTPStatusError(503, ""), "fetch")))
	assert.Equal(t, 0, StatusOf(StoreError(errors.New("x"), "")))
	assert.Equal(t, 0, StatusOf(nil))
}

func TestError_Message(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "http_status 429: GET https://a.test", HTTPStatusError(429, "GET https://a.test").Error())
	assert.Equal(t, "store_other: insert: boom", StoreError(errors.New("boom"), "insert").Error())
}

func TestFromTransport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"net timeout", timeoutErr{}, KindTimeout},
		{"canceled", context.Canceled, KindUnknown},
		{"refused", syscall.ECONNREFUSED, KindNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := FromTransport(tt.err, "GET")
			assert.Equal(t, tt.want, got.Kind)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.Nil(t, FromTransport(nil, ""))
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"explicit transient", NewTransientError(errors.New("x"), 503), true},
		{"tagged network", &Error{Kind: KindNetwork}, true},
		{"tagged timeout", &Error{Kind: KindTimeout}, true},
		{"status 429", HTTPStatusError(429, ""), true},
		{"status 502", HTTPStatusError(502, ""), true},
		{"status 404", HTTPStatusError(404, ""), false},
		{"store constraint", StoreConstraintError(errors.New("dup"), ""), false},
		{"net timeout", timeoutErr{}, true},
		{"conn reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"broken pipe text", errors.New("write: Broken Pipe"), true},
		{"plain", errors.New("bad request"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	t.Parallel()

	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 501} {
		assert.False(t, IsTransientHTTPStatus(code), code)
	}
}
