package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type retryableErr struct{ retry bool }

func (e retryableErr) Error() string   { return "backend failure" }
func (e retryableErr) Retryable() bool { return e.retry }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("overloaded")), true},
		{"wrapped explicit", fmt.Errorf("shortlist: %w", NewTransientError(errors.New("rate limited"))), true},
		{"retryable true", fmt.Errorf("wrap: %w", retryableErr{retry: true}), true},
		{"retryable false", fmt.Errorf("wrap: %w", retryableErr{retry: false}), false},
		{"plain", errors.New("invalid argument"), false},
		{"conn reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"conn refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"net timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"pattern", errors.New("TLS handshake timeout"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 400, 401, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	te := NewTransientError(inner)

	assert.ErrorIs(t, te, inner)
	assert.Equal(t, "root cause", te.Error())
}
