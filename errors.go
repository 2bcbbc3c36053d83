package pagelens

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"syscall"
)

// User-facing failure categories. Display-only: nothing here drives a retry.
const (
	ErrorUnreachable = "Cannot reach the summarization server. Check your connection and try again."
	ErrorTimeout     = "The request timed out. Please try again."
	ErrorGeneric     = "Analysis failed. Please try again."
)

// ClassifyNetworkError maps a transport error into one of the user-facing
// failure categories.
func ClassifyNetworkError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) {
		return ErrorUnreachable
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorUnreachable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrorUnreachable
	}

	// Wrapped transport errors from HTTP clients often survive only as text.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"),
		strings.Contains(msg, "deadline exceeded"):
		return ErrorTimeout
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"),
		strings.Contains(msg, "network is unreachable"), strings.Contains(msg, "failed to fetch"):
		return ErrorUnreachable
	}
	return ErrorGeneric
}
