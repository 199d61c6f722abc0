package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"

	"github.com/JunaidJamshid123/Gitly-sub001/internal/resource"
	"github.com/google/go-github/v57/github"
)

// ClassifyError maps an error returned by the GitHub clients to a
// resource.Failure. It never returns nil for a non-nil error.
func ClassifyError(err error) *resource.Failure {
	if err == nil {
		return nil
	}

	var failure *resource.Failure
	if errors.As(err, &failure) {
		return failure
	}

	if code, ok := statusCode(err); ok {
		return &resource.Failure{
			Kind:    resource.HTTPStatus,
			Code:    code,
			Message: fmt.Sprintf("GitHub API returned %d", code),
			Err:     err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return resource.NewFailure(resource.Timeout, "request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return resource.NewFailure(resource.Timeout, "request timed out", err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return resource.NewFailure(resource.Decode, "malformed response payload", err)
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) {
		return resource.NewFailure(resource.NetworkUnavailable, "network unavailable", err)
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED, syscall.ENETUNREACH, syscall.EHOSTUNREACH, syscall.ECONNRESET:
			return resource.NewFailure(resource.NetworkUnavailable, "network unavailable", err)
		case syscall.ETIMEDOUT:
			return resource.NewFailure(resource.Timeout, "request timed out", err)
		}
	}

	// Check error message patterns
	errStr := err.Error()
	patterns := []struct {
		pattern string
		kind    resource.Kind
	}{
		{"i/o timeout", resource.Timeout},
		{"TLS handshake timeout", resource.Timeout},
		{"connection refused", resource.NetworkUnavailable},
		{"no such host", resource.NetworkUnavailable},
		{"network is unreachable", resource.NetworkUnavailable},
		{"connection reset", resource.NetworkUnavailable},
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p.pattern) {
			return resource.NewFailure(p.kind, p.pattern, err)
		}
	}

	return resource.NewFailure(resource.Unknown, "unexpected error", err)
}

// statusCode extracts the HTTP status carried by go-github and GraphQL errors
func statusCode(err error) (int, bool) {
	// Primary and secondary limits are reported as 403 but clear after a
	// delay, like 429.
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return http.StatusTooManyRequests, true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return http.StatusTooManyRequests, true
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.StatusCode, true
	}

	// The GraphQL client reports non-200 responses only through the message.
	const marker = "non-200 OK status code: "
	if _, rest, ok := strings.Cut(err.Error(), marker); ok {
		fields := strings.Fields(rest)
		if len(fields) > 0 {
			if code, convErr := strconv.Atoi(fields[0]); convErr == nil {
				return code, true
			}
		}
	}

	return 0, false
}
