package errors

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// IsNetworkError reports whether err is a transport failure: dial, DNS,
// timeout, reset or a broken TLS handshake.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		msg := strings.ToLower(urlErr.Err.Error())
		for _, s := range []string{"eof", "tls handshake", "connection reset", "no such host", "connection refused"} {
			if strings.Contains(msg, s) {
				return true
			}
		}
	}

	return false
}

// Classify maps a failed outbound call to the taxonomy. Transport failures
// become *ConnectivityError, everything else *UpstreamError. Errors that
// already belong to the taxonomy, and context cancellation, pass through.
func Classify(source, rawURL string, err error) error {
	if err == nil {
		return nil
	}
	if IsUpstream(err) || IsConnectivity(err) || errors.Is(err, context.Canceled) {
		return err
	}
	if IsNetworkError(err) {
		return NewConnectivityError(source, rawURL, err)
	}
	return NewUpstreamError(source, rawURL, 0, err)
}
