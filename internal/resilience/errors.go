package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// Kind classifies a scan failure for the scheduler's retry policy.
type Kind string

const (
	// KindTimeout is a transport-level timeout. Retried with backoff.
	KindTimeout Kind = "timeout"
	// KindTransport is any other network failure. Retried with backoff.
	KindTransport Kind = "transport"
	// KindRateLimited is HTTP 429 or an adapter-specific throttle signal.
	// Retried with longer backoff; repeated occurrence demotes the platform.
	KindRateLimited Kind = "rate_limited"
	// KindServer is an HTTP 5xx from the marketplace. Retried with backoff.
	KindServer Kind = "server"
	// KindBotChallenge is a detected CAPTCHA/slider/interstitial. The current
	// term is abandoned; the scan continues with the next term.
	KindBotChallenge Kind = "bot_challenge"
	// KindPermanentBlock is a forbidden/access-denied signature. The whole
	// adapter call aborts and no retries are attempted this cycle.
	KindPermanentBlock Kind = "permanent_block"
	// KindNoDriver means a headless-only adapter has no browser attached.
	// Treated as a skipped cycle, not a failure.
	KindNoDriver Kind = "no_driver"
)

// ScanError is an adapter failure tagged with its retry classification.
type ScanError struct {
	Kind     Kind
	Platform string
	Err      error
}

func (e *ScanError) Error() string {
	if e.Err == nil {
		return e.Platform + ": " + string(e.Kind)
	}
	return e.Err.Error()
}

func (e *ScanError) Unwrap() error { return e.Err }

// NewScanError tags err with a kind and the originating platform.
func NewScanError(kind Kind, platform string, err error) *ScanError {
	return &ScanError{Kind: kind, Platform: platform, Err: err}
}

// KindOf extracts the scan error kind, defaulting to KindTransport for
// untagged errors.
func KindOf(err error) Kind {
	var se *ScanError
	if errors.As(err, &se) {
		return se.Kind
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindTransport
}

// IsPermanent reports whether retrying the same call this cycle is pointless.
func IsPermanent(err error) bool {
	switch KindOf(err) {
	case KindPermanentBlock, KindNoDriver:
		return true
	default:
		return false
	}
}

// IsTransient reports whether the error is safe to retry with backoff.
// Covers tagged transient kinds plus common network failure patterns from
// wrapped HTTP client errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var se *ScanError
	if errors.As(err, &se) {
		switch se.Kind {
		case KindTimeout, KindTransport, KindRateLimited, KindServer:
			return true
		default:
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
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether an HTTP status code indicates a
// transient server-side issue.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// KindForHTTPStatus maps a marketplace HTTP status to a scan error kind.
func KindForHTTPStatus(statusCode int) Kind {
	switch {
	case statusCode == 429:
		return KindRateLimited
	case statusCode == 403 || statusCode == 451:
		return KindPermanentBlock
	case statusCode >= 500:
		return KindServer
	default:
		return KindTransport
	}
}
