package adapter

import (
	"net/http"
	"strings"

	"github.com/ParkerCase/wildlife-conservation-tracker-sub000/internal/resilience"
)

// classifyResponse maps a marketplace HTTP response to a scan error kind.
// Returns empty kind when the response looks like real content.
func classifyResponse(resp *http.Response, body []byte) resilience.Kind {
	if resp == nil {
		return resilience.KindTransport
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return resilience.KindRateLimited
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusUnavailableForLegalReasons:
		// Cloudflare fronts answer 403 on challenges; treat those as
		// challenges rather than hard blocks so the term is abandoned
		// instead of the whole adapter.
		if isCloudflare(resp) {
			return resilience.KindBotChallenge
		}
		return resilience.KindPermanentBlock
	case resp.StatusCode >= 500:
		return resilience.KindServer
	}

	lower := strings.ToLower(string(body))
	switch {
	case strings.Contains(lower, "checking your browser"),
		strings.Contains(lower, "cf-browser-verification"),
		strings.Contains(lower, "g-recaptcha"),
		strings.Contains(lower, "h-captcha"),
		strings.Contains(lower, "captcha"):
		return resilience.KindBotChallenge
	case strings.Contains(lower, "access denied"),
		strings.Contains(lower, "has been blocked"):
		return resilience.KindPermanentBlock
	}

	// JS-only shells render nothing useful over plain HTTP.
	if len(body) < 2000 && strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
		return resilience.KindBotChallenge
	}

	return ""
}

func isCloudflare(resp *http.Response) bool {
	return resp.Header.Get("cf-ray") != "" ||
		resp.Header.Get("cf-cache-status") != "" ||
		strings.EqualFold(resp.Header.Get("server"), "cloudflare")
}
