package dedup

import (
	"net/url"
	"strings"
)

// trackingParams are query parameters stripped before URL comparison.
// utm_* is handled by prefix.
var trackingParams = map[string]bool{
	"fbclid": true,
	"ref":    true,
	"source": true,
}

// NormalizeURL canonicalizes a listing URL for dedup comparison: lowercased
// host and path, tracking parameters removed, trailing slash stripped.
// An unparseable URL is returned lowercased as-is.
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(raw), "/"))
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(strings.ToLower(u.Path), "/")
	u.Fragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for param := range q {
			lower := strings.ToLower(param)
			if strings.HasPrefix(lower, "utm_") || trackingParams[lower] {
				q.Del(param)
			}
		}
		u.RawQuery = q.Encode()
	}

	return u.String()
}
