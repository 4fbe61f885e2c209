package headless

import "strings"

// challengeSignatures are DOM markers of interstitial bot checks seen on the
// rendered page. Keys are substrings of the lowercased HTML.
var challengeSignatures = map[string]string{
	"nc_iconfont":               "aliyun_slider",
	"baxia-dialog":              "aliyun_slider",
	"punish?x5secdata":          "aliyun_punish",
	"geetest_radar":             "geetest",
	"g-recaptcha":               "recaptcha",
	"h-captcha":                 "hcaptcha",
	"cf-challenge":              "cloudflare",
	"checking your browser":     "cloudflare",
	"press & hold":              "press_hold",
	"unusual traffic":           "rate_check",
	"login_form\" data-testid":  "facebook_login_wall",
	"verify you are a human":    "generic_captcha",
	"подтвердите, что вы не ро": "avito_captcha",
}

// DetectChallenge reports whether the rendered DOM is an interstitial
// challenge rather than marketplace content. The final URL is checked too:
// several platforms redirect blocked sessions to a login or punish page.
func DetectChallenge(html, finalURL string) (string, bool) {
	lower := strings.ToLower(html)
	for marker, sig := range challengeSignatures {
		if strings.Contains(lower, marker) {
			return sig, true
		}
	}
	lowerURL := strings.ToLower(finalURL)
	for _, frag := range []string{"/login", "/punish", "/captcha", "/checkpoint"} {
		if strings.Contains(lowerURL, frag) {
			return "redirect" + frag, true
		}
	}
	return "", false
}
