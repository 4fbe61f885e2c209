package headless

import (
	"fmt"
	"math/rand"
	"time"
)

// Profile is the browser identity presented for one navigation. A fresh
// profile per navigation keeps fingerprints from accumulating history.
type Profile struct {
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	Dwell          time.Duration
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
}

var viewports = [][2]int{
	{1920, 1080},
	{1680, 1050},
	{1536, 864},
	{1440, 900},
	{1366, 768},
}

var locales = []string{"en-US", "en-GB", "es-ES", "nl-NL", "ru-RU"}

const (
	dwellMin = 3 * time.Second
	dwellMax = 8 * time.Second
)

// NewProfile draws a randomized browser identity. The dwell time paces the
// navigation to human reading speed before the DOM is captured.
func NewProfile(rng *rand.Rand) Profile {
	vp := viewports[rng.Intn(len(viewports))]
	// Jitter the viewport a little so repeated sessions do not share exact
	// dimensions.
	w := vp[0] - rng.Intn(16)
	h := vp[1] - rng.Intn(16)
	return Profile{
		UserAgent:      userAgents[rng.Intn(len(userAgents))],
		ViewportWidth:  w,
		ViewportHeight: h,
		Locale:         locales[rng.Intn(len(locales))],
		Dwell:          dwellMin + time.Duration(rng.Int63n(int64(dwellMax-dwellMin))),
	}
}

func (p Profile) String() string {
	return fmt.Sprintf("%dx%d %s dwell=%s", p.ViewportWidth, p.ViewportHeight, p.Locale, p.Dwell)
}

// stealthScript runs before any page script and masks the usual automation
// tells: the webdriver flag, the empty plugin list, and the headless
// permission behavior.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
window.chrome = window.chrome || { runtime: {} };
const origQuery = window.navigator.permissions.query;
window.navigator.permissions.query = (parameters) => (
  parameters.name === 'notifications'
    ? Promise.resolve({ state: Notification.permission })
    : origQuery(parameters)
);
`
