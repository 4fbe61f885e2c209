// Package headless renders JavaScript-heavy marketplace pages through a
// remote browser service. Platforms behind aggressive bot defenses
// (AliExpress, Taobao, Facebook Marketplace) cannot be scanned with plain
// HTTP; they need a real browser profile and human-paced navigation.
package headless

import (
	"context"
	"errors"
)

// ErrNoDriver is returned when no browser endpoint is configured. Adapters
// that depend on headless rendering treat this as a skip, not a failure.
var ErrNoDriver = errors.New("headless: no browser endpoint configured")

// ChallengeError reports an interstitial bot check in the rendered DOM.
type ChallengeError struct {
	Signature string
}

func (e *ChallengeError) Error() string {
	return "headless: bot challenge (" + e.Signature + ")"
}

// Page is the rendered result of a headless navigation.
type Page struct {
	HTML     string
	FinalURL string
	Status   int
}

// RenderRequest describes a single navigation.
type RenderRequest struct {
	URL string

	// WaitSelector, when set, blocks the render until the selector appears
	// or the dwell budget expires.
	WaitSelector string
}

// Browser renders a URL and returns the settled DOM.
type Browser interface {
	Name() string
	Render(ctx context.Context, req RenderRequest) (*Page, error)
}
