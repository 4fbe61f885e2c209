package resilience

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Demoter applies soft platform demotion: repeated rate limiting halves a
// platform's selection weight for a cooldown window. Platforms are never
// blocked outright; a demoted platform still gets a reduced share of cycles.
type Demoter struct {
	mu        sync.Mutex
	strikes   map[string]int
	demotedTo map[string]time.Time

	threshold int
	cooldown  time.Duration
	nowFunc   func() time.Time
}

// NewDemoter creates a Demoter that demotes after threshold rate-limit
// events, for the given cooldown.
func NewDemoter(threshold int, cooldown time.Duration) *Demoter {
	if threshold <= 0 {
		threshold = 2
	}
	if cooldown <= 0 {
		cooldown = 10 * time.Minute
	}
	return &Demoter{
		strikes:   make(map[string]int),
		demotedTo: make(map[string]time.Time),
		threshold: threshold,
		cooldown:  cooldown,
		nowFunc:   time.Now,
	}
}

// RecordRateLimit registers a 429-class event for the platform.
func (d *Demoter) RecordRateLimit(platform string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.strikes[platform]++
	if d.strikes[platform] >= d.threshold {
		d.demotedTo[platform] = d.nowFunc().Add(d.cooldown)
		d.strikes[platform] = 0
		zap.L().Warn("platform demoted after repeated rate limiting",
			zap.String("platform", platform),
			zap.Duration("cooldown", d.cooldown),
		)
	}
}

// RecordSuccess clears accumulated strikes for the platform.
func (d *Demoter) RecordSuccess(platform string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.strikes[platform] = 0
}

// WeightFactor returns the multiplier to apply to the platform's static
// selection weight: 0.5 while demoted, 1.0 otherwise.
func (d *Demoter) WeightFactor(platform string) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if until, ok := d.demotedTo[platform]; ok && d.nowFunc().Before(until) {
		return 0.5
	}
	return 1.0
}
