package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		JitterFraction: 0,
	}
}

func TestDoVal_SucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := DoVal(context.Background(), fastRetry(4), func(ctx context.Context, attempt int) (int, error) {
		calls++
		assert.Equal(t, calls-1, attempt)
		if calls < 3 {
			return 0, NewScanError(KindTimeout, "olx", eris.New("deadline exceeded"))
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDoVal_AbortsOnPermanentBlock(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := DoVal(context.Background(), fastRetry(4), func(ctx context.Context, attempt int) (string, error) {
		calls++
		return "", NewScanError(KindPermanentBlock, "facebook", eris.New("access denied"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, KindPermanentBlock, KindOf(err))
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := DoVal(context.Background(), fastRetry(4), func(ctx context.Context, attempt int) (string, error) {
		calls++
		return "", NewScanError(KindServer, "taobao", eris.New("status 502"))
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
}

func TestDoVal_ContextCancellationStops(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := DoVal(ctx, fastRetry(10), func(ctx context.Context, attempt int) (string, error) {
		calls++
		cancel()
		return "", NewScanError(KindTransport, "avito", eris.New("reset"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestAttemptTimeout_GrowsPerAttempt(t *testing.T) {
	t.Parallel()

	cfg := DefaultRetryConfig()
	base := 50 * time.Second
	assert.Equal(t, base, cfg.AttemptTimeout(base, 0))
	assert.Equal(t, 90*time.Second, cfg.AttemptTimeout(base, 1))
	assert.InDelta(t, float64(162*time.Second), float64(cfg.AttemptTimeout(base, 2)), float64(time.Second))
}

func TestKindOf_Untagged(t *testing.T) {
	t.Parallel()
	assert.Equal(t, KindTransport, KindOf(eris.New("boom")))
}

func TestKindForHTTPStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindRateLimited, KindForHTTPStatus(429))
	assert.Equal(t, KindPermanentBlock, KindForHTTPStatus(403))
	assert.Equal(t, KindServer, KindForHTTPStatus(503))
	assert.Equal(t, KindTransport, KindForHTTPStatus(404))
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	assert.True(t, IsTransient(NewScanError(KindRateLimited, "ebay", eris.New("429"))))
	assert.True(t, IsTransient(eris.New("read tcp: i/o timeout")))
	assert.False(t, IsTransient(NewScanError(KindBotChallenge, "aliexpress", eris.New("captcha"))))
	assert.False(t, IsTransient(nil))
}

func TestDemoter_HalvesWeightAfterThreshold(t *testing.T) {
	t.Parallel()

	d := NewDemoter(2, time.Minute)
	assert.Equal(t, 1.0, d.WeightFactor("facebook"))

	d.RecordRateLimit("facebook")
	assert.Equal(t, 1.0, d.WeightFactor("facebook"))

	d.RecordRateLimit("facebook")
	assert.Equal(t, 0.5, d.WeightFactor("facebook"))
	assert.Equal(t, 1.0, d.WeightFactor("ebay"))
}

func TestDemoter_CooldownExpires(t *testing.T) {
	t.Parallel()

	d := NewDemoter(1, time.Minute)
	now := time.Now()
	d.nowFunc = func() time.Time { return now }

	d.RecordRateLimit("olx")
	assert.Equal(t, 0.5, d.WeightFactor("olx"))

	d.nowFunc = func() time.Time { return now.Add(2 * time.Minute) }
	assert.Equal(t, 1.0, d.WeightFactor("olx"))
}

func TestDemoter_SuccessClearsStrikes(t *testing.T) {
	t.Parallel()

	d := NewDemoter(2, time.Minute)
	d.RecordRateLimit("gumtree")
	d.RecordSuccess("gumtree")
	d.RecordRateLimit("gumtree")
	assert.Equal(t, 1.0, d.WeightFactor("gumtree"))
}
