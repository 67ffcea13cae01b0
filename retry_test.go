package pdfconverter

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeSleeper records requested delays without waiting.
type fakeSleeper struct {
	delays []time.Duration
}

func (f *fakeSleeper) sleep(_ context.Context, d time.Duration) error {
	f.delays = append(f.delays, d)
	return nil
}

func rateLimitErr() error { return &ErrHTTP{Status: 429, Body: "Too Many Requests"} }

func TestRetry_RateLimitedThenSuccess(t *testing.T) {
	sleeper := &fakeSleeper{}
	policy := ExtractRetryPolicy()
	policy.Sleep = sleeper.sleep

	calls := 0
	result, err := Retry(context.Background(), policy, "test", func() (string, error) {
		calls++
		if calls < 3 {
			return "", rateLimitErr()
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}
	if result != "ok" {
		t.Errorf("expected %q, got %q", "ok", result)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(sleeper.delays) != 2 || sleeper.delays[0] != want[0] || sleeper.delays[1] != want[1] {
		t.Errorf("expected delays %v, got %v", want, sleeper.delays)
	}
}

func TestRetry_Exhausted(t *testing.T) {
	sleeper := &fakeSleeper{}
	policy := ExtractRetryPolicy()
	policy.Sleep = sleeper.sleep

	calls := 0
	_, err := Retry(context.Background(), policy, "test", func() (string, error) {
		calls++
		return "", rateLimitErr()
	})
	if calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", calls)
	}
	if !IsRateLimited(err) {
		t.Errorf("exhausted retry must keep the rate-limit classification, got %v", err)
	}
	if len(sleeper.delays) != 2 {
		t.Errorf("expected 2 delays, got %v", sleeper.delays)
	}
}

func TestRetry_NonRetryableFailsFast(t *testing.T) {
	sleeper := &fakeSleeper{}
	policy := ExtractRetryPolicy()
	policy.Sleep = sleeper.sleep

	boom := errors.New("bad request")
	calls := 0
	_, err := Retry(context.Background(), policy, "test", func() (int, error) {
		calls++
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("non-retryable error must not be retried, got %d attempts", calls)
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("expected no delays, got %v", sleeper.delays)
	}
}

func TestRetry_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := ExtractRetryPolicy()
	calls := 0
	_, err := Retry(ctx, policy, "test", func() (string, error) {
		calls++
		return "", rateLimitErr()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", calls)
	}
}

func TestRetryPolicy_DelayScheduleRepeats(t *testing.T) {
	p := RetryPolicy{Backoff: []time.Duration{time.Second}}
	if d := p.delay(0); d != time.Second {
		t.Errorf("delay(0) = %v", d)
	}
	if d := p.delay(5); d != time.Second {
		t.Errorf("delay past schedule should repeat last entry, got %v", d)
	}
	if d := (RetryPolicy{}).delay(0); d != 0 {
		t.Errorf("empty schedule should yield 0, got %v", d)
	}
}
