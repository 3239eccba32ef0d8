package httpx

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), false},
		{&StatusError{Service: "openai", StatusCode: 429}, true},
		{&StatusError{Service: "openai", StatusCode: 503}, true},
		{fmt.Errorf("call: %w", &StatusError{StatusCode: 400}), false},
	}
	for i, tc := range cases {
		if got := IsRetryableError(tc.err); got != tc.want {
			t.Fatalf("case %d: IsRetryableError(%v) = %t", i, tc.err, got)
		}
	}
}

func TestRetryAfterDuration(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", "30")
	if got := RetryAfterDuration(resp, time.Second, 10*time.Second); got != 10*time.Second {
		t.Fatalf("capped = %s", got)
	}
	if got := RetryAfterDuration(nil, 2*time.Second, 0); got != 2*time.Second {
		t.Fatalf("fallback = %s", got)
	}
}

func TestJitterSleepBounds(t *testing.T) {
	for i := 0; i < 50; i++ {
		d := JitterSleep(time.Second)
		if d < 800*time.Millisecond || d > 1200*time.Millisecond {
			t.Fatalf("jitter out of bounds: %s", d)
		}
	}
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); err == nil {
		t.Fatalf("expected context error")
	}
}
