package domain

import (
	"testing"
	"time"
)

func TestCountdownFormat(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCountdown(start, 0)

	cases := []struct {
		name    string
		now     time.Time
		want    string
		expired bool
	}{
		{name: "full window", now: start, want: "180:00"},
		{name: "partial", now: start.Add(179*time.Minute + 1*time.Second), want: "00:59"},
		{name: "mid", now: start.Add(60*time.Minute + 30*time.Second), want: "119:30"},
		{name: "elapsed", now: start.Add(3 * time.Hour), want: "00:00", expired: true},
		{name: "long past", now: start.Add(5 * time.Hour), want: "00:00", expired: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Format(tc.now); got != tc.want {
				t.Fatalf("Format = %q, want %q", got, tc.want)
			}
			if got := c.Expired(tc.now); got != tc.expired {
				t.Fatalf("Expired = %v, want %v", got, tc.expired)
			}
		})
	}
}

func TestCountdownRemainingNeverNegative(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCountdown(start, 10*time.Minute)
	if got := c.Remaining(start.Add(time.Hour)); got != 0 {
		t.Fatalf("expected zero remaining, got %s", got)
	}
	if got := c.Remaining(start.Add(4 * time.Minute)); got != 6*time.Minute {
		t.Fatalf("expected 6m remaining, got %s", got)
	}
	if !c.ExpiresAt().Equal(start.Add(10 * time.Minute)) {
		t.Fatalf("unexpected expiry %s", c.ExpiresAt())
	}
}
