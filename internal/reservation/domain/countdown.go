package domain

import (
	"fmt"
	"time"
)

const DefaultWindow = 180 * time.Minute

// Countdown is the hold timer of one reservation batch.
type Countdown struct {
	ReservedAt time.Time
	Window     time.Duration
}

func NewCountdown(reservedAt time.Time, window time.Duration) Countdown {
	if window <= 0 {
		window = DefaultWindow
	}
	return Countdown{ReservedAt: reservedAt, Window: window}
}

func (c Countdown) ExpiresAt() time.Time {
	return c.ReservedAt.Add(c.Window)
}

// Remaining never goes below zero.
func (c Countdown) Remaining(now time.Time) time.Duration {
	left := c.ExpiresAt().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

func (c Countdown) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt())
}

// Format renders the remaining time as MM:SS. Minutes are not wrapped at 60.
func (c Countdown) Format(now time.Time) string {
	total := int(c.Remaining(now) / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
