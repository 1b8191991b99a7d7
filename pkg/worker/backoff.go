package worker

import "time"

// ExponentialBackoff doubles the delay with each completed attempt:
// Delay(1) = Base, Delay(2) = 2*Base, Delay(3) = 4*Base, capped at Max.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = 2 * time.Second
	}
	maximum := b.Max
	if maximum <= 0 {
		maximum = 5 * time.Minute
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maximum {
			return maximum
		}
	}
	if delay > maximum {
		return maximum
	}
	return delay
}
