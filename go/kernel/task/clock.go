package task

import "time"

// Clock reports time elapsed since boot.
type Clock interface {
	Now() time.Duration
}

type SystemClock struct {
	boot time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{boot: time.Now()}
}

func (c *SystemClock) Now() time.Duration {
	return time.Since(c.boot)
}
