package domain

import (
	"strconv"
	"sync/atomic"
	"time"
)

// IDSource hands out ids of the form "<kind>-<n>".
type IDSource interface {
	NewID(kind string) string
}

// IDGenerator derives ids from wall-clock nanoseconds and never hands out
// the same number twice, even when the clock stalls or steps back.
type IDGenerator struct {
	last atomic.Int64
	now  func() time.Time
}

// NewIDGenerator returns a generator seeded from the wall clock.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// NewIDGeneratorAt is NewIDGenerator with an injected clock.
func NewIDGeneratorAt(now func() time.Time) *IDGenerator {
	return &IDGenerator{now: now}
}

// NewID returns "<kind>-<n>" with n larger than any n returned before.
func (g *IDGenerator) NewID(kind string) string {
	return kind + "-" + strconv.FormatInt(g.next(), 10)
}

func (g *IDGenerator) next() int64 {
	for {
		now := g.now().UnixNano()
		last := g.last.Load()
		if now <= last {
			now = last + 1
		}
		if g.last.CompareAndSwap(last, now) {
			return now
		}
	}
}
