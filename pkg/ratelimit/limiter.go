// Package ratelimit caps the copy bandwidth of a sync run.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// minBurst keeps slow limits from splitting copies into tiny reads
const minBurst = 64 * 1024

// Limiter is a token bucket shared by every copy of one run
type Limiter struct {
	rate  int64
	burst int64

	mu     sync.Mutex
	tokens int64
	last   time.Time
}

// New creates a limiter allowing bytesPerSecond. It returns nil, meaning
// no limit, when bytesPerSecond is not positive.
func New(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	burst := max(bytesPerSecond, minBurst)
	return &Limiter{
		rate:   bytesPerSecond,
		burst:  burst,
		tokens: burst,
		last:   time.Now(),
	}
}

// Rate returns the limit in bytes per second
func (l *Limiter) Rate() int64 {
	return l.rate
}

// Burst returns the largest amount WaitN grants at once
func (l *Limiter) Burst() int64 {
	return l.burst
}

// WaitN blocks until n bytes may be transferred or ctx is done. n must not
// exceed Burst.
func (l *Limiter) WaitN(ctx context.Context, n int64) error {
	if n > l.burst {
		return fmt.Errorf("ratelimit: request of %d bytes exceeds burst of %d", n, l.burst)
	}
	for {
		l.mu.Lock()
		l.refill(time.Now())
		if l.tokens >= n {
			l.tokens -= n
			l.mu.Unlock()
			return nil
		}
		wait := time.Duration(float64(n-l.tokens) / float64(l.rate) * float64(time.Second))
		l.mu.Unlock()

		if wait < time.Millisecond {
			wait = time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// refund returns unused tokens
func (l *Limiter) refund(n int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens = min(l.tokens+n, l.burst)
}

// refill adds the tokens earned since the last update. Callers hold mu.
func (l *Limiter) refill(now time.Time) {
	earned := int64(now.Sub(l.last).Seconds() * float64(l.rate))
	if earned > 0 {
		l.tokens = min(l.tokens+earned, l.burst)
		l.last = now
	}
}

// ParseRate parses a bandwidth such as "500K", "10M" or "1.5G" into bytes
// per second. Suffixes are binary and may end in "B" or "/s". An empty
// string or "0" means unlimited.
func ParseRate(s string) (int64, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "" {
		return 0, nil
	}
	v = strings.TrimSuffix(v, "/S")
	v = strings.TrimSuffix(v, "B")
	v = strings.TrimSuffix(v, "I")

	mult := int64(1)
	if n := len(v); n > 0 {
		switch v[n-1] {
		case 'K':
			mult = 1 << 10
		case 'M':
			mult = 1 << 20
		case 'G':
			mult = 1 << 30
		case 'T':
			mult = 1 << 40
		}
		if mult > 1 {
			v = v[:n-1]
		}
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid bandwidth %q (examples: 500K, 10M, 1G)", s)
	}
	return int64(f * float64(mult)), nil
}
