// Package ratelimit throttles login attempts per client with sliding minute
// and hour windows.
package ratelimit

import (
	"sync"
	"time"
)

// window tracks the attempts of one client.
type window struct {
	minute []time.Time
	hour   []time.Time
}

// Limiter tracks and enforces attempt limits keyed by client (usually the IP).
type Limiter struct {
	perMinute int
	perHour   int
	enabled   bool

	clients map[string]*window
	mu      sync.Mutex
	now     func() time.Time
}

// NewLimiter creates a limiter. A zero limit disables that window.
func NewLimiter(perMinute, perHour int, enabled bool) *Limiter {
	return &Limiter{
		perMinute: perMinute,
		perHour:   perHour,
		enabled:   enabled,
		clients:   make(map[string]*window),
		now:       time.Now,
	}
}

// Allow records an attempt for key and reports whether it is within limits.
// Rejected attempts are not recorded.
func (l *Limiter) Allow(key string) bool {
	if !l.enabled {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.window(key, now)

	if l.perMinute > 0 && len(w.minute) >= l.perMinute {
		return false
	}
	if l.perHour > 0 && len(w.hour) >= l.perHour {
		return false
	}

	w.minute = append(w.minute, now)
	w.hour = append(w.hour, now)
	return true
}

// Forget clears the history of key, called after a successful login.
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.clients, key)
}

// window returns the cleaned window of key; the lock must be held.
func (l *Limiter) window(key string, now time.Time) *window {
	w, ok := l.clients[key]
	if !ok {
		w = &window{}
		l.clients[key] = w
	}
	w.minute = filterTimes(w.minute, now.Add(-time.Minute))
	w.hour = filterTimes(w.hour, now.Add(-time.Hour))
	return w
}

// filterTimes keeps only times after the cutoff
func filterTimes(times []time.Time, cutoff time.Time) []time.Time {
	result := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			result = append(result, t)
		}
	}
	return result
}

// Stats returns the current counters of key.
func (l *Limiter) Stats(key string) Stats {
	if !l.enabled {
		return Stats{Enabled: false}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.window(key, now)
	return Stats{
		Enabled:             true,
		AttemptsLastMinute:  len(w.minute),
		AttemptsLastHour:    len(w.hour),
		LimitPerMinute:      l.perMinute,
		LimitPerHour:        l.perHour,
		RemainingThisMinute: remaining(l.perMinute, len(w.minute)),
		RemainingThisHour:   remaining(l.perHour, len(w.hour)),
	}
}

// Stats contains limiter statistics for one client
type Stats struct {
	Enabled             bool `json:"enabled"`
	AttemptsLastMinute  int  `json:"attempts_last_minute"`
	AttemptsLastHour    int  `json:"attempts_last_hour"`
	LimitPerMinute      int  `json:"limit_per_minute"`
	LimitPerHour        int  `json:"limit_per_hour"`
	RemainingThisMinute int  `json:"remaining_this_minute"`
	RemainingThisHour   int  `json:"remaining_this_hour"`
}

func remaining(limit, used int) int {
	if limit <= 0 {
		return -1
	}
	return max(0, limit-used)
}
