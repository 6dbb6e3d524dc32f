package notify

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker refuses to call the webhook.
var ErrCircuitOpen = errors.New("notification circuit open: webhook failed repeatedly")

// Breaker stops calling a failing webhook until resetTimeout has passed.
type Breaker struct {
	next             Sender
	failureThreshold int
	resetTimeout     time.Duration

	consecutiveFailures int
	failures            int
	totalRequests       int
	isOpen              bool
	halfOpen            bool
	lastFailureTime     time.Time

	mutex sync.Mutex
	now   func() time.Time
}

// NewBreaker wraps next. The circuit opens after failureThreshold consecutive
// failures; a threshold below 1 is treated as 1.
func NewBreaker(next Sender, failureThreshold int, resetTimeout time.Duration) *Breaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &Breaker{
		next:             next,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
}

func (b *Breaker) Send(ctx context.Context, text string) error {
	if !b.canProceed() {
		return ErrCircuitOpen
	}
	err := b.next.Send(ctx, text)
	if err != nil {
		b.recordFailure(err)
		return err
	}
	b.recordSuccess()
	return nil
}

func (b *Breaker) recordSuccess() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.totalRequests++
	b.consecutiveFailures = 0
	if b.isOpen {
		log.Printf("[Notify] circuit closed")
	}
	b.isOpen = false
	b.halfOpen = false
}

func (b *Breaker) recordFailure(err error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.failures++
	b.consecutiveFailures++
	b.totalRequests++
	b.lastFailureTime = b.now()

	if b.halfOpen {
		b.halfOpen = false
		log.Printf("[Notify] trial request failed (%v), circuit open for another %v", err, b.resetTimeout)
		return
	}
	if b.consecutiveFailures >= b.failureThreshold && !b.isOpen {
		b.isOpen = true
		log.Printf("[Notify] circuit open after %d consecutive failures (last: %v), retry after %v",
			b.consecutiveFailures, err, b.resetTimeout)
	}
}

// canProceed reports whether a request may go out. After resetTimeout the
// circuit half-opens: exactly one trial request is let through, others are
// refused until it succeeds, and a failure reopens it.
func (b *Breaker) canProceed() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.isOpen {
		return true
	}
	if b.halfOpen {
		return false
	}
	if b.now().Sub(b.lastFailureTime) > b.resetTimeout {
		log.Printf("[Notify] circuit half-open after %v", b.resetTimeout)
		b.halfOpen = true
		return true
	}
	return false
}

// Status returns the current breaker state
func (b *Breaker) Status() (isOpen bool, failures int, total int) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.isOpen, b.failures, b.totalRequests
}
