package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Options configures a Breaker. Zero values fall back to the defaults below.
type Options struct {
	Name string
	// ConsecutiveFailures trips the breaker. Default 5.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing. Default 30s.
	OpenTimeout time.Duration
	// HalfOpenRequests are let through while probing. Default 1.
	HalfOpenRequests uint32
	// IsSuccessful decides whether an error counts against the breaker.
	// By default every non-nil error does.
	IsSuccessful  func(err error) bool
	OnStateChange func(name string, from, to string)
}

// Breaker guards calls to a single upstream.
type Breaker struct {
	cb *gobreaker.CircuitBreaker[struct{}]
}

// ErrOpen is returned by Do without calling fn while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

func New(opts Options) *Breaker {
	if opts.ConsecutiveFailures == 0 {
		opts.ConsecutiveFailures = 5
	}
	if opts.OpenTimeout == 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	if opts.HalfOpenRequests == 0 {
		opts.HalfOpenRequests = 1
	}

	st := gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: opts.HalfOpenRequests,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.ConsecutiveFailures
		},
		IsSuccessful: opts.IsSuccessful,
	}
	if opts.OnStateChange != nil {
		st.OnStateChange = func(name string, from, to gobreaker.State) {
			opts.OnStateChange(name, from.String(), to.String())
		}
	}

	return &Breaker{cb: gobreaker.NewCircuitBreaker[struct{}](st)}
}

// Do runs fn through the breaker. fn's own error is returned unchanged.
func (b *Breaker) Do(fn func() error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrOpen
	}
	return err
}

// State is "closed", "half-open" or "open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}
