package sensor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
)

// DefaultStaleAfter is how old a sample may be before Poll reports it unavailable.
const DefaultStaleAfter = 500 * time.Millisecond

var (
	// ErrUnavailable is returned by Poll when there is no fresh sample.
	ErrUnavailable = errors.New("orientation unavailable")

	errMalformedPacket = errors.New("malformed orientation packet")
	errMalformedLine   = errors.New("malformed orientation line")
)

// Source delivers the latest orientation sample.
type Source interface {
	Poll(ctx context.Context) (lookout.Sample, error)
	Close() error
}

// Option configures a source.
type Option func(*latest)

// WithClock overrides the clock used to stamp and age samples.
func WithClock(now func() time.Time) Option {
	return func(l *latest) {
		if now != nil {
			l.now = now
		}
	}
}

// latest holds the newest sample published by a reader goroutine.
type latest struct {
	mu         sync.Mutex
	sample     lookout.Sample
	ok         bool
	staleAfter time.Duration
	now        func() time.Time
}

func newLatest(staleAfter time.Duration, opts []Option) *latest {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}

	l := &latest{
		staleAfter: staleAfter,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *latest) store(yaw, pitch float64) {
	s := lookout.NewSample(yaw, pitch, l.now())

	l.mu.Lock()
	l.sample = s
	l.ok = true
	l.mu.Unlock()
}

func (l *latest) load() (lookout.Sample, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.ok || l.now().Sub(l.sample.Timestamp) > l.staleAfter {
		return lookout.Sample{}, ErrUnavailable
	}

	return l.sample, nil
}
