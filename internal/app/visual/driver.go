// Package visual provides the synthetic activity waveform shown while the
// stream plays.
package visual

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Default driver settings.
const (
	DefaultBars      = 20
	DefaultMin       = 20
	DefaultMax       = 80
	DefaultDecayStep = 5
	DefaultInterval  = 33 * time.Millisecond // ~30 fps
)

// ActivitySource reports whether audio is flowing.
type ActivitySource interface {
	IsActive() bool
}

// Config holds driver configuration.
type Config struct {
	Bars      int           // Number of levels
	Min       int           // Lower bound of the active band
	Max       int           // Upper bound of the active band
	DecayStep int           // Amount subtracted per inactive tick
	Interval  time.Duration // Tick interval for Run
}

// DefaultConfig returns the default driver configuration.
func DefaultConfig() Config {
	return Config{
		Bars:      DefaultBars,
		Min:       DefaultMin,
		Max:       DefaultMax,
		DecayStep: DefaultDecayStep,
		Interval:  DefaultInterval,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Bars <= 0 {
		return errors.Newf("bars must be positive: %d", c.Bars)
	}
	if c.Min < 0 || c.Max > 100 || c.Min > c.Max {
		return errors.Newf("invalid active band: [%d,%d]", c.Min, c.Max)
	}
	if c.DecayStep <= 0 {
		return errors.Newf("decay step must be positive: %d", c.DecayStep)
	}
	if c.Interval <= 0 {
		return errors.Newf("interval must be positive: %v", c.Interval)
	}
	return nil
}

// Option configures a Driver.
type Option func(*Driver)

// WithRand sets the random source used for active levels.
func WithRand(r *rand.Rand) Option {
	return func(d *Driver) {
		d.rng = r
	}
}

// Driver owns the level sequence. Only the driver writes it; readers get copies.
type Driver struct {
	mu     sync.RWMutex
	config Config
	levels []int
	rng    *rand.Rand
	ticks  uint64

	subMu sync.Mutex
	subs  map[chan struct{}]struct{}
}

// NewDriver creates a new driver with all levels at zero.
func NewDriver(config Config, opts ...Option) (*Driver, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid visual config")
	}
	d := &Driver{
		config: config,
		levels: make([]int, config.Bars),
		subs:   make(map[chan struct{}]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.rng == nil {
		d.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return d, nil
}

// Tick advances the sequence by one step. When active every level is drawn
// independently from [Min, Max]; otherwise every level decays by DecayStep,
// floored at zero.
func (d *Driver) Tick(active bool) {
	d.mu.Lock()
	span := d.config.Max - d.config.Min + 1
	for i := range d.levels {
		if active {
			d.levels[i] = d.config.Min + d.rng.IntN(span)
			continue
		}
		d.levels[i] = max(0, d.levels[i]-d.config.DecayStep)
	}
	d.ticks++
	d.mu.Unlock()

	d.notify()
}

// Levels returns a copy of the current sequence.
func (d *Driver) Levels() []int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]int, len(d.levels))
	copy(result, d.levels)
	return result
}

// Ticks returns the number of ticks applied so far.
func (d *Driver) Ticks() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ticks
}

// Config returns the driver configuration.
func (d *Driver) Config() Config {
	return d.config
}

// Subscribe returns a channel that receives a signal after every tick, and a
// function that cancels the subscription. Signals are coalesced when the
// reader is slow.
func (d *Driver) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	d.subMu.Lock()
	d.subs[ch] = struct{}{}
	d.subMu.Unlock()

	return ch, func() {
		d.subMu.Lock()
		delete(d.subs, ch)
		d.subMu.Unlock()
	}
}

func (d *Driver) notify() {
	d.subMu.Lock()
	defer d.subMu.Unlock()
	for ch := range d.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Run ticks every Interval, reading activity from src, until ctx is cancelled.
func (d *Driver) Run(ctx context.Context, src ActivitySource) {
	ticker := time.NewTicker(d.config.Interval)
	defer ticker.Stop()

	zlog.Debug().Msgf("visual: driver started: bars=%d interval=%v", d.config.Bars, d.config.Interval)
	for {
		select {
		case <-ctx.Done():
			zlog.Debug().Msg("visual: driver stopped")
			return
		case <-ticker.C:
			d.Tick(src.IsActive())
		}
	}
}
