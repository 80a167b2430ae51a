// Package player wires the playback controller, waveform driver, listening
// history and change notifications into one running player.
package player

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19radio/internal/app/history"
	"github.com/osa030/19radio/internal/app/notification"
	"github.com/osa030/19radio/internal/app/playback"
	"github.com/osa030/19radio/internal/app/visual"
	"github.com/osa030/19radio/internal/domain/station"
)

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("player is already started")

// Status is a full snapshot of the player for presentation.
type Status struct {
	State   playback.State
	Levels  []int
	Station station.Station
	History []history.Entry
}

// Manager runs the player.
type Manager struct {
	mu      sync.Mutex
	started bool

	// Components
	playback     *playback.Controller
	driver       *visual.Driver
	notification *notification.Manager
	history      *history.History
	station      station.Station

	// Channels
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
}

// NewManager creates a new player manager.
func NewManager(
	ctrl *playback.Controller,
	driver *visual.Driver,
	hist *history.History,
	st station.Station,
) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		playback:     ctrl,
		driver:       driver,
		notification: notification.NewManager(),
		history:      hist,
		station:      st,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

// Start launches the stream event loop, the waveform driver and the change
// broadcaster. It returns immediately.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyStarted
	}
	m.started = true

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-runCtx.Done():
		case <-m.ctx.Done():
		}
		cancel()
	}()

	m.wg.Add(3)
	go func() {
		defer m.wg.Done()
		m.playback.Run(runCtx)
	}()
	go func() {
		defer m.wg.Done()
		m.driver.Run(runCtx, m.playback)
	}()
	go func() {
		defer m.wg.Done()
		m.playbackLoop(runCtx)
	}()

	zlog.Info().Msgf("player: started: station=%s url=%s", m.station.DisplayName(), m.station.URL)
	return nil
}

// Done returns a channel that is closed when the player is closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Play requests playback.
func (m *Manager) Play() error {
	return m.playback.Play()
}

// Pause stops playback.
func (m *Manager) Pause() error {
	return m.playback.Pause()
}

// Toggle pauses while connecting or playing and plays otherwise.
func (m *Manager) Toggle() error {
	switch m.playback.State().Status {
	case playback.StatusConnecting, playback.StatusPlaying:
		return m.playback.Pause()
	default:
		return m.playback.Play()
	}
}

// SetVolume sets the volume and returns the effective value.
func (m *Manager) SetVolume(volume int) (int, error) {
	return m.playback.SetVolume(volume)
}

// AdjustVolume changes the volume by delta and returns the effective value.
func (m *Manager) AdjustVolume(delta int) (int, error) {
	return m.playback.SetVolume(m.playback.State().Volume + delta)
}

// State returns the current player state.
func (m *Manager) State() playback.State {
	return m.playback.State()
}

// Levels returns the current waveform levels.
func (m *Manager) Levels() []int {
	return m.driver.Levels()
}

// History returns the listening history, newest first.
func (m *Manager) History() []history.Entry {
	return m.history.Entries()
}

// Station returns the station the player is bound to.
func (m *Manager) Station() station.Station {
	return m.station
}

// GetStatus returns a full snapshot.
func (m *Manager) GetStatus() *Status {
	return &Status{
		State:   m.playback.State(),
		Levels:  m.driver.Levels(),
		Station: m.station,
		History: m.history.Entries(),
	}
}

// SubscribeLevels returns a channel signalled after every waveform tick.
func (m *Manager) SubscribeLevels() (<-chan struct{}, func()) {
	return m.driver.Subscribe()
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager {
	return m.notification
}

// playbackLoop handles controller change events.
func (m *Manager) playbackLoop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("player: playback loop panicked: %v", r)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-m.playback.Events():
			if !ok {
				return
			}
			m.handlePlaybackEvent(event)
		}
	}
}

// handlePlaybackEvent handles a controller change event.
func (m *Manager) handlePlaybackEvent(event playback.Event) {
	zlog.Debug().Msgf("player: playback event: type=%s status=%s", event.Type, event.State.Status)

	switch event.Type {
	case playback.EventStatusChanged:
		if event.State.Status == playback.StatusPlaying && event.Previous != playback.StatusPlaying {
			entry := m.history.Record(m.station)
			zlog.Info().Msgf("player: now playing: station=%s", entry.StationName)
		}
		m.notification.Broadcast(notification.Notification{
			Type:     notification.TypeStatusChanged,
			State:    event.State,
			Previous: event.Previous,
		})

	case playback.EventVolumeChanged:
		m.notification.Broadcast(notification.Notification{
			Type:     notification.TypeVolumeChanged,
			State:    event.State,
			Previous: event.Previous,
		})
	}
}

// Close stops all loops and releases the stream. It is safe to call more
// than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	select {
	case <-m.done:
		m.mu.Unlock()
		return nil
	default:
	}
	close(m.done)
	m.mu.Unlock()

	m.cancel()
	err := m.playback.Close()
	m.wg.Wait()
	m.notification.Close()

	zlog.Info().Msg("player: closed")
	return err
}
