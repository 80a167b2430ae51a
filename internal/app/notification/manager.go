// Package notification fans player state changes out to remote watchers.
package notification

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19radio/internal/app/playback"
)

const (
	// DefaultSendTimeout bounds a single subscriber send.
	DefaultSendTimeout = 500 * time.Millisecond
	// DefaultQueueSize is the per-subscriber mailbox capacity.
	DefaultQueueSize = 16
	// DefaultMaxFailures is the number of consecutive failed sends after
	// which a subscriber is dropped.
	DefaultMaxFailures = 3
)

var errSendTimeout = errors.New("send timed out")

// Type represents a notification type.
type Type int

const (
	TypeInitialState  Type = iota // Snapshot sent on subscribe
	TypeStatusChanged             // Player status changed
	TypeVolumeChanged             // Volume changed
)

// String returns the string representation of the notification type.
func (t Type) String() string {
	switch t {
	case TypeInitialState:
		return "initial_state"
	case TypeStatusChanged:
		return "status_changed"
	case TypeVolumeChanged:
		return "volume_changed"
	default:
		return "unknown"
	}
}

// Notification is a player state change delivered to subscribers.
type Notification struct {
	Type       Type
	SequenceNo uint64
	State      playback.State
	Previous   playback.Status
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(Notification) error
}

// StreamFunc adapts a function to Stream.
type StreamFunc func(Notification) error

// Send calls f(n).
func (f StreamFunc) Send(n Notification) error {
	return f(n)
}

// Option configures a Manager.
type Option func(*Manager)

// WithSendTimeout sets the per-send timeout.
func WithSendTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.sendTimeout = d
		}
	}
}

// WithQueueSize sets the per-subscriber mailbox capacity.
func WithQueueSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.queueSize = n
		}
	}
}

// WithMaxFailures sets how many consecutive failed sends drop a subscriber.
func WithMaxFailures(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxFailures = n
		}
	}
}

// subscription is one subscriber with its own mailbox and delivery goroutine.
// Notifications reach a subscriber in sequence order.
type subscription struct {
	id     string
	stream Stream
	queue  chan Notification
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.Mutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	closed        bool

	sendTimeout time.Duration
	queueSize   int
	maxFailures int
}

// NewManager creates a new notification manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		subscriptions: make(map[string]*subscription),
		sendTimeout:   DefaultSendTimeout,
		queueSize:     DefaultQueueSize,
		maxFailures:   DefaultMaxFailures,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	return m.SubscribeWithSnapshot(stream, nil)
}

// SubscribeWithSnapshot adds a subscription whose first notification is the
// one built by snapshot. No broadcast can be ordered between the snapshot and
// the registration. snapshot is called with the manager locked and must not
// call back into the manager.
func (m *Manager) SubscribeWithSnapshot(stream Stream, snapshot func() Notification) string {
	sub := &subscription{
		id:     uuid.New().String(),
		stream: stream,
		queue:  make(chan Notification, m.queueSize),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		close(sub.queue)
		return sub.id
	}

	if snapshot != nil {
		n := snapshot()
		m.sequenceNo++
		n.SequenceNo = m.sequenceNo
		sub.queue <- n
	}
	m.subscriptions[sub.id] = sub
	go m.deliver(sub)

	zlog.Debug().Msgf("notification: subscribed: subscription=%s", sub.id)
	return sub.id
}

// Unsubscribe removes a subscription. Notifications already queued may still
// be delivered.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(subscriptionID)
}

// Broadcast queues a notification for every subscriber and returns the
// sequence number it was assigned. It never blocks on a subscriber; a
// subscriber whose mailbox is full misses the notification.
func (m *Manager) Broadcast(n Notification) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sequenceNo++
	n.SequenceNo = m.sequenceNo
	if m.closed {
		return n.SequenceNo
	}

	for _, sub := range m.subscriptions {
		select {
		case sub.queue <- n:
		default:
			zlog.Warn().Msgf("notification: mailbox full, dropped: subscription=%s seq=%d", sub.id, n.SequenceNo)
		}
	}
	return n.SequenceNo
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions. Later broadcasts reach nobody.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for id := range m.subscriptions {
		m.removeLocked(id)
	}
}

// removeLocked must be called with m.mu held.
func (m *Manager) removeLocked(id string) {
	sub, ok := m.subscriptions[id]
	if !ok {
		return
	}
	delete(m.subscriptions, id)
	close(sub.queue)
}

// deliver drains a subscription's mailbox until it is closed or the
// subscriber fails maxFailures times in a row.
func (m *Manager) deliver(sub *subscription) {
	failures := 0
	for n := range sub.queue {
		if err := m.send(sub, n); err != nil {
			failures++
			zlog.Debug().Msgf("notification: send failed: subscription=%s seq=%d failures=%d err=%v",
				sub.id, n.SequenceNo, failures, err)
			if failures >= m.maxFailures {
				zlog.Info().Msgf("notification: dropping subscriber: subscription=%s", sub.id)
				m.Unsubscribe(sub.id)
				return
			}
			continue
		}
		failures = 0
	}
}

// send runs Send with a timeout. A timed-out Send keeps running in the
// background; its result is discarded.
func (m *Manager) send(sub *subscription, n Notification) error {
	done := make(chan error, 1)
	go func() {
		done <- sub.stream.Send(n)
	}()

	timer := time.NewTimer(m.sendTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return errSendTimeout
	}
}
