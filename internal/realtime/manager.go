// Package realtime maintains the process's realtime subscriptions on top of
// the change transport. The manager owns the reconnection policy: exponential
// backoff with a bounded retry budget per channel, suspension while the
// network is down, and a liveness probe after long background periods.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"fulfillment/internal/core/ports"
	"fulfillment/internal/pkg/errs"
)

// ChannelState is the manager's view of one subscription's health.
type ChannelState int

const (
	// StateUnknown means the channel was just opened and has not confirmed
	// its subscription yet.
	StateUnknown ChannelState = iota

	// StateConnected means the channel is live.
	StateConnected

	// StateDisconnected means the channel is down and no reconnect is
	// scheduled: either the retry budget is exhausted or the network is
	// offline.
	StateDisconnected

	// StateReconnecting means a backoff timer is running toward the next
	// reconnect attempt.
	StateReconnecting
)

// String returns the lowercase name of the state.
func (s ChannelState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// ErrManagerClosed is returned by Subscribe after Cleanup.
var ErrManagerClosed = errors.New("realtime manager is closed")

const (
	defaultBaseDelay            = 3000 * time.Millisecond
	defaultMaxAttempts          = 3
	defaultHiddenProbeThreshold = 30 * time.Second
)

// TimerFunc schedules f after d and returns a stop function. Injected in
// tests to drive the backoff schedule deterministically.
type TimerFunc func(d time.Duration, f func()) (stop func())

// Config tunes the manager. Zero values fall back to the production
// defaults: 3s base delay, 3 attempts, 30s hidden-probe threshold.
type Config struct {
	BaseDelay            time.Duration
	MaxAttempts          int
	HiddenProbeThreshold time.Duration
	Timer                TimerFunc
	Now                  func() time.Time
}

func (c Config) withDefaults() Config {
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaultBaseDelay
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.HiddenProbeThreshold <= 0 {
		c.HiddenProbeThreshold = defaultHiddenProbeThreshold
	}
	if c.Timer == nil {
		c.Timer = func(d time.Duration, f func()) func() {
			t := time.AfterFunc(d, f)
			return func() { t.Stop() }
		}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Subscription is one named realtime channel. Events and errors arrive on
// its streams; Close tears it down.
type Subscription struct {
	name    string
	events  chan ports.ChangeEvent
	errors  chan error
	manager *Manager
}

// Name returns the subscription's channel name.
func (s *Subscription) Name() string { return s.name }

// Events returns the stream of change events. Closed by Close.
func (s *Subscription) Events() <-chan ports.ChangeEvent { return s.events }

// Errors returns the stream of terminal channel errors, such as an exhausted
// retry budget. The channel staying silent means reconnects are being
// handled internally.
func (s *Subscription) Errors() <-chan error { return s.errors }

// State reports the channel's current health.
func (s *Subscription) State() ChannelState { return s.manager.State(s.name) }

// Close unsubscribes the channel. Idempotent.
func (s *Subscription) Close() { s.manager.Unsubscribe(s.name) }

type channelRecord struct {
	name string
	cfg  ports.ChannelConfig
	ctx  context.Context
	sub  *Subscription

	state      ChannelState
	attempts   int
	gen        int
	handle     ports.ChannelHandle
	stopTimer  func()
	pumpActive bool
	removed    bool
}

// Manager multiplexes realtime subscriptions over one change transport and
// reconnects dropped channels with exponential backoff. All channel state is
// guarded by one mutex; the per-channel pump goroutines report back through
// it.
type Manager struct {
	transport ports.ChangeTransport
	logger    *slog.Logger
	cfg       Config

	mu       sync.Mutex
	subs     map[string]*channelRecord
	offline  bool
	hiddenAt time.Time
	closed   bool

	cancelSignals []func()
}

// NewManager creates a manager and registers its environment signal
// handlers. signals may be nil when no environment source exists (tests,
// batch tools).
func NewManager(
	transport ports.ChangeTransport,
	signals ports.EnvSignals,
	logger *slog.Logger,
	cfg Config,
) *Manager {
	m := &Manager{
		transport: transport,
		logger:    logger.With("component", "realtime_manager"),
		cfg:       cfg.withDefaults(),
		subs:      make(map[string]*channelRecord),
	}

	if signals != nil {
		m.cancelSignals = append(m.cancelSignals,
			signals.OnNetworkChange(m.onNetworkChange),
			signals.OnVisibilityChange(m.onVisibilityChange),
		)
	}

	return m
}

// Subscribe opens a named channel and starts managing its lifecycle.
// Subscribing under a live name replaces the existing subscription: the old
// one is torn down, its streams close, and the new channel starts with a
// fresh retry budget. A subscriber whose channel was parked after an
// exhausted budget recovers with a single Subscribe call.
func (m *Manager) Subscribe(ctx context.Context, name string, cfg ports.ChannelConfig) (*Subscription, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	_, exists := m.subs[name]
	m.mu.Unlock()

	if exists {
		m.Unsubscribe(name)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	if _, taken := m.subs[name]; taken {
		// A concurrent Subscribe claimed the name between the teardown and
		// here; that one owns it now.
		m.mu.Unlock()
		return nil, fmt.Errorf("channel %q is already subscribed", name)
	}

	rec := &channelRecord{
		name:  name,
		cfg:   cfg,
		ctx:   ctx,
		state: StateUnknown,
	}
	rec.sub = &Subscription{
		name:    name,
		events:  make(chan ports.ChangeEvent, 32),
		errors:  make(chan error, 4),
		manager: m,
	}
	m.subs[name] = rec
	m.mu.Unlock()

	handle, err := m.transport.OpenChannel(ctx, name, cfg)
	if err != nil {
		m.mu.Lock()
		delete(m.subs, name)
		m.mu.Unlock()
		return nil, err
	}

	m.mu.Lock()
	m.attachLocked(rec, handle)
	m.mu.Unlock()

	return rec.sub, nil
}

// Unsubscribe tears down a channel: cancels any pending reconnect timer,
// closes the transport handle and closes the subscription's streams.
// Idempotent; unknown names are ignored.
func (m *Manager) Unsubscribe(name string) {
	m.mu.Lock()
	rec, ok := m.subs[name]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.subs, name)
	rec.removed = true
	if rec.stopTimer != nil {
		rec.stopTimer()
		rec.stopTimer = nil
	}
	handle := rec.handle
	rec.handle = nil
	hasPump := rec.pumpActive
	m.mu.Unlock()

	if handle != nil {
		_ = handle.Close()
	}
	// With no pump running there is no other sender; close the streams here.
	// Otherwise the pump closes them on exit.
	if !hasPump {
		close(rec.sub.events)
		close(rec.sub.errors)
	}
}

// State reports the health of a named channel. Unknown names report
// StateUnknown.
func (m *Manager) State(name string) ChannelState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.subs[name]; ok {
		return rec.state
	}
	return StateUnknown
}

// Cleanup unsubscribes every channel and deregisters the environment signal
// handlers. The manager cannot be reused afterwards.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	m.closed = true
	names := make([]string, 0, len(m.subs))
	for name := range m.subs {
		names = append(names, name)
	}
	cancels := m.cancelSignals
	m.cancelSignals = nil
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	for _, name := range names {
		m.Unsubscribe(name)
	}
}

// attachLocked binds a fresh handle to the record and starts its pump.
func (m *Manager) attachLocked(rec *channelRecord, handle ports.ChannelHandle) {
	rec.gen++
	rec.handle = handle
	rec.pumpActive = true
	go m.pump(rec, rec.gen, handle)
}

// pump forwards one handle's messages and lifecycle signals into the
// manager. It exits when the handle dies or the subscription closes.
func (m *Manager) pump(rec *channelRecord, gen int, handle ports.ChannelHandle) {
	defer m.pumpExit(rec, gen)

	for {
		select {
		case event, ok := <-handle.Messages():
			if !ok {
				m.onChannelDown(rec, gen, errs.NewTransportError(rec.name, nil))
				return
			}
			if !m.onMessage(rec, gen, event) {
				return
			}

		case status, ok := <-handle.Status():
			if !ok {
				continue
			}
			switch status {
			case ports.ChannelSubscribed:
				m.onSubscribed(rec, gen)
			case ports.ChannelError, ports.ChannelTimedOut:
				m.onChannelDown(rec, gen,
					errs.NewTransportError(rec.name, fmt.Errorf("channel reported %s", status)))
				return
			case ports.ChannelClosed:
				return
			}
		}
	}
}

func (m *Manager) pumpExit(rec *channelRecord, gen int) {
	m.mu.Lock()
	if rec.gen != gen {
		// A newer pump owns the record now.
		m.mu.Unlock()
		return
	}
	rec.pumpActive = false
	removed := rec.removed
	m.mu.Unlock()

	if removed {
		close(rec.sub.events)
		close(rec.sub.errors)
	}
}

// onMessage forwards an event to the subscriber. A delivered message proves
// the channel is healthy, so the retry counter resets. Returns false when
// the subscription closed mid-send.
func (m *Manager) onMessage(rec *channelRecord, gen int, event ports.ChangeEvent) bool {
	m.mu.Lock()
	if rec.gen != gen || rec.removed {
		m.mu.Unlock()
		return false
	}
	rec.state = StateConnected
	rec.attempts = 0
	m.mu.Unlock()

	select {
	case rec.sub.events <- event:
		return true
	default:
		m.logger.Warn("dropping event, subscriber is not keeping up", "channel", rec.name)
		return true
	}
}

func (m *Manager) onSubscribed(rec *channelRecord, gen int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.gen != gen || rec.removed {
		return
	}
	rec.state = StateConnected
}

func (m *Manager) onChannelDown(rec *channelRecord, gen int, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.gen != gen || rec.removed {
		return
	}
	if rec.handle != nil {
		go rec.handle.Close() //nolint:errcheck //best effort teardown of a dead handle
		rec.handle = nil
	}
	m.scheduleReconnectLocked(rec, cause)
}

// scheduleReconnectLocked arms the next backoff timer, or parks the channel
// as disconnected when the network is offline or the retry budget ran out.
// Delays grow as base * 3^k: 3s, 9s, 27s with the default config.
func (m *Manager) scheduleReconnectLocked(rec *channelRecord, cause error) {
	if m.offline {
		rec.state = StateDisconnected
		return
	}

	if rec.attempts >= m.cfg.MaxAttempts {
		rec.state = StateDisconnected
		m.logger.Warn("retry budget exhausted", "channel", rec.name, "attempts", rec.attempts)
		select {
		case rec.sub.errors <- errs.NewRetryBudgetExhaustedError(rec.name, rec.attempts, cause):
		default:
		}
		return
	}

	delay := time.Duration(float64(m.cfg.BaseDelay) * math.Pow(3, float64(rec.attempts)))
	rec.attempts++
	rec.state = StateReconnecting
	m.logger.Info("scheduling reconnect",
		"channel", rec.name, "attempt", rec.attempts, "delay", delay)

	gen := rec.gen
	rec.stopTimer = m.cfg.Timer(delay, func() {
		m.reconnect(rec, gen)
	})
}

func (m *Manager) reconnect(rec *channelRecord, gen int) {
	m.mu.Lock()
	if rec.gen != gen || rec.removed || m.offline {
		m.mu.Unlock()
		return
	}
	rec.stopTimer = nil
	ctx := rec.ctx
	m.mu.Unlock()

	handle, err := m.transport.OpenChannel(ctx, rec.name, rec.cfg)

	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.gen != gen || rec.removed {
		if err == nil {
			go handle.Close() //nolint:errcheck //late open racing an unsubscribe
		}
		return
	}
	if err != nil {
		m.scheduleReconnectLocked(rec, err)
		return
	}
	rec.state = StateUnknown
	m.attachLocked(rec, handle)
}

// onNetworkChange suspends all reconnection while offline and resubscribes
// everything with fresh retry budgets once connectivity returns.
func (m *Manager) onNetworkChange(online bool) {
	if online {
		m.resumeAll()
		return
	}

	m.mu.Lock()
	m.offline = true
	handles := make([]ports.ChannelHandle, 0, len(m.subs))
	for _, rec := range m.subs {
		if rec.stopTimer != nil {
			rec.stopTimer()
			rec.stopTimer = nil
		}
		if rec.handle != nil {
			handles = append(handles, rec.handle)
			rec.handle = nil
			rec.gen++ // orphan the running pump
			rec.pumpActive = false
		}
		rec.state = StateDisconnected
	}
	m.mu.Unlock()

	m.logger.Info("network offline, suspending reconnection")
	for _, handle := range handles {
		_ = handle.Close()
	}
}

func (m *Manager) resumeAll() {
	m.mu.Lock()
	m.offline = false
	recs := make([]*channelRecord, 0, len(m.subs))
	for _, rec := range m.subs {
		rec.attempts = 0
		if rec.state != StateConnected {
			recs = append(recs, rec)
		}
	}
	m.mu.Unlock()

	m.logger.Info("network online, resubscribing channels", "count", len(recs))
	for _, rec := range recs {
		m.reopenNow(rec)
	}
}

func (m *Manager) reopenNow(rec *channelRecord) {
	m.mu.Lock()
	if rec.removed {
		m.mu.Unlock()
		return
	}
	if rec.stopTimer != nil {
		rec.stopTimer()
		rec.stopTimer = nil
	}
	gen := rec.gen
	m.mu.Unlock()

	m.reconnect(rec, gen)
}

// onVisibilityChange notes when the process goes into the background. On
// return after a long hidden period it probes the transport; a failed probe
// sends every live channel down the reconnect path.
func (m *Manager) onVisibilityChange(visible bool) {
	if !visible {
		m.mu.Lock()
		m.hiddenAt = m.cfg.Now()
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	hiddenFor := time.Duration(0)
	if !m.hiddenAt.IsZero() {
		hiddenFor = m.cfg.Now().Sub(m.hiddenAt)
	}
	m.hiddenAt = time.Time{}
	m.mu.Unlock()

	if hiddenFor <= m.cfg.HiddenProbeThreshold {
		return
	}

	if err := m.transport.Ping(context.Background()); err == nil {
		return
	}

	m.logger.Warn("liveness probe failed after background period, recycling channels")
	m.mu.Lock()
	handles := make([]ports.ChannelHandle, 0, len(m.subs))
	for _, rec := range m.subs {
		if rec.handle != nil {
			handles = append(handles, rec.handle)
			rec.handle = nil
			rec.gen++
			rec.pumpActive = false
			m.scheduleReconnectLocked(rec, errs.NewTransportError(rec.name, errors.New("liveness probe failed")))
		}
	}
	m.mu.Unlock()

	for _, handle := range handles {
		_ = handle.Close()
	}
}
