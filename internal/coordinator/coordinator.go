package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/bestway-spa/internal/logging"
	"github.com/muurk/bestway-spa/internal/spa"
	"github.com/muurk/bestway-spa/internal/spaclient"
)

const (
	// DefaultInterval is the polling period
	DefaultInterval = 30 * time.Second

	// DefaultSettleDelay is how long the cloud needs before a command shows
	// up in the reported state
	DefaultSettleDelay = 5 * time.Second

	// DefaultRefreshTimeout bounds a background refresh
	DefaultRefreshTimeout = 15 * time.Second

	subscriberBuffer = 4
)

// ErrClosed is returned by operations on a closed coordinator
var ErrClosed = errors.New("coordinator closed")

// StateClient is the subset of *spaclient.Client the coordinator needs
type StateClient interface {
	FetchState(ctx context.Context) (spaclient.Snapshot, error)
	SetState(ctx context.Context, key string, value int) (*spaclient.CommandResponse, error)
	Close() error
}

// Update is published to subscribers whenever the known state changes
type Update struct {
	Snapshot   spaclient.Snapshot `json:"snapshot"`
	Status     spa.Status         `json:"status"`
	Available  bool               `json:"available"`
	Error      string             `json:"error,omitempty"`
	Optimistic bool               `json:"optimistic,omitempty"`
	At         time.Time          `json:"at"`
}

// Coordinator owns the polling cycle for one spa and is the only caller of
// its StateClient. Client calls are serialized.
type Coordinator struct {
	// Interval is the polling period used by Run
	Interval time.Duration

	// SettleDelay is the wait between a command and the follow-up refresh
	SettleDelay time.Duration

	// RefreshTimeout bounds refreshes started by Run and by commands
	RefreshTimeout time.Duration

	client StateClient

	// callMu serializes FetchState/SetState
	callMu sync.Mutex

	mu         sync.RWMutex
	snapshot   spaclient.Snapshot
	lastErr    error
	lastUpdate time.Time
	available  bool

	subMu   sync.Mutex
	subs    map[uint64]chan Update
	nextSub uint64

	timerMu     sync.Mutex
	settleTimer *time.Timer
	closed      bool
}

// New creates a coordinator with default timings
func New(client StateClient) *Coordinator {
	return &Coordinator{
		Interval:       DefaultInterval,
		SettleDelay:    DefaultSettleDelay,
		RefreshTimeout: DefaultRefreshTimeout,
		client:         client,
		subs:           make(map[uint64]chan Update),
	}
}

// Run refreshes immediately and then every Interval until ctx is done.
// Refresh failures are logged and recorded; they do not stop the loop.
func (c *Coordinator) Run(ctx context.Context) error {
	interval := c.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	logging.Info("Starting spa polling", zap.Duration("interval", interval))

	c.refreshLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info("Stopping spa polling")
			return ctx.Err()
		case <-ticker.C:
			c.refreshLogged(ctx)
		}
	}
}

func (c *Coordinator) refreshLogged(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, c.refreshTimeout())
	defer cancel()

	if err := c.Refresh(ctx); err != nil && parent.Err() == nil {
		logging.Warn("Spa refresh failed",
			zap.String("reason", spaclient.ShortMessage(err)),
			zap.Error(err),
		)
	}
}

// Refresh fetches a fresh snapshot and publishes it
func (c *Coordinator) Refresh(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}

	c.callMu.Lock()
	snap, err := c.client.FetchState(ctx)
	c.callMu.Unlock()

	now := time.Now()

	c.mu.Lock()
	c.lastErr = err
	if err == nil {
		c.snapshot = snap
		c.lastUpdate = now
		c.available = true
	} else {
		c.available = false
	}
	update := c.updateLocked(now, false)
	c.mu.Unlock()

	c.publish(update)

	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	return nil
}

// Snapshot returns the last known snapshot, including optimistic updates
func (c *Coordinator) Snapshot() spaclient.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Status returns the typed view of the last known snapshot
func (c *Coordinator) Status() spa.Status {
	return spa.StatusFromSnapshot(c.Snapshot())
}

// LastError returns the error of the most recent refresh, if any
func (c *Coordinator) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// LastUpdate returns when the snapshot was last refreshed from the cloud
func (c *Coordinator) LastUpdate() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdate
}

// Available reports whether the most recent refresh succeeded
func (c *Coordinator) Available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available
}

// Current returns the state as an Update value
func (c *Coordinator) Current() Update {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updateLocked(c.lastUpdate, false)
}

// ApplyOptimisticUpdate records a value the spa is expected to report soon.
// The next refresh replaces it with what the cloud actually reports.
func (c *Coordinator) ApplyOptimisticUpdate(key string, value int) {
	c.mu.Lock()
	c.snapshot = c.snapshot.With(key, value)
	update := c.updateLocked(time.Now(), true)
	c.mu.Unlock()

	c.publish(update)
}

// SendCommand sets one spa property, applies it optimistically and schedules
// a refresh after SettleDelay.
func (c *Coordinator) SendCommand(ctx context.Context, key string, value int) error {
	if c.isClosed() {
		return ErrClosed
	}

	id := uuid.NewString()

	c.callMu.Lock()
	_, err := c.client.SetState(ctx, key, value)
	c.callMu.Unlock()

	logging.LogCommand(id, key, value, err)
	if err != nil {
		return fmt.Errorf("command %s=%d failed: %w", key, value, err)
	}

	c.ApplyOptimisticUpdate(key, value)
	c.scheduleRefresh()
	return nil
}

// SetHeating turns the heater on or off
func (c *Coordinator) SetHeating(ctx context.Context, on bool) error {
	return c.SendCommand(ctx, spa.KeyHeaterState, spa.HeaterStateValue(on))
}

// SetTargetTemperature sets the target water temperature in °C
func (c *Coordinator) SetTargetTemperature(ctx context.Context, celsius int) error {
	if err := spa.ValidateTemperature(celsius); err != nil {
		return err
	}
	return c.SendCommand(ctx, spa.KeyTargetTemperature, celsius)
}

// SetSwitch turns a named switch (power, filter, wave) on or off
func (c *Coordinator) SetSwitch(ctx context.Context, name string, on bool) error {
	key, err := spa.SwitchKey(name)
	if err != nil {
		return err
	}
	return c.SendCommand(ctx, key, spa.SwitchValue(on))
}

// scheduleRefresh arms (or re-arms) the post-command refresh timer
func (c *Coordinator) scheduleRefresh() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()

	if c.closed {
		return
	}
	if c.settleTimer != nil {
		c.settleTimer.Stop()
	}

	delay := c.SettleDelay
	if delay < 0 {
		delay = 0
	}
	c.settleTimer = time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout())
		defer cancel()
		if err := c.Refresh(ctx); err != nil && !errors.Is(err, ErrClosed) {
			logging.Warn("Post-command refresh failed", zap.Error(err))
		}
	})
}

// Subscribe returns a channel of state updates and a function that ends the
// subscription. Slow subscribers only see the newest update.
func (c *Coordinator) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, subscriberBuffer)

	if c.isClosed() {
		close(ch)
		return ch, func() {}
	}

	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
			c.subMu.Unlock()
		})
	}
}

func (c *Coordinator) publish(update Update) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, ch := range c.subs {
		select {
		case ch <- update:
		default:
			// Drop the oldest queued update to make room
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- update:
			default:
			}
		}
	}
}

// updateLocked builds an Update from the current fields; c.mu must be held
func (c *Coordinator) updateLocked(at time.Time, optimistic bool) Update {
	u := Update{
		Snapshot:   c.snapshot,
		Status:     spa.StatusFromSnapshot(c.snapshot),
		Available:  c.available,
		Optimistic: optimistic,
		At:         at,
	}
	if c.lastErr != nil {
		u.Error = spaclient.ShortMessage(c.lastErr)
	}
	return u
}

// Close stops any pending refresh, ends all subscriptions and closes the client
func (c *Coordinator) Close() error {
	c.timerMu.Lock()
	if c.closed {
		c.timerMu.Unlock()
		return nil
	}
	c.closed = true
	if c.settleTimer != nil {
		c.settleTimer.Stop()
	}
	c.timerMu.Unlock()

	c.subMu.Lock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.subMu.Unlock()

	return c.client.Close()
}

func (c *Coordinator) isClosed() bool {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	return c.closed
}

func (c *Coordinator) refreshTimeout() time.Duration {
	if c.RefreshTimeout <= 0 {
		return DefaultRefreshTimeout
	}
	return c.RefreshTimeout
}
