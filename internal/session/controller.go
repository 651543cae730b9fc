package session

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pscheid92/wagate/internal/adapter/metrics"
	"github.com/pscheid92/wagate/internal/domain"
	"github.com/pscheid92/wagate/internal/platform/logging"
)

const (
	eventBufferSize = 64
	storeTimeout    = 5 * time.Second
	greetingTimeout = 30 * time.Second
	participantTag  = "{participant}"

	defaultRestartDelay = 30 * time.Second
)

// Observer status texts.
const (
	msgQRReceived    = "QR Code received, scan please!"
	msgAuthenticated = "Whatsapp is authenticated!"
	msgReady         = "Whatsapp is ready!"
	msgAuthFailure   = "Auth failure, restarting..."
	msgDisconnected  = "Whatsapp is disconnected!"
)

var allowedTransitions = map[domain.SessionState][]domain.SessionState{
	domain.StateInitializing:    {domain.StateAwaitingPairing, domain.StateAuthenticated, domain.StateReady, domain.StateFailed, domain.StateDisconnected},
	domain.StateAwaitingPairing: {domain.StateAwaitingPairing, domain.StateAuthenticated, domain.StateReady, domain.StateFailed, domain.StateDisconnected},
	domain.StateAuthenticated:   {domain.StateReady, domain.StateFailed, domain.StateDisconnected},
	domain.StateReady:           {domain.StateReady, domain.StateFailed, domain.StateDisconnected},
	domain.StateFailed:          {domain.StateAwaitingPairing, domain.StateAuthenticated, domain.StateReady, domain.StateFailed, domain.StateDisconnected},
	domain.StateDisconnected:    {},
}

// submitter runs greeting deliveries off the event loop. *ants.Pool satisfies it.
type submitter interface {
	Submit(task func()) error
}

// Options tunes controller behavior.
type Options struct {
	WelcomeTemplate     string
	FarewellTemplate    string
	ReconnectMaxElapsed time.Duration
	// RestartDelay is the pause before a new client is built after an auth
	// failure or after a reconnect round gave up. Zero means 30s.
	RestartDelay        time.Duration
	GreetingWorkers     int
}

type generationEvent struct {
	generation uint64
	event      domain.ClientEvent
}

// Controller owns one session's client and applies its lifecycle events in order.
type Controller struct {
	record      domain.SessionRecord
	factory     domain.ClientFactory
	store       domain.SessionStore
	broadcaster domain.Broadcaster
	greeter     submitter
	opts        Options
	metrics     *metrics.SessionMetrics
	log         *slog.Logger

	events   chan generationEvent
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu         sync.RWMutex
	state      domain.SessionState
	client     domain.Client
	generation uint64
}

func newController(record domain.SessionRecord, factory domain.ClientFactory, store domain.SessionStore, broadcaster domain.Broadcaster, greeter submitter, opts Options, m *metrics.SessionMetrics) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		record:      domain.SessionRecord{ID: record.ID, Description: record.Description},
		factory:     factory,
		store:       store,
		broadcaster: broadcaster,
		greeter:     greeter,
		opts:        opts,
		metrics:     m,
		log:         logging.WithSession(record.ID),
		events:      make(chan generationEvent, eventBufferSize),
		ctx:         ctx,
		cancel:      cancel,
		state:       domain.StateInitializing,
	}
}

func (c *Controller) ID() string {
	return c.record.ID
}

func (c *Controller) Description() string {
	return c.record.Description
}

func (c *Controller) State() domain.SessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Client returns the live client, or nil while none is attached.
func (c *Controller) Client() domain.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Start launches the event loop and the first client initialization.
func (c *Controller) Start() {
	c.metrics.Transition("", string(domain.StateInitializing))
	c.wg.Add(2)
	go c.run()
	go c.connect(0)
}

// Stop tears the controller down without logging the client out.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		c.cancel()
		c.wg.Wait()

		c.mu.Lock()
		client, state := c.client, c.state
		c.client = nil
		c.mu.Unlock()

		if client != nil {
			client.Destroy()
		}
		c.metrics.Transition(string(state), "")
		c.log.Info("Session stopped")
	})
}

// Logout unpairs the client so the next start requires a new pairing.
func (c *Controller) Logout(ctx context.Context) error {
	client := c.Client()
	if client == nil {
		return nil
	}
	return client.Logout(ctx)
}

func (c *Controller) run() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case ge := <-c.events:
			if ge.generation != c.currentGeneration() {
				c.log.Debug("Dropping event from replaced client", "event", eventName(ge.event))
				continue
			}
			c.handle(ge.event)
		}
	}
}

func (c *Controller) enqueue(generation uint64, evt domain.ClientEvent) {
	select {
	case c.events <- generationEvent{generation: generation, event: evt}:
	case <-c.ctx.Done():
	}
}

func (c *Controller) currentGeneration() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// connect builds and initializes a fresh client after delay, retrying with
// exponential backoff. A round that gives up parks the session in failed and
// starts a new round after the restart delay, so a session never stays dead.
func (c *Controller) connect(delay time.Duration) {
	defer c.wg.Done()

	attempts := 0
	op := func() error {
		if attempts > 0 {
			c.metrics.Reconnect()
		}
		attempts++
		return c.initClient()
	}
	notify := func(err error, wait time.Duration) {
		c.log.Warn("Client initialization failed, retrying", "error", err, "retry_in", wait)
	}

	for {
		if !c.sleep(delay) {
			return
		}

		bo := backoff.NewExponentialBackOff()
		bo.MaxElapsedTime = c.opts.ReconnectMaxElapsed

		err := backoff.RetryNotify(op, backoff.WithContext(bo, c.ctx), notify)
		if err == nil || c.ctx.Err() != nil {
			return
		}

		delay = c.restartDelay()
		c.log.Error("Client initialization retries exhausted, restarting later", "error", err, "attempts", attempts, "restart_in", delay)
		c.forceState(domain.StateFailed)
	}
}

func (c *Controller) restartDelay() time.Duration {
	if c.opts.RestartDelay > 0 {
		return c.opts.RestartDelay
	}
	return defaultRestartDelay
}

// sleep waits for d and reports false if the controller stopped meanwhile.
func (c *Controller) sleep(d time.Duration) bool {
	if d <= 0 {
		return c.ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// reconnect starts a new connect round unless the controller is stopping.
func (c *Controller) reconnect(delay time.Duration) {
	if c.ctx.Err() != nil {
		return
	}
	c.wg.Add(1)
	go c.connect(delay)
}

// detachClient destroys the live client. Events it still emits are dropped.
func (c *Controller) detachClient() {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.generation++
	c.mu.Unlock()
	if client != nil {
		client.Destroy()
	}
}

func (c *Controller) initClient() error {
	c.forceState(domain.StateInitializing)

	c.mu.Lock()
	c.generation++
	generation := c.generation
	c.mu.Unlock()

	client, err := c.factory.NewClient(c.record.ID, func(evt domain.ClientEvent) {
		c.enqueue(generation, evt)
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()

	if err := client.Initialize(c.ctx); err != nil {
		c.mu.Lock()
		if c.client == client {
			c.client = nil
		}
		// the retry loop owns recovery, so late events of this client are dropped
		if c.generation == generation {
			c.generation++
		}
		c.mu.Unlock()
		client.Destroy()
		return err
	}
	return nil
}

func (c *Controller) forceState(to domain.SessionState) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()

	if from != to {
		c.metrics.Transition(string(from), string(to))
		c.log.Debug("Session state changed", "from", from, "to", to)
	}
}

// transition applies a lifecycle edge, rejecting ones the state machine does not allow.
func (c *Controller) transition(to domain.SessionState) bool {
	c.mu.Lock()
	from := c.state
	if !slices.Contains(allowedTransitions[from], to) {
		c.mu.Unlock()
		c.log.Warn("Ignoring invalid lifecycle transition", "from", from, "to", to)
		return false
	}
	c.state = to
	c.mu.Unlock()

	if from != to {
		c.metrics.Transition(string(from), string(to))
		c.log.Info("Session state changed", "from", from, "to", to)
	}
	return true
}

func (c *Controller) handle(evt domain.ClientEvent) {
	c.metrics.Event(eventName(evt))

	switch e := evt.(type) {
	case domain.PairingCodeEvent:
		c.onPairingCode(e)
	case domain.AuthenticatedEvent:
		if c.transition(domain.StateAuthenticated) {
			c.broadcaster.Broadcast(domain.EventAuthenticated, domain.SessionRef{ID: c.record.ID})
			c.status(msgAuthenticated)
		}
	case domain.ReadyEvent:
		c.onReady()
	case domain.AuthFailureEvent:
		c.onAuthFailure(e)
	case domain.DisconnectedEvent:
		c.onDisconnected(e)
	case domain.GroupMembershipEvent:
		c.onGroupMembership(e)
	default:
		c.log.Warn("Unknown client event", "event", eventName(evt))
	}
}

func (c *Controller) onPairingCode(e domain.PairingCodeEvent) {
	if !c.transition(domain.StateAwaitingPairing) {
		return
	}
	src, err := renderQR(e.Code)
	if err != nil {
		c.log.Error("Failed to render pairing code", "error", err)
		return
	}
	c.broadcaster.Broadcast(domain.EventQR, domain.QRPayload{ID: c.record.ID, Src: src})
	c.status(msgQRReceived)
}

func (c *Controller) onReady() {
	if !c.transition(domain.StateReady) {
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, storeTimeout)
	defer cancel()
	if err := c.store.MarkReady(ctx, c.record); err != nil {
		c.log.Error("Failed to mark session ready", "error", err)
	}

	c.broadcaster.Broadcast(domain.EventReady, domain.SessionRef{ID: c.record.ID})
	c.status(msgReady)
}

// onAuthFailure discards the rejected client and builds a new one after the restart delay.
func (c *Controller) onAuthFailure(e domain.AuthFailureEvent) {
	if !c.transition(domain.StateFailed) {
		return
	}
	c.log.Warn("Client authentication failed", "reason", e.Reason)
	c.status(msgAuthFailure)

	c.detachClient()
	c.reconnect(c.restartDelay())
}

// onDisconnected drops the persisted record and starts over with a new client.
// The registry entry stays, and the record comes back on the next ready.
func (c *Controller) onDisconnected(e domain.DisconnectedEvent) {
	if !c.transition(domain.StateDisconnected) {
		return
	}
	c.log.Warn("Client disconnected", "reason", e.Reason)
	c.status(msgDisconnected)

	c.detachClient()

	ctx, cancel := context.WithTimeout(c.ctx, storeTimeout)
	defer cancel()
	if _, err := c.store.Remove(ctx, c.record.ID); err != nil {
		c.log.Error("Failed to remove disconnected session", "error", err)
	}
	c.broadcaster.Broadcast(domain.EventRemoveSession, c.record.ID)

	c.reconnect(0)
}

func (c *Controller) onGroupMembership(e domain.GroupMembershipEvent) {
	client := c.Client()
	if client == nil || c.State() != domain.StateReady {
		return
	}

	kind, tmpl := "welcome", c.opts.WelcomeTemplate
	if !e.Joined {
		kind, tmpl = "farewell", c.opts.FarewellTemplate
	}
	if tmpl == "" {
		return
	}
	text := strings.ReplaceAll(tmpl, participantTag, mentionHandle(e.Participant))

	err := c.greeter.Submit(func() {
		ctx, cancel := context.WithTimeout(c.ctx, greetingTimeout)
		defer cancel()

		_, err := client.SendText(ctx, e.GroupID, text, e.Participant)
		c.metrics.Greeting(kind, err)
		if err != nil {
			c.log.Warn("Failed to send group greeting", "kind", kind, "group", e.GroupID, "error", err)
		}
	})
	if err != nil {
		c.metrics.Greeting(kind, err)
		c.log.Warn("Group greeting dropped", "kind", kind, "group", e.GroupID, "error", err)
	}
}

func (c *Controller) status(text string) {
	c.broadcaster.Broadcast(domain.EventMessage, domain.StatusMessage{ID: c.record.ID, Text: text})
}

// mentionHandle is the user part of an address, as rendered in an @-mention.
func mentionHandle(jid string) string {
	user, _, _ := strings.Cut(jid, "@")
	return user
}

func eventName(evt domain.ClientEvent) string {
	switch evt.(type) {
	case domain.PairingCodeEvent:
		return "qr"
	case domain.AuthenticatedEvent:
		return "authenticated"
	case domain.ReadyEvent:
		return "ready"
	case domain.AuthFailureEvent:
		return "auth_failure"
	case domain.DisconnectedEvent:
		return "disconnected"
	case domain.GroupMembershipEvent:
		return "group_membership"
	default:
		return "unknown"
	}
}
