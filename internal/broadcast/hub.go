package broadcast

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/wagate/internal/adapter/metrics"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
	cmdBufferSize  = 256
)

// ErrTooManyObservers is returned by Register when the observer limit is reached.
var ErrTooManyObservers = errors.New("maximum number of observers reached")

// Frame is the envelope of every message on the observer channel.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	connection *websocket.Conn
	initial    [][]byte
	reply      chan registerResult
}

type registerResult struct {
	id  uuid.UUID
	err error
}

type unregisterCmd struct {
	baseHubCmd
	id uuid.UUID
}

type broadcastCmd struct {
	baseHubCmd
	payload []byte
}

type countCmd struct {
	baseHubCmd
	reply chan int
}

type stopCmd struct{ baseHubCmd }

// Hub owns the set of connected observers.
type Hub struct {
	cmdCh        chan hubCmd
	clock        clockwork.Clock
	observers    map[uuid.UUID]*clientWriter
	maxObservers int
	metrics      *metrics.WebSocketMetrics
	done         chan struct{}
}

func NewHub(clock clockwork.Clock, maxObservers int, m *metrics.WebSocketMetrics) *Hub {
	h := &Hub{
		cmdCh:        make(chan hubCmd, cmdBufferSize),
		clock:        clock,
		observers:    make(map[uuid.UUID]*clientWriter),
		maxObservers: maxObservers,
		metrics:      m,
		done:         make(chan struct{}),
	}
	go h.run()
	return h
}

// Register adds an observer. The initial frames are queued ahead of any later broadcast.
func (h *Hub) Register(conn *websocket.Conn, initial ...Frame) (uuid.UUID, error) {
	encoded := make([][]byte, 0, len(initial))
	for _, f := range initial {
		data, err := json.Marshal(f)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to encode %s frame: %w", f.Event, err)
		}
		encoded = append(encoded, data)
	}

	reply := make(chan registerResult, 1)
	if !h.send(registerCmd{connection: conn, initial: encoded, reply: reply}) {
		return uuid.Nil, errors.New("observer hub stopped")
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case res := <-reply:
		return res.id, res.err
	case <-timer.Chan():
		return uuid.Nil, fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

func (h *Hub) Unregister(id uuid.UUID) {
	h.send(unregisterCmd{id: id})
}

// Broadcast sends one frame to every observer. It never waits on observers.
func (h *Hub) Broadcast(event string, data any) {
	payload, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		slog.Error("Failed to encode broadcast frame", "event", event, "error", err)
		return
	}
	h.send(broadcastCmd{payload: payload})
}

// ObserverCount returns the number of connected observers, or -1 on timeout.
func (h *Hub) ObserverCount() int {
	reply := make(chan int, 1)
	if !h.send(countCmd{reply: reply}) {
		return 0
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case n := <-reply:
		return n
	case <-timer.Chan():
		slog.Warn("ObserverCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop closes every observer connection and waits for the actor to exit.
func (h *Hub) Stop() {
	if !h.send(stopCmd{}) {
		return
	}

	timer := h.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-h.done:
		slog.Info("Observer hub stopped gracefully")
	case <-timer.Chan():
		slog.Warn("Observer hub stop timeout exceeded", "timeout", stopTimeout)
	}
}

func (h *Hub) send(cmd hubCmd) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.cmdCh <- cmd:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) run() {
	defer close(h.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Observer hub panic recovered", "panic", r)
			h.closeAll("hub panic")
		}
	}()

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c.id, "")
		case broadcastCmd:
			h.handleBroadcast(c.payload)
		case countCmd:
			c.reply <- len(h.observers)
		case stopCmd:
			slog.Info("Observer hub shutting down", "observers", len(h.observers))
			h.closeAll("Server shutting down")
			return
		default:
			slog.Warn("Observer hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	if len(h.observers) >= h.maxObservers {
		slog.Warn("Rejecting observer: max observers reached", "max_observers", h.maxObservers)
		h.dropped("limit")
		c.reply <- registerResult{err: ErrTooManyObservers}
		return
	}

	id := uuid.New()
	cw := newClientWriter(c.connection, h.clock)
	for _, frame := range c.initial {
		select {
		case cw.sendChannel <- frame:
		default:
			slog.Warn("Initial frames exceed observer buffer", "observer_id", id.String())
		}
	}
	h.observers[id] = cw

	if h.metrics != nil {
		h.metrics.ActiveObservers.Inc()
	}
	slog.Debug("Observer registered", "observer_id", id.String(), "total_observers", len(h.observers))
	c.reply <- registerResult{id: id}
}

func (h *Hub) handleUnregister(id uuid.UUID, reason string) {
	cw, ok := h.observers[id]
	if !ok {
		return
	}
	cw.stop()
	delete(h.observers, id)

	if h.metrics != nil {
		h.metrics.ActiveObservers.Dec()
	}
	if reason != "" {
		h.dropped(reason)
	}
	slog.Debug("Observer unregistered", "observer_id", id.String(), "remaining_observers", len(h.observers))
}

func (h *Hub) handleBroadcast(payload []byte) {
	var slow []uuid.UUID
	for id, cw := range h.observers {
		select {
		case cw.sendChannel <- payload:
		default:
			slow = append(slow, id)
		}
	}
	if h.metrics != nil {
		h.metrics.FramesPublished.Inc()
	}

	for _, id := range slow {
		slog.Warn("Disconnecting slow observer", "observer_id", id.String())
		h.handleUnregister(id, "slow")
	}
}

func (h *Hub) closeAll(reason string) {
	for id, cw := range h.observers {
		cw.stopGraceful(reason)
		delete(h.observers, id)
	}
	if h.metrics != nil {
		h.metrics.ActiveObservers.Set(0)
	}
}

func (h *Hub) dropped(reason string) {
	if h.metrics != nil {
		h.metrics.ObserversDropped.WithLabelValues(reason).Inc()
	}
}
