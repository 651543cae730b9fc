// Package broadcast fans lifecycle events out to WebSocket observers using the actor pattern.
//
// A single goroutine owns the observer set and serializes register, unregister and broadcast
// commands (no mutexes). Per-connection writer goroutines absorb slow observers; an observer
// whose buffer is full is dropped rather than allowed to stall the fan-out.
package broadcast
