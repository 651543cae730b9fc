// Package session owns the live messaging sessions.
//
// A Controller drives one client through its lifecycle and reports progress
// to observers. The Registry maps session ids to controllers, and the
// Manager ties both to the persisted session list.
package session
