// Package sessionstore serializes all reads and writes of the persisted
// session list through a single actor goroutine.
//
// Every mutation is a read-modify-write of the whole document followed by a
// full save. The in-memory copy only changes after the save succeeds, so it
// never runs ahead of what a restart would reload.
package sessionstore
