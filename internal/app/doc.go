// Package app provides the command dispatcher.
//
// Each operation resolves the sending session, validates and resolves its target
// (a registered contact or a named group) and invokes exactly one client capability.
// Failures are returned as structured errors that the HTTP layer maps to status codes.
// Commands are never retried here.
package app
