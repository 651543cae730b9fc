// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (session.go, client.go, events.go, errors.go) hold the shared
// types and the contracts between the session layer, the dispatcher and the adapters.
// No implementation code beyond small value helpers.
package domain
