// Package redis stores the session document in a single redis key.
//
// The client carries a metrics hook and a circuit breaker hook so a failing
// redis surfaces as fast errors on the store instead of stalled requests.
package redis
