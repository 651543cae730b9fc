// Package httpserver exposes the gateway over HTTP: command routes, session
// administration, the observer websocket and operational endpoints.
package httpserver
