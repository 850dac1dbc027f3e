// Package server hosts reactive containers over HTTP and WebSocket. Each
// session owns one container; clients mutate its signals and stores over a
// live WebSocket connection and the host flushes the scheduler after every
// applied mutation. Sessions can be paused into a snapshot store and resumed
// later without replaying task bodies.
package server
