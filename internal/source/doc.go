// Package source feeds external change events into the delta log.
//
// The primary implementation subscribes to a Home Assistant websocket API
// for state_changed events and reconnects with backoff when the link drops.
// The HTTP ingest endpoint is a second source sharing the same Sink
// contract.
package source
