// Package client provides the `wristd` command-line client.
//
// The CLI talks to the wristd HTTP API to perform common operations from a
// terminal. It is primarily intended for developers and operators.
//
// # Address configuration
//
// The HTTP base URL is discovered by the application that embeds the
// commands via a BaseURLFunc. When using the standalone binary, it
// defaults to http://127.0.0.1:8099. Authenticated commands read the
// bearer token from the WRISTD_TOKEN environment variable or --token.
//
// Usage
//
//	wristd pair create --local-url http://192.168.1.5:8123
//	wristd pair redeem --code 7f0e...
//
//	# Follow deltas the way a watch does
//	wristd watch tail --watch-id dev --entities light.kitchen,sensor.door
//	wristd watch tail --watch-id dev --entities light.kitchen --filter 'state.state == "on"'
//
//	wristd watch status
//	wristd watch resync
//
//	wristd ingest --entity-id sensor.demo --state '{"state":"42"}'
//
// Notes
//
//   - watch tail performs the same long-poll loop as a real watch client:
//     it supplies its entity list on first contact, then advances its
//     cursor from each response, resyncing when the server answers 410.
//   - ingest is a developer convenience for pushing synthetic change
//     events into a running daemon.
package client
