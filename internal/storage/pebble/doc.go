// Package pebblestore provides a thin wrapper around Pebble with fsync
// policy, batches, and iterator helpers.
//
// wristd keeps its durable state here: pairing codes, issued access tokens,
// and push notification tokens. The delta event log is deliberately not
// persisted; it lives in memory for the process lifetime.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{DataDir: "./data"})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	_ = db.Set([]byte("k"), []byte("v"))
//	v, _ := db.Get([]byte("k"))
package pebblestore
