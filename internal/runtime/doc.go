// Package runtime wires storage, config, and services into a single-node
// wristd instance. It exposes Open/Close, basic health checks, and the
// service facades the transport layer serves.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Config: cfg})
//	defer rt.Close()
//	rt.Start(ctx) // background loops: session pruning, pairing sweep, upstream source
package runtime
