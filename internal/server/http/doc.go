// Package httpserver is the wristd HTTP surface: the watch long-poll
// endpoint, pairing exchange, push token registration, ingest, and the
// operational endpoints (health, diagnostics, metrics).
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Config: config.Default()})
//	s := httpserver.New(rt)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8099")
package httpserver
