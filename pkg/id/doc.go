// Package id generates compact, lexicographically sortable identifiers.
//
// wristd stamps a context ID on every change event that arrives without one
// (for example via the HTTP ingest endpoint) so that clients can correlate
// deltas with the hub action that caused them. IDs are 16 bytes big-endian:
// [8 bytes ms timestamp][8 bytes per-process sequence], hex encoded.
package id
