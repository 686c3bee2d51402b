// Package session tracks per-watch subscription state.
//
// A WatchSession is created on the first request from an unseen watch_id and
// mutated on every accepted request. Subscription changes are atomic: a
// supplied entity list fully replaces the stored set, never merges. A
// config-hash change invalidates the stored set until the watch resupplies
// its entities. Sessions are never destroyed explicitly; idle ones are pruned
// after a TTL purely as a memory bound.
package session
