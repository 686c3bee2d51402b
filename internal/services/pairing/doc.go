// Package pairingsvc issues and redeems one-time pairing codes.
//
// A code is a short-lived, single-use credential carrying the URLs a watch
// needs to reach the hub. Redeeming an unexpired code exchanges it for a
// long-lived access token. Redemption of each code is guarded by a
// compare-and-swap on its state, so exactly one of any set of concurrent
// redeemers wins; unrelated codes never contend.
package pairingsvc
