// Package deltasvc orchestrates long-poll delta requests.
//
// Each Poll resolves the watch session, queries the delta log with the
// session's entity filter, and either answers immediately or parks a waiter
// until a matching append or the request deadline. Timeouts are not errors:
// the watch receives the current high water mark so its next request never
// rescans a window it already waited through.
package deltasvc
