// Package camera groups upstream camera entities into physical devices and
// manages smart stream sessions with server-side crop, resize, and quality
// control. Multi-lens cameras expose several entities per device; the role
// rules classify each entity as an SD/HD stream or snapshot source so a
// small-screen client can pick the cheapest feed.
package camera
