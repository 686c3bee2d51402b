// Package notify keeps the persistent map of watch IDs to push device
// tokens. The watch registers its token once; a hub-side pusher reads it
// back when it wants to reach the watch out of band.
package notify
