package core

import "time"

// Dispatcher is the single logical thread of control of a client.
// Everything that touches room or link state runs inside Post callbacks.
type Dispatcher interface {
	// Post queues fn to run on the loop.
	Post(fn func())
	// Go runs work off the loop; the continuation it returns (if any)
	// is posted back to the loop.
	Go(work func() func())
	// After posts fn to the loop once d has elapsed unless stopped first.
	After(d time.Duration, fn func()) (stop func())
}
