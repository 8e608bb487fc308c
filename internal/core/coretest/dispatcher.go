package coretest

import "time"

// Dispatcher queues reactions until the test drains them, so every step of
// a scenario runs in a known order on the test goroutine.
type Dispatcher struct {
	queue  []func()
	Timers []*Timer
}

type Timer struct {
	D       time.Duration
	Stopped bool
	fn      func()
}

func (d *Dispatcher) Post(fn func()) { d.queue = append(d.queue, fn) }

// Go runs work inline and queues its continuation.
func (d *Dispatcher) Go(work func() func()) {
	if cont := work(); cont != nil {
		d.Post(cont)
	}
}

func (d *Dispatcher) After(dur time.Duration, fn func()) func() {
	t := &Timer{D: dur, fn: fn}
	d.Timers = append(d.Timers, t)
	return func() { t.Stopped = true }
}

// Drain runs queued reactions, including ones queued while draining.
func (d *Dispatcher) Drain() {
	for len(d.queue) > 0 {
		fn := d.queue[0]
		d.queue = d.queue[1:]
		fn()
	}
}

// FireTimers expires every live timer and drains the queue.
func (d *Dispatcher) FireTimers() {
	timers := d.Timers
	d.Timers = nil
	for _, t := range timers {
		if !t.Stopped {
			t.Stopped = true
			d.Post(t.fn)
		}
	}
	d.Drain()
}

func (d *Dispatcher) Pending() int { return len(d.queue) }

// LiveTimers counts timers that were neither stopped nor fired.
func (d *Dispatcher) LiveTimers() int {
	n := 0
	for _, t := range d.Timers {
		if !t.Stopped {
			n++
		}
	}
	return n
}
