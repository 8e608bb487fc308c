package core

// Observers is a list of subscribers with unsubscribe handles.
// It is owned by the event loop and not safe for concurrent use.
type Observers[T any] struct {
	next int
	subs []observer[T]
}

type observer[T any] struct {
	id int
	fn func(T)
}

func (o *Observers[T]) Add(fn func(T)) (remove func()) {
	o.next++
	id := o.next
	o.subs = append(o.subs, observer[T]{id: id, fn: fn})
	return func() {
		for i, s := range o.subs {
			if s.id == id {
				o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
				return
			}
		}
	}
}

// Notify calls every subscriber registered when it starts.
func (o *Observers[T]) Notify(v T) {
	subs := append([]observer[T](nil), o.subs...)
	for _, s := range subs {
		s.fn(v)
	}
}

func (o *Observers[T]) Len() int { return len(o.subs) }

func (o *Observers[T]) Clear() { o.subs = nil }
