package drafts

import "sync"

// EventType names a controller state change.
type EventType string

const (
	EventDefined   EventType = "defined"
	EventUpdated   EventType = "updated"
	EventAuxiliary EventType = "auxiliary"
	EventDiscarded EventType = "discarded"
	EventReleased  EventType = "released"
	EventRestored  EventType = "restored"
	EventFallback  EventType = "fallback"
	EventCancelled EventType = "cancelled"
	EventExecuted  EventType = "executed"
	EventReset     EventType = "reset"
	EventResynced  EventType = "resynced"
)

// Event describes a state change of one controller.
type Event struct {
	Type  EventType
	Kind  string
	ID    string
	Dirty bool
	Err   error
}

// observers is an ordered list of subscribers.
type observers struct {
	mu   sync.Mutex
	next uint64
	subs []subscription
}

type subscription struct {
	id uint64
	fn func(Event)
}

func (o *observers) subscribe(fn func(Event)) func() {
	o.mu.Lock()
	o.next++
	id := o.next
	o.subs = append(o.subs, subscription{id: id, fn: fn})
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			for i, s := range o.subs {
				if s.id == id {
					o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// emit delivers ev in subscription order. Subscribers may unsubscribe from
// inside the callback.
func (o *observers) emit(ev Event) {
	o.mu.Lock()
	subs := make([]func(Event), len(o.subs))
	for i, s := range o.subs {
		subs[i] = s.fn
	}
	o.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}
