package auth

import "sync"

// Subscriber receives every state transition, in transition order, exactly
// once per transition. Callbacks run synchronously on the transitioning
// goroutine: do not call back into the SessionManager from inside one - hand
// the snapshot to another goroutine instead.
type Subscriber func(AuthState)

type subscription struct {
	id int
	fn Subscriber
}

// broadcaster delivers state snapshots to an ordered set of subscribers.
type broadcaster struct {
	lock   sync.Mutex
	nextID int
	subs   []subscription
}

func newBroadcaster() *broadcaster {
	return &broadcaster{}
}

// subscribe registers fn and returns an unsubscribe function. Subscribers are
// notified in subscription order.
func (b *broadcaster) subscribe(fn Subscriber) func() {
	b.lock.Lock()
	defer b.lock.Unlock()

	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription{id: id, fn: fn})

	return func() {
		b.lock.Lock()
		defer b.lock.Unlock()
		for i, sub := range b.subs {
			if sub.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// publish delivers state to every current subscriber. Callers serialize
// publishes; the broadcaster itself only guards the subscriber list.
func (b *broadcaster) publish(state AuthState) {
	b.lock.Lock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.lock.Unlock()

	for _, sub := range subs {
		sub.fn(state)
	}
}
