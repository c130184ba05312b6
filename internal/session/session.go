// Package session carries the authenticated identity through a request and
// broadcasts sign-in/sign-out to interested parts of the process.
package session

import (
	"context"
	"sync"
)

// Session identifies an authenticated user for the duration of a request.
// Store and client calls take it explicitly instead of reading global state.
type Session struct {
	UserID string
	Email  string
}

type ctxKey struct{}

// WithSession returns a child context carrying sess.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// FromContext extracts the session placed by the auth middleware.
func FromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(ctxKey{}).(Session)
	return sess, ok
}

// Event is a sign-in or sign-out notification.
type Event struct {
	UserID   string
	SignedIn bool
}

// Notifier is the process-wide auth subscription: dependents register once
// and get called on every sign-in and sign-out.
type Notifier struct {
	mu   sync.Mutex
	subs map[int]func(Event)
	next int
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a cancel func that removes it.
func (n *Notifier) Subscribe(fn func(Event)) func() {
	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// Notify fans the event out to all subscribers.
func (n *Notifier) Notify(ev Event) {
	n.mu.Lock()
	fns := make([]func(Event), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
