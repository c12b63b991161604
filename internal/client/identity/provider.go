// Package identity is the client side of the hosted identity provider:
// email/password sign-in, the provider session and its bearer token.
package identity

import (
	"context"
	"sort"
	"sync"
)

type EventKind int

const (
	EventSignedIn EventKind = iota + 1
	EventTokenRefreshed
	EventSignedOut
)

func (k EventKind) String() string {
	switch k {
	case EventSignedIn:
		return "signed_in"
	case EventTokenRefreshed:
		return "token_refreshed"
	case EventSignedOut:
		return "signed_out"
	default:
		return "unknown"
	}
}

// Event is a provider session change. UID and Email are empty on sign-out.
type Event struct {
	Kind  EventKind
	UID   string
	Email string
}

// Provider is the identity provider contract used by the session reconciler.
type Provider interface {
	// OnSessionChange registers fn for every session change. fn runs on the
	// goroutine that caused the change and must not block.
	OnSessionChange(fn func(Event)) *Subscription
	SignIn(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
	// Token returns the current session bearer token, refreshing it first
	// when it has expired. Without a session it fails with CodeNoSession.
	Token(ctx context.Context) (string, error)
	HasSession() bool
}

// Subscription is the handle returned by OnSessionChange.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// NewSubscription returns a handle that runs cancel on the first Unsubscribe.
func NewSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

// Unsubscribe stops delivery. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// hub fans events out to subscribers in subscription order.
type hub struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]func(Event)
}

func (h *hub) subscribe(fn func(Event)) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs == nil {
		h.subs = make(map[uint64]func(Event))
	}
	id := h.next
	h.next++
	h.subs[id] = fn

	return NewSubscription(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	})
}

func (h *hub) emit(ev Event) {
	h.mu.Lock()
	ids := make([]uint64, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.subs[id])
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
