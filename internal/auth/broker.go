package auth

import (
	"context"
	"sync"
	"time"
)

// ChangeKind classifies a principal change.
type ChangeKind int

const (
	SignedIn ChangeKind = iota + 1
	SignedOut
	Refreshed
	ProfileChanged
)

func (k ChangeKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case Refreshed:
		return "refreshed"
	case ProfileChanged:
		return "profile_changed"
	default:
		return "unknown"
	}
}

// PrincipalChange is one event on the principal-change stream.
type PrincipalChange struct {
	Kind        ChangeKind
	PrincipalID string
	At          time.Time
}

const subscriberBuffer = 16

// Broker fans principal changes out to subscribers. Slow subscribers miss
// events rather than block publishers.
type Broker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan PrincipalChange
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan PrincipalChange)}
}

// Subscribe returns a change stream that closes when ctx is done or cancel is called.
func (b *Broker) Subscribe(ctx context.Context) (<-chan PrincipalChange, func()) {
	ch := make(chan PrincipalChange, subscriberBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	stop := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
			close(stop)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-stop:
		}
	}()
	return ch, cancel
}

// Publish delivers change to every subscriber without blocking.
func (b *Broker) Publish(change PrincipalChange) {
	if change.At.IsZero() {
		change.At = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- change:
		default:
		}
	}
}

// Subscribers returns the current subscriber count.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
