package store

import (
	"context"
	"sync"
)

// Subscription receives snapshots of one document on C until Close.
type Subscription struct {
	C <-chan Snapshot

	feed *feed
	stop func()
	done chan struct{}
	once sync.Once
}

func newSubscription(ctx context.Context, f *feed, stop func()) *Subscription {
	sub := &Subscription{C: f.ch, feed: f, stop: stop, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()
	return sub
}

// Close stops delivery and closes C. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.stop != nil {
			s.stop()
		}
		s.feed.close()
	})
}

// feed is a one-slot mailbox: a push replaces any snapshot not yet read.
type feed struct {
	mu     sync.Mutex
	ch     chan Snapshot
	closed bool
}

func newFeed() *feed {
	return &feed{ch: make(chan Snapshot, 1)}
}

func (f *feed) push(s Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case <-f.ch:
	default:
	}
	f.ch <- s
}

func (f *feed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}
