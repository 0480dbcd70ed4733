package receiver

import (
	"context"
	"sync"

	giga "github.com/dogeorg/utxoindexer/pkg"
)

// FeedReceiver drives a Projector directly with already-decoded
// events, in the order they're pushed; there is no queue or channel
// in between. It exists so the projector can be embedded in a process
// that already has TxEvents on hand (a test, a backfill tool, a node
// plugin) without pulling in the ZMQ transport.
//
// Push is safe to call from multiple goroutines; an internal mutex
// applies events to the projector one at a time.
type FeedReceiver struct {
	Projector Projector

	mu sync.Mutex
}

func NewFeedReceiver(proj Projector) *FeedReceiver {
	return &FeedReceiver{Projector: proj}
}

// Push projects a single event, blocking until it's been applied.
func (f *FeedReceiver) Push(ctx context.Context, event giga.TxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Projector.Project(ctx, event)
}

// PushBlock projects every transaction of a block in order, stopping
// at the first failure.
func (f *FeedReceiver) PushBlock(ctx context.Context, events []giga.TxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, event := range events {
		if err := f.Projector.Project(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
