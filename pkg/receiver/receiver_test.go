package receiver

import (
	"context"
	"sync"
	"testing"
	"time"

	giga "github.com/dogeorg/utxoindexer/pkg"

	"github.com/stretchr/testify/require"
)

// recordingProjector captures the order events arrive in, without
// touching a real store, so tests can assert on arrival order alone.
type recordingProjector struct {
	mu   sync.Mutex
	seen []string
}

func (p *recordingProjector) Project(ctx context.Context, event giga.TxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, event.TxID)
	return nil
}

func (p *recordingProjector) order() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.seen))
	copy(out, p.seen)
	return out
}

func TestFeedReceiverPreservesOrder(t *testing.T) {
	proj := &recordingProjector{}
	f := NewFeedReceiver(proj)

	require.NoError(t, f.Push(context.Background(), giga.TxEvent{TxID: "tx1"}))
	require.NoError(t, f.Push(context.Background(), giga.TxEvent{TxID: "tx2"}))
	require.NoError(t, f.PushBlock(context.Background(), []giga.TxEvent{
		{TxID: "tx3"}, {TxID: "tx4"},
	}))

	require.Equal(t, []string{"tx1", "tx2", "tx3", "tx4"}, proj.order())
}

func TestFeedReceiverSerializesConcurrentPush(t *testing.T) {
	proj := &recordingProjector{}
	f := NewFeedReceiver(proj)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			f.Push(context.Background(), giga.TxEvent{TxID: "tx"})
		}(i)
	}
	wg.Wait()
	require.Len(t, proj.order(), 20)
}

// cannedResolver (with a nil bus) lets the ZMQReceiver's notification
// handling be exercised without a live zmq socket: handle() is called directly,
// the way the Run goroutine would call it on a real message.
type cannedResolver struct {
	tx    giga.TxEvent
	block []giga.TxEvent
	err   error
}

func (c *cannedResolver) ResolveTx(hash string) (giga.TxEvent, error) {
	return c.tx, c.err
}

func (c *cannedResolver) ResolveBlock(hash string) ([]giga.TxEvent, error) {
	return c.block, c.err
}

func TestZMQReceiverHandleTx(t *testing.T) {
	proj := &recordingProjector{}
	resolver := &cannedResolver{tx: giga.TxEvent{TxID: "resolved-tx"}}
	z := NewZMQReceiver("tcp://127.0.0.1:0", resolver, proj, nil)

	z.handle("hashtx", []byte{0xab, 0xcd})

	require.Eventually(t, func() bool { return len(proj.order()) == 1 }, time.Second, time.Millisecond)
	require.Equal(t, []string{"resolved-tx"}, proj.order())
}

func TestZMQReceiverHandleBlock(t *testing.T) {
	proj := &recordingProjector{}
	resolver := &cannedResolver{block: []giga.TxEvent{{TxID: "b1"}, {TxID: "b2"}}}
	z := NewZMQReceiver("tcp://127.0.0.1:0", resolver, proj, nil)

	z.handle("hashblock", []byte{0x01})

	require.Eventually(t, func() bool { return len(proj.order()) == 2 }, time.Second, time.Millisecond)
	require.Equal(t, []string{"b1", "b2"}, proj.order())
}

func TestToHex(t *testing.T) {
	require.Equal(t, "abcd", toHex([]byte{0xab, 0xcd}))
	require.Equal(t, "", toHex(nil))
}
