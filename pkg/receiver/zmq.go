// Package receiver turns chain-node notifications into ordered
// TxEvents and drives a projector from a single goroutine, so the
// projector never has to reason about concurrent or out-of-order
// delivery itself.
package receiver

import (
	"context"
	"fmt"
	"syscall"
	"time"

	giga "github.com/dogeorg/utxoindexer/pkg"

	"github.com/pebbe/zmq4"
	"github.com/rs/zerolog/log"
)

// Projector is the subset of TxProjector the receiver depends on.
type Projector interface {
	Project(ctx context.Context, event giga.TxEvent) error
}

var _ giga.NodeEmitter = &ZMQReceiver{}

// ZMQReceiver subscribes to a full node's hashtx/hashblock feed,
// resolves each notification through a Resolver, and feeds the
// resulting TxEvents to a Projector strictly in arrival order.
//
// CAUTION: the ZMQ protocol is not authenticated; notifications can
// arrive out of date or be spoofed by anything that can reach the
// socket. The Resolver is expected to fetch the authoritative data
// from the node's RPC interface rather than trust the notification.
type ZMQReceiver struct {
	Address   string
	Resolver  Resolver
	Projector Projector
	Bus       *giga.MessageBus

	sock *zmq4.Socket
}

func NewZMQReceiver(address string, resolver Resolver, proj Projector, bus *giga.MessageBus) *ZMQReceiver {
	return &ZMQReceiver{Address: address, Resolver: resolver, Projector: proj, Bus: bus}
}

// Run implements conductor.Service / giga.NodeEmitter.
func (z *ZMQReceiver) Run(started, stopped chan bool, stop chan context.Context) error {
	sock, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return err
	}
	sock.SetRcvtimeo(2 * time.Second)
	z.sock = sock
	z.send(giga.SYS_STARTUP, fmt.Sprintf("ZMQ: connecting to %s", z.Address))
	if err := sock.Connect(z.Address); err != nil {
		return err
	}
	if err := subscribeAll(sock, "hashtx", "hashblock"); err != nil {
		return err
	}

	go func() {
		started <- true
		for {
			select {
			case ctx := <-stop:
				sock.Close()
				_ = ctx
				stopped <- true
				return
			default:
			}

			msg, err := z.sock.RecvMessageBytes(0)
			if err != nil {
				if errno, ok := err.(zmq4.Errno); ok {
					if errno == zmq4.Errno(syscall.ETIMEDOUT) || errno == zmq4.Errno(syscall.EAGAIN) {
						continue
					}
					z.send(giga.SYS_ERR, fmt.Sprintf("ZMQ error: %v", errno))
					continue
				}
				log.Error().Err(err).Msg("zmq receive failed")
				continue
			}
			z.handle(string(msg[0]), msg[1])
		}
	}()
	return nil
}

func (z *ZMQReceiver) handle(tag string, hashBytes []byte) {
	hash := toHex(hashBytes)
	switch tag {
	case "hashtx":
		event, err := z.Resolver.ResolveTx(hash)
		if err != nil {
			log.Error().Err(err).Str("hash", hash).Msg("failed to resolve tx")
			z.send(giga.SYS_ERR, fmt.Sprintf("resolve tx %s: %v", hash, err))
			return
		}
		z.project(event)
	case "hashblock":
		events, err := z.Resolver.ResolveBlock(hash)
		if err != nil {
			log.Error().Err(err).Str("hash", hash).Msg("failed to resolve block")
			z.send(giga.SYS_ERR, fmt.Sprintf("resolve block %s: %v", hash, err))
			return
		}
		for _, event := range events {
			z.project(event)
		}
	}
}

// project drives the projector with a backoff retry on storage errors,
// matching the chaintracker's retry-on-failure loop: validation and
// chain-consistency errors are logged and skipped (they will never
// succeed on retry), storage errors are retried indefinitely since the
// event's delivery order must be preserved.
func (z *ZMQReceiver) project(event giga.TxEvent) {
	for {
		err := z.Projector.Project(context.Background(), event)
		if err == nil {
			return
		}
		if giga.IsNotAvailable(err) {
			log.Warn().Err(err).Str("tx", event.TxID).Msg("storage unavailable, retrying")
			time.Sleep(retryDelay)
			continue
		}
		log.Error().Err(err).Str("tx", event.TxID).Msg("failed to project transaction")
		z.send(giga.SYS_ERR, fmt.Sprintf("project %s: %v", event.TxID, err))
		return
	}
}

func (z *ZMQReceiver) send(t giga.EventType, msg string) {
	if z.Bus == nil {
		return
	}
	_ = z.Bus.Send(t, msg)
}

const retryDelay = 2 * time.Second

func toHex(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hextable[c>>4]
		out[i*2+1] = hextable[c&0x0f]
	}
	return string(out)
}

func subscribeAll(sock *zmq4.Socket, topics ...string) error {
	for _, topic := range topics {
		if err := sock.SetSubscribe(topic); err != nil {
			return err
		}
	}
	return nil
}
