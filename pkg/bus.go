package giga

/*
The message bus lets the projector, materializer and chain receiver
announce what they did without depending on the webapi or CLI
directly. Subscribers register the EventTypes they want and get a
channel fed from a single internal dispatch goroutine.
*/

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
)

// MessageSubscriber is implemented by anything that wants events off
// the bus, such as the rotating-file event logger in pkg/messages.
type MessageSubscriber interface {
	GetChan() chan Message
}

// Message is what Send() wraps a payload into before dispatch.
type Message struct {
	EventType EventType
	Message   []byte
	ID        string
}

type Subscription struct {
	dest  MessageSubscriber
	types []EventType
}

func NewMessageBus() MessageBus {
	return MessageBus{
		receivers: make(map[*Subscription]bool),
		inbound:   make(chan Message, 64),
	}
}

type MessageBus struct {
	receivers map[*Subscription]bool
	inbound   chan Message
}

// Send marshals msg as JSON and queues it for dispatch under EventType t.
func (b MessageBus) Send(t EventType, msg interface{}, msgID ...string) error {
	j, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if len(msgID) == 0 {
		b.inbound <- Message{t, j, generateID()}
	} else {
		b.inbound <- Message{t, j, msgID[0]}
	}
	return nil
}

func (b MessageBus) Register(m MessageSubscriber, types ...EventType) *Subscription {
	sub := &Subscription{m, types}
	b.receivers[sub] = true
	return sub
}

func (b MessageBus) Unregister(sub *Subscription) {
	delete(b.receivers, sub)
	close(sub.dest.GetChan())
}

// Run implements conductor.Service: it dispatches queued messages to
// registered subscribers until stop is signalled.
func (b MessageBus) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		stopBus := make(chan bool)
		go func() {
			for {
				select {
				case <-stopBus:
					return
				case message := <-b.inbound:
					for sub := range b.receivers {
						wants := false
						for _, t := range sub.types {
							if t.Type() == "ALL" || t.Type() == message.EventType.Type() {
								wants = true
								break
							}
						}
						if !wants {
							continue
						}
						select {
						case sub.dest.GetChan() <- message:
						default:
							b.Unregister(sub)
						}
					}
				}
			}
		}()
		started <- true
		<-stop
		close(stopBus)
		stopped <- true
	}()
	return nil
}

func generateID() string {
	bytes := make([]byte, 4)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)[:8]
}
