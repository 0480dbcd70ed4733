// Package messages holds MessageSubscriber implementations that can be
// registered on a MessageBus: right now, a rotating-file event logger.
package messages

import (
	"context"

	giga "github.com/dogeorg/utxoindexer/pkg"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// MessageLogger writes every message it receives off the bus to a
// rotating log file as a structured line, one per event.
type MessageLogger struct {
	// Rec is where the bus delivers messages this subscriber is
	// registered for.
	Rec chan giga.Message
	Log zerolog.Logger
}

// GetChan implements giga.MessageSubscriber.
func (l MessageLogger) GetChan() chan giga.Message {
	return l.Rec
}

// Run implements conductor.Service.
func (l MessageLogger) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		started <- true
		for {
			select {
			case <-stop:
				close(l.Rec)
				stopped <- true
				return
			case msg := <-l.Rec:
				l.Log.Info().
					Str("category", msg.EventType.Type()).
					Str("id", msg.ID).
					RawJSON("payload", msg.Message).
					Msg("event")
			}
		}
	}()
	return nil
}

// NewMessageLogger builds a MessageLogger writing newline-delimited
// JSON to path, rotated per cfg's size/backup/age limits.
func NewMessageLogger(path string, cfg giga.LoggingConfig) MessageLogger {
	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	return MessageLogger{
		Rec: make(chan giga.Message, 1000),
		Log: zerolog.New(writer).With().Timestamp().Logger(),
	}
}

// SetupEventLog registers a MessageLogger on bus for every event
// category named in types, or for everything if types is empty.
func SetupEventLog(bus *giga.MessageBus, path string, cfg giga.LoggingConfig, types ...string) giga.MessageSubscriber {
	l := NewMessageLogger(path, cfg)
	if len(types) == 0 {
		bus.Register(l, giga.EVENT_ALL("ALL"))
		return l
	}
	matched := make([]giga.EventType, 0, len(types))
	for _, want := range types {
		for _, t := range giga.EVENT_TYPES {
			if t.Type() == want {
				matched = append(matched, t)
			}
		}
	}
	bus.Register(l, matched...)
	return l
}
