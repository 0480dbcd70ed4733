package messages

import (
	"testing"

	giga "github.com/dogeorg/utxoindexer/pkg"

	"github.com/stretchr/testify/require"
)

func TestMessageLoggerGetChanReturnsRec(t *testing.T) {
	l := NewMessageLogger(t.TempDir()+"/events.log", giga.LoggingConfig{})
	require.Equal(t, l.Rec, l.GetChan())
}

func TestSetupEventLogRegistersForAllByDefault(t *testing.T) {
	bus := giga.NewMessageBus()
	sub := SetupEventLog(&bus, t.TempDir()+"/events.log", giga.LoggingConfig{})
	require.NotNil(t, sub)
}
