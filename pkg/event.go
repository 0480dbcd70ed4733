package giga

import (
	"context"
	"time"
)

// TxInput is one consumed UTXO reference inside a TxEvent.
type TxInput struct {
	TxID  string
	Index int64
}

// TxOutput is one created UTXO inside a TxEvent.
type TxOutput struct {
	Index      int64
	Address    Address
	TokenID    TokenID
	Value      int64
	TimeLock   *int64
	HeightLock *int64
}

// TxEvent is a confirmed transaction handed to the TxProjector. It
// carries enough of the decoded transaction for the projector to
// resolve spent inputs against the utxo table and insert new outputs,
// without the projector needing to talk to a node itself.
type TxEvent struct {
	TxID      string
	Height    int64
	Timestamp time.Time
	Inputs    []TxInput
	Outputs   []TxOutput
}

// NodeEventType distinguishes the notifications a chain node can emit
// over its ZMQ publisher sockets.
type NodeEventType int

const (
	NodeEventTx NodeEventType = iota
	NodeEventBlock
)

// NodeEvent is a raw notification from the chain node: either a new
// transaction hash (to fetch and decode) or a new block hash (to walk
// forwards from the last known chain height).
type NodeEvent struct {
	Type NodeEventType
	Hash string
}

// NodeEmitter is implemented by receivers that watch a chain node and
// feed what they see to the projector. Run starts the receiver in the
// background and returns; it signals started, then signals stopped
// once a value arrives on (or the closing of) stop.
type NodeEmitter interface {
	Run(started, stopped chan bool, stop chan context.Context) error
}
