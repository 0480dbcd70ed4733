package receiver

import giga "github.com/dogeorg/utxoindexer/pkg"

// Resolver turns a chain node's hash-only ZMQ notification into the
// fully decoded event(s) the projector needs. The production
// implementation talks to the node's JSON-RPC interface; tests supply
// a canned one.
type Resolver interface {
	// ResolveTx decodes a single mempool/confirmed transaction named by
	// a "hashtx" notification.
	ResolveTx(hash string) (giga.TxEvent, error)
	// ResolveBlock decodes the transactions belonging to a new block
	// named by a "hashblock" notification, each carrying that block's
	// height.
	ResolveBlock(hash string) ([]giga.TxEvent, error)
}
