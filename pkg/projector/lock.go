package projector

import (
	"time"

	giga "github.com/dogeorg/utxoindexer/pkg"
)

// LockManager decides whether an output's value lands in the unlocked
// or locked bucket, and computes the deltas that release matured
// heightlocks back into unlocked. It holds no store handle: all
// mutation goes through AddressStore/WalletStore.
type LockManager struct{}

// Classify decides the bucket for a single output. Block outputs are
// always locked regardless of any timelock on the output itself:
// maturity is governed entirely by the heightlock TxProjector attaches
// to the transaction as a whole.
func (LockManager) Classify(out giga.TxOutput, now time.Time, isBlock bool) (unlocked, locked int64) {
	if isBlock {
		return 0, out.Value
	}
	if out.TimeLock != nil && *out.TimeLock > now.Unix() {
		return 0, out.Value
	}
	return out.Value, 0
}

// Delta is a single address/token balance adjustment.
type Delta struct {
	Address giga.Address
	Token   giga.TokenID
	Value   int64
}

// Release converts a batch of matured UTXOs into unlock deltas: each
// delta's Value is the amount to move from locked to unlocked for that
// UTXO's (address, token) cell.
func (LockManager) Release(utxos []giga.UTXO) []Delta {
	deltas := make([]Delta, 0, len(utxos))
	for _, u := range utxos {
		deltas = append(deltas, Delta{Address: u.Address, Token: u.TokenID, Value: u.Value})
	}
	return deltas
}
