// Package projector implements transaction projection: turning a
// confirmed TxEvent into the address-level and wallet-level balance
// and history mutations described by the store schema.
package projector

import (
	"context"
	"sync"
	"time"

	giga "github.com/dogeorg/utxoindexer/pkg"
	"github.com/rs/zerolog/log"
)

// cell accumulates the unlocked/locked contribution of a single
// transaction to one (address, token) pair, so a tx that touches the
// same address/token more than once still produces one history row.
type cell struct {
	unlocked int64
	locked   int64
}

// TxProjector consumes TxEvents strictly in arrival order and drives
// the storage layer accordingly. Project holds an internal mutex, so
// concurrent callers (the receiver and the admin API) are applied one
// at a time; Bus, if set, is used to announce outcomes.
type TxProjector struct {
	Store           giga.Store
	Lock            LockManager
	BlockRewardLock int64
	Bus             *giga.MessageBus

	mu sync.Mutex
}

func NewTxProjector(store giga.Store, blockRewardLock int64, bus *giga.MessageBus) *TxProjector {
	return &TxProjector{Store: store, Lock: LockManager{}, BlockRewardLock: blockRewardLock, Bus: bus}
}

// IsBlock reports whether the event carries a block height. A regular
// transaction's Height is unset (negative) by convention.
func IsBlock(event giga.TxEvent) bool {
	return event.Height >= 0
}

// Project applies one confirmed transaction to the store. It is
// idempotent: re-submitting an already-projected txId is a no-op.
func (p *TxProjector) Project(ctx context.Context, event giga.TxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	isBlock := IsBlock(event)

	tx, err := p.Store.Begin()
	if err != nil {
		return giga.WrapErr(giga.NotAvailable, err, "TxProjector.Project: begin")
	}
	defer tx.Rollback()

	already, err := tx.IsProjected(event.TxID)
	if err != nil {
		return err
	}
	if already {
		p.send(giga.TX_SKIPPED, event.TxID)
		return nil
	}

	deltas := make(map[giga.Address]map[giga.TokenID]*cell)
	addCell := func(addr giga.Address, token giga.TokenID, unlocked, locked int64) {
		byToken, ok := deltas[addr]
		if !ok {
			byToken = make(map[giga.TokenID]*cell)
			deltas[addr] = byToken
		}
		c, ok := byToken[token]
		if !ok {
			c = &cell{}
			byToken[token] = c
		}
		c.unlocked += unlocked
		c.locked += locked
	}

	// Step 3 (brought forward): resolve and delete each input's UTXO,
	// which also denormalizes the input's value/address/token so we
	// don't have to trust the event's own claims about them.
	for _, in := range event.Inputs {
		spent, err := tx.SpendUTXO(in.TxID, in.Index)
		if err != nil {
			log.Error().Str("tx", event.TxID).Str("input_tx", in.TxID).Int64("input_index", in.Index).Msg("input utxo missing")
			return err
		}
		addCell(spent.Address, spent.TokenID, -spent.Value, 0)
	}

	// Step 4: compute the heightlock for the whole tx and insert one
	// UTXO row per output, classifying each into unlocked or locked.
	var heightLock *int64
	if isBlock {
		h := event.Height + p.BlockRewardLock
		heightLock = &h
	}
	for _, out := range event.Outputs {
		unlocked, locked := p.Lock.Classify(out, event.Timestamp, isBlock)
		addCell(out.Address, out.TokenID, unlocked, locked)
		err := tx.CreateUTXO(giga.UTXO{
			TxID:       event.TxID,
			Index:      out.Index,
			TokenID:    out.TokenID,
			Address:    out.Address,
			Value:      out.Value,
			TimeLock:   out.TimeLock,
			HeightLock: heightLock,
		})
		if err != nil {
			return err
		}
	}

	// Step 5: persist address-side deltas.
	if err := applyAddressDeltas(tx, event.TxID, event.Timestamp, deltas); err != nil {
		return err
	}

	// Step 6: fold touched addresses' deltas into wallet-level deltas
	// for addresses already claimed by a ready wallet.
	addrs := make([]giga.Address, 0, len(deltas))
	for a := range deltas {
		addrs = append(addrs, a)
	}
	walletOf, err := tx.LookupWalletsByAddresses(addrs)
	if err != nil {
		return err
	}
	if len(walletOf) > 0 {
		walletDeltas := make(map[giga.WalletID]map[giga.TokenID]*cell)
		addWalletCell := func(w giga.WalletID, token giga.TokenID, unlocked, locked int64) {
			byToken, ok := walletDeltas[w]
			if !ok {
				byToken = make(map[giga.TokenID]*cell)
				walletDeltas[w] = byToken
			}
			c, ok := byToken[token]
			if !ok {
				c = &cell{}
				byToken[token] = c
			}
			c.unlocked += unlocked
			c.locked += locked
		}
		for addr, byToken := range deltas {
			w, claimed := walletOf[addr]
			if !claimed {
				continue
			}
			for token, c := range byToken {
				addWalletCell(w, token, c.unlocked, c.locked)
			}
		}
		if err := applyWalletDeltas(tx, event.TxID, event.Timestamp, walletDeltas); err != nil {
			return err
		}
	}

	// Step 7: release matured heightlocks triggered by this block.
	if isBlock {
		matured, err := tx.ListMaturedLocks(event.Height, event.Timestamp.Unix())
		if err != nil {
			return err
		}
		if len(matured) > 0 {
			if err := p.releaseMatured(tx, matured); err != nil {
				return err
			}
		}
	}

	// Step 8: record the idempotency ledger row.
	if err := tx.MarkProjected(event.TxID, event.Height); err != nil {
		return err
	}
	if isBlock {
		if err := tx.SetChainState(giga.ChainState{LastHeight: event.Height, LastTxID: event.TxID}); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return giga.WrapErr(giga.DBConflict, err, "TxProjector.Project: commit")
	}

	p.send(giga.TX_PROJECTED, event.TxID)
	return nil
}

func applyAddressDeltas(tx giga.StoreTransaction, txID string, timestamp time.Time, deltas map[giga.Address]map[giga.TokenID]*cell) error {
	for addr, byToken := range deltas {
		info, err := tx.GetAddress(addr)
		if giga.IsNotFound(err) {
			if err := tx.CreateAddress(giga.AddressInfo{Address: addr, Index: -1, Transactions: 1}); err != nil {
				return err
			}
		} else if err != nil {
			return err
		} else {
			_ = info
			if err := tx.IncrementAddressTxCount(addr); err != nil {
				return err
			}
		}
		for token, c := range byToken {
			if err := tx.AdjustAddressBalance(addr, token, c.unlocked, c.locked); err != nil {
				return err
			}
			if err := tx.AppendAddressHistory(giga.AddressTxHistoryEntry{
				Address:   addr,
				TxID:      txID,
				TokenID:   token,
				Balance:   c.unlocked + c.locked,
				Timestamp: timestamp,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyWalletDeltas(tx giga.StoreTransaction, txID string, timestamp time.Time, deltas map[giga.WalletID]map[giga.TokenID]*cell) error {
	for wallet, byToken := range deltas {
		for token, c := range byToken {
			if err := tx.AdjustWalletBalance(wallet, token, c.unlocked, c.locked); err != nil {
				return err
			}
			if err := tx.AppendWalletHistory(giga.WalletTxHistoryEntry{
				WalletID:  wallet,
				TxID:      txID,
				TokenID:   token,
				Balance:   c.unlocked + c.locked,
				Timestamp: timestamp,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// releaseMatured moves matured UTXOs' value from locked to unlocked at
// both the address and wallet tier, and marks them released so a
// later block at the same height can't release them again.
func (p *TxProjector) releaseMatured(tx giga.StoreTransaction, utxos []giga.UTXO) error {
	addrDeltas := p.Lock.Release(utxos)
	addrs := make([]giga.Address, 0, len(addrDeltas))
	for _, d := range addrDeltas {
		if err := tx.UnlockAddressBalance(d.Address, d.Token, d.Value); err != nil {
			return err
		}
		addrs = append(addrs, d.Address)
	}
	walletOf, err := tx.LookupWalletsByAddresses(addrs)
	if err != nil {
		return err
	}
	for _, d := range addrDeltas {
		w, claimed := walletOf[d.Address]
		if !claimed {
			continue
		}
		if err := tx.UnlockWalletBalance(w, d.Token, d.Value); err != nil {
			return err
		}
	}
	for _, u := range utxos {
		if err := tx.MatureUTXO(u.TxID, u.Index); err != nil {
			return err
		}
	}
	return nil
}

func (p *TxProjector) send(t giga.EventType, txID string) {
	if p.Bus == nil {
		return
	}
	if err := p.Bus.Send(t, txID); err != nil {
		log.Warn().Err(err).Str("tx", txID).Msg("failed to publish projection event")
	}
}

