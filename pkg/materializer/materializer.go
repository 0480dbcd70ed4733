// Package materializer turns a registered xpubkey into a wallet whose
// addresses, balances and history are linked up with whatever the
// projector has already observed for them.
package materializer

import (
	"context"
	"time"

	giga "github.com/dogeorg/utxoindexer/pkg"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WalletMaterializer performs the gap-limit scan that attaches a
// wallet identity to its derived addresses and seeds its aggregate
// balance/history tables from whatever those addresses already have.
type WalletMaterializer struct {
	Store         giga.Store
	Deriver       giga.Deriver
	DefaultMaxGap uint16
	Bus           *giga.MessageBus
}

func NewWalletMaterializer(store giga.Store, deriver giga.Deriver, defaultMaxGap uint16, bus *giga.MessageBus) *WalletMaterializer {
	return &WalletMaterializer{Store: store, Deriver: deriver, DefaultMaxGap: defaultMaxGap, Bus: bus}
}

// Register inserts a `creating` wallet row and kicks off materialization
// on its own goroutine, returning as soon as the row exists so the HTTP
// handler can reply without waiting on the gap-limit scan.
func (m *WalletMaterializer) Register(ctx context.Context, xpubkey string, maxGap uint16) (giga.WalletID, error) {
	if maxGap == 0 {
		maxGap = m.DefaultMaxGap
	}
	id := giga.WalletID(uuid.NewString())

	tx, err := m.Store.Begin()
	if err != nil {
		return "", giga.WrapErr(giga.NotAvailable, err, "Register: begin")
	}
	defer tx.Rollback()

	if err := tx.CreateWallet(giga.Wallet{
		ID:        id,
		XPubKey:   xpubkey,
		Status:    giga.WalletCreating,
		MaxGap:    maxGap,
		CreatedAt: time.Now(),
	}); err != nil {
		if giga.IsAlreadyExists(err) {
			return "", giga.NewErr(giga.AlreadyExists, "wallet already registered for this xpubkey")
		}
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", giga.WrapErr(giga.DBConflict, err, "Register: commit")
	}

	m.send(giga.WALLET_REGISTERED, id)
	go func() {
		if err := m.Materialize(context.Background(), id); err != nil {
			log.Error().Err(err).Str("wallet", string(id)).Msg("materialize failed")
		}
	}()
	return id, nil
}

// RegisterSync is Register followed by a blocking Materialize, for
// tests and CLI tooling that want the wallet ready before returning.
func (m *WalletMaterializer) RegisterSync(ctx context.Context, xpubkey string, maxGap uint16) (giga.WalletID, error) {
	tx, err := m.Store.Begin()
	if err != nil {
		return "", giga.WrapErr(giga.NotAvailable, err, "RegisterSync: begin")
	}
	id := giga.WalletID(uuid.NewString())
	if maxGap == 0 {
		maxGap = m.DefaultMaxGap
	}
	if err := tx.CreateWallet(giga.Wallet{
		ID:        id,
		XPubKey:   xpubkey,
		Status:    giga.WalletCreating,
		MaxGap:    maxGap,
		CreatedAt: time.Now(),
	}); err != nil {
		tx.Rollback()
		if giga.IsAlreadyExists(err) {
			return "", giga.NewErr(giga.AlreadyExists, "wallet already registered for this xpubkey")
		}
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", giga.WrapErr(giga.DBConflict, err, "RegisterSync: commit")
	}
	return id, m.Materialize(ctx, id)
}

// window is the result of the gap-limit scan: the addresses to attach
// to the wallet and the highest index actually referenced by a
// projected transaction.
type window struct {
	addresses   []giga.DerivedAddress
	existing    map[giga.Address]giga.AddressInfo
	highestUsed int64
}

func (m *WalletMaterializer) scan(xpubkey string, maxGap uint16) (window, error) {
	highestChecked := int64(-1)
	highestUsed := int64(-1)
	existing := make(map[giga.Address]giga.AddressInfo)
	var derived []giga.DerivedAddress

	for {
		start := uint32(highestChecked + 1)
		for i := uint32(0); i < uint32(maxGap); i++ {
			idx := start + i
			addr, err := m.Deriver.DeriveAddress(xpubkey, idx)
			if err != nil {
				return window{}, giga.WrapErr(giga.BadRequest, err, "derive address at index %d", idx)
			}
			derived = append(derived, giga.DerivedAddress{Address: addr, Index: idx})

			info, err := m.Store.GetAddress(addr)
			if giga.IsNotFound(err) {
				continue
			}
			if err != nil {
				return window{}, err
			}
			existing[addr] = info
			if info.Transactions > 0 && int64(idx) > highestUsed {
				highestUsed = int64(idx)
			}
		}
		highestChecked += int64(maxGap)
		if highestUsed+int64(maxGap) <= highestChecked {
			break
		}
	}

	total := highestUsed + int64(maxGap) + 1
	if total > int64(len(derived)) {
		total = int64(len(derived))
	}
	return window{addresses: derived[:total], existing: existing, highestUsed: highestUsed}, nil
}

// Materialize runs the gap-limit scan, attaches the wallet identity to
// the discovered addresses, and seeds the wallet's aggregate balance
// and history tables. It transitions the wallet to ready on success or
// to error (with the failure recorded) on any inconsistency.
func (m *WalletMaterializer) Materialize(ctx context.Context, id giga.WalletID) error {
	w, err := m.Store.GetWallet(id)
	if err != nil {
		return err
	}

	win, err := m.scan(w.XPubKey, w.MaxGap)
	if err != nil {
		m.fail(id, err)
		return err
	}

	tx, err := m.Store.Begin()
	if err != nil {
		return giga.WrapErr(giga.NotAvailable, err, "Materialize: begin")
	}
	defer tx.Rollback()

	addrs := make([]giga.Address, 0, len(win.addresses))
	for _, d := range win.addresses {
		addrs = append(addrs, d.Address)
		if _, ok := win.existing[d.Address]; ok {
			if err := tx.ClaimAddress(d.Address, id, int64(d.Index)); err != nil {
				m.fail(id, err)
				return err
			}
		} else {
			if err := tx.CreateAddress(giga.AddressInfo{Address: d.Address, WalletID: id, Index: int64(d.Index)}); err != nil {
				m.fail(id, err)
				return err
			}
		}
	}

	if err := seedWalletHistory(tx, id, addrs); err != nil {
		m.fail(id, err)
		return err
	}
	if err := seedWalletBalance(tx, id, addrs); err != nil {
		m.fail(id, err)
		return err
	}

	if err := tx.UpdateWalletStatus(id, giga.WalletReady, ""); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return giga.WrapErr(giga.DBConflict, err, "Materialize: commit")
	}

	m.send(giga.WALLET_MATERIALIZED, id)
	return nil
}

// seedWalletHistory implements §4.4 step 3: collapse address-level
// history rows for the window into one row per (txId, token, ts).
func seedWalletHistory(tx giga.StoreTransaction, id giga.WalletID, addrs []giga.Address) error {
	grouped, err := tx.GroupedAddressHistory(addrs)
	if err != nil {
		return err
	}
	for _, e := range grouped {
		e.WalletID = id
		if err := tx.AppendWalletHistory(e); err != nil {
			return err
		}
	}
	return nil
}

// seedWalletBalance implements §4.4 step 4: aggregate address_balance
// and address_tx_history across the window, cross-check them (I3/I4),
// and seed wallet_balance per token.
func seedWalletBalance(tx giga.StoreTransaction, id giga.WalletID, addrs []giga.Address) error {
	balances, err := tx.SumAddressBalances(addrs)
	if err != nil {
		return err
	}
	history, err := tx.SumAddressHistory(addrs)
	if err != nil {
		return err
	}
	for token, b := range balances {
		agg := history[token]
		if b.Total() != agg.Balance {
			return giga.NewErr(giga.InvalidState, "InconsistentChain: wallet %s token %s: address_balance total %d != address_tx_history total %d", id, token, b.Total(), agg.Balance)
		}
		if err := tx.SetWalletBalance(id, token, b, agg.Transactions); err != nil {
			return err
		}
	}
	return nil
}

func (m *WalletMaterializer) fail(id giga.WalletID, cause error) {
	tx, err := m.Store.Begin()
	if err != nil {
		log.Error().Err(err).Str("wallet", string(id)).Msg("failed to open transaction to record materialize failure")
		return
	}
	defer tx.Rollback()
	if err := tx.UpdateWalletStatus(id, giga.WalletError, cause.Error()); err != nil {
		log.Error().Err(err).Str("wallet", string(id)).Msg("failed to record materialize failure")
		return
	}
	if err := tx.Commit(); err != nil {
		log.Error().Err(err).Str("wallet", string(id)).Msg("failed to commit materialize failure")
		return
	}
	m.send(giga.WALLET_ERRORED, id)
}

func (m *WalletMaterializer) send(t giga.EventType, id giga.WalletID) {
	if m.Bus == nil {
		return
	}
	if err := m.Bus.Send(t, id); err != nil {
		log.Warn().Err(err).Str("wallet", string(id)).Msg("failed to publish wallet event")
	}
}
