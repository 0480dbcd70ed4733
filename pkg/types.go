package giga

import "time"

// Address is a base58check-encoded P2PKH address string.
type Address string

// TokenID identifies a token on the chain. The native token is "00".
type TokenID string

// NativeToken is the default TokenID used when an event omits one.
const NativeToken TokenID = "00"

// WalletID identifies a registered wallet (a materialized xpubkey).
type WalletID string

// Balance is the locked/unlocked split tracked per (address, token) and
// per (wallet, token). Values are signed so that deltas and running sums
// share one representation; stored balances must never go negative (I1).
type Balance struct {
	Unlocked int64
	Locked   int64
}

func (b Balance) Add(o Balance) Balance {
	return Balance{Unlocked: b.Unlocked + o.Unlocked, Locked: b.Locked + o.Locked}
}

// Total is Unlocked+Locked, the net signed value held.
func (b Balance) Total() int64 {
	return b.Unlocked + b.Locked
}

// WalletStatus is the lifecycle state of a Wallet row.
type WalletStatus string

const (
	WalletCreating WalletStatus = "creating"
	WalletReady    WalletStatus = "ready"
	WalletError    WalletStatus = "error"
)

// Wallet is the persisted `wallet` row.
type Wallet struct {
	ID        WalletID
	XPubKey   string
	Status    WalletStatus
	MaxGap    uint16
	CreatedAt time.Time
	ReadyAt   *time.Time
	// Error carries the failure reason when Status == WalletError.
	Error string
}

// AddressInfo is the persisted `address` row (read-side projection).
type AddressInfo struct {
	Address      Address
	WalletID     WalletID // "" until claimed
	Index        int64    // -1 until claimed
	Transactions uint32
}

// Claimed reports whether a wallet has claimed this address.
func (a AddressInfo) Claimed() bool {
	return a.WalletID != ""
}

// AddressBalance is the persisted `address_balance` row.
type AddressBalance struct {
	Address      Address
	TokenID      TokenID
	Balance      Balance
	Transactions uint32
}

// AddressTxHistoryEntry is one `address_tx_history` row.
type AddressTxHistoryEntry struct {
	Address   Address
	TxID      string
	TokenID   TokenID
	Balance   int64 // signed net delta for this tx
	Timestamp time.Time
}

// WalletBalance is the persisted `wallet_balance` row.
type WalletBalance struct {
	WalletID     WalletID
	TokenID      TokenID
	Balance      Balance
	Transactions uint32
}

// WalletTxHistoryEntry is one `wallet_tx_history` row.
type WalletTxHistoryEntry struct {
	WalletID  WalletID
	TxID      string
	TokenID   TokenID
	Balance   int64
	Timestamp time.Time
}

// UTXO is the persisted `utxo` row.
type UTXO struct {
	TxID      string
	Index     int64
	TokenID   TokenID
	Address   Address
	Value     int64
	TimeLock  *int64 // unix seconds, nil if none
	HeightLock *int64 // block height, nil if none
}

// ChainState is the receiver's restart checkpoint.
type ChainState struct {
	LastHeight int64
	LastTxID   string
}

// AddressHistoryAgg is the result of summing address_tx_history rows
// across a set of addresses for one token: the net signed balance and
// the number of distinct transactions contributing to it.
type AddressHistoryAgg struct {
	Balance      int64
	Transactions uint32
}

// DerivedAddress is one (address, index) pair produced by a Deriver.
type DerivedAddress struct {
	Address Address
	Index   uint32
}
