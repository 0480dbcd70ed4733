package giga

// Store is a handle to the persistence layer: Postgres or SQLite.
// All writes happen inside a StoreTransaction; Store itself only
// exposes read paths and transaction management, mirroring how the
// chain follower and the HTTP API use the store differently.
type Store interface {
	// Begin starts a new serializable transaction. Callers MUST
	// Commit or Rollback it.
	Begin() (StoreTransaction, error)

	GetChainState() (ChainState, error)

	GetAddress(address Address) (AddressInfo, error)
	GetAddressBalance(address Address, token TokenID) (AddressBalance, error)
	GetAddressHistory(address Address, token TokenID, limit int, before int64) ([]AddressTxHistoryEntry, error)

	GetWallet(id WalletID) (Wallet, error)
	GetWalletBalance(id WalletID, token TokenID) (WalletBalance, error)
	GetWalletHistory(id WalletID, token TokenID, limit int, before int64) ([]WalletTxHistoryEntry, error)
	ListWalletAddresses(id WalletID) ([]AddressInfo, error)

	// IsProjected reports whether a tx was already applied, for
	// idempotent-redelivery checks outside of a write transaction.
	IsProjected(txID string) (bool, error)
}

// StoreTransaction is a single atomic unit of work. All projector and
// materializer writes go through one of these, committed once at the
// end of processing a tx or a wallet-materialize pass.
type StoreTransaction interface {
	Commit() error
	Rollback() error

	GetChainState() (ChainState, error)
	SetChainState(s ChainState) error

	IsProjected(txID string) (bool, error)
	MarkProjected(txID string, height int64) error

	GetUTXO(txID string, index int64) (UTXO, error)
	CreateUTXO(u UTXO) error
	SpendUTXO(txID string, index int64) (UTXO, error)

	GetAddress(address Address) (AddressInfo, error)
	CreateAddress(a AddressInfo) error
	IncrementAddressTxCount(address Address) error

	// AdjustAddressBalance applies a signed delta to an
	// (address, token) balance cell. unlockedDelta/lockedDelta may be
	// negative (spends) or positive (receives); the implementation
	// must clamp the initial insert to zero and use raw addition on
	// update, per the cells' unsigned-semantics storage convention.
	AdjustAddressBalance(address Address, token TokenID, unlockedDelta, lockedDelta int64) error
	AppendAddressHistory(e AddressTxHistoryEntry) error

	// UnlockAddressBalance moves value from locked to unlocked on a
	// matured UTXO's (address, token) cell, per LockManager.Release.
	// Unlike AdjustAddressBalance it must not touch the transactions
	// counter or append a history row.
	UnlockAddressBalance(address Address, token TokenID, value int64) error

	GetWallet(id WalletID) (Wallet, error)
	CreateWallet(w Wallet) error
	UpdateWalletStatus(id WalletID, status WalletStatus, errMsg string) error
	ClaimAddress(address Address, wallet WalletID, index int64) error
	ListWalletAddresses(id WalletID) ([]AddressInfo, error)

	AdjustWalletBalance(wallet WalletID, token TokenID, unlockedDelta, lockedDelta int64) error
	AppendWalletHistory(e WalletTxHistoryEntry) error
	SetWalletBalance(wallet WalletID, token TokenID, b Balance, txCount uint32) error

	// UnlockWalletBalance mirrors UnlockAddressBalance at the wallet tier.
	UnlockWalletBalance(wallet WalletID, token TokenID, value int64) error

	// LookupWalletsByAddresses returns, for each address already
	// claimed by a ready wallet, the claiming wallet's ID. Addresses
	// with no claim or claimed by a non-ready wallet are omitted.
	LookupWalletsByAddresses(addresses []Address) (map[Address]WalletID, error)

	// ListMaturedLocks returns the UTXOs whose heightlock equals height
	// and whose timelock is unset or <= timestamp. It only lists them;
	// moving their value from Locked to Unlocked is done by the caller
	// through UnlockAddressBalance/UnlockWalletBalance.
	ListMaturedLocks(height int64, timestamp int64) ([]UTXO, error)
	// MatureUTXO clears a released UTXO's heightlock so that it is not
	// listed by ListMaturedLocks again.
	MatureUTXO(txID string, index int64) error

	// SumAddressBalances aggregates address_balance across a set of
	// addresses, grouped by token, for WalletMaterializer's seed step.
	SumAddressBalances(addresses []Address) (map[TokenID]Balance, error)

	// SumAddressHistory aggregates address_tx_history across a set of
	// addresses, grouped by token: net balance and distinct tx count.
	// Used to cross-check against SumAddressBalances (I3/I4).
	SumAddressHistory(addresses []Address) (map[TokenID]AddressHistoryAgg, error)

	// GroupedAddressHistory collapses address_tx_history rows across a
	// set of addresses into one row per (txId, token, timestamp),
	// summing contributions from addresses of the same wallet within
	// the same transaction. WalletID is left unset for the caller to
	// fill in.
	GroupedAddressHistory(addresses []Address) ([]WalletTxHistoryEntry, error)
}
