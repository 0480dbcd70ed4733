package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	giga "github.com/dogeorg/utxoindexer/pkg"

	"github.com/mattn/go-sqlite3"
)

const SET_UP_SQLITE string = `
CREATE TABLE IF NOT EXISTS utxo (
	tx_id TEXT NOT NULL,
	tx_index INTEGER NOT NULL,
	token_id TEXT NOT NULL,
	address TEXT NOT NULL,
	value BIGINT NOT NULL,
	time_lock BIGINT,
	height_lock BIGINT,
	PRIMARY KEY (tx_id, tx_index)
);
CREATE INDEX IF NOT EXISTS utxo_height_lock_i ON utxo (height_lock);

CREATE TABLE IF NOT EXISTS address (
	address TEXT NOT NULL PRIMARY KEY,
	wallet_id TEXT,
	addr_index BIGINT,
	transactions INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS address_wallet_i ON address (wallet_id);

CREATE TABLE IF NOT EXISTS address_balance (
	address TEXT NOT NULL,
	token_id TEXT NOT NULL,
	unlocked BIGINT NOT NULL DEFAULT 0,
	locked BIGINT NOT NULL DEFAULT 0,
	transactions INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (address, token_id)
);

CREATE TABLE IF NOT EXISTS address_tx_history (
	address TEXT NOT NULL,
	tx_id TEXT NOT NULL,
	token_id TEXT NOT NULL,
	balance BIGINT NOT NULL,
	timestamp BIGINT NOT NULL,
	PRIMARY KEY (address, tx_id, token_id)
);
CREATE INDEX IF NOT EXISTS address_tx_history_ts_i ON address_tx_history (address, timestamp);

CREATE TABLE IF NOT EXISTS wallet (
	id TEXT NOT NULL PRIMARY KEY,
	xpubkey TEXT NOT NULL,
	status TEXT NOT NULL,
	max_gap INTEGER NOT NULL,
	created_at BIGINT NOT NULL,
	ready_at BIGINT,
	error TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS wallet_xpubkey_i ON wallet (xpubkey);

CREATE TABLE IF NOT EXISTS wallet_balance (
	wallet_id TEXT NOT NULL,
	token_id TEXT NOT NULL,
	unlocked BIGINT NOT NULL DEFAULT 0,
	locked BIGINT NOT NULL DEFAULT 0,
	transactions INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (wallet_id, token_id)
);

CREATE TABLE IF NOT EXISTS wallet_tx_history (
	wallet_id TEXT NOT NULL,
	tx_id TEXT NOT NULL,
	token_id TEXT NOT NULL,
	balance BIGINT NOT NULL,
	timestamp BIGINT NOT NULL,
	PRIMARY KEY (wallet_id, tx_id, token_id, timestamp)
);

CREATE TABLE IF NOT EXISTS chainstate (
	singleton INTEGER NOT NULL PRIMARY KEY CHECK (singleton = 0),
	last_height BIGINT NOT NULL,
	last_tx_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS projected_tx (
	tx_id TEXT NOT NULL PRIMARY KEY,
	height BIGINT
);
`

var _ giga.Store = SQLiteStore{}

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens fileName (or ":memory:") and ensures the schema
// exists.
func NewSQLiteStore(fileName string) (SQLiteStore, error) {
	dsn := fileName
	if dsn == ":memory:" {
		// A plain ":memory:" DSN gives each pooled connection its own,
		// separate database; share one in-memory database across the
		// pool's connections instead.
		dsn = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return SQLiteStore{}, sqlErr(err, "opening database")
	}
	if _, err = db.Exec(SET_UP_SQLITE); err != nil {
		db.Close()
		return SQLiteStore{}, sqlErr(err, "creating database schema")
	}
	return SQLiteStore{db}, nil
}

func (s SQLiteStore) Close() {
	s.db.Close()
}

func (s SQLiteStore) Begin() (giga.StoreTransaction, error) {
	// SQLite has no real serializable isolation across connections, but
	// the projector's own mutex (§5) keeps writes single-threaded; this
	// matches the consistency the production Postgres store provides.
	tx, err := s.db.BeginTx(context.Background(), &sql.TxOptions{})
	if err != nil {
		return nil, sqlErr(err, "begin")
	}
	return &sqliteTx{tx: tx}, nil
}

func (s SQLiteStore) GetChainState() (giga.ChainState, error) {
	return getChainState(s.db)
}

func (s SQLiteStore) GetAddress(address giga.Address) (giga.AddressInfo, error) {
	return getAddress(s.db, address)
}

func (s SQLiteStore) GetAddressBalance(address giga.Address, token giga.TokenID) (giga.AddressBalance, error) {
	return getAddressBalance(s.db, address, token)
}

func (s SQLiteStore) GetAddressHistory(address giga.Address, token giga.TokenID, limit int, before int64) ([]giga.AddressTxHistoryEntry, error) {
	return getAddressHistory(s.db, address, token, limit, before)
}

func (s SQLiteStore) GetWallet(id giga.WalletID) (giga.Wallet, error) {
	return getWallet(s.db, id)
}

func (s SQLiteStore) GetWalletBalance(id giga.WalletID, token giga.TokenID) (giga.WalletBalance, error) {
	return getWalletBalance(s.db, id, token)
}

func (s SQLiteStore) GetWalletHistory(id giga.WalletID, token giga.TokenID, limit int, before int64) ([]giga.WalletTxHistoryEntry, error) {
	return getWalletHistory(s.db, id, token, limit, before)
}

func (s SQLiteStore) ListWalletAddresses(id giga.WalletID) ([]giga.AddressInfo, error) {
	return listWalletAddresses(s.db, id)
}

func (s SQLiteStore) IsProjected(txID string) (bool, error) {
	return isProjected(s.db, txID)
}

/****** sqliteTx implements giga.StoreTransaction ******/

type sqliteTx struct {
	tx   *sql.Tx
	done bool
}

func (t *sqliteTx) Commit() error {
	err := t.tx.Commit()
	if err == nil {
		t.done = true
	}
	return err
}

func (t *sqliteTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}

func (t *sqliteTx) GetChainState() (giga.ChainState, error) {
	return getChainState(t.tx)
}

func (t *sqliteTx) SetChainState(s giga.ChainState) error {
	_, err := t.tx.Exec(`
		INSERT INTO chainstate (singleton, last_height, last_tx_id) VALUES (0, ?, ?)
		ON CONFLICT (singleton) DO UPDATE SET last_height = excluded.last_height, last_tx_id = excluded.last_tx_id
	`, s.LastHeight, s.LastTxID)
	if err != nil {
		return sqlErr(err, "SetChainState")
	}
	return nil
}

func (t *sqliteTx) IsProjected(txID string) (bool, error) {
	return isProjected(t.tx, txID)
}

func (t *sqliteTx) MarkProjected(txID string, height int64) error {
	var h any
	if height >= 0 {
		h = height
	}
	_, err := t.tx.Exec(`INSERT INTO projected_tx (tx_id, height) VALUES (?, ?)`, txID, h)
	if err != nil {
		return sqlErr(err, "MarkProjected")
	}
	return nil
}

func (t *sqliteTx) GetUTXO(txID string, index int64) (giga.UTXO, error) {
	row := t.tx.QueryRow(`SELECT tx_id, tx_index, token_id, address, value, time_lock, height_lock FROM utxo WHERE tx_id = ? AND tx_index = ?`, txID, index)
	return scanUTXO(row)
}

func (t *sqliteTx) CreateUTXO(u giga.UTXO) error {
	_, err := t.tx.Exec(`INSERT INTO utxo (tx_id, tx_index, token_id, address, value, time_lock, height_lock) VALUES (?,?,?,?,?,?,?)`,
		u.TxID, u.Index, u.TokenID, u.Address, u.Value, u.TimeLock, u.HeightLock)
	if err != nil {
		return sqlErr(err, "CreateUTXO")
	}
	return nil
}

func (t *sqliteTx) SpendUTXO(txID string, index int64) (giga.UTXO, error) {
	row := t.tx.QueryRow(`SELECT tx_id, tx_index, token_id, address, value, time_lock, height_lock FROM utxo WHERE tx_id = ? AND tx_index = ?`, txID, index)
	u, err := scanUTXO(row)
	if err != nil {
		return giga.UTXO{}, err
	}
	res, err := t.tx.Exec(`DELETE FROM utxo WHERE tx_id = ? AND tx_index = ?`, txID, index)
	if err != nil {
		return giga.UTXO{}, sqlErr(err, "SpendUTXO: delete")
	}
	if n, _ := res.RowsAffected(); n < 1 {
		return giga.UTXO{}, giga.NewErr(giga.NotFound, "InconsistentChain: utxo %s:%d already spent", txID, index)
	}
	return u, nil
}

func (t *sqliteTx) GetAddress(address giga.Address) (giga.AddressInfo, error) {
	return getAddress(t.tx, address)
}

func (t *sqliteTx) CreateAddress(a giga.AddressInfo) error {
	_, err := t.tx.Exec(`
		INSERT INTO address (address, wallet_id, addr_index, transactions) VALUES (?,?,?,?)
		ON CONFLICT (address) DO UPDATE SET transactions = address.transactions + 1
	`, a.Address, nullWalletID(a.WalletID), nullIndex(a.Index), a.Transactions)
	if err != nil {
		return sqlErr(err, "CreateAddress")
	}
	return nil
}

func (t *sqliteTx) IncrementAddressTxCount(address giga.Address) error {
	_, err := t.tx.Exec(`UPDATE address SET transactions = transactions + 1 WHERE address = ?`, address)
	if err != nil {
		return sqlErr(err, "IncrementAddressTxCount")
	}
	return nil
}

func (t *sqliteTx) AdjustAddressBalance(address giga.Address, token giga.TokenID, unlockedDelta, lockedDelta int64) error {
	res, err := t.tx.Exec(`
		UPDATE address_balance SET unlocked = unlocked + ?, locked = locked + ?, transactions = transactions + 1
		WHERE address = ? AND token_id = ?
	`, unlockedDelta, lockedDelta, address, token)
	if err != nil {
		return sqlErr(err, "AdjustAddressBalance: update")
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// first delta for this cell: clamp the initial insert to >= 0.
	_, err = t.tx.Exec(`INSERT INTO address_balance (address, token_id, unlocked, locked, transactions) VALUES (?,?,?,?,1)`,
		address, token, max0(unlockedDelta), max0(lockedDelta))
	if err != nil {
		return sqlErr(err, "AdjustAddressBalance: insert")
	}
	return nil
}

// UnlockAddressBalance moves value from locked to unlocked without
// touching the transactions counter, per LockManager.Release.
func (t *sqliteTx) UnlockAddressBalance(address giga.Address, token giga.TokenID, value int64) error {
	_, err := t.tx.Exec(`UPDATE address_balance SET unlocked = unlocked + ?, locked = locked - ? WHERE address = ? AND token_id = ?`,
		value, value, address, token)
	if err != nil {
		return sqlErr(err, "UnlockAddressBalance")
	}
	return nil
}

func (t *sqliteTx) AppendAddressHistory(e giga.AddressTxHistoryEntry) error {
	_, err := t.tx.Exec(`INSERT INTO address_tx_history (address, tx_id, token_id, balance, timestamp) VALUES (?,?,?,?,?)`,
		e.Address, e.TxID, e.TokenID, e.Balance, e.Timestamp.Unix())
	if err != nil {
		return sqlErr(err, "AppendAddressHistory")
	}
	return nil
}

func (t *sqliteTx) GetWallet(id giga.WalletID) (giga.Wallet, error) {
	return getWallet(t.tx, id)
}

func (t *sqliteTx) CreateWallet(w giga.Wallet) error {
	_, err := t.tx.Exec(`INSERT INTO wallet (id, xpubkey, status, max_gap, created_at, ready_at, error) VALUES (?,?,?,?,?,?,?)`,
		w.ID, w.XPubKey, w.Status, w.MaxGap, w.CreatedAt.Unix(), nullTime(w.ReadyAt), w.Error)
	if err != nil {
		return sqlErr(err, "CreateWallet")
	}
	return nil
}

func (t *sqliteTx) UpdateWalletStatus(id giga.WalletID, status giga.WalletStatus, errMsg string) error {
	var readyAt any
	if status == giga.WalletReady {
		readyAt = time.Now().Unix()
	}
	_, err := t.tx.Exec(`UPDATE wallet SET status = ?, error = ?, ready_at = COALESCE(?, ready_at) WHERE id = ?`, status, errMsg, readyAt, id)
	if err != nil {
		return sqlErr(err, "UpdateWalletStatus")
	}
	return nil
}

func (t *sqliteTx) ClaimAddress(address giga.Address, wallet giga.WalletID, index int64) error {
	_, err := t.tx.Exec(`UPDATE address SET wallet_id = ?, addr_index = ? WHERE address = ?`, wallet, index, address)
	if err != nil {
		return sqlErr(err, "ClaimAddress")
	}
	return nil
}

func (t *sqliteTx) ListWalletAddresses(id giga.WalletID) ([]giga.AddressInfo, error) {
	return listWalletAddresses(t.tx, id)
}

func (t *sqliteTx) AdjustWalletBalance(wallet giga.WalletID, token giga.TokenID, unlockedDelta, lockedDelta int64) error {
	res, err := t.tx.Exec(`
		UPDATE wallet_balance SET unlocked = unlocked + ?, locked = locked + ?, transactions = transactions + 1
		WHERE wallet_id = ? AND token_id = ?
	`, unlockedDelta, lockedDelta, wallet, token)
	if err != nil {
		return sqlErr(err, "AdjustWalletBalance: update")
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = t.tx.Exec(`INSERT INTO wallet_balance (wallet_id, token_id, unlocked, locked, transactions) VALUES (?,?,?,?,1)`,
		wallet, token, max0(unlockedDelta), max0(lockedDelta))
	if err != nil {
		return sqlErr(err, "AdjustWalletBalance: insert")
	}
	return nil
}

func (t *sqliteTx) UnlockWalletBalance(wallet giga.WalletID, token giga.TokenID, value int64) error {
	_, err := t.tx.Exec(`UPDATE wallet_balance SET unlocked = unlocked + ?, locked = locked - ? WHERE wallet_id = ? AND token_id = ?`,
		value, value, wallet, token)
	if err != nil {
		return sqlErr(err, "UnlockWalletBalance")
	}
	return nil
}

func max0(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func (t *sqliteTx) AppendWalletHistory(e giga.WalletTxHistoryEntry) error {
	_, err := t.tx.Exec(`INSERT INTO wallet_tx_history (wallet_id, tx_id, token_id, balance, timestamp) VALUES (?,?,?,?,?)`,
		e.WalletID, e.TxID, e.TokenID, e.Balance, e.Timestamp.Unix())
	if err != nil {
		return sqlErr(err, "AppendWalletHistory")
	}
	return nil
}

func (t *sqliteTx) SetWalletBalance(wallet giga.WalletID, token giga.TokenID, b giga.Balance, txCount uint32) error {
	_, err := t.tx.Exec(`
		INSERT INTO wallet_balance (wallet_id, token_id, unlocked, locked, transactions) VALUES (?,?,?,?,?)
		ON CONFLICT (wallet_id, token_id) DO UPDATE SET unlocked = excluded.unlocked, locked = excluded.locked, transactions = excluded.transactions
	`, wallet, token, b.Unlocked, b.Locked, txCount)
	if err != nil {
		return sqlErr(err, "SetWalletBalance")
	}
	return nil
}

func (t *sqliteTx) LookupWalletsByAddresses(addresses []giga.Address) (map[giga.Address]giga.WalletID, error) {
	result := make(map[giga.Address]giga.WalletID)
	for _, a := range addresses {
		var wid sql.NullString
		row := t.tx.QueryRow(`
			SELECT a.wallet_id FROM address a JOIN wallet w ON w.id = a.wallet_id
			WHERE a.address = ? AND w.status = ?
		`, a, giga.WalletReady)
		err := row.Scan(&wid)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, sqlErr(err, "LookupWalletsByAddresses")
		}
		if wid.Valid {
			result[a] = giga.WalletID(wid.String)
		}
	}
	return result, nil
}

func (t *sqliteTx) ListMaturedLocks(height int64, timestamp int64) ([]giga.UTXO, error) {
	rows, err := t.tx.Query(`
		SELECT tx_id, tx_index, token_id, address, value, time_lock, height_lock FROM utxo
		WHERE height_lock = ? AND (time_lock IS NULL OR time_lock <= ?)
	`, height, timestamp)
	if err != nil {
		return nil, sqlErr(err, "ListMaturedLocks")
	}
	defer rows.Close()
	var result []giga.UTXO
	for rows.Next() {
		u, err := scanUTXORow(rows)
		if err != nil {
			return nil, sqlErr(err, "ListMaturedLocks: scan")
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (t *sqliteTx) MatureUTXO(txID string, index int64) error {
	_, err := t.tx.Exec(`UPDATE utxo SET height_lock = NULL WHERE tx_id = ? AND tx_index = ?`, txID, index)
	if err != nil {
		return sqlErr(err, "MatureUTXO")
	}
	return nil
}

func (t *sqliteTx) SumAddressBalances(addresses []giga.Address) (map[giga.TokenID]giga.Balance, error) {
	result := make(map[giga.TokenID]giga.Balance)
	if len(addresses) == 0 {
		return result, nil
	}
	query, args := inClauseQuery(`
		SELECT token_id, SUM(unlocked), SUM(locked) FROM address_balance WHERE address IN (%s) GROUP BY token_id
	`, addrArgs(addresses))
	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, sqlErr(err, "SumAddressBalances")
	}
	defer rows.Close()
	for rows.Next() {
		var token giga.TokenID
		var b giga.Balance
		if err := rows.Scan(&token, &b.Unlocked, &b.Locked); err != nil {
			return nil, sqlErr(err, "SumAddressBalances: scan")
		}
		result[token] = b
	}
	return result, rows.Err()
}

func (t *sqliteTx) SumAddressHistory(addresses []giga.Address) (map[giga.TokenID]giga.AddressHistoryAgg, error) {
	result := make(map[giga.TokenID]giga.AddressHistoryAgg)
	if len(addresses) == 0 {
		return result, nil
	}
	query, args := inClauseQuery(`
		SELECT token_id, SUM(balance), COUNT(DISTINCT tx_id) FROM address_tx_history WHERE address IN (%s) GROUP BY token_id
	`, addrArgs(addresses))
	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, sqlErr(err, "SumAddressHistory")
	}
	defer rows.Close()
	for rows.Next() {
		var token giga.TokenID
		var agg giga.AddressHistoryAgg
		if err := rows.Scan(&token, &agg.Balance, &agg.Transactions); err != nil {
			return nil, sqlErr(err, "SumAddressHistory: scan")
		}
		result[token] = agg
	}
	return result, rows.Err()
}

func (t *sqliteTx) GroupedAddressHistory(addresses []giga.Address) ([]giga.WalletTxHistoryEntry, error) {
	if len(addresses) == 0 {
		return nil, nil
	}
	query, args := inClauseQuery(`
		SELECT tx_id, token_id, SUM(balance), timestamp FROM address_tx_history
		WHERE address IN (%s) GROUP BY tx_id, token_id, timestamp
	`, addrArgs(addresses))
	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, sqlErr(err, "GroupedAddressHistory")
	}
	defer rows.Close()
	var result []giga.WalletTxHistoryEntry
	for rows.Next() {
		var e giga.WalletTxHistoryEntry
		var ts int64
		if err := rows.Scan(&e.TxID, &e.TokenID, &e.Balance, &ts); err != nil {
			return nil, sqlErr(err, "GroupedAddressHistory: scan")
		}
		e.Timestamp = time.Unix(ts, 0).UTC()
		result = append(result, e)
	}
	return result, rows.Err()
}

// addrArgs converts a slice of Address into []any for variadic Exec/Query.
func addrArgs(addresses []giga.Address) []any {
	args := make([]any, len(addresses))
	for i, a := range addresses {
		args[i] = a
	}
	return args
}

// inClauseQuery expands a "%s" placeholder in query into the right
// number of "?" marks for len(args) values, mirroring how the teacher
// builds dynamic IN clauses for batched lookups.
func inClauseQuery(query string, args []any) (string, []any) {
	marks := make([]byte, 0, len(args)*2)
	for i := range args {
		if i > 0 {
			marks = append(marks, ',')
		}
		marks = append(marks, '?')
	}
	return fmt.Sprintf(query, string(marks)), args
}

func sqlErr(err error, where string) error {
	if err == sql.ErrNoRows {
		return giga.NewErr(giga.NotFound, "%s: not found", where)
	}
	if sqliteErr, isSqlite := err.(sqlite3.Error); isSqlite {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return giga.NewErr(giga.AlreadyExists, "SQLiteStore error: %s: %v", where, err)
		}
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return giga.NewErr(giga.DBConflict, "SQLiteStore error: %s: %v", where, err)
		}
	}
	return giga.WrapErr(giga.NotAvailable, err, "SQLiteStore error: %s", where)
}

// queryer is satisfied by both *sql.DB and *sql.Tx, letting read
// helpers serve Store (outside a transaction) and StoreTransaction
// (inside one) without duplicating the SQL.
type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
}

func getChainState(q queryer) (giga.ChainState, error) {
	row := q.QueryRow(`SELECT last_height, last_tx_id FROM chainstate WHERE singleton = 0`)
	var s giga.ChainState
	err := row.Scan(&s.LastHeight, &s.LastTxID)
	if err == sql.ErrNoRows {
		return giga.ChainState{LastHeight: -1}, nil
	}
	if err != nil {
		return giga.ChainState{}, sqlErr(err, "GetChainState")
	}
	return s, nil
}

func getAddress(q queryer, address giga.Address) (giga.AddressInfo, error) {
	row := q.QueryRow(`SELECT address, wallet_id, addr_index, transactions FROM address WHERE address = ?`, address)
	var a giga.AddressInfo
	var wid sql.NullString
	var idx sql.NullInt64
	err := row.Scan(&a.Address, &wid, &idx, &a.Transactions)
	if err == sql.ErrNoRows {
		return giga.AddressInfo{}, giga.NewErr(giga.NotFound, "address not found: %s", address)
	}
	if err != nil {
		return giga.AddressInfo{}, sqlErr(err, "GetAddress")
	}
	if wid.Valid {
		a.WalletID = giga.WalletID(wid.String)
	}
	if idx.Valid {
		a.Index = idx.Int64
	} else {
		a.Index = -1
	}
	return a, nil
}

func getAddressBalance(q queryer, address giga.Address, token giga.TokenID) (giga.AddressBalance, error) {
	row := q.QueryRow(`SELECT address, token_id, unlocked, locked, transactions FROM address_balance WHERE address = ? AND token_id = ?`, address, token)
	var b giga.AddressBalance
	err := row.Scan(&b.Address, &b.TokenID, &b.Balance.Unlocked, &b.Balance.Locked, &b.Transactions)
	if err == sql.ErrNoRows {
		return giga.AddressBalance{Address: address, TokenID: token}, nil
	}
	if err != nil {
		return giga.AddressBalance{}, sqlErr(err, "GetAddressBalance")
	}
	return b, nil
}

func getAddressHistory(q queryer, address giga.Address, token giga.TokenID, limit int, before int64) ([]giga.AddressTxHistoryEntry, error) {
	rows, err := q.Query(`
		SELECT address, tx_id, token_id, balance, timestamp FROM address_tx_history
		WHERE address = ? AND token_id = ? AND (? = 0 OR timestamp < ?)
		ORDER BY timestamp DESC LIMIT ?
	`, address, token, before, before, limit)
	if err != nil {
		return nil, sqlErr(err, "GetAddressHistory")
	}
	defer rows.Close()
	var result []giga.AddressTxHistoryEntry
	for rows.Next() {
		var e giga.AddressTxHistoryEntry
		var ts int64
		if err := rows.Scan(&e.Address, &e.TxID, &e.TokenID, &e.Balance, &ts); err != nil {
			return nil, sqlErr(err, "GetAddressHistory: scan")
		}
		e.Timestamp = time.Unix(ts, 0).UTC()
		result = append(result, e)
	}
	return result, rows.Err()
}

func getWallet(q queryer, id giga.WalletID) (giga.Wallet, error) {
	row := q.QueryRow(`SELECT id, xpubkey, status, max_gap, created_at, ready_at, error FROM wallet WHERE id = ?`, id)
	var w giga.Wallet
	var createdAt int64
	var readyAt sql.NullInt64
	err := row.Scan(&w.ID, &w.XPubKey, &w.Status, &w.MaxGap, &createdAt, &readyAt, &w.Error)
	if err == sql.ErrNoRows {
		return giga.Wallet{}, giga.NewErr(giga.NotFound, "wallet not found: %s", id)
	}
	if err != nil {
		return giga.Wallet{}, sqlErr(err, "GetWallet")
	}
	w.CreatedAt = time.Unix(createdAt, 0).UTC()
	if readyAt.Valid {
		t := time.Unix(readyAt.Int64, 0).UTC()
		w.ReadyAt = &t
	}
	return w, nil
}

func getWalletBalance(q queryer, id giga.WalletID, token giga.TokenID) (giga.WalletBalance, error) {
	row := q.QueryRow(`SELECT wallet_id, token_id, unlocked, locked, transactions FROM wallet_balance WHERE wallet_id = ? AND token_id = ?`, id, token)
	var b giga.WalletBalance
	err := row.Scan(&b.WalletID, &b.TokenID, &b.Balance.Unlocked, &b.Balance.Locked, &b.Transactions)
	if err == sql.ErrNoRows {
		return giga.WalletBalance{WalletID: id, TokenID: token}, nil
	}
	if err != nil {
		return giga.WalletBalance{}, sqlErr(err, "GetWalletBalance")
	}
	return b, nil
}

func getWalletHistory(q queryer, id giga.WalletID, token giga.TokenID, limit int, before int64) ([]giga.WalletTxHistoryEntry, error) {
	rows, err := q.Query(`
		SELECT wallet_id, tx_id, token_id, balance, timestamp FROM wallet_tx_history
		WHERE wallet_id = ? AND token_id = ? AND (? = 0 OR timestamp < ?)
		ORDER BY timestamp DESC LIMIT ?
	`, id, token, before, before, limit)
	if err != nil {
		return nil, sqlErr(err, "GetWalletHistory")
	}
	defer rows.Close()
	var result []giga.WalletTxHistoryEntry
	for rows.Next() {
		var e giga.WalletTxHistoryEntry
		var ts int64
		if err := rows.Scan(&e.WalletID, &e.TxID, &e.TokenID, &e.Balance, &ts); err != nil {
			return nil, sqlErr(err, "GetWalletHistory: scan")
		}
		e.Timestamp = time.Unix(ts, 0).UTC()
		result = append(result, e)
	}
	return result, rows.Err()
}

func listWalletAddresses(q queryer, id giga.WalletID) ([]giga.AddressInfo, error) {
	rows, err := q.Query(`SELECT address, wallet_id, addr_index, transactions FROM address WHERE wallet_id = ? ORDER BY addr_index ASC`, id)
	if err != nil {
		return nil, sqlErr(err, "ListWalletAddresses")
	}
	defer rows.Close()
	return scanAddressRows(rows)
}

func isProjected(q queryer, txID string) (bool, error) {
	row := q.QueryRow(`SELECT 1 FROM projected_tx WHERE tx_id = ?`, txID)
	var one int
	err := row.Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, sqlErr(err, "IsProjected")
	}
	return true, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanUTXO(r row) (giga.UTXO, error) {
	var u giga.UTXO
	var timeLock, heightLock sql.NullInt64
	err := r.Scan(&u.TxID, &u.Index, &u.TokenID, &u.Address, &u.Value, &timeLock, &heightLock)
	if err == sql.ErrNoRows {
		return giga.UTXO{}, giga.NewErr(giga.NotFound, "InconsistentChain: utxo not found")
	}
	if err != nil {
		return giga.UTXO{}, sqlErr(err, "scanUTXO")
	}
	if timeLock.Valid {
		u.TimeLock = &timeLock.Int64
	}
	if heightLock.Valid {
		u.HeightLock = &heightLock.Int64
	}
	return u, nil
}

func scanUTXORow(rows *sql.Rows) (giga.UTXO, error) {
	return scanUTXO(rows)
}

func scanAddressRows(rows *sql.Rows) ([]giga.AddressInfo, error) {
	var result []giga.AddressInfo
	for rows.Next() {
		var a giga.AddressInfo
		var wid sql.NullString
		var idx sql.NullInt64
		if err := rows.Scan(&a.Address, &wid, &idx, &a.Transactions); err != nil {
			return nil, sqlErr(err, "scanAddressRows")
		}
		if wid.Valid {
			a.WalletID = giga.WalletID(wid.String)
		}
		if idx.Valid {
			a.Index = idx.Int64
		} else {
			a.Index = -1
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func nullWalletID(id giga.WalletID) any {
	if id == "" {
		return nil
	}
	return id
}

func nullIndex(i int64) any {
	if i < 0 {
		return nil
	}
	return i
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}
