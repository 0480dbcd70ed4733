package projector

import (
	"context"
	"testing"
	"time"

	giga "github.com/dogeorg/utxoindexer/pkg"
	"github.com/dogeorg/utxoindexer/pkg/store"

	"github.com/stretchr/testify/require"
)

func newTestProjector(t *testing.T) (*TxProjector, giga.Store) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return NewTxProjector(s, 1, nil), s
}

func blockEvent(txID string, height int64, out giga.TxOutput, ts time.Time) giga.TxEvent {
	out.Index = 0
	return giga.TxEvent{TxID: txID, Height: height, Timestamp: ts, Outputs: []giga.TxOutput{out}}
}

// S1: block at height 1 paying address1.
func TestProjectS1BlockReward(t *testing.T) {
	p, s := newTestProjector(t)
	now := time.Unix(1000, 0)

	ev := blockEvent("txId1", 1, giga.TxOutput{Address: "address1", TokenID: giga.NativeToken, Value: 6400}, now)
	require.NoError(t, p.Project(context.Background(), ev))

	tx, err := p.Store.Begin()
	require.NoError(t, err)
	defer tx.Rollback()

	u, err := tx.GetUTXO("txId1", 0)
	require.NoError(t, err)
	require.Equal(t, giga.Address("address1"), u.Address)
	require.Equal(t, int64(6400), u.Value)
	require.NotNil(t, u.HeightLock)
	require.Equal(t, int64(2), *u.HeightLock)

	bal, err := s.GetAddressBalance("address1", giga.NativeToken)
	require.NoError(t, err)
	require.Equal(t, int64(0), bal.Balance.Unlocked)
	require.Equal(t, int64(6400), bal.Balance.Locked)
	require.Equal(t, uint32(1), bal.Transactions)
}

// S2: second block at height 2 releases S1's reward and adds a fresh one.
func TestProjectS2ReleasesPriorBlock(t *testing.T) {
	p, _ := newTestProjector(t)
	now := time.Unix(1000, 0)

	require.NoError(t, p.Project(context.Background(), blockEvent("txId1", 1, giga.TxOutput{Address: "address1", TokenID: giga.NativeToken, Value: 6400}, now)))
	require.NoError(t, p.Project(context.Background(), blockEvent("txId2", 2, giga.TxOutput{Address: "address1", TokenID: giga.NativeToken, Value: 6400}, now)))

	bal, err := p.Store.GetAddressBalance("address1", giga.NativeToken)
	require.NoError(t, err)
	require.Equal(t, int64(6400), bal.Balance.Unlocked)
	require.Equal(t, int64(6400), bal.Balance.Locked)
	require.Equal(t, uint32(2), bal.Transactions)
}

// S3: third block at height 3 pays address2, address1 stays settled.
func TestProjectS3ThirdBlock(t *testing.T) {
	p, _ := newTestProjector(t)
	now := time.Unix(1000, 0)

	require.NoError(t, p.Project(context.Background(), blockEvent("txId1", 1, giga.TxOutput{Address: "address1", TokenID: giga.NativeToken, Value: 6400}, now)))
	require.NoError(t, p.Project(context.Background(), blockEvent("txId2", 2, giga.TxOutput{Address: "address1", TokenID: giga.NativeToken, Value: 6400}, now)))
	require.NoError(t, p.Project(context.Background(), blockEvent("txId3", 3, giga.TxOutput{Address: "address2", TokenID: giga.NativeToken, Value: 6400}, now)))

	a1, err := p.Store.GetAddressBalance("address1", giga.NativeToken)
	require.NoError(t, err)
	require.Equal(t, int64(12800), a1.Balance.Unlocked)
	require.Equal(t, int64(0), a1.Balance.Locked)
	require.Equal(t, uint32(2), a1.Transactions)

	a2, err := p.Store.GetAddressBalance("address2", giga.NativeToken)
	require.NoError(t, err)
	require.Equal(t, int64(0), a2.Balance.Unlocked)
	require.Equal(t, int64(6400), a2.Balance.Locked)
	require.Equal(t, uint32(1), a2.Transactions)
}

// S4: spending txId1's output splits it between two new addresses.
func TestProjectS4Spend(t *testing.T) {
	p, _ := newTestProjector(t)
	now := time.Unix(1000, 0)

	require.NoError(t, p.Project(context.Background(), blockEvent("txId1", 1, giga.TxOutput{Address: "address1", TokenID: giga.NativeToken, Value: 6400}, now)))
	require.NoError(t, p.Project(context.Background(), blockEvent("txId2", 2, giga.TxOutput{Address: "address1", TokenID: giga.NativeToken, Value: 6400}, now)))
	require.NoError(t, p.Project(context.Background(), blockEvent("txId3", 3, giga.TxOutput{Address: "address2", TokenID: giga.NativeToken, Value: 6400}, now)))

	spend := giga.TxEvent{
		TxID:      "txId4",
		Height:    -1,
		Timestamp: now,
		Inputs:    []giga.TxInput{{TxID: "txId1", Index: 0}},
		Outputs: []giga.TxOutput{
			{Index: 0, Address: "address3", TokenID: giga.NativeToken, Value: 5},
			{Index: 1, Address: "address4", TokenID: giga.NativeToken, Value: 6395},
		},
	}
	require.NoError(t, p.Project(context.Background(), spend))

	a1, err := p.Store.GetAddressBalance("address1", giga.NativeToken)
	require.NoError(t, err)
	require.Equal(t, int64(6400), a1.Balance.Unlocked)
	require.Equal(t, uint32(3), a1.Transactions)

	a3, err := p.Store.GetAddressBalance("address3", giga.NativeToken)
	require.NoError(t, err)
	require.Equal(t, int64(5), a3.Balance.Unlocked)
	require.Equal(t, uint32(1), a3.Transactions)

	a4, err := p.Store.GetAddressBalance("address4", giga.NativeToken)
	require.NoError(t, err)
	require.Equal(t, int64(6395), a4.Balance.Unlocked)
	require.Equal(t, uint32(1), a4.Transactions)

	hist, err := p.Store.GetAddressHistory("address1", giga.NativeToken, 10, 0)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	var balances []int64
	for _, h := range hist {
		balances = append(balances, h.Balance)
	}
	require.Contains(t, balances, int64(-6400))
}

// P6: spending the same UTXO twice fails and leaves state untouched.
func TestProjectP6IdempotentSpendFails(t *testing.T) {
	p, _ := newTestProjector(t)
	now := time.Unix(1000, 0)

	require.NoError(t, p.Project(context.Background(), blockEvent("txId1", 1, giga.TxOutput{Address: "address1", TokenID: giga.NativeToken, Value: 6400}, now)))
	require.NoError(t, p.Project(context.Background(), blockEvent("txId2", 2, giga.TxOutput{Address: "address1", TokenID: giga.NativeToken, Value: 6400}, now)))

	spend := giga.TxEvent{
		TxID:      "txId4",
		Height:    -1,
		Timestamp: now,
		Inputs:    []giga.TxInput{{TxID: "txId1", Index: 0}},
		Outputs:   []giga.TxOutput{{Index: 0, Address: "address3", TokenID: giga.NativeToken, Value: 6400}},
	}
	require.NoError(t, p.Project(context.Background(), spend))

	before, err := p.Store.GetAddressBalance("address1", giga.NativeToken)
	require.NoError(t, err)

	replay := spend
	replay.TxID = "txId5"
	err = p.Project(context.Background(), replay)
	require.Error(t, err)
	require.True(t, giga.IsNotFound(err))

	after, err := p.Store.GetAddressBalance("address1", giga.NativeToken)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

// P7 / S7: re-delivering the same (txId, height) is a silent no-op.
func TestProjectP7IdempotentRedelivery(t *testing.T) {
	p, _ := newTestProjector(t)
	now := time.Unix(1000, 0)
	ev := blockEvent("txId1", 1, giga.TxOutput{Address: "address1", TokenID: giga.NativeToken, Value: 6400}, now)

	require.NoError(t, p.Project(context.Background(), ev))
	before, err := p.Store.GetAddressBalance("address1", giga.NativeToken)
	require.NoError(t, err)
	beforeHist, err := p.Store.GetAddressHistory("address1", giga.NativeToken, 10, 0)
	require.NoError(t, err)

	require.NoError(t, p.Project(context.Background(), ev))

	after, err := p.Store.GetAddressBalance("address1", giga.NativeToken)
	require.NoError(t, err)
	afterHist, err := p.Store.GetAddressHistory("address1", giga.NativeToken, 10, 0)
	require.NoError(t, err)

	require.Equal(t, before, after)
	require.Equal(t, beforeHist, afterHist)
}

// P1/P2: after a mixed sequence of events, balances stay non-negative
// and history sums to the stored unlocked+locked split.
func TestProjectP1P2Invariants(t *testing.T) {
	p, _ := newTestProjector(t)
	now := time.Unix(1000, 0)

	require.NoError(t, p.Project(context.Background(), blockEvent("txId1", 1, giga.TxOutput{Address: "address1", TokenID: giga.NativeToken, Value: 6400}, now)))
	require.NoError(t, p.Project(context.Background(), blockEvent("txId2", 2, giga.TxOutput{Address: "address1", TokenID: giga.NativeToken, Value: 6400}, now)))

	bal, err := p.Store.GetAddressBalance("address1", giga.NativeToken)
	require.NoError(t, err)
	require.GreaterOrEqual(t, bal.Balance.Unlocked, int64(0))
	require.GreaterOrEqual(t, bal.Balance.Locked, int64(0))

	hist, err := p.Store.GetAddressHistory("address1", giga.NativeToken, 100, 0)
	require.NoError(t, err)
	var sum int64
	for _, h := range hist {
		sum += h.Balance
	}
	require.Equal(t, bal.Balance.Total(), sum)
}
