package materializer

import (
	"context"
	"fmt"
	"testing"
	"time"

	giga "github.com/dogeorg/utxoindexer/pkg"
	"github.com/dogeorg/utxoindexer/pkg/projector"
	"github.com/dogeorg/utxoindexer/pkg/store"

	"github.com/stretchr/testify/require"
)

// fixedDeriver derives deterministic addresses of the form
// "addr-<xpubkey>-<index>", letting tests pick which indices are
// "used" by projecting a transaction to them directly.
type fixedDeriver struct{}

func (fixedDeriver) DeriveAddress(xpubkey string, index uint32) (giga.Address, error) {
	return giga.Address(fmt.Sprintf("addr-%s-%d", xpubkey, index)), nil
}

func newTestMaterializer(t *testing.T) (*WalletMaterializer, giga.Store, *projector.TxProjector) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(s.Close)
	p := projector.NewTxProjector(s, 100, nil)
	m := NewWalletMaterializer(s, fixedDeriver{}, 5, nil)
	return m, s, p
}

func addrAt(xpub string, index uint32) giga.Address {
	return giga.Address(fmt.Sprintf("addr-%s-%d", xpub, index))
}

// S5-shaped scenario: index 0 and 2 of an xpubkey have each received a
// regular (non-block) payment before the wallet is ever registered.
func TestMaterializeGapLimitAndAggregates(t *testing.T) {
	m, s, p := newTestMaterializer(t)
	xpub := "xpub-test"
	now := time.Unix(2000, 0)

	require.NoError(t, p.Project(context.Background(), giga.TxEvent{
		TxID: "txA", Height: -1, Timestamp: now,
		Outputs: []giga.TxOutput{{Index: 0, Address: addrAt(xpub, 0), TokenID: giga.NativeToken, Value: 100}},
	}))
	require.NoError(t, p.Project(context.Background(), giga.TxEvent{
		TxID: "txB", Height: -1, Timestamp: now,
		Outputs: []giga.TxOutput{{Index: 0, Address: addrAt(xpub, 2), TokenID: giga.NativeToken, Value: 50}},
	}))

	id, err := m.RegisterSync(context.Background(), xpub, 5)
	require.NoError(t, err)

	w, err := s.GetWallet(id)
	require.NoError(t, err)
	require.Equal(t, giga.WalletReady, w.Status)
	require.NotNil(t, w.ReadyAt)

	addrs, err := s.ListWalletAddresses(id)
	require.NoError(t, err)
	require.Len(t, addrs, 8) // highestUsed(2) + maxGap(5) + 1

	bal, err := s.GetWalletBalance(id, giga.NativeToken)
	require.NoError(t, err)
	require.Equal(t, int64(150), bal.Balance.Unlocked)
	require.Equal(t, int64(0), bal.Balance.Locked)
	require.Equal(t, uint32(2), bal.Transactions)
}

// P5: materialize terminates and the final window is bounded by
// highestUsed and highestUsed+maxGap+1, even when nothing was used.
func TestMaterializeEmptyWallet(t *testing.T) {
	m, s, _ := newTestMaterializer(t)
	id, err := m.RegisterSync(context.Background(), "xpub-empty", 5)
	require.NoError(t, err)

	w, err := s.GetWallet(id)
	require.NoError(t, err)
	require.Equal(t, giga.WalletReady, w.Status)

	addrs, err := s.ListWalletAddresses(id)
	require.NoError(t, err)
	require.Len(t, addrs, 5) // highestUsed(-1) + maxGap(5) + 1
}

// P3: wallet_balance is the componentwise sum of its addresses' balances.
func TestMaterializeWalletIsAggregateOfAddresses(t *testing.T) {
	m, s, p := newTestMaterializer(t)
	xpub := "xpub-agg"
	now := time.Unix(3000, 0)

	require.NoError(t, p.Project(context.Background(), giga.TxEvent{
		TxID: "tx1", Height: -1, Timestamp: now,
		Outputs: []giga.TxOutput{{Index: 0, Address: addrAt(xpub, 0), TokenID: giga.NativeToken, Value: 10}},
	}))
	require.NoError(t, p.Project(context.Background(), giga.TxEvent{
		TxID: "tx2", Height: -1, Timestamp: now,
		Outputs: []giga.TxOutput{{Index: 0, Address: addrAt(xpub, 1), TokenID: giga.NativeToken, Value: 20}},
	}))

	id, err := m.RegisterSync(context.Background(), xpub, 5)
	require.NoError(t, err)

	a0, err := s.GetAddressBalance(addrAt(xpub, 0), giga.NativeToken)
	require.NoError(t, err)
	a1, err := s.GetAddressBalance(addrAt(xpub, 1), giga.NativeToken)
	require.NoError(t, err)

	wb, err := s.GetWalletBalance(id, giga.NativeToken)
	require.NoError(t, err)
	require.Equal(t, a0.Balance.Add(a1.Balance), wb.Balance)
}

// A second registration of the same xpubkey fails instead of creating
// a duplicate wallet.
func TestRegisterDuplicateXPubKeyFails(t *testing.T) {
	m, _, _ := newTestMaterializer(t)
	_, err := m.RegisterSync(context.Background(), "xpub-dup", 5)
	require.NoError(t, err)

	_, err = m.RegisterSync(context.Background(), "xpub-dup", 5)
	require.Error(t, err)
	require.True(t, giga.IsAlreadyExists(err))
}
