package webapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	giga "github.com/dogeorg/utxoindexer/pkg"
	"github.com/dogeorg/utxoindexer/pkg/materializer"
	"github.com/dogeorg/utxoindexer/pkg/projector"
	"github.com/dogeorg/utxoindexer/pkg/store"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/require"
)

type fixedDeriver struct{}

func (fixedDeriver) DeriveAddress(xpubkey string, index uint32) (giga.Address, error) {
	return giga.Address("addr-" + xpubkey + "-" + itoa(index)), nil
}

func itoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func newTestRig(t *testing.T) (adminMux, pubMux *httprouter.Router, s giga.Store) {
	t.Helper()
	sqlite, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(sqlite.Close)
	s = sqlite

	p := projector.NewTxProjector(s, 1, nil)
	m := materializer.NewWalletMaterializer(s, fixedDeriver{}, 5, nil)

	config := giga.Config{WebAPI: giga.WebAPIConfig{
		AdminBind: "127.0.0.1", AdminPort: "9998",
		PubBind: "127.0.0.1", PubPort: "9999",
	}}
	web := NewWebAPI(config, s, m, p)
	adminMux, pubMux = web.createRouters()
	return
}

func request(t *testing.T, mux *httprouter.Router, method, path, body string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	res := httptest.NewRecorder()
	mux.ServeHTTP(res, req)
	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res
}

func TestRegisterAndQueryWallet(t *testing.T) {
	admin, pub, s := newTestRig(t)
	xpub := "xpub-rig"

	// seed a projected transaction to address index 0 before registering
	p := projector.NewTxProjector(s, 1, nil)
	require.NoError(t, p.Project(context.Background(), giga.TxEvent{
		TxID: "tx1", Height: -1, Timestamp: time.Unix(1000, 0),
		Outputs: []giga.TxOutput{{Index: 0, Address: giga.Address("addr-" + xpub + "-0"), TokenID: giga.NativeToken, Value: 100}},
	}))

	var reg struct {
		Success  bool          `json:"success"`
		WalletID giga.WalletID `json:"walletId"`
	}
	res := request(t, admin, "POST", "/wallet", `{"xpubkey":"`+xpub+`"}`, &reg)
	require.Equal(t, http.StatusOK, res.Code)
	require.True(t, reg.Success)
	require.NotEmpty(t, reg.WalletID)

	require.Eventually(t, func() bool {
		w, err := s.GetWallet(reg.WalletID)
		return err == nil && w.Status == giga.WalletReady
	}, 2*time.Second, 10*time.Millisecond)

	var addrResp struct {
		Success   bool `json:"success"`
		Addresses []struct {
			Address      giga.Address `json:"address"`
			Index        int64        `json:"index"`
			Transactions uint32       `json:"transactions"`
		} `json:"addresses"`
	}
	res = request(t, pub, "GET", "/wallet/"+string(reg.WalletID)+"/addresses", "", &addrResp)
	require.Equal(t, http.StatusOK, res.Code)
	require.True(t, addrResp.Success)
	require.Len(t, addrResp.Addresses, 6) // highestUsed(0) + maxGap(5) + 1

	var balResp struct {
		Success  bool `json:"success"`
		Balances []struct {
			TokenID      giga.TokenID `json:"tokenId"`
			Transactions uint32       `json:"transactions"`
			Balance      giga.Balance `json:"balance"`
		} `json:"balances"`
	}
	res = request(t, pub, "GET", "/wallet/"+string(reg.WalletID)+"/balances", "", &balResp)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, int64(100), balResp.Balances[0].Balance.Unlocked)
}

func TestGetWalletNotFoundReturns404(t *testing.T) {
	_, pub, _ := newTestRig(t)
	res := request(t, pub, "GET", "/wallet/nonexistent", "", nil)
	require.Equal(t, http.StatusNotFound, res.Code)
}

func TestRegisterMissingXPubKeyIsBadRequest(t *testing.T) {
	admin, _, _ := newTestRig(t)
	res := request(t, admin, "POST", "/wallet", `{}`, nil)
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestGetAddressHistory(t *testing.T) {
	_, pub, s := newTestRig(t)

	p := projector.NewTxProjector(s, 1, nil)
	require.NoError(t, p.Project(context.Background(), giga.TxEvent{
		TxID: "tx1", Height: -1, Timestamp: time.Unix(1000, 0),
		Outputs: []giga.TxOutput{{Index: 0, Address: "addr1", TokenID: giga.NativeToken, Value: 100}},
	}))

	var out struct {
		Success bool `json:"success"`
		History []struct {
			TxID      string `json:"txId"`
			Timestamp int64  `json:"timestamp"`
			Balance   int64  `json:"balance"`
		} `json:"history"`
	}
	res := request(t, pub, "GET", "/address/addr1/history", "", &out)
	require.Equal(t, http.StatusOK, res.Code)
	require.True(t, out.Success)
	require.Len(t, out.History, 1)
	require.Equal(t, "tx1", out.History[0].TxID)
	require.Equal(t, int64(100), out.History[0].Balance)
}

func TestAdminChainState(t *testing.T) {
	admin, _, _ := newTestRig(t)
	var out struct {
		Success    bool            `json:"success"`
		ChainState giga.ChainState `json:"chainstate"`
	}
	res := request(t, admin, "GET", "/admin/chainstate", "", &out)
	require.Equal(t, http.StatusOK, res.Code)
	require.True(t, out.Success)
}
