package receiver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newRPCServer(t *testing.T, method string, result string) (RPCResolver, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, method, req.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":` + itoaID(req.Id) + `,"result":` + result + `,"error":null}`))
	}))
	host := strings.TrimPrefix(srv.URL, "http://")
	parts := strings.SplitN(host, ":", 2)
	resolver := NewRPCResolver(parts[0], parts[1], "user", "pass")
	return resolver, srv.Close
}

func itoaID(id uint64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestRPCResolverResolveTx(t *testing.T) {
	resolver, closeFn := newRPCServer(t, "gettransaction", `{
		"version": 1, "tx_id": "tx1", "timestamp": 1000,
		"inputs": [],
		"outputs": [{"value": 100, "token": "00", "decoded": {"address": "addr1"}}]
	}`)
	defer closeFn()

	event, err := resolver.ResolveTx("tx1")
	require.NoError(t, err)
	require.Equal(t, "tx1", event.TxID)
	require.Equal(t, int64(-1), event.Height)
	require.Len(t, event.Outputs, 1)
	require.EqualValues(t, "addr1", event.Outputs[0].Address)
	require.Equal(t, int64(100), event.Outputs[0].Value)
}

func TestRPCResolverResolveBlock(t *testing.T) {
	resolver, closeFn := newRPCServer(t, "getblock", `[
		{"version": 1, "tx_id": "tx1", "timestamp": 1000, "height": 5, "inputs": [], "outputs": []},
		{"version": 1, "tx_id": "tx2", "timestamp": 1000, "height": 5, "inputs": [], "outputs": []}
	]`)
	defer closeFn()

	events, err := resolver.ResolveBlock("blockhash")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, int64(5), events[0].Height)
	require.Equal(t, "tx2", events[1].TxID)
}
