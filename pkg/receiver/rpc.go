package receiver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	giga "github.com/dogeorg/utxoindexer/pkg"
)

// RPCResolver is the production Resolver: it asks the chain node's
// JSON-RPC interface to decode the transaction or block a ZMQ
// notification only named by hash.
type RPCResolver struct {
	url  string
	user string
	pass string
	id   *uint64
}

var _ Resolver = RPCResolver{}

func NewRPCResolver(host, port, user, pass string) RPCResolver {
	var id uint64 = 1
	return RPCResolver{url: fmt.Sprintf("http://%s:%s", host, port), user: user, pass: pass, id: &id}
}

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
	Id     uint64 `json:"id"`
}

type rpcResponse struct {
	Id     uint64           `json:"id"`
	Result *json.RawMessage `json:"result"`
	Error  any              `json:"error"`
}

func (r RPCResolver) request(method string, params []any, result any) error {
	body := rpcRequest{Method: method, Params: params, Id: *r.id}
	*r.id++
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("json-rpc marshal request: %w", err)
	}
	req, err := http.NewRequest("POST", r.url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("json-rpc request: %w", err)
	}
	req.SetBasicAuth(r.user, r.pass)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("json-rpc transport: %w", err)
	}
	defer res.Body.Close()
	resBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("json-rpc read response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("json-rpc status code: %s", res.Status)
	}
	var rpcres rpcResponse
	if err := json.Unmarshal(resBytes, &rpcres); err != nil {
		return fmt.Errorf("json-rpc unmarshal response: %w", err)
	}
	if rpcres.Id != body.Id {
		return fmt.Errorf("json-rpc wrong id returned: %v vs %v", rpcres.Id, body.Id)
	}
	if rpcres.Error != nil {
		return fmt.Errorf("json-rpc error returned: %v", rpcres.Error)
	}
	if rpcres.Result == nil {
		return fmt.Errorf("json-rpc missing result")
	}
	if err := json.Unmarshal(*rpcres.Result, result); err != nil {
		return fmt.Errorf("json-rpc unmarshal result: %w", err)
	}
	return nil
}

// wireTx is the decoded transaction shape the node's JSON-RPC
// interface returns, matching the inbound event record this system
// is specified against: version, tx_id, timestamp, an optional block
// height, and decoded inputs/outputs.
type wireTx struct {
	Version   uint8        `json:"version"`
	TxID      string       `json:"tx_id"`
	Timestamp uint32       `json:"timestamp"`
	Height    *uint32      `json:"height,omitempty"`
	Inputs    []wireInput  `json:"inputs"`
	Outputs   []wireOutput `json:"outputs"`
}

type wireDecoded struct {
	Address  string `json:"address"`
	TimeLock *int64 `json:"timelock,omitempty"`
}

type wireInput struct {
	TxID    string      `json:"tx_id"`
	Index   int64       `json:"index"`
	Value   int64       `json:"value"`
	Token   string      `json:"token"`
	Decoded wireDecoded `json:"decoded"`
}

type wireOutput struct {
	Value   int64       `json:"value"`
	Token   string      `json:"token"`
	Decoded wireDecoded `json:"decoded"`
}

func toTxEvent(w wireTx) giga.TxEvent {
	event := giga.TxEvent{
		TxID:      w.TxID,
		Height:    -1,
		Timestamp: time.Unix(int64(w.Timestamp), 0),
	}
	if w.Height != nil {
		event.Height = int64(*w.Height)
	}
	for _, in := range w.Inputs {
		event.Inputs = append(event.Inputs, giga.TxInput{TxID: in.TxID, Index: in.Index})
	}
	for i, out := range w.Outputs {
		token := giga.TokenID(out.Token)
		if token == "" {
			token = giga.NativeToken
		}
		event.Outputs = append(event.Outputs, giga.TxOutput{
			Index:    int64(i),
			Address:  giga.Address(out.Decoded.Address),
			TokenID:  token,
			Value:    out.Value,
			TimeLock: out.Decoded.TimeLock,
		})
	}
	return event
}

// ResolveTx implements Resolver.
func (r RPCResolver) ResolveTx(hash string) (giga.TxEvent, error) {
	var w wireTx
	if err := r.request("gettransaction", []any{hash}, &w); err != nil {
		return giga.TxEvent{}, err
	}
	return toTxEvent(w), nil
}

// ResolveBlock implements Resolver.
func (r RPCResolver) ResolveBlock(hash string) ([]giga.TxEvent, error) {
	var txs []wireTx
	if err := r.request("getblock", []any{hash}, &txs); err != nil {
		return nil, err
	}
	events := make([]giga.TxEvent, 0, len(txs))
	for _, w := range txs {
		events = append(events, toTxEvent(w))
	}
	return events, nil
}
