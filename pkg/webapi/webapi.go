// Package webapi serves the read API wallet clients use to query
// addresses, balances and history, plus a small admin surface for
// operational actions, split across two listeners the way the teacher
// splits its admin/public traffic.
package webapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	giga "github.com/dogeorg/utxoindexer/pkg"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

// Projector is the subset of TxProjector the admin API needs to feed
// a transaction by hand, for recovery tooling.
type Projector interface {
	Project(ctx context.Context, event giga.TxEvent) error
}

// Registrar is the subset of WalletMaterializer the API needs to
// start materializing a newly-registered xpubkey.
type Registrar interface {
	Register(ctx context.Context, xpubkey string, maxGap uint16) (giga.WalletID, error)
}

// WebAPI implements conductor.Service: it owns the admin and public
// HTTP listeners and the handlers that serve them.
type WebAPI struct {
	Store      giga.Store
	Registrar  Registrar
	Projector  Projector
	Config     giga.Config
}

func NewWebAPI(config giga.Config, store giga.Store, registrar Registrar, projector Projector) WebAPI {
	return WebAPI{Store: store, Registrar: registrar, Projector: projector, Config: config}
}

// Run implements conductor.Service.
func (a WebAPI) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		adminMux, pubMux := a.createRouters()

		adminServer := &http.Server{Addr: a.Config.WebAPI.AdminBind + ":" + a.Config.WebAPI.AdminPort, Handler: adminMux}
		log.Info().Str("addr", adminServer.Addr).Msg("admin API listening")
		go func() {
			if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("admin HTTP server failed")
			}
		}()

		pubServer := &http.Server{Addr: a.Config.WebAPI.PubBind + ":" + a.Config.WebAPI.PubPort, Handler: pubMux}
		log.Info().Str("addr", pubServer.Addr).Msg("public API listening")
		go func() {
			if err := pubServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("public HTTP server failed")
			}
		}()

		started <- true
		ctx := <-stop
		adminServer.Shutdown(ctx)
		pubServer.Shutdown(ctx)
		stopped <- true
	}()
	return nil
}

func (a WebAPI) createRouters() (adminMux *httprouter.Router, pubMux *httprouter.Router) {
	adminMux = httprouter.New()
	pubMux = httprouter.New()

	adminMux.POST("/admin/projected", a.adminProjectEvent)
	adminMux.GET("/admin/chainstate", a.adminChainState)
	adminMux.POST("/wallet", a.registerWallet)

	pubMux.GET("/wallet/:id", a.getWallet)
	pubMux.GET("/wallet/:id/addresses", a.getWalletAddresses)
	pubMux.GET("/wallet/:id/balances", a.getWalletBalances)
	pubMux.GET("/wallet/:id/history", a.getWalletHistory)
	pubMux.GET("/address/:address/history", a.getAddressHistory)

	return
}

// registerWallet implements POST /wallet.
func (a WebAPI) registerWallet(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var body struct {
		XPubKey string `json:"xpubkey"`
		MaxGap  uint16 `json:"max_gap"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		sendBadRequest(w, fmt.Sprintf("bad request body (expecting JSON): %v", err), "")
		return
	}
	if body.XPubKey == "" {
		sendBadRequest(w, "missing xpubkey", "xpubkey")
		return
	}
	id, err := a.Registrar.Register(r.Context(), body.XPubKey, body.MaxGap)
	if err != nil {
		sendError(w, "Register", err)
		return
	}
	sendResponse(w, struct {
		WalletID giga.WalletID `json:"walletId"`
	}{id})
}

func (a WebAPI) getWallet(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	id := giga.WalletID(p.ByName("id"))
	if id == "" {
		sendBadRequest(w, "missing wallet id in URL", "id")
		return
	}
	wallet, err := a.Store.GetWallet(id)
	if err != nil {
		sendError(w, "GetWallet", err)
		return
	}
	sendResponse(w, struct {
		Status walletStatus `json:"status"`
	}{toWalletStatus(wallet)})
}

type walletStatus struct {
	WalletID  giga.WalletID   `json:"walletId"`
	XPubKey   string          `json:"xpubkey"`
	Status    giga.WalletStatus `json:"status"`
	MaxGap    uint16          `json:"maxGap"`
	CreatedAt string          `json:"createdAt"`
	ReadyAt   *string         `json:"readyAt"`
}

func toWalletStatus(w giga.Wallet) walletStatus {
	s := walletStatus{
		WalletID:  w.ID,
		XPubKey:   w.XPubKey,
		Status:    w.Status,
		MaxGap:    w.MaxGap,
		CreatedAt: w.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if w.ReadyAt != nil {
		t := w.ReadyAt.Format("2006-01-02T15:04:05Z07:00")
		s.ReadyAt = &t
	}
	return s
}

// getWalletAddresses implements GET /wallet/:id/addresses.
func (a WebAPI) getWalletAddresses(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	id := giga.WalletID(p.ByName("id"))
	if id == "" {
		sendBadRequest(w, "missing wallet id in URL", "id")
		return
	}
	if err := a.requireReady(id); err != nil {
		sendError(w, "getWalletAddresses", err)
		return
	}
	addrs, err := a.Store.ListWalletAddresses(id)
	if err != nil {
		sendError(w, "ListWalletAddresses", err)
		return
	}
	type entry struct {
		Address      giga.Address `json:"address"`
		Index        int64        `json:"index"`
		Transactions uint32       `json:"transactions"`
	}
	out := make([]entry, 0, len(addrs))
	for _, ai := range addrs {
		out = append(out, entry{ai.Address, ai.Index, ai.Transactions})
	}
	sendResponse(w, struct {
		Addresses []entry `json:"addresses"`
	}{out})
}

// getWalletBalances implements GET /wallet/:id/balances.
func (a WebAPI) getWalletBalances(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	id := giga.WalletID(p.ByName("id"))
	if id == "" {
		sendBadRequest(w, "missing wallet id in URL", "id")
		return
	}
	if err := a.requireReady(id); err != nil {
		sendError(w, "getWalletBalances", err)
		return
	}
	type entry struct {
		TokenID      giga.TokenID `json:"tokenId"`
		Transactions uint32       `json:"transactions"`
		Balance      giga.Balance `json:"balance"`
	}
	token := giga.TokenID(r.URL.Query().Get("token_id"))
	if token == "" {
		token = giga.NativeToken
	}
	bal, err := a.Store.GetWalletBalance(id, token)
	if err != nil {
		sendError(w, "GetWalletBalance", err)
		return
	}
	sendResponse(w, struct {
		Balances []entry `json:"balances"`
	}{[]entry{{bal.TokenID, bal.Transactions, bal.Balance}}})
}

// getWalletHistory implements GET /wallet/:id/history.
func (a WebAPI) getWalletHistory(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	id := giga.WalletID(p.ByName("id"))
	if id == "" {
		sendBadRequest(w, "missing wallet id in URL", "id")
		return
	}
	if err := a.requireReady(id); err != nil {
		sendError(w, "getWalletHistory", err)
		return
	}

	qs := r.URL.Query()
	token := giga.TokenID(qs.Get("token_id"))
	if token == "" {
		token = giga.NativeToken
	}
	skip, err := parseIntParam(qs, "skip", 0)
	if err != nil {
		sendBadRequest(w, err.Error(), "skip")
		return
	}
	count, err := parseIntParam(qs, "count", 20)
	if err != nil {
		sendBadRequest(w, err.Error(), "count")
		return
	}

	hist, err := a.Store.GetWalletHistory(id, token, count+skip, 0)
	if err != nil {
		sendError(w, "GetWalletHistory", err)
		return
	}
	if skip > len(hist) {
		hist = nil
	} else {
		hist = hist[skip:]
	}
	if len(hist) > count {
		hist = hist[:count]
	}

	type entry struct {
		TxID      string `json:"txId"`
		Timestamp int64  `json:"timestamp"`
		Balance   int64  `json:"balance"`
	}
	out := make([]entry, 0, len(hist))
	for _, e := range hist {
		out = append(out, entry{e.TxID, e.Timestamp.Unix(), e.Balance})
	}
	sendResponse(w, struct {
		History []entry `json:"history"`
		Skip    int     `json:"skip"`
		Count   int     `json:"count"`
	}{out, skip, count})
}

// getAddressHistory implements GET /address/:address/history: the
// same per-token paginated ledger as getWalletHistory, but scoped to
// a single address rather than a wallet's claimed set.
func (a WebAPI) getAddressHistory(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	address := giga.Address(p.ByName("address"))
	if address == "" {
		sendBadRequest(w, "missing address in URL", "address")
		return
	}

	qs := r.URL.Query()
	token := giga.TokenID(qs.Get("token_id"))
	if token == "" {
		token = giga.NativeToken
	}
	skip, err := parseIntParam(qs, "skip", 0)
	if err != nil {
		sendBadRequest(w, err.Error(), "skip")
		return
	}
	count, err := parseIntParam(qs, "count", 20)
	if err != nil {
		sendBadRequest(w, err.Error(), "count")
		return
	}

	hist, err := a.Store.GetAddressHistory(address, token, count+skip, 0)
	if err != nil {
		sendError(w, "GetAddressHistory", err)
		return
	}
	if skip > len(hist) {
		hist = nil
	} else {
		hist = hist[skip:]
	}
	if len(hist) > count {
		hist = hist[:count]
	}

	type entry struct {
		TxID      string `json:"txId"`
		Timestamp int64  `json:"timestamp"`
		Balance   int64  `json:"balance"`
	}
	out := make([]entry, 0, len(hist))
	for _, e := range hist {
		out = append(out, entry{e.TxID, e.Timestamp.Unix(), e.Balance})
	}
	sendResponse(w, struct {
		History []entry `json:"history"`
		Skip    int     `json:"skip"`
		Count   int     `json:"count"`
	}{out, skip, count})
}

func (a WebAPI) requireReady(id giga.WalletID) error {
	wallet, err := a.Store.GetWallet(id)
	if err != nil {
		return err
	}
	if wallet.Status != giga.WalletReady {
		return giga.NewErr(giga.InvalidState, "wallet %s is not ready (status=%s)", id, wallet.Status)
	}
	return nil
}

func parseIntParam(qs map[string][]string, name string, def int) (int, error) {
	vals, ok := qs[name]
	if !ok || len(vals) == 0 || vals[0] == "" {
		return def, nil
	}
	n, err := strconv.Atoi(vals[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s in URL", name)
	}
	return n, nil
}

// adminProjectEvent implements POST /admin/projected: feed a single
// decoded transaction event directly into the projector, bypassing
// the receiver transport. Intended for recovery tooling, not clients.
func (a WebAPI) adminProjectEvent(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var event giga.TxEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		sendBadRequest(w, fmt.Sprintf("bad request body (expecting JSON): %v", err), "")
		return
	}
	if event.TxID == "" {
		sendBadRequest(w, "missing tx_id", "tx_id")
		return
	}
	if err := a.Projector.Project(r.Context(), event); err != nil {
		sendError(w, "Project", err)
		return
	}
	sendResponse(w, struct{}{})
}

func (a WebAPI) adminChainState(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	state, err := a.Store.GetChainState()
	if err != nil {
		sendError(w, "GetChainState", err)
		return
	}
	sendResponse(w, struct {
		ChainState giga.ChainState `json:"chainstate"`
	}{state})
}
