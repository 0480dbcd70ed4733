package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	giga "github.com/dogeorg/utxoindexer/pkg"
)

/*
	These commands are convenience CLI tools that operate on a running
	indexer by calling its admin REST API.
*/

func RegisterWallet(c giga.Config, remoteAdmin string, xpubkey string, maxGap uint16) error {
	u, err := adminAPIURL(c, remoteAdmin, "/wallet")
	if err != nil {
		return err
	}
	body := struct {
		XPubKey string `json:"xpubkey"`
		MaxGap  uint16 `json:"max_gap,omitempty"`
	}{xpubkey, maxGap}

	var res struct {
		Success  bool          `json:"success"`
		WalletID giga.WalletID `json:"walletId"`
		Message  string        `json:"message"`
	}
	if err := postURL(u, body, &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("register wallet failed: %s", res.Message)
	}
	fmt.Println("registered wallet:", res.WalletID)
	return nil
}

func PrintChainState(c giga.Config, remoteAdmin string) error {
	u, err := adminAPIURL(c, remoteAdmin, "/admin/chainstate")
	if err != nil {
		return err
	}
	var res struct {
		Success    bool            `json:"success"`
		ChainState giga.ChainState `json:"chainstate"`
	}
	if err := getURL(u, &res); err != nil {
		return err
	}
	o, _ := json.MarshalIndent(res.ChainState, "", "  ")
	fmt.Println(string(o))
	return nil
}

// adminAPIURL resolves path against either an explicit --admin-server
// override or the loaded config's admin bind/port.
func adminAPIURL(c giga.Config, remoteAdmin string, path string) (string, error) {
	base := remoteAdmin
	if base == "" {
		host := c.WebAPI.AdminBind
		if host == "" {
			host = "localhost"
		}
		base = fmt.Sprintf("http://%s:%s/", host, c.WebAPI.AdminPort)
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	p, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return u.ResolveReference(p).String(), nil
}

func postURL(url string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to serialize request body: %v", err)
	}
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return doRequest(req, out)
}

func getURL(url string, out any) error {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %v", err)
	}
	return doRequest(req, out)
}

func doRequest(req *http.Request, out any) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %v", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %v", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("bad JSON response (%d): %s", resp.StatusCode, string(b))
	}
	return nil
}
