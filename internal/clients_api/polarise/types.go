package polarise

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// StatusCode is the "code" field of every response body. The API sends it as a string;
// a bare number is accepted and kept in its literal form.
type StatusCode string

func (c *StatusCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = StatusCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("status code: %w", err)
	}
	*c = StatusCode(n.String())
	return nil
}

// OK reports the success code
func (c StatusCode) OK() bool { return c == "200" }

// Points decodes a JSON number or numeric string into whole points.
type Points int64

func (p *Points) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("points: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*p = Points(i)
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("points: %w", err)
	}
	*p = Points(math.Floor(f))
	return nil
}

type envelope struct {
	Code StatusCode      `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// NonceRequest - body of /profile/getnonce
type NonceRequest struct {
	Wallet    string `json:"wallet"`
	ChainName string `json:"chain_name"`
}

type nonceResponse struct {
	Code        StatusCode `json:"code"`
	Msg         string     `json:"msg"`
	SignedNonce string     `json:"signed_nonce"`
	Data        *struct {
		SignedNonce string `json:"signed_nonce"`
	} `json:"data"`
}

func (r nonceResponse) nonce() string {
	if r.SignedNonce != "" {
		return r.SignedNonce
	}
	if r.Data != nil {
		return r.Data.SignedNonce
	}
	return ""
}

// LoginRequest - body of /profile/login
type LoginRequest struct {
	Signature   string `json:"signature"`
	ChainName   string `json:"chain_name"`
	Name        string `json:"name"` // first 6 chars of the wallet
	Nonce       string `json:"nonce"`
	Wallet      string `json:"wallet"`
	SessionID   string `json:"sid"`
	SubID       string `json:"sub_id"`
	InviterCode string `json:"inviter_code"`
}

type loginData struct {
	AuthTokenInfo struct {
		AuthToken string `json:"auth_token"`
	} `json:"auth_token_info"`
}

// ProfileRequest - body of /profile/profileinfo
type ProfileRequest struct {
	ChainName string `json:"chain_name"`
}

type profileData struct {
	ID       json.RawMessage `json:"id"`
	UserName *string         `json:"user_name"`
	Points   *Points         `json:"exchange_total_points"`
}

// Profile is the server-side snapshot used to decide swap eligibility
type Profile struct {
	UserID   json.RawMessage // echoed back verbatim in the swap request
	UserName string
	Points   int64
}

// UserIDString renders the user id for logs
func (p *Profile) UserIDString() string {
	var s string
	if json.Unmarshal(p.UserID, &s) == nil {
		return s
	}
	return string(p.UserID)
}

// SwapRequest - body of /profile/swappoints
type SwapRequest struct {
	UserID      json.RawMessage `json:"user_id"`
	UserName    string          `json:"user_name"`
	UserWallet  string          `json:"user_wallet"`
	UsedPoints  int64           `json:"used_points"`
	TokenSymbol string          `json:"token_symbol"`
	ChainName   string          `json:"chain_name"`
	Signature   string          `json:"signature"`
	SignMsg     string          `json:"sign_msg"`
}

type swapData struct {
	TxHash string `json:"tx_hash"`
}

// SwapResult - accepted swap
type SwapResult struct {
	TxHash string
	Msg    string
}
