package polarise

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultReferralCode is sent as inviter_code on login
const DefaultReferralCode = "2BHlBH"

// GetNonce requests a login challenge for address.
// Success is decided by the body code only, the transport status is not checked.
func (c *Client) GetNonce(ctx context.Context, address string) (string, error) {
	resp, err := c.MakeRequest(ctx, EndpointNonce, NonceRequest{
		Wallet:    address,
		ChainName: c.chainName,
	}, c.headers.Unauthenticated())
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	var nonceResp nonceResponse
	if err := json.Unmarshal(resp.Body, &nonceResp); err != nil {
		return "", malformed(EndpointNonce, resp, err)
	}
	if !nonceResp.Code.OK() {
		return "", rejected(EndpointNonce, resp, nonceResp.Code, nonceResp.Msg)
	}
	nonce := nonceResp.nonce()
	if nonce == "" {
		return "", malformed(EndpointNonce, resp, fmt.Errorf("signed_nonce missing"))
	}

	return nonce, nil
}

// Login exchanges a signed challenge for an auth token.
// Bad signatures and server faults are not distinguished: both are an *ApplicationError.
func (c *Client) Login(ctx context.Context, req LoginRequest) (string, error) {
	if req.ChainName == "" {
		req.ChainName = c.chainName
	}
	if req.Name == "" {
		req.Name = shortName(req.Wallet)
	}

	resp, err := c.MakeRequest(ctx, EndpointLogin, req, c.headers.Unauthenticated())
	if err != nil {
		return "", fmt.Errorf("failed to login: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return "", malformed(EndpointLogin, resp, err)
	}
	if !env.Code.OK() {
		return "", rejected(EndpointLogin, resp, env.Code, env.Msg)
	}

	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", malformed(EndpointLogin, resp, err)
	}
	if data.AuthTokenInfo.AuthToken == "" {
		return "", malformed(EndpointLogin, resp, fmt.Errorf("auth_token missing"))
	}

	return data.AuthTokenInfo.AuthToken, nil
}

// ProfileInfo reads the points snapshot. Requires transport status 200 and code "200".
func (c *Client) ProfileInfo(ctx context.Context, session Session) (*Profile, error) {
	resp, err := c.MakeRequest(ctx, EndpointProfile, ProfileRequest{ChainName: c.chainName}, c.headers.Authenticated(session))
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	env, err := decodeAuthenticated(EndpointProfile, resp)
	if err != nil {
		return nil, err
	}

	var data profileData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, malformed(EndpointProfile, resp, err)
	}
	if len(data.ID) == 0 || string(data.ID) == "null" {
		return nil, malformed(EndpointProfile, resp, fmt.Errorf("id missing"))
	}
	if data.UserName == nil {
		return nil, malformed(EndpointProfile, resp, fmt.Errorf("user_name missing"))
	}
	if data.Points == nil {
		return nil, malformed(EndpointProfile, resp, fmt.Errorf("exchange_total_points missing"))
	}

	return &Profile{
		UserID:   data.ID,
		UserName: *data.UserName,
		Points:   int64(*data.Points),
	}, nil
}

// SwapPoints submits one exchange request. Not idempotent: callers must not resend on failure.
// A rejection keeps the server msg verbatim in ApplicationError.Message.
func (c *Client) SwapPoints(ctx context.Context, session Session, req SwapRequest) (*SwapResult, error) {
	if req.ChainName == "" {
		req.ChainName = c.chainName
	}
	if req.UserWallet == "" {
		req.UserWallet = session.Address
	}

	resp, err := c.MakeRequest(ctx, EndpointSwap, req, c.headers.Authenticated(session))
	if err != nil {
		return nil, fmt.Errorf("failed to swap points: %w", err)
	}

	env, err := decodeAuthenticated(EndpointSwap, resp)
	if err != nil {
		return nil, err
	}

	var data swapData
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, malformed(EndpointSwap, resp, err)
		}
	}

	return &SwapResult{TxHash: data.TxHash, Msg: env.Msg}, nil
}

// decodeAuthenticated applies the stricter rule of profileinfo/swappoints:
// the body is inspected first so the server msg survives, then transport status and code must both be 200.
func decodeAuthenticated(endpoint string, resp *Response) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &ApplicationError{Endpoint: endpoint, HTTPStatus: resp.StatusCode, Err: ErrUnexpectedStatus}
		}
		return nil, malformed(endpoint, resp, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ApplicationError{
			Endpoint:   endpoint,
			HTTPStatus: resp.StatusCode,
			Code:       string(env.Code),
			Message:    env.Msg,
			Err:        ErrUnexpectedStatus,
		}
	}
	if !env.Code.OK() {
		return nil, rejected(endpoint, resp, env.Code, env.Msg)
	}
	return &env, nil
}

func rejected(endpoint string, resp *Response, code StatusCode, msg string) error {
	return &ApplicationError{
		Endpoint:   endpoint,
		HTTPStatus: resp.StatusCode,
		Code:       string(code),
		Message:    msg,
		Err:        ErrRejected,
	}
}

func malformed(endpoint string, resp *Response, cause error) error {
	return &ApplicationError{
		Endpoint:   endpoint,
		HTTPStatus: resp.StatusCode,
		Message:    cause.Error(),
		Err:        ErrMalformedResponse,
	}
}

// shortName is the display name sent on login: the first 6 chars of the checksummed address
func shortName(wallet string) string {
	if common.IsHexAddress(wallet) {
		wallet = common.HexToAddress(wallet).Hex()
	}
	if len(wallet) <= 6 {
		return wallet
	}
	return wallet[:6]
}
