package polarise

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL, HTTPClient: srv.Client(), Timeout: 5 * time.Second})
}

func decodeBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	b, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func TestGetNonce(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, EndpointNonce, r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		body := decodeBody(t, r)
		assert.Equal(t, "0xabc", body["wallet"])
		assert.Equal(t, "polarise", body["chain_name"])

		_, _ = io.WriteString(w, `{"code":"200","signed_nonce":"n-42"}`)
	})

	nonce, err := client.GetNonce(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "n-42", nonce)
}

func TestGetNonceIgnoresTransportStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"code":"200","signed_nonce":"n-1"}`)
	})

	nonce, err := client.GetNonce(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "n-1", nonce)
}

func TestGetNonceRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":"500","msg":"busy"}`)
	})

	_, err := client.GetNonce(context.Background(), "0xabc")
	require.Error(t, err)

	var appErr *ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, "500", appErr.Code)
	assert.Equal(t, "busy", appErr.Message)
	assert.False(t, IsTransport(err))
}

func TestGetNonceMalformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>blocked</html>`)
	})

	_, err := client.GetNonce(context.Background(), "0xabc")
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.True(t, IsApplication(err))
}

func TestGetNonceTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(Options{BaseURL: url, Timeout: time.Second})
	_, err := client.GetNonce(context.Background(), "0xabc")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.False(t, IsApplication(err))
}

func TestLogin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, EndpointLogin, r.URL.Path)

		body := decodeBody(t, r)
		assert.Equal(t, "0xsig", body["signature"])
		assert.Equal(t, "polarise", body["chain_name"])
		assert.Equal(t, "0xf39F", body["name"])
		assert.Equal(t, "n-1", body["nonce"])
		assert.Equal(t, "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266", body["wallet"])
		assert.Equal(t, "sid-1", body["sid"])
		assert.Equal(t, "", body["sub_id"])
		assert.Equal(t, DefaultReferralCode, body["inviter_code"])

		_, _ = io.WriteString(w, `{"code":"200","data":{"auth_token_info":{"auth_token":"tok-9"}}}`)
	})

	token, err := client.Login(context.Background(), LoginRequest{
		Signature:   "0xsig",
		Nonce:       "n-1",
		Wallet:      "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266",
		SessionID:   "sid-1",
		InviterCode: DefaultReferralCode,
	})
	require.NoError(t, err)
	assert.Equal(t, "tok-9", token)
}

func TestLoginFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"bad signature", `{"code":"401","msg":"signature invalid"}`, ErrRejected},
		{"missing token", `{"code":"200","data":{}}`, ErrMalformedResponse},
		{"no data", `{"code":"200"}`, ErrMalformedResponse},
		{"not json", `oops`, ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := client.Login(context.Background(), LoginRequest{Wallet: "0xabc"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestProfileInfo(t *testing.T) {
	session := Session{Address: "0xabc", SessionID: "sid-7", AuthToken: "tok"}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, EndpointProfile, r.URL.Path)
		assert.Equal(t, "Bearer tok sid-7 0xabc polarise", r.Header.Get("Authorization"))
		assert.Equal(t, "sid-7", r.Header.Get(SessionHeader))
		assert.Equal(t, "polarise", decodeBody(t, r)["chain_name"])

		_, _ = io.WriteString(w, `{"code":"200","data":{"id":1234,"user_name":"0xabc1","exchange_total_points":150}}`)
	})

	profile, err := client.ProfileInfo(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, int64(150), profile.Points)
	assert.Equal(t, "0xabc1", profile.UserName)
	assert.Equal(t, "1234", profile.UserIDString())
}

func TestProfileInfoFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"http 401", http.StatusUnauthorized, `{"code":"401","msg":"token expired"}`, ErrUnexpectedStatus},
		{"http 502 html", http.StatusBadGateway, `<html></html>`, ErrUnexpectedStatus},
		{"code rejected", http.StatusOK, `{"code":"403","msg":"forbidden"}`, ErrRejected},
		{"missing points", http.StatusOK, `{"code":"200","data":{"id":1,"user_name":"x"}}`, ErrMalformedResponse},
		{"missing id", http.StatusOK, `{"code":"200","data":{"user_name":"x","exchange_total_points":5}}`, ErrMalformedResponse},
		{"missing user name", http.StatusOK, `{"code":"200","data":{"id":1,"exchange_total_points":5}}`, ErrMalformedResponse},
		{"not json", http.StatusOK, `{`, ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := client.ProfileInfo(context.Background(), Session{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSwapPoints(t *testing.T) {
	session := Session{Address: "0xabc", SessionID: "sid", AuthToken: "tok"}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, EndpointSwap, r.URL.Path)
		assert.Equal(t, "Bearer tok sid 0xabc polarise", r.Header.Get("Authorization"))

		body := decodeBody(t, r)
		assert.Equal(t, float64(1234), body["user_id"])
		assert.Equal(t, "alice", body["user_name"])
		assert.Equal(t, "0xabc", body["user_wallet"])
		assert.Equal(t, float64(100), body["used_points"])
		assert.Equal(t, "GRISE", body["token_symbol"])
		assert.Equal(t, "polarise", body["chain_name"])
		assert.Equal(t, "0xsig", body["signature"])
		assert.Equal(t, "Nonce to confirm: n", body["sign_msg"])

		_, _ = io.WriteString(w, `{"code":"200","msg":"ok","data":{"tx_hash":"0xfeed"}}`)
	})

	res, err := client.SwapPoints(context.Background(), session, SwapRequest{
		UserID:      json.RawMessage(`1234`),
		UserName:    "alice",
		UsedPoints:  100,
		TokenSymbol: "GRISE",
		Signature:   "0xsig",
		SignMsg:     "Nonce to confirm: n",
	})
	require.NoError(t, err)
	assert.Equal(t, "0xfeed", res.TxHash)
}

func TestSwapPointsRejectedKeepsMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":"400","msg":"Insufficient points, please try later"}`)
	})

	_, err := client.SwapPoints(context.Background(), Session{}, SwapRequest{UserID: json.RawMessage(`1`)})
	require.Error(t, err)

	var appErr *ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "Insufficient points, please try later", appErr.Message)
	assert.ErrorIs(t, err, ErrRejected)
}

func TestRateLimiterAndBreakerErrorsAreTransport(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":"200","signed_nonce":"n"}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetNonce(ctx, "0xabc")
	assert.True(t, IsTransport(err))
}

func TestResetBreakerClosesTrippedBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(Options{BaseURL: url, Timeout: time.Second})
	for i := 0; i < 6; i++ {
		_, err := client.GetNonce(context.Background(), "0xabc")
		require.Error(t, err)
		require.False(t, errors.Is(err, gobreaker.ErrOpenState), "attempt %d", i+1)
	}

	_, err := client.GetNonce(context.Background(), "0xabc")
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, IsTransport(err))

	client.ResetBreaker()
	_, err = client.GetNonce(context.Background(), "0xabc")
	require.Error(t, err)
	assert.False(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.True(t, IsTransport(err))
}

func TestResetBreakerWithoutBreaker(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"code":"200","signed_nonce":"n"}`)
	})
	disabled := NewClient(Options{BaseURL: client.baseURL, HTTPClient: client.httpClient, DisableBreaker: true})

	disabled.ResetBreaker()
	nonce, err := disabled.GetNonce(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "n", nonce)
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "0xf39F", shortName("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"))
	assert.Equal(t, "0x2c75", shortName("0x2c7536e3605d9c16a7a3d7b1898e529396a65c23"))
	assert.Equal(t, "0xabcd", shortName("0xabcdef01"))
	assert.Equal(t, "0xab", shortName("0xab"))
}
