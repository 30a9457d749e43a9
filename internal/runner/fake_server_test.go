package runner

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"polarise-swapper/internal/clients_api/polarise"
)

// walletBehavior scripts the fake API for one wallet; empty fields mean "succeed"
type walletBehavior struct {
	points        int64
	nonceBody     string
	dropNonce     bool // close the connection without a response
	loginBody     string
	profileStatus int
	profileBody   string
	swapStatus    int
	swapBody      string
}

type recordedCall struct {
	endpoint string
	wallet   string
	body     map[string]interface{}
	header   http.Header
}

type fakePolarise struct {
	t         *testing.T
	mu        sync.Mutex
	calls     []recordedCall
	behaviors map[string]walletBehavior
	server    *httptest.Server
}

func newFakePolarise(t *testing.T, behaviors map[string]walletBehavior) *fakePolarise {
	t.Helper()
	f := &fakePolarise{t: t, behaviors: behaviors}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakePolarise) client() *polarise.Client {
	return polarise.NewClient(polarise.Options{
		BaseURL:        f.server.URL,
		HTTPClient:     f.server.Client(),
		Timeout:        5 * time.Second,
		DisableBreaker: true,
	})
}

// clientWithBreaker keeps the production circuit breaker settings
func (f *fakePolarise) clientWithBreaker() *polarise.Client {
	return polarise.NewClient(polarise.Options{
		BaseURL:    f.server.URL,
		HTTPClient: f.server.Client(),
		Timeout:    5 * time.Second,
	})
}

func (f *fakePolarise) handle(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]interface{}
	_ = json.Unmarshal(raw, &body)

	wallet := walletOf(r, body)
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{endpoint: r.URL.Path, wallet: wallet, body: body, header: r.Header.Clone()})
	b := f.behaviors[wallet]
	f.mu.Unlock()

	switch r.URL.Path {
	case polarise.EndpointNonce:
		if b.dropNonce {
			hj, ok := w.(http.Hijacker)
			if !ok {
				f.t.Errorf("response writer cannot hijack")
				return
			}
			conn, _, err := hj.Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		writeOr(w, b.nonceBody, fmt.Sprintf(`{"code":"200","signed_nonce":"n-%s"}`, wallet))
	case polarise.EndpointLogin:
		writeOr(w, b.loginBody, fmt.Sprintf(`{"code":"200","data":{"auth_token_info":{"auth_token":"tok-%s"}}}`, wallet))
	case polarise.EndpointProfile:
		if b.profileStatus != 0 {
			w.WriteHeader(b.profileStatus)
		}
		writeOr(w, b.profileBody, fmt.Sprintf(`{"code":"200","data":{"id":77,"user_name":"alice","exchange_total_points":%d}}`, b.points))
	case polarise.EndpointSwap:
		if b.swapStatus != 0 {
			w.WriteHeader(b.swapStatus)
		}
		writeOr(w, b.swapBody, `{"code":"200","msg":"success","data":{"tx_hash":"0xfeedbeef"}}`)
	default:
		http.NotFound(w, r)
	}
}

func writeOr(w http.ResponseWriter, body, fallback string) {
	if body == "" {
		body = fallback
	}
	_, _ = io.WriteString(w, body)
}

// walletOf finds the wallet from the body or, for authenticated calls, the composite bearer
func walletOf(r *http.Request, body map[string]interface{}) string {
	for _, key := range []string{"wallet", "user_wallet"} {
		if s, ok := body[key].(string); ok && s != "" {
			return s
		}
	}
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) == 5 {
		return parts[3]
	}
	return ""
}

func (f *fakePolarise) callsFor(wallet string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if c.wallet == wallet {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakePolarise) endpointsFor(wallet string) []string {
	var out []string
	for _, c := range f.callsFor(wallet) {
		out = append(out, c.endpoint)
	}
	return out
}

func (f *fakePolarise) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
