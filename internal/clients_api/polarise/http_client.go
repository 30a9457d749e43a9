package polarise

// Package polarise contains the client for the Polarise points API
// This file is the transport layer: rate limiting, circuit breaking, size-capped reads
// It knows nothing about the swap flow, it only sends JSON and hands back status + body

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"polarise-swapper/internal/infra/log"
	"polarise-swapper/internal/infra/metrics"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// MainnetAPI - base path of the points API
	MainnetAPI = "https://apia.polarise.org/api/app/v1"
	// ExplorerTxURL - transaction page prefix on the Polarise explorer
	ExplorerTxURL = "https://explorer.polarise.org/tx/"

	// ChainName is sent as chain_name in every request body
	ChainName = "polarise"

	EndpointNonce   = "/profile/getnonce"
	EndpointLogin   = "/profile/login"
	EndpointProfile = "/profile/profileinfo"
	EndpointSwap    = "/profile/swappoints"
)

// Options configures NewClient. Zero values fall back to the defaults below.
type Options struct {
	BaseURL         string
	ChainName       string
	Timeout         time.Duration // single total timeout per request
	RateLimit       float64       // requests per second, 0 disables the limiter
	RateBurst       int
	MaxResponseSize int64
	Headers         Headers
	HTTPClient      *http.Client // tests inject httptest clients here
	DisableBreaker  bool
}

// Client talks to the Polarise API
type Client struct {
	baseURL         string
	chainName       string
	headers         Headers
	httpClient      *http.Client
	rateLimiter     *rate.Limiter
	maxResponseSize int64

	breakerMu       sync.Mutex
	breakerSettings *gobreaker.Settings
	circuitBreaker  *gobreaker.CircuitBreaker
}

// Response is a completed HTTP exchange; the status is reported, not judged
type Response struct {
	StatusCode int
	Body       []byte
}

// NewClient creates a client ready to use
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = MainnetAPI
	}
	chainName := opts.ChainName
	if chainName == "" {
		chainName = ChainName
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxResponseSize := opts.MaxResponseSize
	if maxResponseSize <= 0 {
		maxResponseSize = 1 * 1024 * 1024
	}
	headers := opts.Headers
	if headers == (Headers{}) {
		headers = DefaultHeaders()
	}
	if headers.BearerFormat == "" {
		headers.BearerFormat = BearerComposite
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				DisableKeepAlives: false,
				MaxIdleConns:      10,
				IdleConnTimeout:   90 * time.Second,
			},
		}
	}

	var rateLimiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		rateLimiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	var breakerSettings *gobreaker.Settings
	if !opts.DisableBreaker {
		// only transport failures reach the breaker, API rejections are ordinary responses
		breakerSettings = &gobreaker.Settings{
			Name:        "PolariseAPI",
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.LogWarn("Circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}
	}

	c := &Client{
		baseURL:         baseURL,
		chainName:       chainName,
		headers:         headers,
		httpClient:      httpClient,
		rateLimiter:     rateLimiter,
		maxResponseSize: maxResponseSize,
		breakerSettings: breakerSettings,
	}
	c.ResetBreaker()
	return c
}

// ResetBreaker replaces the circuit breaker with a closed one. The runner calls it at the start of
// every wallet turn so a trip never carries over to the next wallet.
func (c *Client) ResetBreaker() {
	if c.breakerSettings == nil {
		return
	}
	c.breakerMu.Lock()
	c.circuitBreaker = gobreaker.NewCircuitBreaker(*c.breakerSettings)
	c.breakerMu.Unlock()
}

func (c *Client) breaker() *gobreaker.CircuitBreaker {
	c.breakerMu.Lock()
	defer c.breakerMu.Unlock()
	return c.circuitBreaker
}

// Headers returns the configured header set
func (c *Client) Headers() Headers {
	return c.headers
}

// ChainName returns the chain tag sent in request bodies
func (c *Client) ChainName() string {
	return c.chainName
}

// CloseIdleConnections drops pooled connections; called at the end of each sweep
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// MakeRequest POSTs body as JSON to endpoint with header.
// Only transport problems come back as errors (always *TransportError); any HTTP status is a Response.
func (c *Client) MakeRequest(ctx context.Context, endpoint string, body interface{}, header http.Header) (*Response, error) {
	requestID := log.GenerateRequestID()
	startTime := time.Now()

	if ctx.Err() != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("context cancelled: %w", ctx.Err())}
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("rate limiter wait failed: %w", err)}
		}
	}

	var resp *Response
	var err error

	if cb := c.breaker(); cb != nil {
		_, err = cb.Execute(func() (interface{}, error) {
			r, err := c.makeRequestWithContext(ctx, requestID, endpoint, body, header, startTime)
			if err != nil {
				return nil, err
			}
			resp = r
			return r, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			log.LogError("Circuit breaker rejected request", zap.String("request_id", requestID), zap.String("endpoint", endpoint), zap.Error(err))
		}
	} else {
		resp, err = c.makeRequestWithContext(ctx, requestID, endpoint, body, header, startTime)
	}

	metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(endpoint, "error").Inc()
		var te *TransportError
		if errors.As(err, &te) {
			return nil, te
		}
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}

	metrics.RequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	return resp, nil
}

func (c *Client) makeRequestWithContext(ctx context.Context, requestID, endpoint string, body interface{}, header http.Header, startTime time.Time) (*Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range header {
		req.Header[key] = append([]string(nil), values...)
	}

	log.LogRequest(requestID, http.MethodPost, endpoint, zap.String("url", req.URL.String()))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		duration := time.Since(startTime).Milliseconds()
		log.LogResponse(requestID, 0, duration, zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	if err != nil {
		duration := time.Since(startTime).Milliseconds()
		log.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	duration := time.Since(startTime).Milliseconds()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.LogResponse(requestID, resp.StatusCode, duration,
			zap.String("endpoint", endpoint),
			zap.String("body", log.Redact(truncate(string(respBody), 512))))
	} else {
		log.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", endpoint))
	}

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
