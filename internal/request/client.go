// Package request implements the engine's HTTP request layer: call
// deduplication, TTL response caching, retry with linear backoff, and the
// session token lifecycle. All game API traffic goes through Client.
package request

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"tradewinds-engine/internal/cache"
	"tradewinds-engine/internal/store"
	"tradewinds-engine/pkg/apierror"
)

// Config holds request layer settings.
type Config struct {
	BaseURL         string
	RequestTimeout  time.Duration
	TransferTimeout time.Duration
	MaxRetryCount   int
	RetryDelay      time.Duration
	CacheTTL        time.Duration
}

// CallOptions control authentication and caching for a single call.
type CallOptions struct {
	RequiresAuth bool
	Cacheable    bool
}

// Response is the raw result of a completed call.
type Response struct {
	StatusCode int
	Body       []byte
}

// inflightCall is a call currently on the wire. Identical concurrent calls
// share one result through it.
type inflightCall struct {
	done chan struct{}
	resp *Response
	err  error
}

// Client is the engine's game API client.
type Client struct {
	cfg        Config
	httpClient *http.Client
	cache      cache.Cache
	creds      store.CredentialStore

	mu            sync.RWMutex
	token         string
	authenticated bool

	inflightMu sync.Mutex
	inflight   map[string]*inflightCall
	cancels    map[string]context.CancelFunc

	// OnAuthenticated fires after a login or registration installs a token.
	OnAuthenticated func(token string)
	// OnSessionExpired fires after a 401 tears the session down.
	OnSessionExpired func()
}

// NewClient creates a request layer client.
func NewClient(cfg Config, responseCache cache.Cache, creds store.CredentialStore) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		cache:      responseCache,
		creds:      creds,
		inflight:   make(map[string]*inflightCall),
		cancels:    make(map[string]context.CancelFunc),
	}, nil
}

// Token returns the current session token ("" when logged out).
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// IsAuthenticated reports whether a session token is installed.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authenticated
}

// SetToken installs a session token in memory and mirrors it to durable
// storage. An empty token clears durable storage and logs the session out.
func (c *Client) SetToken(ctx context.Context, token string) {
	c.mu.Lock()
	c.token = token
	c.authenticated = token != ""
	c.mu.Unlock()

	if c.creds == nil {
		return
	}
	if token == "" {
		if err := c.creds.Delete(ctx, store.AuthTokenKey); err != nil {
			log.Printf("[RequestLayer] failed to clear stored token: %v", err)
		}
		return
	}
	if err := c.creds.Set(ctx, store.AuthTokenKey, token); err != nil {
		log.Printf("[RequestLayer] failed to persist token: %v", err)
	}
}

// RestoreToken loads a previously persisted token into memory. Returns the
// token, or "" when none is stored.
func (c *Client) RestoreToken(ctx context.Context) (string, error) {
	if c.creds == nil {
		return "", nil
	}
	token, err := c.creds.Get(ctx, store.AuthTokenKey)
	if err != nil {
		return "", fmt.Errorf("failed to restore token: %w", err)
	}
	if token != "" {
		c.mu.Lock()
		c.token = token
		c.authenticated = true
		c.mu.Unlock()
	}
	return token, nil
}

// Logout clears the session token, cancels all in-flight calls, and clears
// the response cache.
func (c *Client) Logout(ctx context.Context) {
	c.SetToken(ctx, "")
	c.CancelInflight()
	if c.cache != nil {
		if err := c.cache.Clear(ctx); err != nil {
			log.Printf("[RequestLayer] failed to clear cache: %v", err)
		}
	}
	log.Println("[RequestLayer] Session cleared")
}

// CancelInflight cancels every call currently on the wire.
func (c *Client) CancelInflight() {
	c.inflightMu.Lock()
	defer c.inflightMu.Unlock()
	for sig, cancel := range c.cancels {
		cancel()
		delete(c.cancels, sig)
	}
}

// signature keys a call by method, route, and body content so identical
// concurrent calls coalesce.
func signature(method, route string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(route))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Call issues a request against the game API. Identical concurrent calls
// share one network round trip; cacheable GETs are served from cache within
// the TTL; 5xx responses retry with linearly increasing delay.
func (c *Client) Call(ctx context.Context, method, route string, body any, opts CallOptions) (*Response, error) {
	if opts.RequiresAuth && !c.IsAuthenticated() {
		return nil, apierror.Unauthorized("No active session")
	}

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, apierror.InvalidRequestBody(fmt.Sprintf("cannot encode request body: %v", err))
		}
	}

	sig := signature(method, route, bodyBytes)

	cacheable := opts.Cacheable && method == http.MethodGet && c.cache != nil
	if cacheable {
		if cached, err := c.cache.Get(ctx, sig); err == nil {
			if json.Valid(cached) {
				return &Response{StatusCode: http.StatusOK, Body: cached}, nil
			}
			// Corrupt entry: evict and fall through to the network.
			_ = c.cache.Delete(ctx, sig)
			log.Printf("[RequestLayer] Evicted corrupt cache entry for %s %s", method, route)
		}
	}

	// Dedup: join an identical in-flight call if one exists.
	c.inflightMu.Lock()
	if existing, ok := c.inflight[sig]; ok {
		c.inflightMu.Unlock()
		select {
		case <-existing.done:
			return existing.resp, existing.err
		case <-ctx.Done():
			return nil, apierror.Timeout("request cancelled")
		}
	}
	call := &inflightCall{done: make(chan struct{})}
	c.inflight[sig] = call
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.TransferTimeout)
	c.cancels[sig] = cancel
	c.inflightMu.Unlock()

	resp, err := c.execute(callCtx, method, route, bodyBytes)

	c.inflightMu.Lock()
	delete(c.inflight, sig)
	if stored, ok := c.cancels[sig]; ok {
		stored()
		delete(c.cancels, sig)
	}
	c.inflightMu.Unlock()

	if err == nil && cacheable {
		if cerr := c.cache.Set(ctx, sig, resp.Body, c.cfg.CacheTTL); cerr != nil {
			log.Printf("[RequestLayer] failed to cache response: %v", cerr)
		}
	}

	call.resp = resp
	call.err = err
	close(call.done)
	return resp, err
}

// execute runs the retry loop for one deduplicated call.
func (c *Client) execute(ctx context.Context, method, route string, body []byte) (*Response, error) {
	target := strings.TrimSuffix(c.cfg.BaseURL, "/") + route
	if _, err := url.ParseRequestURI(target); err != nil {
		return nil, apierror.InvalidTarget(fmt.Sprintf("invalid route %q", route))
	}

	var lastErr error
	attempts := 1 + c.cfg.MaxRetryCount
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			// Linear backoff: retryDelay * attempt number of the retry.
			delay := c.cfg.RetryDelay * time.Duration(attempt-1)
			select {
			case <-ctx.Done():
				return nil, c.contextError(ctx)
			case <-time.After(delay):
			}
			log.Printf("[RequestLayer] Retry %d/%d for %s %s", attempt-1, c.cfg.MaxRetryCount, method, route)
		}

		resp, retryable, err := c.doOnce(ctx, method, target, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, lastErr
}

// doOnce performs a single HTTP round trip. The boolean reports whether
// the failure may be retried.
func (c *Client) doOnce(ctx context.Context, method, target string, body []byte) (*Response, bool, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, false, apierror.InvalidTarget(fmt.Sprintf("cannot build request: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, c.contextError(ctx)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, true, apierror.Timeout("")
		}
		return nil, true, apierror.TransportError(err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, true, apierror.TransportError(err)
	}

	switch {
	case httpResp.StatusCode == http.StatusUnauthorized:
		c.teardownSession()
		return nil, false, apierror.Unauthorized("Session expired")
	case httpResp.StatusCode >= 500:
		return nil, true, apierror.ServerError("")
	case httpResp.StatusCode >= 400:
		return nil, false, apierror.ClientError(httpResp.StatusCode, serverMessage(respBody))
	}

	return &Response{StatusCode: httpResp.StatusCode, Body: respBody}, false, nil
}

// teardownSession handles a 401: the token is gone, everything in flight is
// cancelled, and the owner is notified so it can degrade to offline mode.
func (c *Client) teardownSession() {
	log.Println("[RequestLayer] Authorization failure, tearing down session")
	c.SetToken(context.Background(), "")
	go c.CancelInflight()
	if c.cache != nil {
		_ = c.cache.Clear(context.Background())
	}
	if c.OnSessionExpired != nil {
		c.OnSessionExpired()
	}
}

func (c *Client) contextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apierror.Timeout("")
	}
	return apierror.Timeout("request cancelled")
}

// serverMessage extracts the error message from an envelope body, if any.
func serverMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.Error.Message
}
