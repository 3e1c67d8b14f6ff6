// Package document acquires, decodes and owns PDF document handles.
//
// Acquisition walks an ordered list of credential strategies (session
// cookie, query-embedded token, freshly re-issued token) and stops at the
// first success. The manager guarantees exactly one live decoded handle per
// displayed slot: superseded handles are destroyed before being dropped,
// and an in-flight load is cancelled and awaited before a new one starts.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// ErrAllStrategiesFailed is returned when every configured credential
// strategy has been tried and none produced the document bytes. It is the
// single recoverable "load failed" error surfaced to the host UI.
var ErrAllStrategiesFailed = errors.New("document fetch failed: all credential strategies exhausted")

// maxDocumentSize caps a fetched PDF at 50MB, matching the upload limit on
// the essay submission side.
const maxDocumentSize = 50 << 20

// defaultAttemptTimeout bounds each credential attempt. Exceeding it counts
// as a failed attempt and advances to the next strategy.
const defaultAttemptTimeout = 15 * time.Second

// Strategy identifies one credential strategy, mostly for logging.
type Strategy string

const (
	StrategySession    Strategy = "session-cookie"
	StrategyQueryToken Strategy = "query-token"
	StrategyReissue    Strategy = "reissued-token"
)

// Credentials are the caller-supplied credentials for one fetch: the
// platform session cookie forwarded from the opening request and an optional
// file token the caller already holds. Both are merged over the Fetcher's
// configured defaults.
type Credentials struct {
	SessionCookie *http.Cookie
	QueryToken    string
}

// TokenIssuer re-issues a short-lived file token from the collaborator
// file-token endpoint. Implemented over HTTP in production and faked in
// tests.
type TokenIssuer interface {
	IssueToken(ctx context.Context, ref string) (string, error)
}

// Fetcher downloads document bytes trying each configured credential
// strategy in order. Unconfigured strategies are skipped, not failed.
type Fetcher struct {
	client         *http.Client
	sessionCookie  *http.Cookie
	queryToken     string
	issuer         TokenIssuer
	attemptTimeout time.Duration
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithSessionCookie enables the same-origin session strategy.
func WithSessionCookie(name, value string) FetcherOption {
	return func(f *Fetcher) {
		if name != "" && value != "" {
			f.sessionCookie = &http.Cookie{Name: name, Value: value}
		}
	}
}

// WithQueryToken enables the query-embedded bearer token strategy.
func WithQueryToken(token string) FetcherOption {
	return func(f *Fetcher) { f.queryToken = token }
}

// WithTokenIssuer enables the re-issued token strategy.
func WithTokenIssuer(issuer TokenIssuer) FetcherOption {
	return func(f *Fetcher) { f.issuer = issuer }
}

// WithAttemptTimeout overrides the per-strategy time bound.
func WithAttemptTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.attemptTimeout = d
		}
	}
}

// WithHTTPClient overrides the HTTP client (tests).
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// NewFetcher creates a Fetcher with the given strategies enabled.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:         &http.Client{},
		attemptTimeout: defaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the document at ref. Per-attempt errors are caught and
// logged; the fetch only fails once every strategy is exhausted. If ctx is
// cancelled the cancellation is returned as-is — callers treat it as silent,
// never as a load failure.
func (f *Fetcher) Fetch(ctx context.Context, ref string, creds Credentials) ([]byte, error) {
	type attempt struct {
		strategy Strategy
		run      func(context.Context) ([]byte, error)
	}

	cookie := creds.SessionCookie
	if cookie == nil {
		cookie = f.sessionCookie
	}
	queryToken := creds.QueryToken
	if queryToken == "" {
		queryToken = f.queryToken
	}

	var attempts []attempt
	if cookie != nil {
		attempts = append(attempts, attempt{StrategySession, func(ctx context.Context) ([]byte, error) {
			return f.get(ctx, ref, cookie, "")
		}})
	}
	if queryToken != "" {
		attempts = append(attempts, attempt{StrategyQueryToken, func(ctx context.Context) ([]byte, error) {
			return f.get(ctx, ref, nil, queryToken)
		}})
	}
	if f.issuer != nil {
		attempts = append(attempts, attempt{StrategyReissue, func(ctx context.Context) ([]byte, error) {
			token, err := f.issuer.IssueToken(ctx, ref)
			if err != nil {
				return nil, fmt.Errorf("token re-issue failed: %w", err)
			}
			return f.get(ctx, ref, nil, token)
		}})
	}
	if len(attempts) == 0 {
		// No credentials configured at all: one plain attempt.
		attempts = append(attempts, attempt{StrategySession, func(ctx context.Context) ([]byte, error) {
			return f.get(ctx, ref, nil, "")
		}})
	}

	var lastErr error
	for _, a := range attempts {
		attemptCtx, cancel := context.WithTimeout(ctx, f.attemptTimeout)
		data, err := a.run(attemptCtx)
		cancel()

		if err == nil {
			return data, nil
		}
		// Parent cancellation ends the whole fetch silently; a per-attempt
		// timeout just advances to the next strategy.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("document fetch: strategy %s failed for %s: %v", a.strategy, ref, err)
		lastErr = err
	}

	return nil, fmt.Errorf("%w (last: %v)", ErrAllStrategiesFailed, lastErr)
}

func (f *Fetcher) get(ctx context.Context, ref string, cookie *http.Cookie, token string) ([]byte, error) {
	target := ref
	if token != "" {
		u, err := url.Parse(ref)
		if err != nil {
			return nil, fmt.Errorf("invalid document reference: %w", err)
		}
		q := u.Query()
		q.Set("file-token", token)
		u.RawQuery = q.Encode()
		target = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	res, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d fetching document", res.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read document body: %w", err)
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("document exceeds %dMB limit", maxDocumentSize>>20)
	}
	return data, nil
}

// HTTPTokenIssuer implements TokenIssuer against the collaborator file-token
// endpoint: POST <endpoint> with a service bearer token, response {"token"}.
type HTTPTokenIssuer struct {
	Endpoint     string
	ServiceToken string
	Client       *http.Client
}

// IssueToken requests a fresh short-lived token for ref.
func (h *HTTPTokenIssuer) IssueToken(ctx context.Context, ref string) (string, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, nil)
	if err != nil {
		return "", err
	}
	if h.ServiceToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.ServiceToken)
	}
	q := req.URL.Query()
	q.Set("ref", ref)
	req.URL.RawQuery = q.Encode()

	res, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned HTTP %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err != nil {
		return "", err
	}
	token, err := parseTokenResponse(body)
	if err != nil {
		return "", err
	}
	return token, nil
}

func parseTokenResponse(body []byte) (string, error) {
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("invalid token endpoint response: %w", err)
	}
	if payload.Token == "" {
		return "", errors.New("token endpoint response missing token")
	}
	return payload.Token, nil
}
