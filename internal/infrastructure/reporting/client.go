package reporting

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec // the upstream login protocol expects a SHA-1 password digest
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/restoledger/backend/internal/domain/olap"
	"github.com/restoledger/backend/internal/infrastructure/telemetry"
)

// maxResponseSize is the maximum accepted response body (50MB)
const maxResponseSize = 50 * 1024 * 1024

const (
	authPath    = "/resto/api/auth"
	logoutPath  = "/resto/api/logout"
	olapPath    = "/resto/api/v2/reports/olap"
	columnsPath = "/resto/api/v2/reports/olap/columns"
)

// Client implements olap.Client against the POS server's reporting API.
// One session token is shared by all calls and renewed on expiry.
type Client struct {
	config     *Config
	httpClient *http.Client
	tokens     TokenStore
	limiter    *rate.Limiter
	logger     *zap.Logger

	loginMu sync.Mutex
}

var _ olap.Client = (*Client)(nil)

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a reporting client
func NewClient(cfg *Config, tokens TokenStore, logger *zap.Logger, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tokens == nil {
		return nil, fmt.Errorf("%w: token store is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger.Named("reporting"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Query runs a cube query and returns its rows
func (c *Client) Query(ctx context.Context, q olap.Query) ([]olap.Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "reporting.Query",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("olap.group_by", strings.Join(q.GroupBy, ",")),
		telemetry.WithAttribute("olap.aggregates", len(q.Aggregates)),
	)
	defer span.End()

	payload, err := json.Marshal(newQueryBody(c.config.ReportType, q))
	if err != nil {
		return nil, fmt.Errorf("reporting: failed to encode query: %w", err)
	}

	body, err := c.do(ctx, "olap query", http.MethodPost, olapPath, nil, payload)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var resp queryResponse
	if err := decode(body, &resp); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	rows := make([]olap.Row, 0, len(resp.Data))
	for _, d := range resp.Data {
		rows = append(rows, olap.Row(d))
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrRows, len(rows))
	return rows, nil
}

// Columns lists the columns of the configured report type
func (c *Client) Columns(ctx context.Context) (map[string]olap.ColumnInfo, error) {
	ctx, span := telemetry.StartSpan(ctx, "reporting.Columns", telemetry.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	body, err := c.do(ctx, "olap columns", http.MethodGet, columnsPath,
		url.Values{"reportType": {c.config.ReportType}}, nil)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	columns := make(map[string]olap.ColumnInfo)
	if err := decode(body, &columns); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	for name, info := range columns {
		if info.Name == "" {
			info.Name = name
			columns[name] = info
		}
	}
	return columns, nil
}

// Logout ends the cached session, if any. The upstream limits concurrent
// sessions per login, so long-lived processes call this on shutdown.
func (c *Client) Logout(ctx context.Context) error {
	token, ok, err := c.tokens.Get(ctx, c.tokenKey())
	if err != nil || !ok {
		return err
	}
	if err := c.tokens.Delete(ctx, c.tokenKey()); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodGet, logoutPath, url.Values{"key": {token}}, nil)
	if err != nil {
		return err
	}
	_, err = c.send(req, "logout")
	return err
}

func (c *Client) tokenKey() string {
	return c.config.Login + "@" + c.config.BaseURL
}

// do sends an authenticated request. A rejected token is dropped and the
// request is retried once with a fresh session.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload []byte) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		token, err := c.token(ctx)
		if err != nil {
			return nil, err
		}

		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("key", token)

		req, err := c.newRequest(ctx, method, path, q, payload)
		if err != nil {
			return nil, err
		}

		body, err := c.send(req, op)
		var se *StatusError
		if attempt == 0 && errors.As(err, &se) && (se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden) {
			c.logger.Info("Session token rejected, logging in again", zap.String("op", op), zap.Int("status", se.Status))
			if derr := c.tokens.Delete(ctx, c.tokenKey()); derr != nil {
				return nil, derr
			}
			continue
		}
		return body, err
	}
}

// token returns the cached session token or logs in
func (c *Client) token(ctx context.Context) (string, error) {
	key := c.tokenKey()
	if token, ok, err := c.tokens.Get(ctx, key); err != nil {
		return "", err
	} else if ok {
		return token, nil
	}

	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	if token, ok, err := c.tokens.Get(ctx, key); err != nil {
		return "", err
	} else if ok {
		return token, nil
	}

	token, err := c.login(ctx)
	if err != nil {
		return "", err
	}
	if err := c.tokens.Set(ctx, key, token, c.config.TokenTTL); err != nil {
		return "", err
	}
	return token, nil
}

func (c *Client) login(ctx context.Context) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, authPath, url.Values{
		"login": {c.config.Login},
		"pass":  {passwordDigest(c.config.Password)},
	}, nil)
	if err != nil {
		return "", err
	}

	body, err := c.send(req, "auth")
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Status < http.StatusInternalServerError {
			return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return "", err
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", fmt.Errorf("%w: empty session token", ErrInvalidResponse)
	}
	c.logger.Debug("Logged in to reporting API", zap.String("login", c.config.Login))
	return token, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, payload []byte) (*http.Request, error) {
	u := c.config.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("reporting: failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// send paces, executes and reads one request
func (c *Client) send(req *http.Request, op string) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("reporting: failed to read %s response: %w", op, err)
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("%w: %s", ErrResponseTooLarge, op)
	}

	if resp.StatusCode >= 400 {
		return nil, &StatusError{Op: op, Status: resp.StatusCode, Body: truncate(string(body), 512)}
	}
	return body, nil
}

func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func passwordDigest(password string) string {
	sum := sha1.Sum([]byte(password)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
