package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/communityapp/internal/client/models"
	"github.com/dmitrijs2005/communityapp/internal/common"
	"github.com/dmitrijs2005/communityapp/internal/logging"
	"github.com/dmitrijs2005/communityapp/internal/metrics"
	"github.com/google/uuid"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultRetryTimeout = 15 * time.Second
)

var _ Client = (*HTTPClient)(nil)

// errTimeout marks a single attempt that ran out of time.
var errTimeout = errors.New("request timed out")

type HTTPConfig struct {
	BaseURL      string
	Timeout      time.Duration
	RetryTimeout time.Duration
	// HTTPClient defaults to a fresh *http.Client without its own timeout;
	// per-attempt deadlines come from the request context.
	HTTPClient *http.Client
}

type HTTPClient struct {
	baseURL      string
	timeout      time.Duration
	retryTimeout time.Duration
	http         *http.Client
	tokens       TokenSource
	log          logging.Logger
	metrics      *metrics.Metrics
}

func NewHTTPClient(cfg HTTPConfig, tokens TokenSource, log logging.Logger, m *metrics.Metrics) (*HTTPClient, error) {
	if tokens == nil {
		return nil, errors.New("token source is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryTimeout <= 0 {
		cfg.RetryTimeout = DefaultRetryTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if log == nil {
		log = logging.Discard()
	}

	return &HTTPClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		timeout:      cfg.Timeout,
		retryTimeout: cfg.RetryTimeout,
		http:         cfg.HTTPClient,
		tokens:       tokens,
		log:          log,
		metrics:      m,
	}, nil
}

func (c *HTTPClient) Signup(ctx context.Context, data models.SignupData) (*models.SignupResponse, error) {
	var resp models.SignupResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signup", "/auth/signup", data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Me(ctx context.Context) (*models.User, error) {
	var resp models.MeResponse
	if err := c.do(ctx, http.MethodGet, "/auth/me", "/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.MessageResponse, error) {
	var resp models.MessageResponse
	if err := c.do(ctx, http.MethodPut, "/auth/profile", "/auth/profile", update, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) ForgotPassword(ctx context.Context, email string) (*models.ForgotPasswordResponse, error) {
	var resp models.ForgotPasswordResponse
	body := map[string]string{"email": email}
	if err := c.do(ctx, http.MethodPost, "/auth/forgot-password", "/auth/forgot-password", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) ResetPassword(ctx context.Context, token, password string) (*models.ResetPasswordResponse, error) {
	var resp models.ResetPasswordResponse
	body := map[string]string{"password": password}
	path := "/auth/reset-password/" + url.PathEscape(token)
	if err := c.do(ctx, http.MethodPost, path, "/auth/reset-password/:token", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do sends one request and decodes a 2xx body into out. endpoint is the
// low-cardinality route used as the metrics label.
func (c *HTTPClient) do(ctx context.Context, method, path, endpoint string, in, out any) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", endpoint, err)
		}
		payload = b
	}

	err := c.attempt(ctx, method, path, endpoint, payload, out, c.timeout)
	if errors.Is(err, errTimeout) && method == http.MethodGet {
		c.log.Warn(ctx, "request timed out, retrying", "method", method, "endpoint", endpoint, "timeout", c.retryTimeout)
		err = c.attempt(ctx, method, path, endpoint, payload, out, c.retryTimeout)
	}
	if errors.Is(err, errTimeout) {
		return fmt.Errorf("%w: %s %s timed out", ErrUnavailable, method, endpoint)
	}
	return err
}

func (c *HTTPClient) attempt(ctx context.Context, method, path, endpoint string, payload []byte, out any, timeout time.Duration) error {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(actx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(common.RequestIDHeaderName, uuid.NewString())

	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return fmt.Errorf("read bearer token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, endpoint, 0)
		return c.mapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveRequest(method, endpoint, resp.StatusCode)
		return c.mapTransportError(ctx, err)
	}
	c.metrics.ObserveRequest(method, endpoint, resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if err := c.tokens.Invalidate(ctx); err != nil {
			c.log.Warn(ctx, "failed to invalidate token", "error", err)
		}
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, apiErr)
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// mapTransportError turns a failed exchange into errTimeout or ErrUnavailable.
// Cancellation of the caller's own context is passed through unchanged.
func (c *HTTPClient) mapTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return errTimeout
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
