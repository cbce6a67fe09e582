package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/meridianhms/portal-client/credentials"
	apperrors "github.com/meridianhms/portal-client/internal/errors"
	"github.com/meridianhms/portal-client/session"
	"github.com/meridianhms/portal-client/users"
)

// Backend endpoint paths, per the REST contract.
const (
	loginPath  = "/login"
	logoutPath = "/logout"
	userPath   = "/user"
	verifyPath = "/verify-token"
)

const defaultTimeout = 15 * time.Second

// UnauthorizedHandler runs whenever a non-login endpoint answers 401,
// before the failure propagates to the caller. It is the global "a previously
// valid session died mid-use" hook; the login endpoint is exempt because a
// 401 there just means wrong credentials and is handled by the login form.
type UnauthorizedHandler func()

// Client is the single outbound HTTP channel to the portal backend. Every
// request picks up the bearer token from the credential keeper when one is
// stored.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	keeper         *credentials.Keeper
	log            zerolog.Logger
	onUnauthorized UnauthorizedHandler
}

var _ session.Backend = (*Client)(nil)

// Option modifies a Client instance.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient substitutes the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a Client for the given backend base URL.
func New(baseURL string, keeper *credentials.Keeper, options ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[apiclient.New] base URL is required")
	}
	if keeper == nil {
		return nil, errors.New("[apiclient.New] keeper is required")
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		keeper:     keeper,
		log:        zerolog.Nop(),
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

// SetUnauthorizedHandler registers the global 401 hook. It is wired after
// construction because the session service that supplies it needs the client
// first.
func (c *Client) SetUnauthorizedHandler(handler UnauthorizedHandler) {
	c.onUnauthorized = handler
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type loginResponse struct {
	Status    bool       `json:"status"`
	Message   string     `json:"message"`
	Token     string     `json:"token"`
	Data      users.User `json:"data"`
	ExpiresAt string     `json:"expires_at"`
}

// Login exchanges credentials for a bearer token. A non-2xx answer or a
// status:false body both come back as ErrInvalidCredentials carrying the
// server's message when one was supplied.
func (c *Client) Login(ctx context.Context, email, password string, remember bool) (*session.LoginResult, error) {
	resp, err := c.do(ctx, http.MethodPost, loginPath, loginRequest{Email: email, Password: password, Remember: remember})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil && err != io.EOF {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, errors.Wrapf(apperrors.ErrInvalidCredentials, "[Client.Login] status %d", resp.StatusCode)
		}
		return nil, errors.Wrap(err, "[Client.Login] decode response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !decoded.Status {
		message := decoded.Message
		if message == "" {
			message = "login rejected"
		}
		return nil, errors.Wrap(apperrors.ErrInvalidCredentials, message)
	}

	result := &session.LoginResult{
		Token: decoded.Token,
		User:  decoded.Data,
	}
	if decoded.ExpiresAt != "" {
		if expiry, err := time.Parse(time.RFC3339, decoded.ExpiresAt); err == nil {
			result.ExpiresAt = expiry
		} else {
			c.log.Warn().Str("expires_at", decoded.ExpiresAt).Msg("unparseable expires_at, falling back to client-side lifetime")
		}
	}
	return result, nil
}

// Logout asks the server to invalidate the current token.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, logoutPath, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("[Client.Logout] status %d", resp.StatusCode)
	}
	return nil
}

// FetchUser retrieves the authenticated profile from /user.
func (c *Client) FetchUser(ctx context.Context) (*users.User, error) {
	resp, err := c.do(ctx, http.MethodGet, userPath, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, errors.Wrap(apperrors.ErrUnauthorized, "[Client.FetchUser]")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("[Client.FetchUser] status %d", resp.StatusCode)
	}

	var user users.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, errors.Wrap(err, "[Client.FetchUser] decode profile")
	}
	return &user, nil
}

// VerifyToken confirms the token server-side. A 401 maps to
// ErrUnauthorized (hard); every other failure stays a plain error so the
// session layer treats it as transient.
func (c *Client) VerifyToken(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, verifyPath, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return errors.Wrap(apperrors.ErrUnauthorized, "[Client.VerifyToken]")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return errors.Wrapf(apperrors.ErrUnavailable, "[Client.VerifyToken] status %d", resp.StatusCode)
	}
	return nil
}

// do sends one request with the cross-cutting behaviors applied: bearer
// attach, request ID, request logging, and the 401 interception for non-login
// endpoints.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrapf(err, "[Client.do] encode %s body", path)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrapf(err, "[Client.do] build %s request", path)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := c.keeper.GetAuth(credentials.KeyToken); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Str("method", method).Str("path", path).Err(err).Msg("request failed")
		return nil, errors.Wrapf(err, "[Client.do] %s %s", method, path)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("api request")

	if resp.StatusCode == http.StatusUnauthorized && path != loginPath {
		if handler := c.onUnauthorized; handler != nil {
			handler()
		}
	}
	return resp, nil
}
