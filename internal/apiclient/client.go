package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

var (
	// ErrUnauthenticated means no session exists; log in first.
	ErrUnauthenticated = errors.New("not logged in")
	// ErrSessionExpired means the refresh token was rejected and the
	// stored credentials were cleared.
	ErrSessionExpired = errors.New("session expired, log in again")
)

// APIError carries a non-2xx response the server explained.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d: %s", e.Status, e.Detail)
}

// Client talks to the attendance API. A 401 on an authenticated call
// triggers exactly one token refresh and a retry; concurrent 401s share
// a single refresh.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Creds   CredStore

	refreshMu sync.Mutex
}

// New creates a client with an in-memory credential store.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 15 * time.Second},
		Creds:   &MemStore{},
	}
}

// Login authenticates and stores the returned token pair.
func (c *Client) Login(ctx context.Context, username, password string) (Credentials, error) {
	var creds Credentials
	err := c.call(ctx, http.MethodPost, "/api/login/",
		map[string]string{"username": username, "password": password}, &creds, false)
	if err != nil {
		return Credentials{}, err
	}
	creds.Username = username
	if err := c.Creds.Save(creds); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// Logout revokes the refresh token server-side and clears local state.
// Local credentials are dropped even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	creds, err := c.Creds.Load()
	if err != nil {
		return err
	}
	if creds.Refresh != "" {
		err = c.call(ctx, http.MethodPost, "/api/logout/",
			map[string]string{"refresh": creds.Refresh}, nil, true)
	}
	if cerr := c.Creds.Clear(); cerr != nil {
		return cerr
	}
	return err
}

// ResetPassword changes a user's password. The session stays valid.
func (c *Client) ResetPassword(ctx context.Context, username, newPassword string) error {
	return c.call(ctx, http.MethodPost, "/api/reset-password/",
		map[string]string{"username": username, "new_password": newPassword}, nil, false)
}

// call runs one request. authed requests carry the bearer token and get
// the refresh-and-retry treatment on 401.
func (c *Client) call(ctx context.Context, method, path string, body, out any, authed bool) error {
	var access string
	if authed {
		creds, err := c.Creds.Load()
		if err != nil {
			return err
		}
		if creds.Access == "" {
			return ErrUnauthenticated
		}
		access = creds.Access
	}

	status, data, err := c.roundTrip(ctx, method, path, body, access)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized && authed {
		if access, err = c.refresh(ctx, access); err != nil {
			return err
		}
		if status, data, err = c.roundTrip(ctx, method, path, body, access); err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			_ = c.Creds.Clear()
			return ErrSessionExpired
		}
	}
	if status >= 400 {
		return apiError(status, data)
	}
	if out != nil && len(data) > 0 {
		return json.Unmarshal(data, out)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any, access string) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		rd = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, data, nil
}

// refresh rotates the token pair. usedAccess identifies the token that
// just failed; if the store already holds a different one, another
// goroutine won the race and its result is reused.
func (c *Client) refresh(ctx context.Context, usedAccess string) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	creds, err := c.Creds.Load()
	if err != nil {
		return "", err
	}
	if creds.Access != "" && creds.Access != usedAccess {
		return creds.Access, nil
	}
	if creds.Refresh == "" {
		return "", ErrUnauthenticated
	}

	status, data, err := c.roundTrip(ctx, http.MethodPost, "/api/token/refresh/",
		map[string]string{"refresh": creds.Refresh}, "")
	if err != nil {
		return "", err
	}
	if status >= 400 {
		_ = c.Creds.Clear()
		return "", ErrSessionExpired
	}

	var pair struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	if err := json.Unmarshal(data, &pair); err != nil {
		return "", err
	}
	creds.Access = pair.Access
	// a server that did not rotate leaves the stored refresh token valid
	if pair.Refresh != "" {
		creds.Refresh = pair.Refresh
	}
	if err := c.Creds.Save(creds); err != nil {
		return "", err
	}
	return creds.Access, nil
}

func apiError(status int, data []byte) error {
	var body struct {
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(data, &body)
	if body.Detail == "" {
		body.Detail = http.StatusText(status)
	}
	return &APIError{Status: status, Detail: body.Detail}
}
