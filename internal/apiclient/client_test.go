package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aplus/internal/school"
)

func newClient(srv *httptest.Server) *Client {
	c := New(srv.URL)
	c.HTTP = srv.Client()
	return c
}

func TestLoginStoresCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/login/", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ada@test.test", body["username"])
		json.NewEncoder(w).Encode(map[string]string{
			"access": "a1", "refresh": "r1", "role": "teacher",
		})
	}))
	defer srv.Close()

	c := newClient(srv)
	creds, err := c.Login(context.Background(), "ada@test.test", "pw")
	require.NoError(t, err)
	assert.Equal(t, "a1", creds.Access)
	assert.Equal(t, "teacher", creds.Role)

	stored, err := c.Creds.Load()
	require.NoError(t, err)
	assert.Equal(t, "r1", stored.Refresh)
	assert.Equal(t, "ada@test.test", stored.Username)
}

func TestUnauthenticatedWithoutLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should reach the server")
	}))
	defer srv.Close()

	c := newClient(srv)
	_, err := c.Students(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

// expiringServer accepts only "good" access tokens and rotates "stale"
// refresh tokens into good ones, counting the rotations.
func expiringServer(t *testing.T, refreshes *int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/token/refresh/":
			atomic.AddInt64(refreshes, 1)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["refresh"] != "stale-refresh" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"detail": "invalid or expired refresh token"})
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"access": "good-access", "refresh": "good-refresh"})
		case "/api/students/":
			if r.Header.Get("Authorization") != "Bearer good-access" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"detail": "invalid token"})
				return
			}
			json.NewEncoder(w).Encode([]school.Student{{ID: 1, Name: "Bob"}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
}

func TestRefreshOnceThenRetry(t *testing.T) {
	var refreshes int64
	srv := expiringServer(t, &refreshes)
	defer srv.Close()

	c := newClient(srv)
	require.NoError(t, c.Creds.Save(Credentials{Access: "stale-access", Refresh: "stale-refresh"}))

	students, err := c.Students(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.EqualValues(t, 1, refreshes)

	// the rotated pair was persisted
	creds, err := c.Creds.Load()
	require.NoError(t, err)
	assert.Equal(t, "good-access", creds.Access)
	assert.Equal(t, "good-refresh", creds.Refresh)

	// the next call rides the new token without another refresh
	_, err = c.Students(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, refreshes)
}

func TestRefreshWithoutRotationKeepsRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/token/refresh/":
			// a new access token only, no rotated refresh token
			json.NewEncoder(w).Encode(map[string]string{"access": "good-access"})
		case "/api/students/":
			if r.Header.Get("Authorization") != "Bearer good-access" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"detail": "invalid token"})
				return
			}
			json.NewEncoder(w).Encode([]school.Student{{ID: 1, Name: "Bob"}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := newClient(srv)
	require.NoError(t, c.Creds.Save(Credentials{Access: "stale-access", Refresh: "valid-refresh"}))

	_, err := c.Students(context.Background())
	require.NoError(t, err)

	creds, err := c.Creds.Load()
	require.NoError(t, err)
	assert.Equal(t, "good-access", creds.Access)
	assert.Equal(t, "valid-refresh", creds.Refresh, "stored refresh token must survive a non-rotating refresh")
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	var refreshes int64
	srv := expiringServer(t, &refreshes)
	defer srv.Close()

	c := newClient(srv)
	require.NoError(t, c.Creds.Save(Credentials{Access: "stale-access", Refresh: "stale-refresh"}))

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Students(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, refreshes, "concurrent 401s must share a single rotation")
}

func TestSessionExpiredClearsCredentials(t *testing.T) {
	var refreshes int64
	srv := expiringServer(t, &refreshes)
	defer srv.Close()

	c := newClient(srv)
	require.NoError(t, c.Creds.Save(Credentials{Access: "stale-access", Refresh: "revoked-refresh"}))

	_, err := c.Students(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)

	creds, err := c.Creds.Load()
	require.NoError(t, err)
	assert.Empty(t, creds.Access, "credentials must be cleared after a failed refresh")
}

func TestAPIErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "not found"})
	}))
	defer srv.Close()

	c := newClient(srv)
	require.NoError(t, c.Creds.Save(Credentials{Access: "a", Refresh: "r"}))

	_, err := c.Course(context.Background(), 42)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "not found", apiErr.Detail)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := t.TempDir() + "/session.json"
	fs := &FileStore{Path: path}

	// missing file reads as empty credentials
	creds, err := fs.Load()
	require.NoError(t, err)
	assert.Empty(t, creds.Access)

	require.NoError(t, fs.Save(Credentials{Access: "a", Refresh: "r", Role: "student"}))
	creds, err = fs.Load()
	require.NoError(t, err)
	assert.Equal(t, "student", creds.Role)

	require.NoError(t, fs.Clear())
	require.NoError(t, fs.Clear()) // idempotent
	creds, err = fs.Load()
	require.NoError(t, err)
	assert.Empty(t, creds.Access)
}
