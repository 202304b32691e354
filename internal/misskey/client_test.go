package misskey

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIURL:           srv.URL,
		Token:            "admin-token",
		InviteExpiryDays: 7,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateInviteObjectResponse(t *testing.T) {
	var got createRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/invite/create", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))

		_, _ = w.Write([]byte(`{"code":"Gb3x","expiresAt":"2025-06-22T12:00:00Z"}`))
	})

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	code, err := c.CreateInvite(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "Gb3x", code.Code)
	require.NotNil(t, code.ExpiresAt)

	assert.Equal(t, "admin-token", got.Token)
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, "2025-06-22T12:00:00Z", got.ExpiresAt)
}

func TestCreateInvitePermanent(t *testing.T) {
	var got createRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"code":"Perm"}`))
	})

	code, err := c.CreateInvite(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "Perm", code.Code)
	assert.Nil(t, code.ExpiresAt)
	assert.Empty(t, got.ExpiresAt, "permanent codes carry no expiry")
}

func TestCreateInviteListResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"code":"First"},{"code":"Second"}]`))
	})

	code, err := c.CreateInvite(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "First", code.Code)
}

func TestCreateInviteBadResponses(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "empty list", status: http.StatusOK, body: `[]`},
		{name: "missing code", status: http.StatusOK, body: `{"expiresAt":"2025-06-22T12:00:00Z"}`},
		{name: "not json", status: http.StatusOK, body: `<html>`},
		{name: "api error", status: http.StatusForbidden, body: `{"error":{"message":"no permission"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := c.CreateInvite(context.Background(), true)
			require.Error(t, err)
		})
	}
}

func TestURLDerivation(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	c := NewClient(Config{APIURL: "https://social.example"}, log)
	assert.Equal(t, "https://social.example/api", c.apiURL)
	assert.Equal(t, "https://social.example", c.InstanceURL())
	assert.Equal(t, "https://social.example/?invitation=Gb3x", c.InviteURL("Gb3x"))

	// A configured URL may already point at the API root.
	c = NewClient(Config{APIURL: "https://social.example/api/"}, log)
	assert.Equal(t, "https://social.example/api", c.apiURL)
	assert.Equal(t, "https://social.example", c.InstanceURL())
}
