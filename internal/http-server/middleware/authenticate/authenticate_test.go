package authenticate

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type tokenFunc func(token string) error

func (f tokenFunc) AuthenticateByToken(token string) error { return f(token) }

func request(t *testing.T, auth Authenticate, header string) *httptest.ResponseRecorder {
	t.Helper()
	var reached bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusNoContent)
	})
	handler := New(slog.New(slog.NewTextHandler(io.Discard, nil)), auth)(next)

	req := httptest.NewRequest(http.MethodGet, "/v1/stats/7", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code == http.StatusNoContent {
		assert.True(t, reached)
	}
	return rec
}

func TestValidToken(t *testing.T) {
	auth := tokenFunc(func(token string) error {
		assert.Equal(t, "secret", token)
		return nil
	})
	rec := request(t, auth, "Bearer secret")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRejections(t *testing.T) {
	deny := tokenFunc(func(string) error { return errors.New("invalid token") })
	allow := tokenFunc(func(string) error { return nil })

	cases := []struct {
		name   string
		auth   Authenticate
		header string
	}{
		{name: "no header", auth: allow, header: ""},
		{name: "not bearer", auth: allow, header: "Basic dXNlcjpwYXNz"},
		{name: "wrong token", auth: deny, header: "Bearer wrong"},
		{name: "no authenticator", auth: nil, header: "Bearer secret"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := request(t, tc.auth, tc.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
