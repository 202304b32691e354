package stats

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invitebot/entity"
	"invitebot/lib/api/response"
)

type statsFunc func(ctx context.Context, days int) ([]entity.DailyStats, error)

func (f statsFunc) Stats(ctx context.Context, days int) ([]entity.DailyStats, error) {
	return f(ctx, days)
}

func serve(t *testing.T, core Core, target string) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	router := chi.NewRouter()
	router.Get("/v1/stats/{days}", Window(slog.New(slog.NewTextHandler(io.Discard, nil)), core))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestWindow(t *testing.T) {
	core := statsFunc(func(_ context.Context, days int) ([]entity.DailyStats, error) {
		assert.Equal(t, 7, days)
		return []entity.DailyStats{{Date: "2025-06-15", Total: 2, User: 2}}, nil
	})

	rec, resp := serve(t, core, "/v1/stats/7")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data)
}

func TestWindowCapsDays(t *testing.T) {
	core := statsFunc(func(_ context.Context, days int) ([]entity.DailyStats, error) {
		assert.Equal(t, maxDays, days, "oversized windows are clamped")
		return nil, nil
	})

	rec, _ := serve(t, core, "/v1/stats/365")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWindowBadParameter(t *testing.T) {
	core := statsFunc(func(_ context.Context, _ int) ([]entity.DailyStats, error) {
		t.Fatal("core must not be called")
		return nil, nil
	})

	for _, target := range []string{"/v1/stats/abc", "/v1/stats/0", "/v1/stats/-3"} {
		rec, resp := serve(t, core, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.False(t, resp.Success, target)
	}
}

func TestWindowStoreError(t *testing.T) {
	core := statsFunc(func(_ context.Context, _ int) ([]entity.DailyStats, error) {
		return nil, errors.New("redis down")
	})

	rec, resp := serve(t, core, "/v1/stats/7")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, resp.Success)
}
