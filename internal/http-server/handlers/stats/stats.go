package stats

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"invitebot/entity"
	"invitebot/lib/api/response"
	"invitebot/lib/sl"
)

const maxDays = 30

type Core interface {
	Stats(ctx context.Context, days int) ([]entity.DailyStats, error)
}

// Window serves GET /v1/stats/{days}: daily issuance buckets for the
// trailing window, most recent first, silent days zero-filled.
func Window(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.stats")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		days, err := strconv.Atoi(chi.URLParam(r, "days"))
		if err != nil || days < 1 {
			logger.Debug("invalid days parameter", slog.String("days", chi.URLParam(r, "days")))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid days parameter"))
			return
		}
		if days > maxDays {
			days = maxDays
		}
		logger = logger.With(slog.Int("days", days))

		window, err := handler.Stats(r.Context(), days)
		if err != nil {
			logger.Error("loading stats", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Statistics unavailable"))
			return
		}
		logger.Debug("stats window served")

		render.JSON(w, r, response.Ok(window))
	}
}
