package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"invitebot/lib/api/response"
	"invitebot/lib/sl"
)

type Core interface {
	Health(ctx context.Context) error
}

// Check reports whether the backing store is reachable.
func Check(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := handler.Health(r.Context()); err != nil {
			log.With(sl.Module("http.handlers.health")).Error("health check", sl.Err(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Storage unreachable"))
			return
		}
		render.JSON(w, r, response.Ok(nil))
	}
}
