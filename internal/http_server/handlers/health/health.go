package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "session_service/internal/lib/api/response"
	sl "session_service/internal/lib/logger/sl"

	"github.com/go-chi/render"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// New reports 503 when any dependency fails to answer a ping.
func New(log *slog.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				log.Warn("health check failed", slog.String("dependency", name), sl.Err(err))

				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, resp.Error(name+" unavailable"))

				return
			}
		}

		render.JSON(w, r, resp.OK())
	}
}
