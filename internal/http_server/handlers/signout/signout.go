package signout

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"session_service/internal/lib/api"
	resp "session_service/internal/lib/api/response"
	sl "session_service/internal/lib/logger/sl"
	"session_service/internal/middleware/clientinfo"
	"session_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type SignOuter interface {
	SignOut(ctx context.Context, clientType models.ClientType, refreshToken string) error
}

// New godoc
// @Summary      Sign out
// @Description  Ends the session for the caller's client type. Succeeds when there is
// @Description  no session or the refresh token is expired.
// @Tags         auth
// @Produce      json
// @Param        X-REFRESH-TOKEN  header  string  false  "Refresh token"
// @Success      200  {object}  object{status=string}
// @Failure      500  {object}  object{status=string,error=string}
// @Router       /auth/signout [post]
func New(log *slog.Logger, authService SignOuter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.signout.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		client := clientinfo.FromContext(r)

		if err := authService.SignOut(ctx, client.Type, r.Header.Get(api.HeaderRefreshToken)); err != nil {
			log.Error("failed to sign out", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, resp.OK())
	}
}
