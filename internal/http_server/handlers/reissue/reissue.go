package reissue

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"session_service/internal/auth"
	"session_service/internal/lib/api"
	resp "session_service/internal/lib/api/response"
	sl "session_service/internal/lib/logger/sl"
	"session_service/internal/middleware/clientinfo"
	"session_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type Reissuer interface {
	Reissue(ctx context.Context, clientType models.ClientType, refreshToken string) (models.TokenPair, error)
}

// New godoc
// @Summary      Reissue tokens
// @Description  Exchanges the refresh token from X-REFRESH-TOKEN for a new pair.
// @Description  The presented token must be the latest one issued for this client type;
// @Description  it is invalid after this call.
// @Tags         auth
// @Produce      json
// @Param        X-REFRESH-TOKEN  header  string  true  "Refresh token"
// @Success      200  {object}  object{status=string,access_token=string,refresh_token=string}
// @Failure      401  {object}  object{status=string,error=string}
// @Router       /auth/reissue [post]
func New(log *slog.Logger, authService Reissuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reissue.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		client := clientinfo.FromContext(r)

		pair, err := authService.Reissue(ctx, client.Type, r.Header.Get(api.HeaderRefreshToken))
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Unauthorized"))

				return
			}

			log.Error("failed to reissue tokens", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response:     resp.OK(),
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		})
	}
}
