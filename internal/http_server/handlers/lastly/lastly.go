package lastly

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
	IsValid bool `json:"is_valid"`
}

type LastDeviceChecker interface {
	CheckLastDevice(ctx context.Context, clientType models.ClientType, accessToken string) (bool, error)
}

// New godoc
// @Summary      Check whether this device signed in last
// @Description  Compares the fcm token inside X-ACCESS-TOKEN with the one bound to the
// @Description  active session of the caller's client type.
// @Tags         auth
// @Produce      json
// @Param        X-ACCESS-TOKEN  header  string  true  "Access token"
// @Success      200  {object}  object{status=string,is_valid=bool}
// @Failure      401  {object}  object{status=string,error=string}
// @Router       /auth/lastly [get]
func New(log *slog.Logger, authService LastDeviceChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.lastly.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		client := clientinfo.FromContext(r)

		valid, err := authService.CheckLastDevice(ctx, client.Type, r.Header.Get(api.HeaderAccessToken))
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Unauthorized"))

				return
			}

			log.Error("failed to check last device", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			IsValid:  valid,
		})
	}
}
