package signin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"session_service/internal/auth"
	resp "session_service/internal/lib/api/response"
	sl "session_service/internal/lib/logger/sl"
	"session_service/internal/middleware/clientinfo"
	"session_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	LoginID  string `json:"cid" validate:"required"`
	Password string `json:"password" validate:"required"`
	FcmToken string `json:"fcmToken"`
}

type Response struct {
	resp.Response
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type SignInner interface {
	SignIn(ctx context.Context, client models.ClientInfo, loginID, password, fcmToken string) (models.TokenPair, error)
}

// New godoc
// @Summary      Sign in
// @Description  Verifies cid/password, registers the device fcm token with the push
// @Description  service, evicts other devices of the same client type and returns a
// @Description  fresh access/refresh pair. Client type comes from X-CLIENT-TYPE or the User-Agent.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  object{cid=string,password=string,fcmToken=string}  true  "Credentials"
// @Success      200  {object}  object{status=string,access_token=string,refresh_token=string}
// @Failure      400  {object}  object{status=string,error=string}
// @Failure      401  {object}  object{status=string,error=string}
// @Failure      502  {object}  object{status=string,error=string}
// @Router       /auth/signin [post]
func New(
	log *slog.Logger,
	validate *validator.Validate,
	authService SignInner,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.signin.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			errors.As(err, &validateErr)

			log.Info("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		client := clientinfo.FromContext(r)

		pair, err := authService.SignIn(ctx, client, req.LoginID, req.Password, req.FcmToken)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidCredentials):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Invalid credentials"))
			case errors.Is(err, auth.ErrUpstreamCoordination):
				render.Status(r, http.StatusBadGateway)
				render.JSON(w, r, resp.Error("Device coordination failed"))
			default:
				log.Error("failed to sign in", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		render.JSON(w, r, Response{
			Response:     resp.OK(),
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		})
	}
}
