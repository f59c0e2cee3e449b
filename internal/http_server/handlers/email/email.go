package email

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "session_service/internal/lib/api/response"
	sl "session_service/internal/lib/logger/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type IssueRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type IssueResponse struct {
	resp.Response
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

type CheckRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

type CheckResponse struct {
	resp.Response
	IsValid bool `json:"is_valid"`
}

type CodeIssuer interface {
	IssueEmailCode(ctx context.Context, email string) (time.Time, error)
}

type CodeChecker interface {
	CheckEmailCode(ctx context.Context, email, code string) (bool, error)
}

// NewIssue godoc
// @Summary      Send an email verification code
// @Description  Mails a random code to the address and returns its expiry. The code
// @Description  itself is never returned. A new request replaces the previous code.
// @Tags         email
// @Accept       json
// @Produce      json
// @Param        body  body  object{email=string}  true  "Recipient"
// @Success      200  {object}  object{status=string,expiration_date=string}
// @Failure      400  {object}  object{status=string,error=string}
// @Router       /auth/email [post]
func NewIssue(
	log *slog.Logger,
	validate *validator.Validate,
	authService CodeIssuer,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.email.NewIssue"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req IssueRequest
		if !decode(w, r, log, validate, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		expiresAt, err := authService.IssueEmailCode(ctx, req.Email)
		if err != nil {
			log.Error("failed to issue email code", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Failed to send code"))

			return
		}

		render.JSON(w, r, IssueResponse{
			Response:       resp.OK(),
			ExpirationDate: &expiresAt,
		})
	}
}

// NewCheck godoc
// @Summary      Check an email verification code
// @Description  Compares the code with the latest one sent to the address. Checking
// @Description  does not consume the code.
// @Tags         email
// @Accept       json
// @Produce      json
// @Param        body  body  object{email=string,code=string}  true  "Code"
// @Success      200  {object}  object{status=string,is_valid=bool}
// @Router       /auth/email/check [post]
func NewCheck(
	log *slog.Logger,
	validate *validator.Validate,
	authService CodeChecker,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.email.NewCheck"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req CheckRequest
		if !decode(w, r, log, validate, &req) {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		valid, err := authService.CheckEmailCode(ctx, req.Email, req.Code)
		if err != nil {
			log.Error("failed to check email code", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, CheckResponse{
			Response: resp.OK(),
			IsValid:  valid,
		})
	}
}

func decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, validate *validator.Validate, req any) bool {
	if err := render.DecodeJSON(r.Body, req); err != nil {
		log.Error("Failed to decode request body", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Error("Failed to decode request"))

		return false
	}

	if err := validate.Struct(req); err != nil {
		var validateErr validator.ValidationErrors
		errors.As(err, &validateErr)

		log.Info("Invalid request", sl.Err(err))

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.ValidationError(validateErr))

		return false
	}

	return true
}
