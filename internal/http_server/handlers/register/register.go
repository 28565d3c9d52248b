package register

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"notes_service/internal/auth"
	resp "notes_service/internal/lib/api/response"
	sl "notes_service/internal/lib/logger"
	"notes_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,email"`
	Pass  string `json:"password" validate:"required,password"`
}

type Response struct {
	resp.Response
	UserID string `json:"user_id"`
}

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	authService *auth.Auth,
	msgSender Publisher,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.register.New"

		log = log.With(
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

		log.Info("Request body decoded")

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		user, err := authService.Register(ctx, req.Email, req.Pass)
		if err != nil {
			if errors.Is(err, auth.ErrUserExists) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("user already exists"))

				return
			}

			log.Error("failed to register user", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("User registered", slog.String("id", user.ID.String()))

		// Письмо уходит через внешний mail sender, ошибка отправки
		// не отменяет регистрацию.
		if msgSender != nil {
			msg := models.Message{
				Email:   user.Email,
				Purpose: "welcome",
			}

			if err := msgSender.SendMessage(ctx, msg); err != nil {
				log.Error("Failed to send welcome message", sl.Err(err))
			}
		}

		ResponseOK(w, r, user.ID.String())
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, userID string) {
	render.JSON(w, r, Response{
		Response: resp.OK(),
		UserID:   userID,
	})
}
