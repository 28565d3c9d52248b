package notes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "notes_service/internal/lib/api/response"
	sl "notes_service/internal/lib/logger"
	"notes_service/internal/middleware/identity"
	"notes_service/internal/models"
	"notes_service/internal/storage"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Request struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content"`
}

type NoteResponse struct {
	resp.Response
	Note models.Note `json:"note"`
}

type ListResponse struct {
	resp.Response
	Notes []models.Note `json:"notes"`
}

// NoteStorage описывает операции над записками владельца.
// Все операции ограничены owner_id, чужие записки не видны.
type NoteStorage interface {
	SaveNote(ctx context.Context, ownerID uuid.UUID, title, content string) (models.Note, error)
	NotesByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Note, error)
	Note(ctx context.Context, id, ownerID uuid.UUID) (models.Note, error)
	UpdateNote(ctx context.Context, id, ownerID uuid.UUID, title, content string) (models.Note, error)
	DeleteNote(ctx context.Context, id, ownerID uuid.UUID) error
}

func NewCreate(
	log *slog.Logger,
	validate *validator.Validate,
	noteStorage NoteStorage,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.notes.NewCreate"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ownerID, ok := identity.UserID(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("authentication required"))

			return
		}

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		note, err := noteStorage.SaveNote(ctx, ownerID, req.Title, req.Content)
		if err != nil {
			log.Error("failed to save note", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("note created", slog.String("id", note.ID.String()))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, NoteResponse{Response: resp.OK(), Note: note})
	}
}

func NewList(
	log *slog.Logger,
	noteStorage NoteStorage,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.notes.NewList"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ownerID, ok := identity.UserID(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("authentication required"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		notes, err := noteStorage.NotesByOwner(ctx, ownerID)
		if err != nil {
			log.Error("failed to list notes", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, ListResponse{Response: resp.OK(), Notes: notes})
	}
}

func NewGet(
	log *slog.Logger,
	noteStorage NoteStorage,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.notes.NewGet"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ownerID, ok := identity.UserID(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("authentication required"))

			return
		}

		noteID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("invalid note id"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		note, err := noteStorage.Note(ctx, noteID, ownerID)
		if err != nil {
			if errors.Is(err, storage.ErrNoteNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("note not found"))

				return
			}

			log.Error("failed to get note", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, NoteResponse{Response: resp.OK(), Note: note})
	}
}

func NewUpdate(
	log *slog.Logger,
	validate *validator.Validate,
	noteStorage NoteStorage,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.notes.NewUpdate"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ownerID, ok := identity.UserID(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("authentication required"))

			return
		}

		noteID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("invalid note id"))

			return
		}

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		note, err := noteStorage.UpdateNote(ctx, noteID, ownerID, req.Title, req.Content)
		if err != nil {
			if errors.Is(err, storage.ErrNoteNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("note not found"))

				return
			}

			log.Error("failed to update note", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, NoteResponse{Response: resp.OK(), Note: note})
	}
}

func NewDelete(
	log *slog.Logger,
	noteStorage NoteStorage,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.notes.NewDelete"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ownerID, ok := identity.UserID(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("authentication required"))

			return
		}

		noteID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("invalid note id"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := noteStorage.DeleteNote(ctx, noteID, ownerID); err != nil {
			if errors.Is(err, storage.ErrNoteNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("note not found"))

				return
			}

			log.Error("failed to delete note", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("note deleted", slog.String("id", noteID.String()))

		render.JSON(w, r, resp.OK())
	}
}
