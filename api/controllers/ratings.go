package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/feastbook/feastbook-backend/api/responses"
	"github.com/feastbook/feastbook-backend/api/validators"
	ratingsvc "github.com/feastbook/feastbook-backend/internal/ratings"
	"github.com/feastbook/feastbook-backend/pkg/config"
	pkgerrors "github.com/feastbook/feastbook-backend/pkg/errors"
	"github.com/feastbook/feastbook-backend/pkg/logger"
)

type createRatingRequest struct {
	Score   int     `json:"score" validate:"required,min=1,max=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=5000"`
}

// CreateRating accepts a multipart form with "recipe_id", "score" and an
// optional "comment" field plus a batch of files.
func CreateRating(svc ratingsvc.Service, cfg config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rating service unavailable"))
			return
		}

		userID, err := authenticatedUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		uploads, err := validators.ParseUploads(w, r, cfg.MaxUploadBytes()*int64(cfg.MaxBatchFiles))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recipeID, err := uuid.Parse(strings.TrimSpace(r.FormValue("recipe_id")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid recipe_id"))
			return
		}

		score, err := strconv.Atoi(strings.TrimSpace(r.FormValue("score")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid score"))
			return
		}

		payload := createRatingRequest{Score: score}
		if raw := strings.TrimSpace(r.FormValue("comment")); raw != "" {
			payload.Comment = &raw
		}
		if err := validators.ValidateStruct(payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rating, result, err := svc.Create(r.Context(), recipeID, userID, payload.Score, payload.Comment, uploads)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"rating":   rating,
			"attached": result.Attached,
			"skipped":  result.Skipped,
		})
	}
}

func GetRating(svc ratingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rating service unavailable"))
			return
		}

		id, err := pathUUID(r, "ratingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rating, items, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"rating": rating,
			"media":  mediaItemViews(items),
		})
	}
}

func AttachRatingMedia(svc ratingsvc.Service, cfg config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rating service unavailable"))
			return
		}

		id, err := pathUUID(r, "ratingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		uploads, err := validators.ParseUploads(w, r, cfg.MaxUploadBytes()*int64(cfg.MaxBatchFiles))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AttachMedia(r.Context(), id, uploads)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, attachResponse{Attached: result.Attached, Skipped: result.Skipped})
	}
}

func ReplaceRatingMedia(svc ratingsvc.Service, cfg config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rating service unavailable"))
			return
		}

		id, err := pathUUID(r, "ratingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		uploads, err := validators.ParseUploads(w, r, cfg.MaxUploadBytes()*int64(cfg.MaxBatchFiles))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ReplaceMedia(r.Context(), id, uploads)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, replaceResponse{
			Attached: result.Attached,
			Skipped:  result.Skipped,
			Removed:  len(result.Removed),
		})
	}
}

func RemoveRatingMedia(svc ratingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rating service unavailable"))
			return
		}

		id, err := pathUUID(r, "ratingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := categoryFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		removed, err := svc.RemoveMedia(r.Context(), id, category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, removeResponse{Removed: removed})
	}
}
