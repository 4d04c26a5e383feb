package controllers

import (
	"net/http"
	"strings"

	"github.com/feastbook/feastbook-backend/api/responses"
	"github.com/feastbook/feastbook-backend/api/validators"
	recipesvc "github.com/feastbook/feastbook-backend/internal/recipes"
	"github.com/feastbook/feastbook-backend/pkg/config"
	pkgerrors "github.com/feastbook/feastbook-backend/pkg/errors"
	"github.com/feastbook/feastbook-backend/pkg/logger"
)

type createRecipeRequest struct {
	Title       string  `json:"title" validate:"required,max=300"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=10000"`
}

type slotResponse struct {
	Filename  string `json:"filename"`
	Replaced  bool   `json:"replaced"`
	Unchanged bool   `json:"unchanged"`
}

// CreateRecipe accepts a multipart form with "title" and "description"
// fields plus an ordered batch of step files.
func CreateRecipe(svc recipesvc.Service, cfg config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recipe service unavailable"))
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

		payload := createRecipeRequest{Title: strings.TrimSpace(r.FormValue("title"))}
		if raw := strings.TrimSpace(r.FormValue("description")); raw != "" {
			payload.Description = &raw
		}
		if err := validators.ValidateStruct(payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recipe, result, err := svc.Create(r.Context(), userID, payload.Title, payload.Description, uploads)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"recipe":   recipe,
			"attached": result.Attached,
			"skipped":  result.Skipped,
		})
	}
}

func GetRecipe(svc recipesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recipe service unavailable"))
			return
		}

		id, err := pathUUID(r, "recipeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"recipe":    dto.Recipe,
			"steps":     mediaItemViews(dto.Steps),
			"thumbnail": dto.Thumbnail,
		})
	}
}

func AttachRecipeSteps(svc recipesvc.Service, cfg config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recipe service unavailable"))
			return
		}

		id, err := pathUUID(r, "recipeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		uploads, err := validators.ParseUploads(w, r, cfg.MaxUploadBytes()*int64(cfg.MaxBatchFiles))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AttachSteps(r.Context(), id, uploads)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, attachResponse{Attached: result.Attached, Skipped: result.Skipped})
	}
}

func ReplaceRecipeSteps(svc recipesvc.Service, cfg config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recipe service unavailable"))
			return
		}

		id, err := pathUUID(r, "recipeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		uploads, err := validators.ParseUploads(w, r, cfg.MaxUploadBytes()*int64(cfg.MaxBatchFiles))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ReplaceSteps(r.Context(), id, uploads)
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

func RemoveRecipeSteps(svc recipesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recipe service unavailable"))
			return
		}

		id, err := pathUUID(r, "recipeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := categoryFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		removed, err := svc.RemoveSteps(r.Context(), id, category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, removeResponse{Removed: removed})
	}
}

func SetRecipeThumbnail(svc recipesvc.Service, cfg config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recipe service unavailable"))
			return
		}

		id, err := pathUUID(r, "recipeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		upload, err := validators.ParseSingleUpload(w, r, cfg.MaxUploadBytes())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SetThumbnail(r.Context(), id, upload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, slotResponse{
			Filename:  result.Filename,
			Replaced:  result.Previous != "",
			Unchanged: result.Unchanged,
		})
	}
}

func ClearRecipeThumbnail(svc recipesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recipe service unavailable"))
			return
		}

		id, err := pathUUID(r, "recipeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cleared, err := svc.ClearThumbnail(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"cleared": cleared})
	}
}
