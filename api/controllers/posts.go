package controllers

import (
	"net/http"
	"strings"

	"github.com/feastbook/feastbook-backend/api/responses"
	"github.com/feastbook/feastbook-backend/api/validators"
	"github.com/feastbook/feastbook-backend/internal/media"
	postsvc "github.com/feastbook/feastbook-backend/internal/posts"
	"github.com/feastbook/feastbook-backend/pkg/config"
	pkgerrors "github.com/feastbook/feastbook-backend/pkg/errors"
	"github.com/feastbook/feastbook-backend/pkg/logger"
	"github.com/feastbook/feastbook-backend/pkg/db/models"
)

type createPostRequest struct {
	Body string `json:"body" validate:"required,max=10000"`
}

type postResponse struct {
	Post  models.Post     `json:"post"`
	Media []mediaItemView `json:"media"`
}

type attachResponse struct {
	Attached int `json:"attached"`
	Skipped  int `json:"skipped"`
}

type replaceResponse struct {
	Attached int `json:"attached"`
	Skipped  int `json:"skipped"`
	Removed  int `json:"removed"`
}

type removeResponse struct {
	Removed int `json:"removed"`
}

type mediaItemView struct {
	Filename       string `json:"filename"`
	Category       string `json:"category"`
	SequenceNumber int    `json:"sequence_number,omitempty"`
}

func mediaItemViews(items []media.Item) []mediaItemView {
	views := make([]mediaItemView, 0, len(items))
	for _, item := range items {
		views = append(views, mediaItemView{
			Filename:       item.Filename,
			Category:       item.Category.String(),
			SequenceNumber: item.SequenceNumber,
		})
	}
	return views
}

// CreatePost accepts a multipart form with a "body" field and an optional
// batch of files.
func CreatePost(svc postsvc.Service, cfg config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "post service unavailable"))
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

		payload := createPostRequest{Body: strings.TrimSpace(r.FormValue("body"))}
		if err := validators.ValidateStruct(payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		post, result, err := svc.Create(r.Context(), userID, payload.Body, uploads)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"post":     post,
			"attached": result.Attached,
			"skipped":  result.Skipped,
		})
	}
}

func GetPost(svc postsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "post service unavailable"))
			return
		}

		id, err := pathUUID(r, "postID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		post, items, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, postResponse{Post: post, Media: mediaItemViews(items)})
	}
}

func AttachPostMedia(svc postsvc.Service, cfg config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "post service unavailable"))
			return
		}

		id, err := pathUUID(r, "postID")
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

func ReplacePostMedia(svc postsvc.Service, cfg config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "post service unavailable"))
			return
		}

		id, err := pathUUID(r, "postID")
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

func RemovePostMedia(svc postsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "post service unavailable"))
			return
		}

		id, err := pathUUID(r, "postID")
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
