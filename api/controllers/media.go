package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/feastbook/feastbook-backend/api/responses"
	"github.com/feastbook/feastbook-backend/internal/media"
	"github.com/feastbook/feastbook-backend/pkg/enums"
	pkgerrors "github.com/feastbook/feastbook-backend/pkg/errors"
	"github.com/feastbook/feastbook-backend/pkg/logger"
)

// ServeMedia streams a stored file. ServeContent handles range requests,
// which matters for video playback.
func ServeMedia(reader *media.Reader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media reader unavailable"))
			return
		}

		uploadContext, err := enums.ParseUploadContext(strings.TrimSpace(chi.URLParam(r, "context")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid media context"))
			return
		}

		filename := chi.URLParam(r, "filename")
		file, contentType, err := reader.Open(r.Context(), uploadContext, filename)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer file.Close()

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		http.ServeContent(w, r, filename, time.Time{}, file)
	}
}
