package validators

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/feastbook/feastbook-backend/internal/media"
	pkgerrors "github.com/feastbook/feastbook-backend/pkg/errors"
)

// UploadsField is the multipart form field carrying batch uploads; field
// order in the form becomes batch order.
const UploadsField = "files"

// UploadField is the multipart form field for single-file slot uploads.
const UploadField = "file"

const multipartMemoryLimit = 8 << 20

// ParseUploads extracts the upload batch from a multipart request, preserving
// the order the files appear in the form. maxBytes bounds the whole request.
func ParseUploads(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]media.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		return nil, multipartError(err)
	}
	if r.MultipartForm == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "multipart form data required")
	}

	headers := r.MultipartForm.File[UploadsField]
	uploads := make([]media.Upload, 0, len(headers))
	for _, header := range headers {
		upload, err := readUpload(header)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, upload)
	}
	return uploads, nil
}

// ParseSingleUpload extracts exactly one file from a multipart request.
func ParseSingleUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (media.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		return media.Upload{}, multipartError(err)
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File[UploadField]) == 0 {
		return media.Upload{}, pkgerrors.New(pkgerrors.CodeValidation, "a file upload is required")
	}
	if len(r.MultipartForm.File[UploadField]) > 1 {
		return media.Upload{}, pkgerrors.New(pkgerrors.CodeValidation, "exactly one file is expected")
	}

	return readUpload(r.MultipartForm.File[UploadField][0])
}

func readUpload(header *multipart.FileHeader) (media.Upload, error) {
	file, err := header.Open()
	if err != nil {
		return media.Upload{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "open uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return media.Upload{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read uploaded file")
	}
	return media.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func multipartError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request exceeds the upload size limit")
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart request")
}
