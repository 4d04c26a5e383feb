package media

import (
	"context"
	"io"
	"io/fs"

	stdErrors "errors"

	"github.com/feastbook/feastbook-backend/pkg/enums"
	pkgerrors "github.com/feastbook/feastbook-backend/pkg/errors"
)

// BlobOpener is the read side of the blob store. localfs.Client satisfies it.
type BlobOpener interface {
	Open(dir, name string) (io.ReadSeekCloser, error)
}

// Reader serves stored media back out. It validates the opaque filename shape
// before touching the filesystem, so probe requests never reach disk.
type Reader struct {
	store    BlobOpener
	contexts Contexts
}

func NewReader(store BlobOpener, contexts Contexts) *Reader {
	return &Reader{store: store, contexts: contexts}
}

// Open returns the file and its content type for a stored filename within an
// upload context. Unknown contexts and malformed names fail validation;
// well-formed names that resolve to nothing are not found.
func (r *Reader) Open(ctx context.Context, name enums.UploadContext, filename string) (io.ReadSeekCloser, string, error) {
	_, ext, err := parseStoredFilename(filename)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid media filename")
	}

	dir, allowed, err := r.contexts.retrievalTarget(name, ext)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid media request")
	}
	if _, ok := allowed[ext]; !ok {
		return nil, "", pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
	}

	file, err := r.store.Open(dir, filename)
	if err != nil {
		if stdErrors.Is(err, fs.ErrNotExist) {
			return nil, "", pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		}
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeStorage, err, "open media file")
	}
	return file, contentTypeForExtension(ext), nil
}
