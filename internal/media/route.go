package media

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// newStoredFilename generates the on-disk name for an upload: a fresh random
// token plus the original extension. The token is never derived from the
// content hash or the parent id, so stored names cannot be guessed from
// either.
func newStoredFilename(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return uuid.NewString() + ext
}

// parseStoredFilename splits a stored name back into token and extension and
// validates the token format. Retrieval rejects anything that was not
// generated by newStoredFilename.
func parseStoredFilename(name string) (token string, ext string, err error) {
	if name == "" || name != filepath.Base(name) {
		return "", "", fmt.Errorf("invalid filename %q", name)
	}
	ext = strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "", "", fmt.Errorf("filename %q has no extension", name)
	}
	token = strings.TrimSuffix(name, ext)
	if _, parseErr := uuid.Parse(token); parseErr != nil {
		return "", "", fmt.Errorf("filename token %q is not valid", token)
	}
	return token, ext, nil
}
