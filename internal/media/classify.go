package media

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"

	"github.com/feastbook/feastbook-backend/pkg/enums"
)

var extensionsByCategory = map[enums.MediaCategory][]string{
	enums.MediaCategoryImage: {".jpg", ".jpeg", ".png", ".gif", ".webp"},
	enums.MediaCategoryVideo: {".mp4", ".webm", ".mov"},
}

var contentTypesByCategory = map[enums.MediaCategory][]string{
	enums.MediaCategoryImage: {"image/jpeg", "image/png", "image/gif", "image/webp"},
	enums.MediaCategoryVideo: {"video/mp4", "video/webm", "video/quicktime"},
}

var categoryByExtension = buildCategoryByExtension()

func buildCategoryByExtension() map[string]enums.MediaCategory {
	result := make(map[string]enums.MediaCategory)
	for category, exts := range extensionsByCategory {
		for _, ext := range exts {
			result[ext] = category
		}
	}
	return result
}

// classifyUpload decides the category of one upload against the context's
// accepted category set. Acceptance requires all of: a known extension mapping
// to an accepted category, a declared content type (when present) consistent
// with that category, and magic bytes (when recognizable) that agree as well.
func classifyUpload(up Upload, accepted []enums.MediaCategory) (enums.MediaCategory, error) {
	if len(up.Data) == 0 {
		return "", fmt.Errorf("file is empty")
	}

	ext := strings.ToLower(filepath.Ext(up.Filename))
	if ext == "" {
		return "", fmt.Errorf("file %q has no extension", up.Filename)
	}

	category, ok := categoryByExtension[ext]
	if !ok {
		return "", fmt.Errorf("extension %q is not supported", ext)
	}
	if !categoryAccepted(category, accepted) {
		return "", fmt.Errorf("%s files are not accepted here", category)
	}

	if declared := strings.TrimSpace(up.ContentType); declared != "" {
		mediaType, _, err := mime.ParseMediaType(declared)
		if err != nil {
			return "", fmt.Errorf("content type %q is malformed", declared)
		}
		if !contentTypeMatches(category, mediaType) {
			return "", fmt.Errorf("content type %q does not match a %s file", mediaType, category)
		}
	}

	if err := sniffAgainstCategory(up.Data, category); err != nil {
		return "", err
	}

	return category, nil
}

func categoryAccepted(category enums.MediaCategory, accepted []enums.MediaCategory) bool {
	for _, candidate := range accepted {
		if candidate == category {
			return true
		}
	}
	return false
}

func contentTypeMatches(category enums.MediaCategory, mediaType string) bool {
	for _, candidate := range contentTypesByCategory[category] {
		if strings.EqualFold(candidate, mediaType) {
			return true
		}
	}
	return false
}

// sniffAgainstCategory checks the magic bytes. Unknown signatures pass: some
// valid containers are not in the sniffer's table and the extension plus
// declared type already gate them.
func sniffAgainstCategory(data []byte, category enums.MediaCategory) error {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return nil
	}
	switch kind.MIME.Type {
	case "image":
		if category != enums.MediaCategoryImage {
			return fmt.Errorf("file content is an image, not a %s", category)
		}
	case "video":
		if category != enums.MediaCategoryVideo {
			return fmt.Errorf("file content is a video, not a %s", category)
		}
	default:
		return fmt.Errorf("file content (%s) is not an accepted media type", kind.MIME.Value)
	}
	return nil
}

// allowedExtensions returns the union of extensions for the given categories.
func allowedExtensions(categories []enums.MediaCategory) map[string]struct{} {
	result := make(map[string]struct{})
	for _, category := range categories {
		for _, ext := range extensionsByCategory[category] {
			result[ext] = struct{}{}
		}
	}
	return result
}

// contentTypeForExtension resolves the serving content type for a stored file.
func contentTypeForExtension(ext string) string {
	if byStdlib := mime.TypeByExtension(ext); byStdlib != "" {
		return byStdlib
	}
	return "application/octet-stream"
}
