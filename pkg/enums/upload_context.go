package enums

import "fmt"

// UploadContext names the parent-entity slot an upload is destined for. The
// context determines which categories are accepted and which storage
// directories receive the bytes.
type UploadContext string

const (
	UploadContextPost            UploadContext = "post"
	UploadContextRecipeStep      UploadContext = "recipe_step"
	UploadContextRecipeThumbnail UploadContext = "recipe_thumbnail"
	UploadContextRating          UploadContext = "rating"
	UploadContextAvatar          UploadContext = "avatar"
	UploadContextBackground      UploadContext = "background"
)

var validUploadContexts = []UploadContext{
	UploadContextPost,
	UploadContextRecipeStep,
	UploadContextRecipeThumbnail,
	UploadContextRating,
	UploadContextAvatar,
	UploadContextBackground,
}

// String returns the literal string for the context.
func (u UploadContext) String() string {
	return string(u)
}

// IsValid reports whether the context is known.
func (u UploadContext) IsValid() bool {
	for _, candidate := range validUploadContexts {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUploadContext converts raw input into an UploadContext.
func ParseUploadContext(value string) (UploadContext, error) {
	for _, candidate := range validUploadContexts {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid upload context %q", value)
}
