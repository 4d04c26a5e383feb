package enums

import "fmt"

// MediaCategory classifies an uploaded file by its content family.
type MediaCategory string

const (
	MediaCategoryImage MediaCategory = "image"
	MediaCategoryVideo MediaCategory = "video"
)

var validMediaCategories = []MediaCategory{
	MediaCategoryImage,
	MediaCategoryVideo,
}

// String returns the literal string for the category.
func (m MediaCategory) String() string {
	return string(m)
}

// IsValid reports whether the category is known.
func (m MediaCategory) IsValid() bool {
	for _, candidate := range validMediaCategories {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMediaCategory converts raw input into a MediaCategory.
func ParseMediaCategory(value string) (MediaCategory, error) {
	for _, candidate := range validMediaCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media category %q", value)
}
