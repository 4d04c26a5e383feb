package enums

import "fmt"

// SlotType names a single-item media attachment point on a parent entity.
type SlotType string

const (
	SlotTypeAvatar          SlotType = "avatar"
	SlotTypeBackground      SlotType = "background"
	SlotTypeRecipeThumbnail SlotType = "recipe_thumbnail"
)

var validSlotTypes = []SlotType{
	SlotTypeAvatar,
	SlotTypeBackground,
	SlotTypeRecipeThumbnail,
}

// String returns the literal string for the slot type.
func (s SlotType) String() string {
	return string(s)
}

// IsValid reports whether the slot type is known.
func (s SlotType) IsValid() bool {
	for _, candidate := range validSlotTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSlotType converts raw input into a SlotType.
func ParseSlotType(value string) (SlotType, error) {
	for _, candidate := range validSlotTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid slot type %q", value)
}
