package media

import (
	"fmt"
	"path/filepath"

	"github.com/feastbook/feastbook-backend/pkg/config"
	"github.com/feastbook/feastbook-backend/pkg/enums"
)

// Context parameterizes the orchestrator for one multi-item parent kind. It
// carries no logic: table and column names, accepted categories, target
// directories, and whether the batch ordering is persisted.
type Context struct {
	Name       enums.UploadContext
	Table      string
	FKColumn   string
	Categories []enums.MediaCategory
	Dirs       map[enums.MediaCategory]string
	Ordered    bool
}

// SlotContext parameterizes single-item slots (avatar, background, recipe
// thumbnail). Slots accept images only and own a single directory.
type SlotContext struct {
	Name     enums.UploadContext
	SlotType enums.SlotType
	Dir      string
}

// Contexts bundles every parent adapter, resolved once at startup from the
// storage root. Nothing else in the engine reads configuration.
type Contexts struct {
	Post            Context
	RecipeStep      Context
	Rating          Context
	RecipeThumbnail SlotContext
	Avatar          SlotContext
	Background      SlotContext
}

// NewContexts derives the directory layout and table bindings from config.
func NewContexts(cfg config.MediaConfig) Contexts {
	root := cfg.StorageRoot
	bothCategories := []enums.MediaCategory{enums.MediaCategoryImage, enums.MediaCategoryVideo}

	return Contexts{
		Post: Context{
			Name:       enums.UploadContextPost,
			Table:      "post_media",
			FKColumn:   "post_id",
			Categories: bothCategories,
			Dirs: map[enums.MediaCategory]string{
				enums.MediaCategoryImage: filepath.Join(root, "posts", "images"),
				enums.MediaCategoryVideo: filepath.Join(root, "posts", "videos"),
			},
		},
		RecipeStep: Context{
			Name:       enums.UploadContextRecipeStep,
			Table:      "recipe_media",
			FKColumn:   "recipe_id",
			Categories: bothCategories,
			Dirs: map[enums.MediaCategory]string{
				enums.MediaCategoryImage: filepath.Join(root, "recipes", "images"),
				enums.MediaCategoryVideo: filepath.Join(root, "recipes", "videos"),
			},
			Ordered: true,
		},
		Rating: Context{
			Name:       enums.UploadContextRating,
			Table:      "rating_media",
			FKColumn:   "rating_id",
			Categories: bothCategories,
			Dirs: map[enums.MediaCategory]string{
				enums.MediaCategoryImage: filepath.Join(root, "ratings", "images"),
				enums.MediaCategoryVideo: filepath.Join(root, "ratings", "videos"),
			},
		},
		RecipeThumbnail: SlotContext{
			Name:     enums.UploadContextRecipeThumbnail,
			SlotType: enums.SlotTypeRecipeThumbnail,
			Dir:      filepath.Join(root, "recipes", "thumbnails"),
		},
		Avatar: SlotContext{
			Name:     enums.UploadContextAvatar,
			SlotType: enums.SlotTypeAvatar,
			Dir:      filepath.Join(root, "profiles", "avatars"),
		},
		Background: SlotContext{
			Name:     enums.UploadContextBackground,
			SlotType: enums.SlotTypeBackground,
			Dir:      filepath.Join(root, "profiles", "backgrounds"),
		},
	}
}

// AllDirs lists every storage directory; used for provisioning and the
// reconciler sweep.
func (c Contexts) AllDirs() []string {
	dirs := []string{}
	for _, mc := range []Context{c.Post, c.RecipeStep, c.Rating} {
		for _, dir := range []enums.MediaCategory{enums.MediaCategoryImage, enums.MediaCategoryVideo} {
			dirs = append(dirs, mc.Dirs[dir])
		}
	}
	dirs = append(dirs, c.RecipeThumbnail.Dir, c.Avatar.Dir, c.Background.Dir)
	return dirs
}

// retrievalTarget resolves (context, filename) to the directory the file
// lives in and the extensions the context serves. Used by the reader only.
func (c Contexts) retrievalTarget(name enums.UploadContext, ext string) (string, map[string]struct{}, error) {
	imageOnly := allowedExtensions([]enums.MediaCategory{enums.MediaCategoryImage})

	switch name {
	case enums.UploadContextPost, enums.UploadContextRecipeStep, enums.UploadContextRating:
		mc := c.Post
		if name == enums.UploadContextRecipeStep {
			mc = c.RecipeStep
		} else if name == enums.UploadContextRating {
			mc = c.Rating
		}
		category, ok := categoryByExtension[ext]
		if !ok {
			return "", nil, fmt.Errorf("extension %q is not served", ext)
		}
		return mc.Dirs[category], allowedExtensions(mc.Categories), nil
	case enums.UploadContextRecipeThumbnail:
		return c.RecipeThumbnail.Dir, imageOnly, nil
	case enums.UploadContextAvatar:
		return c.Avatar.Dir, imageOnly, nil
	case enums.UploadContextBackground:
		return c.Background.Dir, imageOnly, nil
	default:
		return "", nil, fmt.Errorf("unknown upload context %q", name)
	}
}
