package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/feastbook/feastbook-backend/api/controllers"
	"github.com/feastbook/feastbook-backend/api/middleware"
	"github.com/feastbook/feastbook-backend/internal/media"
	"github.com/feastbook/feastbook-backend/internal/posts"
	"github.com/feastbook/feastbook-backend/internal/profiles"
	"github.com/feastbook/feastbook-backend/internal/ratings"
	"github.com/feastbook/feastbook-backend/internal/recipes"
	"github.com/feastbook/feastbook-backend/pkg/config"
	"github.com/feastbook/feastbook-backend/pkg/logger"
	"github.com/feastbook/feastbook-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	redisClient *redis.Client,
	mediaReader *media.Reader,
	postService posts.Service,
	recipeService recipes.Service,
	ratingService ratings.Service,
	profileService profiles.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": dbPinger,
			"redis":    redisClient,
		}))
	})

	// Stored filenames are unguessable, so serving is public.
	r.Get("/media/{context}/{filename}", controllers.ServeMedia(mediaReader, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/posts", func(r chi.Router) {
			r.Post("/", controllers.CreatePost(postService, cfg.Media, logg))
			r.Get("/{postID}", controllers.GetPost(postService, logg))
			r.Post("/{postID}/media", controllers.AttachPostMedia(postService, cfg.Media, logg))
			r.Put("/{postID}/media", controllers.ReplacePostMedia(postService, cfg.Media, logg))
			r.Delete("/{postID}/media", controllers.RemovePostMedia(postService, logg))
		})

		r.Route("/recipes", func(r chi.Router) {
			r.Post("/", controllers.CreateRecipe(recipeService, cfg.Media, logg))
			r.Get("/{recipeID}", controllers.GetRecipe(recipeService, logg))
			r.Post("/{recipeID}/steps", controllers.AttachRecipeSteps(recipeService, cfg.Media, logg))
			r.Put("/{recipeID}/steps", controllers.ReplaceRecipeSteps(recipeService, cfg.Media, logg))
			r.Delete("/{recipeID}/steps", controllers.RemoveRecipeSteps(recipeService, logg))
			r.Put("/{recipeID}/thumbnail", controllers.SetRecipeThumbnail(recipeService, cfg.Media, logg))
			r.Delete("/{recipeID}/thumbnail", controllers.ClearRecipeThumbnail(recipeService, logg))
		})

		r.Route("/ratings", func(r chi.Router) {
			r.Post("/", controllers.CreateRating(ratingService, cfg.Media, logg))
			r.Get("/{ratingID}", controllers.GetRating(ratingService, logg))
			r.Post("/{ratingID}/media", controllers.AttachRatingMedia(ratingService, cfg.Media, logg))
			r.Put("/{ratingID}/media", controllers.ReplaceRatingMedia(ratingService, cfg.Media, logg))
			r.Delete("/{ratingID}/media", controllers.RemoveRatingMedia(ratingService, logg))
		})

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", controllers.GetMyProfile(profileService, logg))
			r.Put("/avatar", controllers.SetProfileAvatar(profileService, cfg.Media, logg))
			r.Delete("/avatar", controllers.ClearProfileAvatar(profileService, logg))
			r.Put("/background", controllers.SetProfileBackground(profileService, cfg.Media, logg))
			r.Delete("/background", controllers.ClearProfileBackground(profileService, logg))
		})

		r.Get("/profiles/{handle}", controllers.GetProfileByHandle(profileService, logg))
	})

	return r
}
