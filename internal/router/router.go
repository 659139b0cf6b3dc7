package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"codetime-backend/internal/handlers"
	"codetime-backend/internal/middleware"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	activityHandler *handlers.ActivityHandler,
	friendHandler *handlers.FriendHandler,
	leaderboardHandler *handlers.LeaderboardHandler,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Activity Routes ────
		r.Route("/activity", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/update", activityHandler.Update)
			r.Post("/flush", activityHandler.Flush)
			r.Delete("/delete", activityHandler.Delete)
			r.Post("/rename", activityHandler.Rename)
			r.Post("/hide", activityHandler.Hide)
		})

		// ──── User Routes ────
		r.Route("/users", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/me", userHandler.GetMe)
			r.Delete("/me", userHandler.DeleteMe)
			r.Get("/me/friendcode", userHandler.GetFriendCode)
			r.Post("/me/friendcode", userHandler.RegenerateFriendCode)
			r.Get("/{who}/activity/data", activityHandler.Data)
		})

		// ──── Friend Routes ────
		r.Route("/friends", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/add", friendHandler.Add)
			r.Get("/list", friendHandler.List)
			r.Delete("/remove", friendHandler.Remove)
		})

		// ──── Leaderboard Routes ────
		r.Route("/leaderboards", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", leaderboardHandler.Create)
			r.Get("/", leaderboardHandler.List)
			r.Post("/join", leaderboardHandler.Join)
			r.Get("/{name}", leaderboardHandler.Get)
			r.Delete("/{name}", leaderboardHandler.Delete)
			r.Post("/{name}/leave", leaderboardHandler.Leave)
			r.Post("/{name}/regenerate", leaderboardHandler.RegenerateInvite)
			r.Post("/{name}/promote", leaderboardHandler.Promote)
			r.Post("/{name}/demote", leaderboardHandler.Demote)
		})
	})

	return r
}
