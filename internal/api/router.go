package api

import (
	"log/slog"
	"net/http"
	"time"

	"productboards-backend/internal/config"
	"productboards-backend/internal/handlers"
	"productboards-backend/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	AuthHandler          *handlers.AuthHandler
	ConversationHandlers *handlers.ConversationHandlers
	StreamHandlers       *handlers.StreamHandlers
	BoardHandlers        *handlers.BoardHandlers
	ProductHandlers      *handlers.ProductHandlers
	SharedHandlers       *handlers.SharedHandlers
	AIHandlers           *handlers.AIHandlers
	AlertHandlers        *handlers.AlertHandlers
	Metrics              *metrics.Metrics
	Config               *config.Config
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	// Long enough for the slowest assistant reply; streams are mounted outside it.
	requestTimeout := middleware.Timeout(deps.Config.AITimeout + 30*time.Second)
	aiLimiter := NewUserRateLimiter(deps.Config.AIRateLimitPerMinute)

	// --- Public Routes (No JWT Required) ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	r.Route("/v1/auth", func(r chi.Router) {
		if deps.AuthHandler == nil {
			panic("AuthHandler dependency is nil in router setup")
		}
		r.Use(requestTimeout)
		r.Post("/signup", deps.AuthHandler.HandleSignup)
		r.Post("/login", deps.AuthHandler.HandleLogin)
	})

	if deps.SharedHandlers != nil {
		r.Route("/shared/{token}", func(r chi.Router) {
			r.Use(requestTimeout)
			r.Get("/", deps.SharedHandlers.GetSharedBoard)
			r.Get("/feed.rss", deps.SharedHandlers.SharedFeed)
			r.Get("/insight", deps.SharedHandlers.SharedInsight)
		})
	} else {
		slog.Warn("SharedHandlers dependency is nil, skipping /shared routes")
	}

	// --- Authenticated Routes (JWT Required) ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(JwtAuthMiddleware(deps.Config.JWTSecret))

		// WebSocket streams outlive any request timeout.
		if deps.StreamHandlers != nil {
			r.Get("/conversations/{conversationID}/stream", deps.StreamHandlers.ConversationStream)
			r.Get("/links/{linkID}/prices/stream", deps.StreamHandlers.PriceStream)
		}

		r.Group(func(r chi.Router) {
			r.Use(requestTimeout)
			mountConversations(r, deps.ConversationHandlers, aiLimiter)
			mountBoards(r, deps.BoardHandlers, deps.ProductHandlers, aiLimiter)
			mountProducts(r, deps.ProductHandlers, aiLimiter)

			if deps.AIHandlers != nil {
				r.Route("/ai", func(r chi.Router) {
					r.Use(aiLimiter.Middleware)
					r.Post("/chat", deps.AIHandlers.Chat)
					r.Post("/extract-product", deps.AIHandlers.ExtractProduct)
					if deps.BoardHandlers != nil {
						r.Post("/board-insight", deps.BoardHandlers.InsightForProducts)
					}
				})
			} else {
				slog.Warn("AIHandlers dependency is nil, skipping /v1/ai routes")
			}

			if deps.AlertHandlers != nil {
				r.Get("/settings/alerts", deps.AlertHandlers.GetPreferences)
				r.Put("/settings/alerts", deps.AlertHandlers.UpdatePreferences)
			}
		})
	})

	return r
}

func mountConversations(r chi.Router, h *handlers.ConversationHandlers, aiLimiter *UserRateLimiter) {
	if h == nil {
		slog.Warn("ConversationHandlers dependency is nil, skipping /v1/conversations routes")
		return
	}
	r.Route("/conversations", func(r chi.Router) {
		r.Post("/", h.CreateConversation)
		r.Get("/", h.ListConversations)
		r.Get("/{conversationID}", h.GetConversation)
		r.Patch("/{conversationID}", h.RenameConversation)
		r.Delete("/{conversationID}", h.DeleteConversation)
		r.Get("/{conversationID}/messages", h.ListMessages)
		r.With(aiLimiter.Middleware).Post("/{conversationID}/messages", h.SendMessage)
	})
}

func mountBoards(r chi.Router, h *handlers.BoardHandlers, ph *handlers.ProductHandlers, aiLimiter *UserRateLimiter) {
	if h == nil {
		slog.Warn("BoardHandlers dependency is nil, skipping /v1/boards routes")
		return
	}
	r.Route("/boards", func(r chi.Router) {
		r.Post("/", h.CreateBoard)
		r.Get("/", h.ListBoards)
		r.Get("/{boardID}", h.GetBoard)
		r.Patch("/{boardID}", h.UpdateBoard)
		r.Delete("/{boardID}", h.DeleteBoard)
		r.Put("/{boardID}/sharing", h.SetSharing)
		r.With(aiLimiter.Middleware).Post("/{boardID}/insight", h.BoardInsight)

		if ph != nil {
			r.Get("/{boardID}/products", ph.ListBoardProducts)
			r.Post("/{boardID}/products", ph.CreateProduct)
			r.With(aiLimiter.Middleware).Post("/{boardID}/products/from-url", ph.CreateProductFromURL)
		}
	})
}

func mountProducts(r chi.Router, h *handlers.ProductHandlers, aiLimiter *UserRateLimiter) {
	if h == nil {
		slog.Warn("ProductHandlers dependency is nil, skipping /v1/products routes")
		return
	}
	r.Route("/products/{productID}", func(r chi.Router) {
		r.Get("/", h.GetProduct)
		r.Patch("/", h.UpdateProduct)
		r.Delete("/", h.DeleteProduct)
		r.Post("/move", h.MoveProduct)
		r.Post("/links", h.AddLink)
		r.With(aiLimiter.Middleware).Post("/ai-note", h.GenerateNote)
	})
	r.Get("/links/{linkID}/prices", h.ListPrices)
	r.Post("/links/{linkID}/prices", h.RecordPrice)
}
