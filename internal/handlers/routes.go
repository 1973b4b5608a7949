package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"linkly/internal/apperr"
	"linkly/internal/middleware"
	"linkly/internal/services"
)

const Banner = "🚀 Linkly API is running!"

// HealthCheck reports whether the backing store is reachable.
type HealthCheck func(ctx context.Context) error

type RouterDeps struct {
	Auth      *services.AuthService
	Bookmarks *services.BookmarkService
	Health    HealthCheck
	// RateLimit guards the public auth routes. Nil means unlimited.
	RateLimit gin.HandlerFunc
	Logger    *slog.Logger
	ClientURL string
}

var bindingOnce sync.Once

// configureBinding makes request binding strict and reports fields by their
// JSON names.
func configureBinding() {
	bindingOnce.Do(func() {
		binding.EnableDecoderDisallowUnknownFields = true
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(func(f reflect.StructField) string {
				name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
				if name == "-" {
					return ""
				}
				return name
			})
		}
	})
}

func NewRouter(deps RouterDeps) *gin.Engine {
	configureBinding()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(
		middleware.RequestLogger(logger),
		middleware.Recovery(logger),
		middleware.SecureHeaders(),
		middleware.CORS(deps.ClientURL),
	)

	r.GET("/healthz", Health(deps.Health))

	api := r.Group("/api")
	api.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, Banner)
	})

	public := api.Group("/auth")
	if deps.RateLimit != nil {
		public.Use(deps.RateLimit)
	}
	{
		public.POST("/register", Register(deps.Auth))
		public.POST("/login", Login(deps.Auth))
		public.POST("/refresh", Refresh(deps.Auth))
		public.POST("/logout", Logout(deps.Auth))
	}

	gate := deps.Auth
	authed := api.Group("/auth")
	{
		authed.POST("/logout-all", middleware.RequireUser(gate, LogoutAll(deps.Auth)))
		authed.GET("/profile", middleware.RequireUser(gate, GetProfile(deps.Auth)))
		authed.GET("/profile/stats", middleware.RequireUser(gate, GetProfileStats(deps.Auth)))
	}

	bookmarks := api.Group("/bookmarks")
	{
		bookmarks.GET("", middleware.RequireUser(gate, ListBookmarks(deps.Bookmarks)))
		bookmarks.POST("", middleware.RequireUser(gate, CreateBookmark(deps.Bookmarks)))
		bookmarks.GET("/search", middleware.RequireUser(gate, SearchBookmarks(deps.Bookmarks)))
		bookmarks.GET("/tags/:tag", middleware.RequireUser(gate, BookmarksByTag(deps.Bookmarks)))
		bookmarks.GET("/:id", middleware.RequireUser(gate, GetBookmark(deps.Bookmarks)))
		bookmarks.PUT("/:id", middleware.RequireUser(gate, UpdateBookmark(deps.Bookmarks)))
		bookmarks.DELETE("/:id", middleware.RequireUser(gate, DeleteBookmark(deps.Bookmarks)))
	}

	r.NoRoute(func(c *gin.Context) {
		msg := fmt.Sprintf("Cannot %s %s", c.Request.Method, c.Request.URL.Path)
		respondError(c, apperr.NotFound(msg, apperr.CodeRouteNotFound))
	})

	return r
}

func Health(check HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				slog.WarnContext(c.Request.Context(), "health check failed", "error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
