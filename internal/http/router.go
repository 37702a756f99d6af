package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/geocoder89/postboard/internal/http/handlers"
	"github.com/geocoder89/postboard/internal/http/middlewares"
	"github.com/geocoder89/postboard/internal/observability"
)

type Config struct {
	Env            string
	ServiceName    string
	AllowedOrigins []string
	MaxBodyBytes   int64
}

type UserService interface {
	handlers.AccountService
	handlers.UserService
}

// Deps are the collaborators the routes dispatch to.
type Deps struct {
	Users  UserService
	Posts  handlers.PostService
	Auth   middlewares.Authenticator
	Tokens handlers.TokenIssuer
	Prom   *observability.Prom
	Checks map[string]handlers.PingFunc
}

func NewRouter(log *slog.Logger, deps Deps, cfg Config) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "postboard-api"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if deps.Prom == nil {
		deps.Prom = observability.NewProm()
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(deps.Prom.GinHandleMiddleware())
	r.Use(middlewares.SecurityHeaders("/docs"))
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// ops
	h := handlers.NewHealthHandler(deps.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(deps.Prom.Handler()))
	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	authHandler := handlers.NewAuthHandler(deps.Users, deps.Tokens, deps.Prom)
	usersHandler := handlers.NewUsersHandler(deps.Users)
	postsHandler := handlers.NewPostsHandler(deps.Posts)

	requireAuth := middlewares.NewAuthMiddleware(deps.Auth).RequireAuth()

	// public
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.GET("/users/:id/posts", postsHandler.ListByUser)

	// authenticated
	authed := r.Group("/", requireAuth)
	{
		authed.POST("/logout", authHandler.Logout)

		authed.GET("/users", usersHandler.List)
		authed.GET("/users/me", usersHandler.Me)
		authed.PUT("/users/me", usersHandler.UpdateMe)
		authed.DELETE("/users/me", usersHandler.DeleteMe)
		authed.GET("/users/search", usersHandler.Search)
		authed.GET("/users/filter", usersHandler.Filter)

		authed.POST("/posts", postsHandler.Create)
		authed.PUT("/posts/:id", postsHandler.Update)
		authed.DELETE("/posts/:id", postsHandler.Delete)
	}

	return r
}
