package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/linkvault-api/internal/handler"
	"github.com/noah-isme/linkvault-api/internal/middleware"
	"github.com/noah-isme/linkvault-api/internal/models"
	"github.com/noah-isme/linkvault-api/internal/service"
	appErrors "github.com/noah-isme/linkvault-api/pkg/errors"
	"github.com/noah-isme/linkvault-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/linkvault-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/linkvault-api/pkg/middleware/requestid"
	"github.com/noah-isme/linkvault-api/pkg/response"
)

// Options collects everything the router needs to mount the API.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Authenticator  middleware.Authenticator

	Auth     *handler.AuthHandler
	Shares   *handler.ShareHandler
	Admin    *handler.AdminHandler
	Observer *handler.MetricsHandler
}

// New builds the gin engine with global middleware and every route.
func New(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		if opts.Logger != nil {
			opts.Logger.Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		}
		response.Error(c, appErrors.ErrInternal)
		c.Abort()
	}))
	r.Use(reqidmiddleware.Middleware())
	if opts.Logger != nil {
		r.Use(logger.GinMiddleware(opts.Logger))
	}
	r.Use(middleware.Metrics(opts.Metrics))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "Route not found."))
	})

	RegisterOps(r, opts.Observer)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)
	requireAuth := middleware.JWT(opts.Authenticator)
	RegisterAuth(api, opts.Auth, requireAuth)
	RegisterShares(api, opts.Shares, requireAuth)
	RegisterAdmin(api, opts.Admin, requireAuth)

	return r
}

// RegisterOps mounts liveness, readiness and Prometheus endpoints.
func RegisterOps(r *gin.Engine, h *handler.MetricsHandler) {
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/metrics", h.Prometheus)
}

// RegisterAuth mounts registration, login and the current-user endpoint.
func RegisterAuth(api *gin.RouterGroup, h *handler.AuthHandler, requireAuth gin.HandlerFunc) {
	g := api.Group("/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.GET("/me", requireAuth, h.Me)
}

// RegisterShares mounts the share endpoints. Static segments are registered
// next to :token so /mine and /id/:id never reach the token handlers.
func RegisterShares(api *gin.RouterGroup, h *handler.ShareHandler, requireAuth gin.HandlerFunc) {
	g := api.Group("/shares")
	g.POST("", requireAuth, h.Create)
	g.GET("/mine", requireAuth, h.Mine)
	g.DELETE("/id/:id", requireAuth, h.Delete)
	g.GET("/:token", h.View)
	g.GET("/:token/download", h.Download)
	g.POST("/:token/report", requireAuth, h.Report)
}

// RegisterAdmin mounts the role-gated admin aggregates.
func RegisterAdmin(api *gin.RouterGroup, h *handler.AdminHandler, requireAuth gin.HandlerFunc) {
	g := api.Group("/admin", requireAuth, middleware.RequireRoles(models.RoleAdmin))
	g.GET("/users", h.Users)
	g.GET("/users/:userId/shares", h.UserShares)
	g.GET("/shares", h.Shares)
	g.GET("/reported", h.Reported)
	g.GET("/reported/export", h.ExportReported)
	g.GET("/reported/:token/reports", h.Reports)
}
