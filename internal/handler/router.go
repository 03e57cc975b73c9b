package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-market-api/internal/middleware"
	"github.com/noah-isme/course-market-api/internal/models"
)

// Handlers groups every HTTP handler the API mounts.
type Handlers struct {
	Auth           *AuthHandler
	Users          *UserHandler
	Catalog        *CatalogHandler
	Purchases      *PurchaseHandler
	Proofs         *ProofHandler
	Stream         *StreamHandler
	Dashboard      *DashboardHandler
	PaymentOptions *PaymentOptionHandler
	Metrics        *MetricsHandler
}

// RouteConfig carries the cross-cutting pieces routes are guarded with.
type RouteConfig struct {
	APIPrefix string
	Tokens    middleware.TokenValidator
	Audit     middleware.AuditRecorder
	// Limiter guards login and purchase creation. Nil disables limiting.
	Limiter *middleware.RateLimiter
}

// RegisterRoutes mounts ops endpoints at the root and the API under cfg.APIPrefix.
func RegisterRoutes(r *gin.Engine, h Handlers, cfg RouteConfig) {
	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/ready", h.Metrics.Ready)
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	authn := middleware.JWT(cfg.Tokens)
	limit := middleware.RateLimit(cfg.Limiter)

	auth := api.Group("/auth")
	auth.POST("/register", limit, h.Auth.Register)
	auth.POST("/login", limit, h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", authn, h.Auth.Logout)
	auth.POST("/change-password", authn, h.Auth.ChangePassword)
	auth.GET("/me", authn, h.Auth.Me)

	api.GET("/categories", h.Catalog.ListCategories)
	api.GET("/courses", h.Catalog.ListCourses)
	api.GET("/courses/:slug", h.Catalog.GetCourse)
	api.GET("/payment-options", h.PaymentOptions.ListActive)

	learner := api.Group("")
	learner.Use(authn)
	learner.POST("/purchases", limit, h.Purchases.Initiate)
	learner.GET("/purchases", h.Purchases.ListMine)
	learner.POST("/purchases/proofs", limit, h.Proofs.Upload)
	learner.GET("/episodes/:id/stream", h.Stream.Stream)
	learner.GET("/dashboard/courses", h.Dashboard.Courses)
	learner.GET("/dashboard/courses/:id", h.Dashboard.Course)

	admin := api.Group("/admin")
	admin.Use(authn, middleware.RequireRoles(models.RoleAdmin))

	admin.GET("/purchases", h.Purchases.List)
	admin.GET("/purchases/export", middleware.Audit(cfg.Audit, models.AuditActionLedgerExport, "purchases", ""), h.Purchases.Export)
	admin.POST("/purchases/:id/approve", h.Purchases.Approve)
	admin.POST("/purchases/:id/reject", h.Purchases.Reject)
	admin.POST("/purchases/:id/refund", h.Purchases.Refund)
	admin.GET("/proofs/:token", middleware.Audit(cfg.Audit, models.AuditActionProofView, "purchase_proof", ""), h.Proofs.View)

	admin.POST("/grants", h.Purchases.Grant)
	admin.DELETE("/grants/:id", h.Purchases.RevokeGrant)

	admin.GET("/users", h.Users.List)
	admin.GET("/users/:id", h.Users.Get)
	admin.PATCH("/users/:id", h.Users.UpdateRole)
	admin.GET("/users/:id/grants", h.Purchases.UserGrants)

	admin.POST("/categories", h.Catalog.CreateCategory)
	admin.PUT("/categories/:id", h.Catalog.UpdateCategory)
	admin.DELETE("/categories/:id", h.Catalog.DeleteCategory)
	admin.POST("/courses", h.Catalog.CreateCourse)
	admin.GET("/courses/:id", h.Catalog.AdminCourseTree)
	admin.PUT("/courses/:id", h.Catalog.UpdateCourse)
	admin.DELETE("/courses/:id", h.Catalog.DeleteCourse)
	admin.POST("/courses/:id/seasons", h.Catalog.CreateSeason)
	admin.PUT("/seasons/:id", h.Catalog.UpdateSeason)
	admin.DELETE("/seasons/:id", h.Catalog.DeleteSeason)
	admin.POST("/seasons/:id/episodes", h.Catalog.CreateEpisode)
	admin.PUT("/episodes/:id", h.Catalog.UpdateEpisode)
	admin.DELETE("/episodes/:id", h.Catalog.DeleteEpisode)

	admin.GET("/payment-options", h.PaymentOptions.ListAll)
	admin.POST("/payment-options", h.PaymentOptions.Create)
	admin.PATCH("/payment-options/:id", h.PaymentOptions.Update)
	admin.DELETE("/payment-options/:id", h.PaymentOptions.Delete)
}
