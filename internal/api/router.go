package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"housing-listings-backend/internal/auth"
	"housing-listings-backend/internal/mw"
)

// RouterConfig carries the middleware settings for NewRouter.
type RouterConfig struct {
	Verifier       *auth.Verifier
	PartnerOrigins []string
	// RateLimit of zero or less disables rate limiting.
	RateLimit rate.Limit
	RateBurst int
	// Cache of nil disables response caching.
	Cache    mw.Backend
	CacheTTL time.Duration
	Log      *zap.Logger
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, rc RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.Logger(rc.Log))

	r.GET("/health", h.Health)

	caching := func(c *gin.Context) { c.Next() }
	if rc.Cache != nil {
		caching = mw.Cache(rc.Cache, rc.CacheTTL)
	}

	api := r.Group("/api")
	if rc.RateLimit > 0 {
		api.Use(mw.RateLimiter(rc.RateLimit, rc.RateBurst))
	}
	api.Use(mw.Caller(rc.Verifier, rc.PartnerOrigins))
	{
		api.GET("/listings", caching, h.ListListings)
		api.POST("/listings", h.CreateListing)
		api.GET("/listings/:id", caching, h.GetListing)
		api.PUT("/listings/:id", h.UpdateListing)
		api.DELETE("/listings/:id", h.DeleteListing)
		api.GET("/listings/:id/applications/flagged", h.FlaggedSets)
		api.GET("/listings/:id/applications/export", h.ExportApplications)

		api.GET("/applications", h.ListApplications)
		api.POST("/applications", h.CreateApplication)
		api.PUT("/applications/duplicates", h.MarkDuplicates)
		api.GET("/applications/:id", h.GetApplication)

		api.GET("/jurisdictions", caching, h.ListJurisdictions)
		api.GET("/jurisdictions/:id", caching, h.GetJurisdiction)
		api.GET("/multiselectQuestions", caching, h.ListMultiselectQuestions)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
