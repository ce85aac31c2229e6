package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"housing-listings-backend/internal/dto"
	"housing-listings-backend/internal/filter"
	"housing-listings-backend/internal/mw"
	"housing-listings-backend/internal/store"
)

// Dispatcher queues a push notification for a listing that just opened.
type Dispatcher interface {
	Dispatch(ctx context.Context, job store.ListingOpened) error
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store        store.Store
	webpush      *webpush.Options
	push         Dispatcher
	defaultLimit int
	log          *zap.Logger
}

// NewHandler creates a new API handler. A nil push disables new-listing notifications.
func NewHandler(s store.Store, webpushOptions *webpush.Options, push Dispatcher, defaultLimit int, log *zap.Logger) *Handler {
	return &Handler{
		store:        s,
		webpush:      webpushOptions,
		push:         push,
		defaultLimit: defaultLimit,
		log:          log.Named("api"),
	}
}

// respondError maps store and validation errors onto the HTTP error contract.
func (h *Handler) respondError(c *gin.Context, err error) {
	var ve *filter.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, store.ErrForbidden):
		if mw.CallerFrom(c).Anonymous() {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		_ = c.Error(err)
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// badRequest reports an unreadable request body or parameter.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// notifyOpened queues a push for l. Failures are logged and never fail the request.
func (h *Handler) notifyOpened(ctx context.Context, l dto.Listing) {
	if h.push == nil {
		return
	}
	job := store.ListingOpened{ListingID: l.ID, Name: l.Name, JurisdictionID: l.Jurisdiction.ID}
	if err := h.push.Dispatch(ctx, job); err != nil {
		h.log.Warn("failed to dispatch listing notification", zap.String("listing_id", l.ID), zap.Error(err))
	}
}

// Health reports whether the database is reachable.
func (h *Handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
