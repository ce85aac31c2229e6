package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"housing-listings-backend/internal/dto"
	"housing-listings-backend/internal/export"
	"housing-listings-backend/internal/model"
	"housing-listings-backend/internal/mw"
	"housing-listings-backend/internal/parse"
	"housing-listings-backend/internal/store"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv; charset=utf-8"
)

var (
	errUnknownView   = errors.New(`view must be "base" or "full"`)
	errUnknownFormat = errors.New(`format must be "xlsx" or "csv"`)
)

// ListListings handles GET /api/listings.
func (h *Handler) ListListings(c *gin.Context) {
	q, err := parse.List(c.Request.URL.Query(), h.defaultLimit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	view, ok := dto.ParseView(q.View)
	if !ok {
		badRequest(c, errUnknownView)
		return
	}

	page, err := h.store.ListListings(c.Request.Context(), mw.CallerFrom(c), store.ListingParams{
		Clauses:  q.Clauses,
		OrderBy:  q.OrderBy,
		OrderDir: q.OrderDir,
		Page:     q.Page,
		Limit:    q.Limit,
		View:     view,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetListing handles GET /api/listings/:id.
func (h *Handler) GetListing(c *gin.Context) {
	view, ok := dto.ParseView(c.Query("view"))
	if !ok {
		badRequest(c, errUnknownView)
		return
	}
	listing, err := h.store.GetListing(c.Request.Context(), mw.CallerFrom(c), c.Param("id"), view)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// CreateListing handles POST /api/listings.
func (h *Handler) CreateListing(c *gin.Context) {
	var in dto.Listing
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	listing, err := h.store.CreateListing(c.Request.Context(), mw.CallerFrom(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if listing.Status == string(model.ListingActive) {
		h.notifyOpened(c.Request.Context(), listing)
	}
	c.JSON(http.StatusCreated, listing)
}

// UpdateListing handles PUT /api/listings/:id.
func (h *Handler) UpdateListing(c *gin.Context) {
	var in dto.Listing
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	listing, opened, err := h.store.UpdateListing(c.Request.Context(), mw.CallerFrom(c), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if opened {
		h.notifyOpened(c.Request.Context(), listing)
	}
	c.JSON(http.StatusOK, listing)
}

// DeleteListing handles DELETE /api/listings/:id.
func (h *Handler) DeleteListing(c *gin.Context) {
	if err := h.store.DeleteListing(c.Request.Context(), mw.CallerFrom(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// FlaggedSets handles GET /api/listings/:id/applications/flagged.
func (h *Handler) FlaggedSets(c *gin.Context) {
	sets, err := h.store.FlaggedSets(c.Request.Context(), mw.CallerFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": sets})
}

// ExportApplications handles GET /api/listings/:id/applications/export.
// format is xlsx (default) or csv.
func (h *Handler) ExportApplications(c *gin.Context) {
	render, contentType := export.Applications, xlsxContentType
	format := c.DefaultQuery("format", "xlsx")
	switch format {
	case "xlsx":
	case "csv":
		render, contentType = export.ApplicationsCSV, csvContentType
	default:
		badRequest(c, errUnknownFormat)
		return
	}

	listingID := c.Param("id")
	apps, err := h.store.ListingApplications(c.Request.Context(), mw.CallerFrom(c), listingID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	data, err := render(apps)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="applications-%s.%s"`, listingID, format))
	c.Data(http.StatusOK, contentType, data)
}
