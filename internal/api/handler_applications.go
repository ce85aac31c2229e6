package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"housing-listings-backend/internal/dto"
	"housing-listings-backend/internal/mw"
	"housing-listings-backend/internal/parse"
	"housing-listings-backend/internal/store"
)

// ListApplications handles GET /api/applications.
func (h *Handler) ListApplications(c *gin.Context) {
	q, err := parse.List(c.Request.URL.Query(), h.defaultLimit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	page, err := h.store.ListApplications(c.Request.Context(), mw.CallerFrom(c), store.ApplicationParams{
		Clauses:  q.Clauses,
		OrderBy:  q.OrderBy,
		OrderDir: q.OrderDir,
		Page:     q.Page,
		Limit:    q.Limit,
		Search:   q.Search,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetApplication handles GET /api/applications/:id.
func (h *Handler) GetApplication(c *gin.Context) {
	app, err := h.store.GetApplication(c.Request.Context(), mw.CallerFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// CreateApplication handles POST /api/applications.
func (h *Handler) CreateApplication(c *gin.Context) {
	var in dto.Application
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	app, err := h.store.CreateApplication(c.Request.Context(), mw.CallerFrom(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

type markDuplicatesRequest struct {
	IDs               []string `json:"ids" binding:"required"`
	MarkedAsDuplicate *bool    `json:"markedAsDuplicate" binding:"required"`
}

// MarkDuplicates handles PUT /api/applications/duplicates.
func (h *Handler) MarkDuplicates(c *gin.Context) {
	var req markDuplicatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.store.MarkDuplicate(c.Request.Context(), mw.CallerFrom(c), req.IDs, *req.MarkedAsDuplicate); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
