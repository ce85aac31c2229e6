package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"housing-listings-backend/internal/parse"
)

func (h *Handler) ListJurisdictions(c *gin.Context) {
	list, err := h.store.ListJurisdictions(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetJurisdiction(c *gin.Context) {
	j, err := h.store.GetJurisdiction(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

// ListMultiselectQuestions handles GET /api/multiselectQuestions. Only filter
// clauses apply; the result is never paged.
func (h *Handler) ListMultiselectQuestions(c *gin.Context) {
	clauses, err := parse.Clauses(c.Request.URL.Query())
	if err != nil {
		h.respondError(c, err)
		return
	}
	qs, err := h.store.ListMultiselectQuestions(c.Request.Context(), clauses)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, qs)
}
