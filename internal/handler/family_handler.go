package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cimas-digital/matricula-api/internal/models"
	"github.com/cimas-digital/matricula-api/internal/service"
	"github.com/cimas-digital/matricula-api/pkg/response"
)

// FamilyHandler exposes family catalog endpoints.
type FamilyHandler struct {
	families *service.FamilyService
}

// NewFamilyHandler constructs FamilyHandler.
func NewFamilyHandler(families *service.FamilyService) *FamilyHandler {
	return &FamilyHandler{families: families}
}

// List godoc
// @Summary Search families
// @Tags Families
// @Produce json
// @Param search query string false "Name or contact search"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /families [get]
func (h *FamilyHandler) List(c *gin.Context) {
	var filter models.FamilyFilter
	filter.Search = c.Query("search")
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	families, pagination, err := h.families.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, families, pagination)
}

// Get godoc
// @Summary Get a family
// @Tags Families
// @Produce json
// @Param id path string true "Family ID"
// @Success 200 {object} response.Envelope
// @Router /families/{id} [get]
func (h *FamilyHandler) Get(c *gin.Context) {
	family, err := h.families.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, family, nil)
}
