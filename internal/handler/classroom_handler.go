package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cimas-digital/matricula-api/internal/middleware"
	"github.com/cimas-digital/matricula-api/internal/models"
	"github.com/cimas-digital/matricula-api/internal/service"
	"github.com/cimas-digital/matricula-api/pkg/response"
)

// ClassroomHandler exposes classroom catalog endpoints.
type ClassroomHandler struct {
	classrooms *service.ClassroomService
	capacity   *service.CapacityService
}

// NewClassroomHandler constructs ClassroomHandler.
func NewClassroomHandler(classrooms *service.ClassroomService, capacity *service.CapacityService) *ClassroomHandler {
	return &ClassroomHandler{classrooms: classrooms, capacity: capacity}
}

// List godoc
// @Summary List classrooms
// @Tags Classrooms
// @Produce json
// @Param cycleId query string false "Filter by cycle"
// @Param campus query string false "Filter by campus"
// @Param grade query string false "Filter by grade level"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classrooms [get]
func (h *ClassroomHandler) List(c *gin.Context) {
	var filter models.ClassroomFilter
	filter.CycleID = c.Query("cycleId")
	filter.CampusCode = c.Query("campus")
	filter.GradeLevel = c.Query("grade")
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

	classrooms, pagination, err := h.classrooms.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classrooms, pagination)
}

// Capacity godoc
// @Summary Get live seat counts for a classroom
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/capacity [get]
func (h *ClassroomHandler) Capacity(c *gin.Context) {
	capacity, cacheHit, err := h.capacity.ClassroomCapacityCached(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, capacity, nil, middleware.ExtractMeta(c))
}
