package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sistema-uemg/horas-api/internal/dto"
	"github.com/sistema-uemg/horas-api/internal/service"
	appErrors "github.com/sistema-uemg/horas-api/pkg/errors"
	"github.com/sistema-uemg/horas-api/pkg/response"
)

// CatalogHandler exposes the rule table: categories and activity types.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Overview godoc
// @Summary List categories with their activity types
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /catalog [get]
func (h *CatalogHandler) Overview(c *gin.Context) {
	overview, err := h.catalog.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

// CreateCategory godoc
// @Summary Create a category
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateCategoryRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Router /catalog/categories [post]
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req dto.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	category, err := h.catalog.CreateCategory(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// UpdateCategory godoc
// @Summary Update a category
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Param payload body dto.UpdateCategoryRequest true "Category payload"
// @Success 200 {object} response.Envelope
// @Router /catalog/categories/{id} [put]
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	var req dto.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	category, err := h.catalog.UpdateCategory(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// CreateActivityType godoc
// @Summary Create an activity type
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateActivityTypeRequest true "Activity type payload"
// @Success 201 {object} response.Envelope
// @Router /catalog/types [post]
func (h *CatalogHandler) CreateActivityType(c *gin.Context) {
	var req dto.CreateActivityTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	activityType, err := h.catalog.CreateActivityType(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, activityType)
}

// UpdateActivityType godoc
// @Summary Update an activity type
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Activity type ID"
// @Param payload body dto.UpdateActivityTypeRequest true "Activity type payload"
// @Success 200 {object} response.Envelope
// @Router /catalog/types/{id} [put]
func (h *CatalogHandler) UpdateActivityType(c *gin.Context) {
	var req dto.UpdateActivityTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	activityType, err := h.catalog.UpdateActivityType(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activityType, nil)
}
