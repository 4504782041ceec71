package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sistema-uemg/horas-api/internal/dto"
	"github.com/sistema-uemg/horas-api/internal/models"
	"github.com/sistema-uemg/horas-api/internal/service"
	appErrors "github.com/sistema-uemg/horas-api/pkg/errors"
	"github.com/sistema-uemg/horas-api/pkg/response"
)

// ReviewHandler exposes the secretaria review queue.
type ReviewHandler struct {
	reviews *service.ReviewService
}

// NewReviewHandler constructs handler.
func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Queue godoc
// @Summary List activities awaiting review
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter, defaults to PENDING"
// @Param studentId query string false "Filter by student"
// @Param search query string false "Search by student or type name"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /review/queue [get]
func (h *ReviewHandler) Queue(c *gin.Context) {
	filter := models.ActivityFilter{
		StudentID: c.Query("studentId"),
		Search:    c.Query("search"),
	}
	if status := c.Query("status"); status != "" {
		s := models.ActivityStatus(strings.ToUpper(status))
		filter.Status = &s
	}
	filter.Page, _ = strconv.Atoi(c.Query("page"))
	filter.PageSize, _ = strconv.Atoi(c.Query("pageSize"))

	resp, err := h.reviews.Queue(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp.Activities, &resp.Pagination)
}

// Approve godoc
// @Summary Approve a pending activity
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Activity ID"
// @Param payload body dto.ReviewRequest false "Optional comment"
// @Success 200 {object} response.Envelope
// @Router /review/{id}/approve [post]
func (h *ReviewHandler) Approve(c *gin.Context) {
	h.review(c, h.reviews.Approve)
}

// Reject godoc
// @Summary Reject a pending activity
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Activity ID"
// @Param payload body dto.ReviewRequest true "Comment explaining the rejection"
// @Success 200 {object} response.Envelope
// @Router /review/{id}/reject [post]
func (h *ReviewHandler) Reject(c *gin.Context) {
	h.review(c, h.reviews.Reject)
}

func (h *ReviewHandler) review(c *gin.Context, verdict func(ctx context.Context, reviewerID, activityID string, req dto.ReviewRequest) (*models.ActivityDetail, error)) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ReviewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}

	detail, err := verdict(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}
