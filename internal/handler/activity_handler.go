package handler

import (
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sistema-uemg/horas-api/internal/dto"
	"github.com/sistema-uemg/horas-api/internal/models"
	"github.com/sistema-uemg/horas-api/internal/service"
	appErrors "github.com/sistema-uemg/horas-api/pkg/errors"
	"github.com/sistema-uemg/horas-api/pkg/response"
	"github.com/sistema-uemg/horas-api/pkg/storage"
)

// ActivityHandler exposes submission, listing and dashboard endpoints.
type ActivityHandler struct {
	submissions *service.SubmissionService
	ledger      *service.LedgerService
	// localStore streams locally stored certificates; nil when the
	// Cloudinary backend serves them by URL.
	localStore  *storage.LocalStore
	maxFileSize int64
	allowedMIME map[string]bool
}

// NewActivityHandler constructs handler.
func NewActivityHandler(submissions *service.SubmissionService, ledger *service.LedgerService, localStore *storage.LocalStore, maxFileSize int64, allowedMIMEs []string) *ActivityHandler {
	allowed := make(map[string]bool, len(allowedMIMEs))
	for _, m := range allowedMIMEs {
		allowed[strings.ToLower(strings.TrimSpace(m))] = true
	}
	return &ActivityHandler{
		submissions: submissions,
		ledger:      ledger,
		localStore:  localStore,
		maxFileSize: maxFileSize,
		allowedMIME: allowed,
	}
}

// Submit godoc
// @Summary Submit an activity with its certificate
// @Tags Activities
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param category formData string true "Category name"
// @Param type formData string true "Activity type name"
// @Param description formData string true "Description"
// @Param hours formData number true "Raw hours"
// @Param external formData boolean false "External activity"
// @Param certificate formData file true "Proof of participation"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /activities [post]
func (h *ActivityHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var form dto.SubmitActivityRequest
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid form payload"))
		return
	}

	fileHeader, err := c.FormFile("certificate")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "certificate file is required"))
		return
	}
	if h.maxFileSize > 0 && fileHeader.Size > h.maxFileSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "certificate file is too large"))
		return
	}
	if len(h.allowedMIME) > 0 {
		contentType := strings.ToLower(fileHeader.Header.Get("Content-Type"))
		if !h.allowedMIME[contentType] {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "certificate file type is not allowed"))
			return
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read certificate"))
		return
	}
	defer file.Close() //nolint:errcheck

	result, err := h.submissions.Submit(c.Request.Context(), service.SubmitInput{
		StudentID:   claims.UserID,
		Form:        form,
		Filename:    fileHeader.Filename,
		Certificate: file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Activity == nil {
		// Partially capped: nothing was persisted, the client should
		// resubmit with at most the reported raw hours.
		response.JSON(c, http.StatusUnprocessableEntity, result, nil)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List the authenticated student's activities
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /activities [get]
func (h *ActivityHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.ActivityFilter{
		StudentID: claims.UserID,
		Search:    c.Query("search"),
	}
	if status := c.Query("status"); status != "" {
		s := models.ActivityStatus(strings.ToUpper(status))
		filter.Status = &s
	}
	filter.Page, _ = strconv.Atoi(c.Query("page"))
	filter.PageSize, _ = strconv.Atoi(c.Query("pageSize"))

	resp, err := h.submissions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp.Activities, &resp.Pagination)
}

// Get godoc
// @Summary Fetch one activity
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Param id path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Router /activities/{id} [get]
func (h *ActivityHandler) Get(c *gin.Context) {
	requester := requesterFromContext(c)
	if requester == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	detail, err := h.submissions.Get(c.Request.Context(), requester, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Remove a pending activity
// @Tags Activities
// @Security BearerAuth
// @Param id path string true "Activity ID"
// @Success 204
// @Router /activities/{id} [delete]
func (h *ActivityHandler) Delete(c *gin.Context) {
	requester := requesterFromContext(c)
	if requester == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.submissions.Delete(c.Request.Context(), requester, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Certificate godoc
// @Summary Download an activity's certificate
// @Tags Activities
// @Security BearerAuth
// @Param id path string true "Activity ID"
// @Success 200
// @Router /activities/{id}/certificate [get]
func (h *ActivityHandler) Certificate(c *gin.Context) {
	requester := requesterFromContext(c)
	if requester == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	detail, err := h.submissions.Get(c.Request.Context(), requester, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	ref := detail.CertificateRef
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		c.Redirect(http.StatusFound, ref)
		return
	}
	if h.localStore == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "certificate is not available"))
		return
	}
	file, err := h.localStore.Open(ref)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "certificate file no longer available"))
		return
	}
	defer file.Close() //nolint:errcheck

	ext := path.Ext(ref)
	if ext == "" {
		ext = ".pdf"
	}
	c.Header("Content-Disposition", "attachment; filename=certificado-"+detail.ID+ext)
	c.Header("Content-Type", "application/octet-stream")
	_, _ = io.Copy(c.Writer, file)
}

// Dashboard godoc
// @Summary Progress summary for the authenticated student
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /activities/dashboard [get]
func (h *ActivityHandler) Dashboard(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	dashboard, err := h.ledger.Dashboard(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}
