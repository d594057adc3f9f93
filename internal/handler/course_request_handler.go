package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/alumni-portal-api/internal/models"
	"github.com/noah-isme/alumni-portal-api/internal/service"
	appErrors "github.com/noah-isme/alumni-portal-api/pkg/errors"
	"github.com/noah-isme/alumni-portal-api/pkg/response"
)

// CourseRequestHandler exposes enrollment request endpoints.
type CourseRequestHandler struct {
	requests *service.CourseRequestService
}

// NewCourseRequestHandler constructs CourseRequestHandler.
func NewCourseRequestHandler(requests *service.CourseRequestService) *CourseRequestHandler {
	return &CourseRequestHandler{requests: requests}
}

// List godoc
// @Summary List course requests
// @Tags CourseRequests
// @Produce json
// @Param status query string false "Filter by status"
// @Param all query bool false "Admins: list requests across all users"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /course-requests [get]
func (h *CourseRequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.RequestFilter{
		UserID: claims.UserID,
		Status: models.RequestStatus(strings.ToUpper(c.Query("status"))),
	}
	if c.Query("all") == "true" && isAdmin(claims) {
		filter.UserID = ""
	}
	requests, err := h.requests.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get a course request
// @Tags CourseRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /course-requests/{id} [get]
func (h *CourseRequestHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.requests.Get(c.Request.Context(), c.Param("id"), claims.UserID, isAdmin(claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Create godoc
// @Summary Request enrollment into a course
// @Tags CourseRequests
// @Accept json
// @Produce json
// @Param payload body service.CreateCourseRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /course-requests [post]
func (h *CourseRequestHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.requests.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Resolve godoc
// @Summary Approve or reject a course request
// @Tags CourseRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body service.ResolveRequest true "Resolution payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /course-requests/{id}/resolve [put]
func (h *CourseRequestHandler) Resolve(c *gin.Context) {
	var req service.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.requests.Resolve(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Delete godoc
// @Summary Withdraw an open course request
// @Tags CourseRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 204
// @Security BearerAuth
// @Router /course-requests/{id} [delete]
func (h *CourseRequestHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.requests.DeletePending(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// PurgeResolved godoc
// @Summary Clear the caller's resolved course requests
// @Tags CourseRequests
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /course-requests/resolved [delete]
func (h *CourseRequestHandler) PurgeResolved(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	purged, err := h.requests.PurgeResolved(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"purged": purged}, nil)
}
