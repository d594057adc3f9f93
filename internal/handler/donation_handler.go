package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/alumni-portal-api/internal/service"
	appErrors "github.com/noah-isme/alumni-portal-api/pkg/errors"
	"github.com/noah-isme/alumni-portal-api/pkg/response"
)

// DonationHandler exposes the donation feed and banner endpoints.
type DonationHandler struct {
	donations *service.DonationService
}

// NewDonationHandler constructs DonationHandler.
func NewDonationHandler(donations *service.DonationService) *DonationHandler {
	return &DonationHandler{donations: donations}
}

// List godoc
// @Summary List donation messages
// @Tags Donations
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /donations [get]
func (h *DonationHandler) List(c *gin.Context) {
	donations, err := h.donations.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, donations, nil)
}

// Create godoc
// @Summary Record a donation message
// @Tags Donations
// @Accept json
// @Produce json
// @Param payload body service.MakeDonationRequest true "Donation payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /donations [post]
func (h *DonationHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.MakeDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	donation, err := h.donations.Make(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, donation)
}

// Banner godoc
// @Summary Get the donation banner
// @Tags Donations
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /donations/banner [get]
func (h *DonationHandler) Banner(c *gin.Context) {
	banner, err := h.donations.Banner(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, banner, nil)
}

// SetBanner godoc
// @Summary Replace the donation banner
// @Tags Donations
// @Accept json
// @Produce json
// @Param payload body service.SetBannerRequest true "Banner payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /donations/banner [put]
func (h *DonationHandler) SetBanner(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SetBannerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	banner, err := h.donations.SetBanner(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, banner, nil)
}

// Export godoc
// @Summary Export the donation feed
// @Tags Donations
// @Produce octet-stream
// @Param format query string true "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /donations/export [get]
func (h *DonationHandler) Export(c *gin.Context) {
	payload, filename, err := h.donations.Export(c.Request.Context(), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	contentType := "text/csv"
	if c.Query("format") == "pdf" {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, payload)
}
