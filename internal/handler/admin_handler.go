package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/linkvault-api/internal/dto"
	"github.com/noah-isme/linkvault-api/internal/models"
	appErrors "github.com/noah-isme/linkvault-api/pkg/errors"
	"github.com/noah-isme/linkvault-api/pkg/export"
	"github.com/noah-isme/linkvault-api/pkg/response"
)

type adminService interface {
	ListUsers(ctx context.Context, rawRole string) ([]models.UserShareStats, error)
	ListShares(ctx context.Context, rawOwnerRole string) ([]dto.AdminShareItem, error)
	ListUserShares(ctx context.Context, userID string) ([]dto.AdminShareItem, error)
}

type moderationService interface {
	ListReported(ctx context.Context) ([]dto.AdminShareItem, error)
	ListReports(ctx context.Context, token string) ([]models.ShareReport, error)
	ExportReported(ctx context.Context, format export.Format, w io.Writer) error
}

// AdminHandler exposes the role-gated admin aggregates.
type AdminHandler struct {
	admin      adminService
	moderation moderationService
}

// NewAdminHandler builds an AdminHandler.
func NewAdminHandler(admin adminService, moderation moderationService) *AdminHandler {
	return &AdminHandler{admin: admin, moderation: moderation}
}

// Users godoc
// @Summary List users with share statistics
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param role query string false "all, user or admin"
// @Success 200 {object} response.Envelope
// @Router /admin/users [get]
func (h *AdminHandler) Users(c *gin.Context) {
	users, err := h.admin.ListUsers(c.Request.Context(), c.Query("role"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ItemsResponse[models.UserShareStats]{Items: users})
}

// UserShares godoc
// @Summary List one user's shares
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/users/{userId}/shares [get]
func (h *AdminHandler) UserShares(c *gin.Context) {
	items, err := h.admin.ListUserShares(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ItemsResponse[dto.AdminShareItem]{Items: items})
}

// Shares godoc
// @Summary List all shares
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param ownerRole query string false "all, user or admin"
// @Success 200 {object} response.Envelope
// @Router /admin/shares [get]
func (h *AdminHandler) Shares(c *gin.Context) {
	items, err := h.admin.ListShares(c.Request.Context(), c.Query("ownerRole"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ItemsResponse[dto.AdminShareItem]{Items: items})
}

// Reported godoc
// @Summary List reported shares
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/reported [get]
func (h *AdminHandler) Reported(c *gin.Context) {
	items, err := h.moderation.ListReported(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ItemsResponse[dto.AdminShareItem]{Items: items})
}

// Reports godoc
// @Summary List reports filed against a share
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param token path string true "Share token"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/reported/{token}/reports [get]
func (h *AdminHandler) Reports(c *gin.Context) {
	reports, err := h.moderation.ListReports(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ItemsResponse[models.ShareReport]{Items: reports})
}

// ExportReported godoc
// @Summary Export reported shares
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/reported/export [get]
func (h *AdminHandler) ExportReported(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "format must be csv or pdf."))
		return
	}

	var buf bytes.Buffer
	if err := h.moderation.ExportReported(c.Request.Context(), format, &buf); err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("reported-shares-%s.%s", time.Now().UTC().Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}
