package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/linkvault-api/internal/dto"
	"github.com/noah-isme/linkvault-api/internal/models"
	appErrors "github.com/noah-isme/linkvault-api/pkg/errors"
	"github.com/noah-isme/linkvault-api/pkg/response"
)

// multipart parts beyond this stay on disk instead of memory
const multipartMemory = 8 << 20

// room for the non-file form fields on top of the file limit
const formOverhead = 1 << 20

type shareService interface {
	CreateShare(ctx context.Context, owner *models.User, req dto.CreateShareRequest) (*dto.ShareResponse, error)
	GetForView(ctx context.Context, token, password string) (*dto.ShareViewResponse, error)
	GetForDownload(ctx context.Context, token, password string) (*dto.ShareDownload, error)
	DeleteShare(ctx context.Context, requester *models.User, id string) error
	ListMine(ctx context.Context, owner *models.User) ([]dto.ShareResponse, error)
}

type reportService interface {
	ReportShare(ctx context.Context, reporter *models.User, token string, req dto.ReportRequest) (*dto.ReportResponse, error)
}

// ShareHandler exposes share creation, access and reporting endpoints.
type ShareHandler struct {
	shares      shareService
	reports     reportService
	maxFileSize int64
}

// NewShareHandler builds a ShareHandler. maxFileSize bounds the request body.
func NewShareHandler(shares shareService, reports reportService, maxFileSize int64) *ShareHandler {
	return &ShareHandler{shares: shares, reports: reports, maxFileSize: maxFileSize}
}

// Create godoc
// @Summary Create a share
// @Description Upload either a text snippet or a single file and receive a secret link
// @Tags Shares
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param text formData string false "Text payload"
// @Param file formData file false "File payload"
// @Param expiresAt formData string false "Expiry timestamp"
// @Param password formData string false "Access password"
// @Param oneTimeView formData string false "true for a one-time link"
// @Param maxViews formData integer false "Maximum combined views and downloads"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /shares [post]
func (h *ShareHandler) Create(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if h.maxFileSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileSize+formOverhead)
	}
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.ErrUploadTooLarge)
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "Invalid form data."))
		return
	}
	if c.Request.MultipartForm != nil {
		defer func() { _ = c.Request.MultipartForm.RemoveAll() }()
	}

	req := dto.CreateShareRequest{
		Text:        strings.TrimSpace(c.PostForm("text")),
		ExpiresAt:   c.PostForm("expiresAt"),
		Password:    strings.TrimSpace(c.PostForm("password")),
		OneTimeView: strings.EqualFold(strings.TrimSpace(c.PostForm("oneTimeView")), "true"),
		MaxViews:    c.PostForm("maxViews"),
	}

	header, err := c.FormFile("file")
	switch {
	case err == nil:
		file, openErr := header.Open()
		if openErr != nil {
			response.Error(c, appErrors.Wrap(openErr, appErrors.ErrValidation.Code, http.StatusBadRequest, "Invalid file upload."))
			return
		}
		defer file.Close()
		req.File = &dto.FileUpload{
			OriginalName: header.Filename,
			MimeType:     header.Header.Get("Content-Type"),
			Size:         header.Size,
			Content:      file,
		}
	case !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "Invalid file upload."))
		return
	}

	created, err := h.shares.CreateShare(c.Request.Context(), user, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Mine godoc
// @Summary List my shares
// @Tags Shares
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /shares/mine [get]
func (h *ShareHandler) Mine(c *gin.Context) {
	items, err := h.shares.ListMine(c.Request.Context(), currentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}

// View godoc
// @Summary Open a share link
// @Description Text shares count one view. File shares return metadata and a download URL.
// @Tags Shares
// @Produce json
// @Param token path string true "Share token"
// @Param X-Access-Password header string false "Share password"
// @Param password query string false "Share password"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /shares/{token} [get]
func (h *ShareHandler) View(c *gin.Context) {
	view, err := h.shares.GetForView(c.Request.Context(), c.Param("token"), accessPassword(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Download godoc
// @Summary Download a file share
// @Tags Shares
// @Produce octet-stream
// @Param token path string true "Share token"
// @Param X-Access-Password header string false "Share password"
// @Param password query string false "Share password"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /shares/{token}/download [get]
func (h *ShareHandler) Download(c *gin.Context) {
	download, err := h.shares.GetForDownload(c.Request.Context(), c.Param("token"), accessPassword(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.Body.Close()

	contentType := download.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": download.FileName})
	if disposition == "" {
		disposition = "attachment"
	}

	c.Header("Cache-Control", "no-store")
	if download.Size > 0 {
		c.DataFromReader(http.StatusOK, download.Size, contentType, download.Body, map[string]string{
			"Content-Disposition": disposition,
		})
		return
	}

	c.Header("Content-Disposition", disposition)
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, download.Body)
}

// Delete godoc
// @Summary Delete a share
// @Tags Shares
// @Produce json
// @Security BearerAuth
// @Param id path string true "Share ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /shares/id/{id} [delete]
func (h *ShareHandler) Delete(c *gin.Context) {
	if err := h.shares.DeleteShare(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.DeleteShareResponse{OK: true})
}

// Report godoc
// @Summary Report a share
// @Tags Shares
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param token path string true "Share token"
// @Param payload body dto.ReportRequest false "Report reason"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /shares/{token}/report [post]
func (h *ShareHandler) Report(c *gin.Context) {
	var req dto.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "Invalid report payload."))
		return
	}

	res, err := h.reports.ReportShare(c.Request.Context(), currentUser(c), c.Param("token"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}
