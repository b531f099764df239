package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/linkvault-api/internal/dto"
	"github.com/noah-isme/linkvault-api/internal/middleware"
	"github.com/noah-isme/linkvault-api/internal/models"
	appErrors "github.com/noah-isme/linkvault-api/pkg/errors"
)

type shareServiceMock struct {
	createReq   dto.CreateShareRequest
	fileContent string
	createErr   error

	viewToken    string
	viewPassword string
	viewErr      error

	download    *dto.ShareDownload
	downloadErr error

	deletedID string
}

func (m *shareServiceMock) CreateShare(ctx context.Context, owner *models.User, req dto.CreateShareRequest) (*dto.ShareResponse, error) {
	m.createReq = req
	if req.File != nil {
		data, _ := io.ReadAll(req.File.Content)
		m.fileContent = string(data)
	}
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &dto.ShareResponse{Token: "0123456789abcdef0123456789abcdef", Type: models.ShareKindText}, nil
}

func (m *shareServiceMock) GetForView(ctx context.Context, token, password string) (*dto.ShareViewResponse, error) {
	m.viewToken = token
	m.viewPassword = password
	if m.viewErr != nil {
		return nil, m.viewErr
	}
	text := "secret"
	return &dto.ShareViewResponse{Token: token, Type: models.ShareKindText, Text: &text, ViewCount: 1}, nil
}

func (m *shareServiceMock) GetForDownload(ctx context.Context, token, password string) (*dto.ShareDownload, error) {
	return m.download, m.downloadErr
}

func (m *shareServiceMock) DeleteShare(ctx context.Context, requester *models.User, id string) error {
	m.deletedID = id
	return nil
}

func (m *shareServiceMock) ListMine(ctx context.Context, owner *models.User) ([]dto.ShareResponse, error) {
	return []dto.ShareResponse{{Token: "t1"}}, nil
}

type reportServiceMock struct {
	req dto.ReportRequest
	err error
}

func (m *reportServiceMock) ReportShare(ctx context.Context, reporter *models.User, token string, req dto.ReportRequest) (*dto.ReportResponse, error) {
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ReportResponse{OK: true, ReportCount: 1}, nil
}

func multipartBody(t *testing.T, fields map[string]string, fileName, fileContent string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(fileContent))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func authedContext(method, target string, body io.Reader) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, body)
	c.Set(middleware.ContextUserKey, &models.User{ID: "user-1", Role: models.RoleUser})
	return c, w
}

func TestShareHandlerCreateText(t *testing.T) {
	svc := &shareServiceMock{}
	h := NewShareHandler(svc, &reportServiceMock{}, 1024)

	body, contentType := multipartBody(t, map[string]string{
		"text":        "  secret  ",
		"oneTimeView": "TRUE",
		"maxViews":    "3",
		"expiresAt":   "2030-01-01T00:00:00Z",
		"password":    "  pw  ",
	}, "", "")
	c, w := authedContext(http.MethodPost, "/api/shares", body)
	c.Request.Header.Set("Content-Type", contentType)

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "secret", svc.createReq.Text)
	assert.True(t, svc.createReq.OneTimeView)
	assert.Equal(t, "3", svc.createReq.MaxViews)
	assert.Equal(t, "pw", svc.createReq.Password)
	assert.Nil(t, svc.createReq.File)

	var envelope struct {
		Data dto.ShareResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "0123456789abcdef0123456789abcdef", envelope.Data.Token)
}

func TestShareHandlerCreateFile(t *testing.T) {
	svc := &shareServiceMock{}
	h := NewShareHandler(svc, &reportServiceMock{}, 1024)

	body, contentType := multipartBody(t, map[string]string{"oneTimeView": "yes"}, "notes.txt", "file body")
	c, w := authedContext(http.MethodPost, "/api/shares", body)
	c.Request.Header.Set("Content-Type", contentType)

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.createReq.File)
	assert.Equal(t, "notes.txt", svc.createReq.File.OriginalName)
	assert.Equal(t, int64(len("file body")), svc.createReq.File.Size)
	assert.Equal(t, "file body", svc.fileContent)
	assert.False(t, svc.createReq.OneTimeView)
}

func TestShareHandlerCreateRejectsOversizedBody(t *testing.T) {
	svc := &shareServiceMock{}
	h := NewShareHandler(svc, &reportServiceMock{}, 16)

	body, contentType := multipartBody(t, nil, "big.bin", strings.Repeat("x", formOverhead+64))
	c, w := authedContext(http.MethodPost, "/api/shares", body)
	c.Request.Header.Set("Content-Type", contentType)

	h.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "UPLOAD_TOO_LARGE")
	assert.Nil(t, svc.createReq.File)
}

func TestShareHandlerCreateRequiresUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewShareHandler(&shareServiceMock{}, &reportServiceMock{}, 1024)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/shares", nil)

	h.Create(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestShareHandlerViewPasswordSources(t *testing.T) {
	svc := &shareServiceMock{}
	h := NewShareHandler(svc, &reportServiceMock{}, 1024)

	c, w := authedContext(http.MethodGet, "/api/shares/tok?password=fromquery", nil)
	c.Params = gin.Params{{Key: "token", Value: "tok"}}
	c.Request.Header.Set("x-access-password", "fromheader")
	h.View(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok", svc.viewToken)
	assert.Equal(t, "fromheader", svc.viewPassword)

	c, _ = authedContext(http.MethodGet, "/api/shares/tok?password=fromquery", nil)
	c.Params = gin.Params{{Key: "token", Value: "tok"}}
	h.View(c)
	assert.Equal(t, "fromquery", svc.viewPassword)
}

func TestShareHandlerViewErrors(t *testing.T) {
	cases := []struct {
		err              error
		status           int
		passwordRequired bool
	}{
		{err: appErrors.ErrPasswordRequired, status: http.StatusUnauthorized, passwordRequired: true},
		{err: appErrors.ErrPasswordInvalid, status: http.StatusUnauthorized, passwordRequired: true},
		{err: appErrors.ErrInvalidLink, status: http.StatusForbidden},
		{err: appErrors.ErrLinkExpired, status: http.StatusGone},
		{err: appErrors.ErrLinkExhausted, status: http.StatusGone},
	}
	for _, tc := range cases {
		svc := &shareServiceMock{viewErr: tc.err}
		h := NewShareHandler(svc, &reportServiceMock{}, 1024)
		c, w := authedContext(http.MethodGet, "/api/shares/tok", nil)
		h.View(c)

		require.Equal(t, tc.status, w.Code)
		var envelope map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
		if tc.passwordRequired {
			assert.Equal(t, true, envelope["passwordRequired"])
		} else {
			assert.NotContains(t, envelope, "passwordRequired")
		}
	}
}

func TestShareHandlerDownloadStreamsFile(t *testing.T) {
	svc := &shareServiceMock{download: &dto.ShareDownload{
		FileName: "report final.pdf",
		MimeType: "application/pdf",
		Size:     7,
		Body:     io.NopCloser(strings.NewReader("%PDF-1.")),
	}}
	h := NewShareHandler(svc, &reportServiceMock{}, 1024)
	c, w := authedContext(http.MethodGet, "/api/shares/tok/download", nil)

	h.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report final.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.", w.Body.String())
}

func TestShareHandlerDownloadWrongKind(t *testing.T) {
	h := NewShareHandler(&shareServiceMock{downloadErr: appErrors.ErrWrongKind}, &reportServiceMock{}, 1024)
	c, w := authedContext(http.MethodGet, "/api/shares/tok/download", nil)
	h.Download(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShareHandlerDelete(t *testing.T) {
	svc := &shareServiceMock{}
	h := NewShareHandler(svc, &reportServiceMock{}, 1024)
	c, w := authedContext(http.MethodDelete, "/api/shares/id/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	h.Delete(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", svc.deletedID)
	assert.JSONEq(t, `{"data":{"ok":true}}`, w.Body.String())
}

func TestShareHandlerReport(t *testing.T) {
	reports := &reportServiceMock{}
	h := NewShareHandler(&shareServiceMock{}, reports, 1024)

	c, w := authedContext(http.MethodPost, "/api/shares/tok/report", nil)
	h.Report(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"data":{"ok":true,"reportCount":1}}`, w.Body.String())

	c, w = authedContext(http.MethodPost, "/api/shares/tok/report", strings.NewReader(`{"reason":"spam"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Report(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "spam", reports.req.Reason)

	c, w = authedContext(http.MethodPost, "/api/shares/tok/report", strings.NewReader(`{"reason":`))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Report(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	reports.err = appErrors.ErrAlreadyReported
	c, w = authedContext(http.MethodPost, "/api/shares/tok/report", nil)
	h.Report(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ALREADY_REPORTED")
}
