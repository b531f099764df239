package dto

import (
	"io"
	"time"

	"github.com/noah-isme/linkvault-api/internal/models"
)

// CreateShareRequest carries the raw multipart fields of a new share.
// Exactly one of Text and File must be provided.
type CreateShareRequest struct {
	Text        string
	File        *FileUpload
	ExpiresAt   string
	Password    string
	OneTimeView bool
	MaxViews    string
}

// FileUpload is an uploaded file ready to be streamed into the payload store.
type FileUpload struct {
	OriginalName string
	MimeType     string
	Size         int64
	Content      io.Reader
}

// ShareFileInfo describes a file payload without exposing storage details.
type ShareFileInfo struct {
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	DownloadURL  string `json:"downloadUrl,omitempty"`
}

// ShareResponse is returned to the owner on creation and in their listing.
type ShareResponse struct {
	ID            string           `json:"id"`
	Token         string           `json:"token"`
	Type          models.ShareKind `json:"type"`
	ExpiresAt     time.Time        `json:"expiresAt"`
	OneTimeView   bool             `json:"oneTimeView"`
	MaxViews      *int             `json:"maxViews"`
	ViewCount     int              `json:"viewCount"`
	DownloadCount int              `json:"downloadCount"`
	ReportCount   int              `json:"reportCount"`
	HasPassword   bool             `json:"hasPassword"`
	ShareURL      string           `json:"shareUrl"`
	File          *ShareFileInfo   `json:"file,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// ShareViewResponse is returned to whoever opens a share link.
type ShareViewResponse struct {
	Token         string           `json:"token"`
	Type          models.ShareKind `json:"type"`
	ExpiresAt     time.Time        `json:"expiresAt"`
	OneTimeView   bool             `json:"oneTimeView"`
	MaxViews      *int             `json:"maxViews"`
	ViewCount     int              `json:"viewCount"`
	DownloadCount int              `json:"downloadCount"`
	HasPassword   bool             `json:"hasPassword"`
	Text          *string          `json:"text,omitempty"`
	File          *ShareFileInfo   `json:"file,omitempty"`
}

// ShareDownload is an opened file payload. The caller must close Body.
type ShareDownload struct {
	FileName string
	MimeType string
	Size     int64
	Body     io.ReadCloser
}

// ReportRequest is the body of a share report.
type ReportRequest struct {
	Reason string `json:"reason" validate:"max=300"`
}

// ReportResponse acknowledges a report.
type ReportResponse struct {
	OK          bool `json:"ok"`
	ReportCount int  `json:"reportCount"`
}

// DeleteShareResponse acknowledges a deletion.
type DeleteShareResponse struct {
	OK bool `json:"ok"`
}
