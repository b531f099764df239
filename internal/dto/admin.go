package dto

import (
	"time"

	"github.com/noah-isme/linkvault-api/internal/models"
)

// AdminShareOwner is the owner summary attached to moderation listings.
type AdminShareOwner struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Role  models.UserRole `json:"role"`
}

// AdminShareItem is one share in an admin listing.
type AdminShareItem struct {
	ID            string           `json:"id"`
	Token         string           `json:"token"`
	Type          models.ShareKind `json:"type"`
	Text          *string          `json:"text"`
	File          *ShareFileInfo   `json:"file"`
	Owner         *AdminShareOwner `json:"owner"`
	ViewCount     int              `json:"viewCount"`
	DownloadCount int              `json:"downloadCount"`
	MaxViews      *int             `json:"maxViews"`
	OneTimeView   bool             `json:"oneTimeView"`
	HasPassword   bool             `json:"hasPassword"`
	ReportCount   int              `json:"reportCount"`
	ExpiresAt     time.Time        `json:"expiresAt"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// ItemsResponse wraps admin listings.
type ItemsResponse[T any] struct {
	Items []T `json:"items"`
}
