package models

import "time"

// ShareKind distinguishes text and file payloads.
type ShareKind string

const (
	ShareKindText ShareKind = "text"
	ShareKindFile ShareKind = "file"
)

// AccessCounter selects which counter a successful access increments.
type AccessCounter string

const (
	CounterView     AccessCounter = "view_count"
	CounterDownload AccessCounter = "download_count"
)

// Share is one row of the shares table. Exactly one of Text and FileStoredName
// is non-nil. ReportCount is computed from share_reports on read.
type Share struct {
	ID               string    `db:"id"`
	Token            string    `db:"token"`
	OwnerID          string    `db:"owner_id"`
	Kind             ShareKind `db:"kind"`
	Text             *string   `db:"text_content"`
	FileOriginalName *string   `db:"file_original"`
	FileStoredName   *string   `db:"file_stored"`
	FileMimeType     *string   `db:"file_mime"`
	FileSize         *int64    `db:"file_size"`
	FilePath         *string   `db:"file_path"`
	ExpiresAt        time.Time `db:"expires_at"`
	OneTimeView      bool      `db:"one_time_view"`
	MaxViews         *int      `db:"max_views"`
	ViewCount        int       `db:"view_count"`
	DownloadCount    int       `db:"download_count"`
	PasswordHash     *string   `db:"password_hash"`
	PasswordSalt     *string   `db:"password_salt"`
	ReportCount      int       `db:"report_count"`
	CreatedAt        time.Time `db:"created_at"`
}

// AccessCount is views plus downloads.
func (s *Share) AccessCount() int {
	return s.ViewCount + s.DownloadCount
}

// IsExpired reports whether the share is past its expiry at now.
func (s *Share) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// IsExhausted reports whether the one-time or max-views policy blocks access.
func (s *Share) IsExhausted() bool {
	if s.OneTimeView && s.AccessCount() > 0 {
		return true
	}
	return s.MaxViews != nil && s.AccessCount() >= *s.MaxViews
}

// Accessible combines the expiry and exhaustion rules.
func (s *Share) Accessible(now time.Time) bool {
	return !s.IsExpired(now) && !s.IsExhausted()
}

// HasPassword reports whether access requires a password.
func (s *Share) HasPassword() bool {
	return s.PasswordHash != nil && *s.PasswordHash != ""
}

// StoredName returns the payload object name, or "" for text shares.
func (s *Share) StoredName() string {
	if s.FileStoredName == nil {
		return ""
	}
	return *s.FileStoredName
}

// ShareWithOwner adds owner columns for moderation listings.
type ShareWithOwner struct {
	Share
	OwnerName  string   `db:"owner_name"`
	OwnerEmail string   `db:"owner_email"`
	OwnerRole  UserRole `db:"owner_role"`
}

// ShareFilter narrows admin share listings.
type ShareFilter struct {
	OwnerID      string
	OwnerRole    *UserRole
	ReportedOnly bool
}

// ShareReport is one abuse report. A user may report a share once.
type ShareReport struct {
	ID            string    `db:"id" json:"id"`
	ShareID       string    `db:"share_id" json:"-"`
	ReportedBy    string    `db:"reported_by" json:"reportedBy"`
	ReporterName  string    `db:"reporter_name" json:"reporterName,omitempty"`
	ReporterEmail string    `db:"reporter_email" json:"reporterEmail,omitempty"`
	Reason        string    `db:"reason" json:"reason"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// ExpiredShare is the minimal projection the reaper needs.
type ExpiredShare struct {
	ID             string    `db:"id"`
	Kind           ShareKind `db:"kind"`
	FileStoredName *string   `db:"file_stored"`
}
