package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/linkvault-api/internal/dto"
	"github.com/noah-isme/linkvault-api/internal/models"
	"github.com/noah-isme/linkvault-api/internal/repository"
	appErrors "github.com/noah-isme/linkvault-api/pkg/errors"
	"github.com/noah-isme/linkvault-api/pkg/security"
	"github.com/noah-isme/linkvault-api/pkg/storage"
)

// Share limits enforced on creation.
const (
	MaxTextLength     = 20000
	MaxPasswordLength = 128
	MaxReasonLength   = 300
)

const (
	operationView     = "view"
	operationDownload = "download"
)

var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type shareStore interface {
	Create(ctx context.Context, share *models.Share) error
	FindByToken(ctx context.Context, token string) (*models.Share, error)
	FindByID(ctx context.Context, id string) (*models.Share, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Share, error)
	ConsumeAccess(ctx context.Context, token string, counter models.AccessCounter, now time.Time) (*models.Share, error)
	Delete(ctx context.Context, id string) error
}

type credentialHasher interface {
	Hash(password string) (hash string, salt string, err error)
	Verify(password, salt, hash string) bool
}

type payloadRemover interface {
	Remove(ctx context.Context, name string)
}

type statsInvalidator interface {
	InvalidateUserStats(ctx context.Context)
}

// ShareConfig carries the settings the share engine needs.
type ShareConfig struct {
	// PublicURL is the absolute prefix share links are built on, e.g. https://host/api.
	PublicURL     string
	DefaultExpiry time.Duration
	MaxFileSize   int64
	TokenAttempts int
	Now           func() time.Time
}

// ShareService enforces creation rules and gates every view and download.
type ShareService struct {
	repo     shareStore
	payloads storage.PayloadStore
	cleaner  payloadRemover
	hasher   credentialHasher
	stats    statsInvalidator
	metrics  *MetricsService
	logger   *zap.Logger
	links    shareLinks
	config   ShareConfig
}

// NewShareService constructs the share engine.
func NewShareService(repo shareStore, payloads storage.PayloadStore, cleaner payloadRemover, hasher credentialHasher, stats statsInvalidator, metrics *MetricsService, logger *zap.Logger, cfg ShareConfig) *ShareService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultExpiry <= 0 {
		cfg.DefaultExpiry = 30 * time.Minute
	}
	if cfg.TokenAttempts <= 0 {
		cfg.TokenAttempts = 5
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ShareService{
		repo:     repo,
		payloads: payloads,
		cleaner:  cleaner,
		hasher:   hasher,
		stats:    stats,
		metrics:  metrics,
		logger:   logger,
		links:    shareLinks(strings.TrimRight(cfg.PublicURL, "/")),
		config:   cfg,
	}
}

type createInput struct {
	text      *string
	password  string
	expiresAt time.Time
	maxViews  *int
}

// CreateShare validates the request, persists the file payload if any and
// registers the share under a fresh token.
func (s *ShareService) CreateShare(ctx context.Context, owner *models.User, req dto.CreateShareRequest) (*dto.ShareResponse, error) {
	if owner == nil {
		return nil, appErrors.ErrUnauthorized
	}
	now := s.now()
	input, err := s.validateCreate(req, now)
	if err != nil {
		return nil, err
	}

	share := &models.Share{
		ID:          uuid.NewString(),
		OwnerID:     owner.ID,
		ExpiresAt:   input.expiresAt,
		OneTimeView: req.OneTimeView,
		MaxViews:    input.maxViews,
		CreatedAt:   now,
	}

	if input.password != "" {
		hash, salt, err := s.hasher.Hash(input.password)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
		}
		share.PasswordHash = &hash
		share.PasswordSalt = &salt
	}

	if input.text != nil {
		share.Kind = models.ShareKindText
		share.Text = input.text
	} else {
		share.Kind = models.ShareKindFile
		if err := s.storePayload(ctx, share, req.File, now); err != nil {
			return nil, err
		}
	}

	if err := s.register(ctx, share); err != nil {
		if share.Kind == models.ShareKindFile {
			s.cleaner.Remove(ctx, share.StoredName())
		}
		return nil, err
	}

	s.metrics.ShareCreated(share.Kind)
	s.stats.InvalidateUserStats(ctx)
	s.logger.Info("share created",
		zap.String("share_id", share.ID),
		zap.String("owner_id", owner.ID),
		zap.String("kind", string(share.Kind)),
		zap.Time("expires_at", share.ExpiresAt),
	)

	resp := s.toResponse(share)
	return &resp, nil
}

func (s *ShareService) validateCreate(req dto.CreateShareRequest, now time.Time) (*createInput, error) {
	hasText := req.Text != ""
	hasFile := req.File != nil
	if hasText == hasFile {
		return nil, validationError("Provide either text or file, but not both.")
	}
	if hasFile && s.config.MaxFileSize > 0 && req.File.Size > s.config.MaxFileSize {
		return nil, appErrors.ErrUploadTooLarge
	}
	if hasText && utf8.RuneCountInString(req.Text) > MaxTextLength {
		return nil, validationError(fmt.Sprintf("Text must be at most %d characters.", MaxTextLength))
	}

	input := &createInput{expiresAt: now.Add(s.config.DefaultExpiry).UTC()}
	if hasText {
		text := req.Text
		input.text = &text
	}

	if raw := strings.TrimSpace(req.ExpiresAt); raw != "" {
		expiresAt, ok := parseExpiry(raw)
		if !ok {
			return nil, validationError("Invalid expiry date.")
		}
		if !expiresAt.After(now) {
			return nil, validationError("Expiry must be in the future.")
		}
		input.expiresAt = expiresAt.UTC()
	}

	if raw := strings.TrimSpace(req.MaxViews); raw != "" {
		// max_views is a 32-bit column
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed <= 0 {
			return nil, validationError("maxViews must be a positive integer.")
		}
		maxViews := int(parsed)
		input.maxViews = &maxViews
	}

	// passwords are compared trimmed
	input.password = strings.TrimSpace(req.Password)
	if utf8.RuneCountInString(input.password) > MaxPasswordLength {
		return nil, validationError(fmt.Sprintf("Password must be at most %d characters.", MaxPasswordLength))
	}

	return input, nil
}

func (s *ShareService) storePayload(ctx context.Context, share *models.Share, file *dto.FileUpload, now time.Time) error {
	suffix, err := security.NewToken()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}

	originalName := filepath.Base(strings.ReplaceAll(file.OriginalName, "\\", "/"))
	if originalName == "." || originalName == "/" || originalName == "" {
		originalName = "file"
	}
	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	storedName := fmt.Sprintf("%d-%s%s", now.UnixMilli(), suffix, cleanExtension(originalName))

	path, err := s.payloads.Put(ctx, storedName, file.Content, file.Size, mimeType)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}

	size := file.Size
	share.FileOriginalName = &originalName
	share.FileStoredName = &storedName
	share.FileMimeType = &mimeType
	share.FileSize = &size
	share.FilePath = &path
	return nil
}

// register inserts the share, drawing a new token whenever the registry
// reports a collision.
func (s *ShareService) register(ctx context.Context, share *models.Share) error {
	for attempt := 1; attempt <= s.config.TokenAttempts; attempt++ {
		token, err := security.NewToken()
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
		}
		share.Token = token

		err = s.repo.Create(ctx, share)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateToken) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
		}
		s.logger.Warn("share token collision", zap.Int("attempt", attempt))
	}
	return appErrors.Wrap(repository.ErrDuplicateToken, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
}

// GetForView opens a share link. Text shares consume one access; file
// shares only reveal metadata and are consumed by GetForDownload.
func (s *ShareService) GetForView(ctx context.Context, token, password string) (*dto.ShareViewResponse, error) {
	share, err := s.gate(ctx, operationView, token, password, "")
	if err != nil {
		return nil, err
	}

	if share.Kind == models.ShareKindText {
		now := s.now()
		updated, err := s.repo.ConsumeAccess(ctx, token, models.CounterView, now)
		if err != nil {
			return nil, s.consumeFailed(ctx, operationView, token, now, err)
		}
		share = updated
		s.stats.InvalidateUserStats(ctx)
	}

	s.metrics.ShareAccess(operationView, OutcomeGranted)
	resp := s.toViewResponse(share)
	return &resp, nil
}

// GetForDownload consumes one access of a file share and opens its payload.
// The caller must close the returned body.
func (s *ShareService) GetForDownload(ctx context.Context, token, password string) (*dto.ShareDownload, error) {
	share, err := s.gate(ctx, operationDownload, token, password, models.ShareKindFile)
	if err != nil {
		return nil, err
	}

	obj, err := s.payloads.Open(ctx, share.StoredName())
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "File is no longer available.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}

	now := s.now()
	if _, err := s.repo.ConsumeAccess(ctx, token, models.CounterDownload, now); err != nil {
		_ = obj.Body.Close()
		return nil, s.consumeFailed(ctx, operationDownload, token, now, err)
	}

	s.stats.InvalidateUserStats(ctx)
	s.metrics.ShareAccess(operationDownload, OutcomeGranted)

	download := &dto.ShareDownload{
		FileName: deref(share.FileOriginalName),
		MimeType: deref(share.FileMimeType),
		Size:     obj.Size,
		Body:     obj.Body,
	}
	if download.Size <= 0 && share.FileSize != nil {
		download.Size = *share.FileSize
	}
	if download.MimeType == "" {
		download.MimeType = obj.ContentType
	}
	return download, nil
}

// gate runs the read-side checks shared by view and download. The counter
// update afterwards re-checks expiry and exhaustion atomically.
func (s *ShareService) gate(ctx context.Context, operation, token, password string, kind models.ShareKind) (*models.Share, error) {
	if !security.ValidToken(token) {
		return nil, s.deny(operation, OutcomeInvalid, appErrors.ErrInvalidLink)
	}

	share, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.deny(operation, OutcomeInvalid, appErrors.ErrInvalidLink)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}

	if kind != "" && share.Kind != kind {
		return nil, s.deny(operation, OutcomeWrongKind, appErrors.ErrWrongKind)
	}
	if share.IsExpired(s.now()) {
		return nil, s.deny(operation, OutcomeExpired, appErrors.ErrLinkExpired)
	}
	if share.IsExhausted() {
		return nil, s.deny(operation, OutcomeExhausted, appErrors.ErrLinkExhausted)
	}

	if share.HasPassword() {
		password = strings.TrimSpace(password)
		if password == "" {
			return nil, s.deny(operation, OutcomePasswordRequired, appErrors.ErrPasswordRequired)
		}
		if !s.hasher.Verify(password, deref(share.PasswordSalt), deref(share.PasswordHash)) {
			return nil, s.deny(operation, OutcomePasswordInvalid, appErrors.ErrPasswordInvalid)
		}
	}

	return share, nil
}

// consumeFailed classifies a lost conditional update by re-reading the share.
func (s *ShareService) consumeFailed(ctx context.Context, operation, token string, now time.Time, err error) error {
	if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}

	share, findErr := s.repo.FindByToken(ctx, token)
	switch {
	case errors.Is(findErr, sql.ErrNoRows):
		return s.deny(operation, OutcomeInvalid, appErrors.ErrInvalidLink)
	case findErr != nil:
		return appErrors.Wrap(findErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	case share.IsExpired(now):
		return s.deny(operation, OutcomeExpired, appErrors.ErrLinkExpired)
	default:
		return s.deny(operation, OutcomeExhausted, appErrors.ErrLinkExhausted)
	}
}

func (s *ShareService) deny(operation, outcome string, err *appErrors.Error) error {
	s.metrics.ShareAccess(operation, outcome)
	return err
}

// DeleteShare removes a share owned by requester, or any share when
// requester is an admin. The payload goes first, then the record.
func (s *ShareService) DeleteShare(ctx context.Context, requester *models.User, id string) error {
	if requester == nil {
		return appErrors.ErrUnauthorized
	}
	if _, err := uuid.Parse(id); err != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "Share not found.")
	}

	share, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "Share not found.")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}

	if share.OwnerID != requester.ID && !requester.IsAdmin() {
		return appErrors.Clone(appErrors.ErrForbidden, "You cannot delete this share.")
	}

	if share.Kind == models.ShareKindFile {
		s.cleaner.Remove(ctx, share.StoredName())
	}

	if err := s.repo.Delete(ctx, share.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "Share not found.")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}

	s.stats.InvalidateUserStats(ctx)
	s.logger.Info("share deleted", zap.String("share_id", share.ID), zap.String("requester_id", requester.ID))
	return nil
}

// ListMine returns the owner's shares, newest first.
func (s *ShareService) ListMine(ctx context.Context, owner *models.User) ([]dto.ShareResponse, error) {
	if owner == nil {
		return nil, appErrors.ErrUnauthorized
	}
	shares, err := s.repo.ListByOwner(ctx, owner.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	items := make([]dto.ShareResponse, 0, len(shares))
	for i := range shares {
		items = append(items, s.toResponse(&shares[i]))
	}
	return items, nil
}

func (s *ShareService) toResponse(share *models.Share) dto.ShareResponse {
	return dto.ShareResponse{
		ID:            share.ID,
		Token:         share.Token,
		Type:          share.Kind,
		ExpiresAt:     share.ExpiresAt,
		OneTimeView:   share.OneTimeView,
		MaxViews:      share.MaxViews,
		ViewCount:     share.ViewCount,
		DownloadCount: share.DownloadCount,
		ReportCount:   share.ReportCount,
		HasPassword:   share.HasPassword(),
		ShareURL:      s.links.Share(share.Token),
		File:          s.links.FileInfo(share),
		CreatedAt:     share.CreatedAt,
	}
}

func (s *ShareService) toViewResponse(share *models.Share) dto.ShareViewResponse {
	return dto.ShareViewResponse{
		Token:         share.Token,
		Type:          share.Kind,
		ExpiresAt:     share.ExpiresAt,
		OneTimeView:   share.OneTimeView,
		MaxViews:      share.MaxViews,
		ViewCount:     share.ViewCount,
		DownloadCount: share.DownloadCount,
		HasPassword:   share.HasPassword(),
		Text:          share.Text,
		File:          s.links.FileInfo(share),
	}
}

func (s *ShareService) now() time.Time {
	return s.config.Now().UTC()
}

// shareLinks builds absolute URLs under the public API prefix.
type shareLinks string

func (l shareLinks) Share(token string) string {
	return string(l) + "/shares/" + token
}

func (l shareLinks) Download(token string) string {
	return l.Share(token) + "/download"
}

func (l shareLinks) FileInfo(share *models.Share) *dto.ShareFileInfo {
	if share.Kind != models.ShareKindFile {
		return nil
	}
	info := &dto.ShareFileInfo{
		OriginalName: deref(share.FileOriginalName),
		MimeType:     deref(share.FileMimeType),
		DownloadURL:  l.Download(share.Token),
	}
	if share.FileSize != nil {
		info.Size = *share.FileSize
	}
	return info
}

func parseExpiry(raw string) (time.Time, bool) {
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// cleanExtension keeps a short alphanumeric extension so stored names stay
// safe for any payload store.
func cleanExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 16 {
		return ""
	}
	for _, r := range ext[1:] {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return ""
		}
	}
	return ext
}

func validationError(message string) *appErrors.Error {
	return appErrors.Clone(appErrors.ErrValidation, message)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
