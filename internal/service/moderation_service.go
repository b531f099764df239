package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/linkvault-api/internal/dto"
	"github.com/noah-isme/linkvault-api/internal/models"
	"github.com/noah-isme/linkvault-api/internal/repository"
	appErrors "github.com/noah-isme/linkvault-api/pkg/errors"
	"github.com/noah-isme/linkvault-api/pkg/export"
	"github.com/noah-isme/linkvault-api/pkg/security"
)

var reportedExportHeaders = []string{"Token", "Type", "Owner", "Owner Email", "Reports", "Views", "Downloads", "Expires At", "Created At"}

type moderationStore interface {
	FindByToken(ctx context.Context, token string) (*models.Share, error)
	AddReport(ctx context.Context, report *models.ShareReport) (int, error)
	List(ctx context.Context, filter models.ShareFilter) ([]models.ShareWithOwner, error)
	ListReports(ctx context.Context, shareID string) ([]models.ShareReport, error)
}

// ModerationService records abuse reports and serves the moderation queue.
type ModerationService struct {
	repo      moderationStore
	validator *validator.Validate
	logger    *zap.Logger
	links     shareLinks
	now       func() time.Time
}

// NewModerationService constructs a ModerationService.
func NewModerationService(repo moderationStore, validate *validator.Validate, logger *zap.Logger, publicURL string) *ModerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ModerationService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		links:     shareLinks(strings.TrimRight(publicURL, "/")),
		now:       time.Now,
	}
}

// ReportShare files a report by reporter against the share and returns the
// share's report count. Each user may report a share once.
func (s *ModerationService) ReportShare(ctx context.Context, reporter *models.User, token string, req dto.ReportRequest) (*dto.ReportResponse, error) {
	if reporter == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !security.ValidToken(token) {
		return nil, appErrors.ErrInvalidToken
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("Reason must be at most %d characters.", MaxReasonLength))
	}

	share, err := s.findShare(ctx, token)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.AddReport(ctx, &models.ShareReport{
		ID:         uuid.NewString(),
		ShareID:    share.ID,
		ReportedBy: reporter.ID,
		Reason:     req.Reason,
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateReport):
			return nil, appErrors.ErrAlreadyReported
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Share not found.")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
		}
	}

	s.logger.Info("share reported", zap.String("share_id", share.ID), zap.String("reporter_id", reporter.ID), zap.Int("report_count", count))
	return &dto.ReportResponse{OK: true, ReportCount: count}, nil
}

// ListReported returns shares with at least one report, most reported first.
func (s *ModerationService) ListReported(ctx context.Context) ([]dto.AdminShareItem, error) {
	shares, err := s.repo.List(ctx, models.ShareFilter{ReportedOnly: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	return toAdminItems(s.links, shares), nil
}

// ListReports returns the individual reports filed against a share.
func (s *ModerationService) ListReports(ctx context.Context, token string) ([]models.ShareReport, error) {
	if !security.ValidToken(token) {
		return nil, appErrors.ErrInvalidToken
	}
	share, err := s.findShare(ctx, token)
	if err != nil {
		return nil, err
	}
	reports, err := s.repo.ListReports(ctx, share.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	if reports == nil {
		reports = []models.ShareReport{}
	}
	return reports, nil
}

// ExportReported writes the moderation queue to w in the given format.
func (s *ModerationService) ExportReported(ctx context.Context, format export.Format, w io.Writer) error {
	items, err := s.ListReported(ctx)
	if err != nil {
		return err
	}

	data := export.Dataset{
		Title:   fmt.Sprintf("Reported shares (%s)", s.now().UTC().Format("2006-01-02 15:04 MST")),
		Headers: reportedExportHeaders,
		Rows:    make([]map[string]string, 0, len(items)),
	}
	for _, item := range items {
		row := map[string]string{
			"Token":      item.Token,
			"Type":       string(item.Type),
			"Reports":    strconv.Itoa(item.ReportCount),
			"Views":      strconv.Itoa(item.ViewCount),
			"Downloads":  strconv.Itoa(item.DownloadCount),
			"Expires At": item.ExpiresAt.UTC().Format(time.RFC3339),
			"Created At": item.CreatedAt.UTC().Format(time.RFC3339),
		}
		if item.Owner != nil {
			row["Owner"] = item.Owner.Name
			row["Owner Email"] = item.Owner.Email
		}
		data.Rows = append(data.Rows, row)
	}

	if err := export.RendererFor(format).Render(w, data); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	return nil
}

func (s *ModerationService) findShare(ctx context.Context, token string) (*models.Share, error) {
	share, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Share not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	return share, nil
}
