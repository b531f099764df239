package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/linkvault-api/internal/dto"
	"github.com/noah-isme/linkvault-api/internal/models"
	appErrors "github.com/noah-isme/linkvault-api/pkg/errors"
)

type adminUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListWithStats(ctx context.Context, filter models.UserFilter) ([]models.UserShareStats, error)
}

type adminShareStore interface {
	List(ctx context.Context, filter models.ShareFilter) ([]models.ShareWithOwner, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
}

// AdminConfig configures the admin read models.
type AdminConfig struct {
	PublicURL string
	StatsTTL  time.Duration
}

// AdminService serves the read-only admin aggregates.
type AdminService struct {
	users  adminUserStore
	shares adminShareStore
	cache  statsCache
	logger *zap.Logger
	links  shareLinks
	ttl    time.Duration
}

// NewAdminService constructs an AdminService.
func NewAdminService(users adminUserStore, shares adminShareStore, cache statsCache, logger *zap.Logger, cfg AdminConfig) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		users:  users,
		shares: shares,
		cache:  cache,
		logger: logger,
		links:  shareLinks(strings.TrimRight(cfg.PublicURL, "/")),
		ttl:    cfg.StatsTTL,
	}
}

// ListUsers returns users with their share count and total accesses.
func (s *AdminService) ListUsers(ctx context.Context, rawRole string) ([]models.UserShareStats, error) {
	role, ok := models.ParseRoleFilter(rawRole)
	if !ok {
		return nil, validationError("Invalid role filter.")
	}

	key := cacheKeyUserStatsPrefix + "all"
	if role != nil {
		key = cacheKeyUserStatsPrefix + string(*role)
	}

	var cached []models.UserShareStats
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	users, err := s.users.ListWithStats(ctx, models.UserFilter{Role: role})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	if users == nil {
		users = []models.UserShareStats{}
	}
	s.cache.Set(ctx, key, users, s.ttl)
	return users, nil
}

// ListShares returns every share, optionally narrowed to owners of one role.
func (s *AdminService) ListShares(ctx context.Context, rawOwnerRole string) ([]dto.AdminShareItem, error) {
	role, ok := models.ParseRoleFilter(rawOwnerRole)
	if !ok {
		return nil, validationError("Invalid role filter.")
	}
	return s.list(ctx, models.ShareFilter{OwnerRole: role})
}

// ListUserShares returns the shares owned by one user.
func (s *AdminService) ListUserShares(ctx context.Context, userID string) ([]dto.AdminShareItem, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "User not found.")
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "User not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	return s.list(ctx, models.ShareFilter{OwnerID: userID})
}

func (s *AdminService) list(ctx context.Context, filter models.ShareFilter) ([]dto.AdminShareItem, error) {
	shares, err := s.shares.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	return toAdminItems(s.links, shares), nil
}

func toAdminItems(links shareLinks, shares []models.ShareWithOwner) []dto.AdminShareItem {
	items := make([]dto.AdminShareItem, 0, len(shares))
	for i := range shares {
		share := &shares[i]
		items = append(items, dto.AdminShareItem{
			ID:    share.ID,
			Token: share.Token,
			Type:  share.Kind,
			Text:  share.Text,
			File:  links.FileInfo(&share.Share),
			Owner: &dto.AdminShareOwner{
				ID:    share.OwnerID,
				Name:  share.OwnerName,
				Email: share.OwnerEmail,
				Role:  share.OwnerRole,
			},
			ViewCount:     share.ViewCount,
			DownloadCount: share.DownloadCount,
			MaxViews:      share.MaxViews,
			OneTimeView:   share.OneTimeView,
			HasPassword:   share.HasPassword(),
			ReportCount:   share.ReportCount,
			ExpiresAt:     share.ExpiresAt,
			CreatedAt:     share.CreatedAt,
		})
	}
	return items
}
