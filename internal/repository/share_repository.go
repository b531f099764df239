package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/linkvault-api/internal/models"
)

const shareColumns = `s.id, s.token, s.owner_id, s.kind, s.text_content, s.file_original, s.file_stored, s.file_mime, s.file_size, s.file_path, s.expires_at, s.one_time_view, s.max_views, s.view_count, s.download_count, s.password_hash, s.password_salt, s.created_at, (SELECT COUNT(*) FROM share_reports r WHERE r.share_id = s.id) AS report_count`

// Conditional increments. A row is only touched while the share is still
// accessible, so concurrent requests cannot both consume the last access.
const (
	consumeViewQuery     = `UPDATE shares AS s SET view_count = s.view_count + 1 WHERE s.token = $1 AND s.kind = 'text' AND s.expires_at > $2 AND NOT (s.one_time_view AND s.view_count + s.download_count > 0) AND (s.max_views IS NULL OR s.view_count + s.download_count < s.max_views) RETURNING ` + shareColumns
	consumeDownloadQuery = `UPDATE shares AS s SET download_count = s.download_count + 1 WHERE s.token = $1 AND s.kind = 'file' AND s.expires_at > $2 AND NOT (s.one_time_view AND s.view_count + s.download_count > 0) AND (s.max_views IS NULL OR s.view_count + s.download_count < s.max_views) RETURNING ` + shareColumns
)

// ShareRepository persists shares and their abuse reports.
type ShareRepository struct {
	db *sqlx.DB
}

// NewShareRepository creates a new instance of ShareRepository.
func NewShareRepository(db *sqlx.DB) *ShareRepository {
	return &ShareRepository{db: db}
}

// Create inserts a share. A token collision yields ErrDuplicateToken.
func (r *ShareRepository) Create(ctx context.Context, share *models.Share) error {
	if share.ID == "" {
		share.ID = uuid.NewString()
	}
	if share.CreatedAt.IsZero() {
		share.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO shares (id, token, owner_id, kind, text_content, file_original, file_stored, file_mime, file_size, file_path, expires_at, one_time_view, max_views, view_count, download_count, password_hash, password_salt, created_at) VALUES (:id, :token, :owner_id, :kind, :text_content, :file_original, :file_stored, :file_mime, :file_size, :file_path, :expires_at, :one_time_view, :max_views, :view_count, :download_count, :password_hash, :password_salt, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, share); err != nil {
		if isPQCode(err, pqUniqueViolation) {
			return ErrDuplicateToken
		}
		return fmt.Errorf("create share: %w", err)
	}
	return nil
}

// FindByToken returns a share by its public token.
func (r *ShareRepository) FindByToken(ctx context.Context, token string) (*models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares s WHERE s.token = $1 LIMIT 1`
	var share models.Share
	if err := r.db.GetContext(ctx, &share, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find share by token: %w", err)
	}
	return &share, nil
}

// FindByID returns a share by identifier.
func (r *ShareRepository) FindByID(ctx context.Context, id string) (*models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares s WHERE s.id = $1 LIMIT 1`
	var share models.Share
	if err := r.db.GetContext(ctx, &share, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find share by id: %w", err)
	}
	return &share, nil
}

// ListByOwner returns the owner's shares newest first.
func (r *ShareRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares s WHERE s.owner_id = $1 ORDER BY s.created_at DESC`
	var shares []models.Share
	if err := r.db.SelectContext(ctx, &shares, query, ownerID); err != nil {
		return nil, fmt.Errorf("list shares by owner: %w", err)
	}
	return shares, nil
}

// ConsumeAccess increments the given counter if the share is still
// accessible at now and returns the updated row. sql.ErrNoRows means the
// share is missing, of the other kind, expired or exhausted.
func (r *ShareRepository) ConsumeAccess(ctx context.Context, token string, counter models.AccessCounter, now time.Time) (*models.Share, error) {
	query := consumeViewQuery
	if counter == models.CounterDownload {
		query = consumeDownloadQuery
	}

	var share models.Share
	if err := r.db.GetContext(ctx, &share, query, token, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("consume share access: %w", err)
	}
	return &share, nil
}

// Delete removes a share; its reports cascade.
func (r *ShareRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shares WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete share rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListExpired returns up to limit shares whose expiry is at or before now.
func (r *ShareRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.ExpiredShare, error) {
	const query = `SELECT id, kind, file_stored FROM shares WHERE expires_at <= $1 ORDER BY expires_at ASC LIMIT $2`
	var shares []models.ExpiredShare
	if err := r.db.SelectContext(ctx, &shares, query, now, limit); err != nil {
		return nil, fmt.Errorf("list expired shares: %w", err)
	}
	return shares, nil
}

// DeleteByIDs removes the given shares. Ids already gone are skipped.
func (r *ShareRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM shares WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete shares: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete shares rows: %w", err)
	}
	return affected, nil
}

// List returns shares joined with their owners. Reported-only listings are
// ordered by report count then newest first; other listings newest first.
func (r *ShareRepository) List(ctx context.Context, filter models.ShareFilter) ([]models.ShareWithOwner, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("s.owner_id = $%d", len(args)))
	}
	if filter.OwnerRole != nil {
		args = append(args, *filter.OwnerRole)
		conditions = append(conditions, fmt.Sprintf("u.role = $%d", len(args)))
	}
	if filter.ReportedOnly {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM share_reports r WHERE r.share_id = s.id)")
	}

	query := `SELECT ` + shareColumns + `, u.name AS owner_name, u.email AS owner_email, u.role AS owner_role FROM shares s JOIN users u ON u.id = s.owner_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if filter.ReportedOnly {
		query += " ORDER BY report_count DESC, s.created_at DESC"
	} else {
		query += " ORDER BY s.created_at DESC"
	}

	var shares []models.ShareWithOwner
	if err := r.db.SelectContext(ctx, &shares, query, args...); err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	return shares, nil
}

// AddReport records a report and returns the share's new report count.
// A second report by the same user yields ErrDuplicateReport; a share deleted
// in the meantime yields sql.ErrNoRows.
func (r *ShareRepository) AddReport(ctx context.Context, report *models.ShareReport) (count int, err error) {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin report transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `INSERT INTO share_reports (id, share_id, reported_by, reason, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err = tx.ExecContext(ctx, insertQuery, report.ID, report.ShareID, report.ReportedBy, report.Reason, report.CreatedAt); err != nil {
		switch {
		case isPQCode(err, pqUniqueViolation):
			err = ErrDuplicateReport
		case isPQCode(err, pqForeignKeyViolation):
			err = sql.ErrNoRows
		default:
			err = fmt.Errorf("insert share report: %w", err)
		}
		return 0, err
	}

	if err = tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM share_reports WHERE share_id = $1`, report.ShareID); err != nil {
		return 0, fmt.Errorf("count share reports: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit share report: %w", err)
	}
	return count, nil
}

// ListReports returns the reports filed against a share, newest first.
func (r *ShareRepository) ListReports(ctx context.Context, shareID string) ([]models.ShareReport, error) {
	const query = `SELECT r.id, r.share_id, r.reported_by, u.name AS reporter_name, u.email AS reporter_email, r.reason, r.created_at FROM share_reports r JOIN users u ON u.id = r.reported_by WHERE r.share_id = $1 ORDER BY r.created_at DESC`
	var reports []models.ShareReport
	if err := r.db.SelectContext(ctx, &reports, query, shareID); err != nil {
		return nil, fmt.Errorf("list share reports: %w", err)
	}
	return reports, nil
}
