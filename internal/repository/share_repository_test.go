package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/linkvault-api/internal/models"
)

const testToken = "0123456789abcdef0123456789abcdef"

func shareRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "token", "owner_id", "kind", "text_content", "expires_at", "one_time_view", "max_views", "view_count", "download_count", "created_at", "report_count"})
}

func TestShareCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewShareRepository(db)

	mock.ExpectExec("INSERT INTO shares").WillReturnResult(sqlmock.NewResult(1, 1))

	text := "secret"
	share := &models.Share{Token: testToken, OwnerID: "u1", Kind: models.ShareKindText, Text: &text, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(context.Background(), share))
	assert.NotEmpty(t, share.ID)
	assert.False(t, share.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShareCreateDuplicateToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewShareRepository(db)

	mock.ExpectExec("INSERT INTO shares").WillReturnError(&pq.Error{Code: "23505", Constraint: "shares_token_key"})

	err := repo.Create(context.Background(), &models.Share{Token: testToken})
	assert.True(t, errors.Is(err, ErrDuplicateToken))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShareFindByToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewShareRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM shares s WHERE s.token = $1 LIMIT 1")).
		WithArgs(testToken).
		WillReturnRows(shareRows().AddRow("s1", testToken, "u1", "text", "secret", now.Add(time.Hour), false, 3, 1, 0, now, 2))

	share, err := repo.FindByToken(context.Background(), testToken)
	require.NoError(t, err)
	assert.Equal(t, "secret", *share.Text)
	assert.Equal(t, 3, *share.MaxViews)
	assert.Equal(t, 2, share.ReportCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShareFindByTokenMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewShareRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM shares s WHERE s.token = $1")).
		WithArgs(testToken).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByToken(context.Background(), testToken)
	assert.Equal(t, sql.ErrNoRows, err)
}

func TestConsumeAccessUsesConditionalUpdate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewShareRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE shares AS s SET download_count = s.download_count + 1 WHERE s.token = $1 AND s.kind = 'file' AND s.expires_at > $2 AND NOT (s.one_time_view AND s.view_count + s.download_count > 0) AND (s.max_views IS NULL OR s.view_count + s.download_count < s.max_views) RETURNING")).
		WithArgs(testToken, now).
		WillReturnRows(shareRows().AddRow("s1", testToken, "u1", "file", nil, now.Add(time.Hour), true, nil, 0, 1, now, 0))

	share, err := repo.ConsumeAccess(context.Background(), testToken, models.CounterDownload, now)
	require.NoError(t, err)
	assert.Equal(t, 1, share.DownloadCount)
	assert.Nil(t, share.MaxViews)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeAccessNotApplied(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewShareRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE shares AS s SET view_count = s.view_count + 1 WHERE s.token = $1 AND s.kind = 'text'")).
		WithArgs(testToken, now).
		WillReturnRows(shareRows())

	_, err := repo.ConsumeAccess(context.Background(), testToken, models.CounterView, now)
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShareDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewShareRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM shares WHERE id = $1")).WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM shares WHERE id = $1")).WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "s1"))
	assert.Equal(t, sql.ErrNoRows, repo.Delete(context.Background(), "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListExpiredAndDeleteByIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewShareRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, kind, file_stored FROM shares WHERE expires_at <= $1 ORDER BY expires_at ASC LIMIT $2")).
		WithArgs(now, 200).
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "file_stored"}).
			AddRow("s1", "text", nil).
			AddRow("s2", "file", "1-abc.bin"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM shares WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	expired, err := repo.ListExpired(context.Background(), now, 200)
	require.NoError(t, err)
	require.Len(t, expired, 2)
	assert.Nil(t, expired[0].FileStoredName)
	assert.Equal(t, "1-abc.bin", *expired[1].FileStoredName)

	deleted, err := repo.DeleteByIDs(context.Background(), []string{"s1", "s2"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	deleted, err = repo.DeleteByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListReportedOrdering(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewShareRepository(db)

	now := time.Now()
	admin := models.RoleAdmin
	mock.ExpectQuery(regexp.QuoteMeta("JOIN users u ON u.id = s.owner_id WHERE u.role = $1 AND EXISTS (SELECT 1 FROM share_reports r WHERE r.share_id = s.id) ORDER BY report_count DESC, s.created_at DESC")).
		WithArgs(admin).
		WillReturnRows(sqlmock.NewRows([]string{"id", "token", "kind", "report_count", "created_at", "owner_name", "owner_email", "owner_role"}).
			AddRow("s1", testToken, "text", 3, now, "Ann", "ann@example.com", "admin"))

	shares, err := repo.List(context.Background(), models.ShareFilter{OwnerRole: &admin, ReportedOnly: true})
	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, 3, shares[0].ReportCount)
	assert.Equal(t, "Ann", shares[0].OwnerName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByOwnerFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewShareRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.owner_id = $1 ORDER BY s.created_at DESC")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_name"}).AddRow("s1", "Ann"))

	shares, err := repo.List(context.Background(), models.ShareFilter{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Len(t, shares, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddReport(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewShareRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO share_reports").
		WithArgs(sqlmock.AnyArg(), "s1", "u2", "spam", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM share_reports WHERE share_id = $1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectCommit()

	count, err := repo.AddReport(context.Background(), &models.ShareReport{ShareID: "s1", ReportedBy: "u2", Reason: "spam"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddReportDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewShareRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO share_reports").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.AddReport(context.Background(), &models.ShareReport{ShareID: "s1", ReportedBy: "u2"})
	assert.True(t, errors.Is(err, ErrDuplicateReport))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddReportShareGone(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewShareRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO share_reports").WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectRollback()

	_, err := repo.AddReport(context.Background(), &models.ShareReport{ShareID: "s1", ReportedBy: "u2"})
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
