package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/wp-publish-gateway/pkg/audit"
)

const (
	testPostID      = int64(4012)
	testCountResult = 42
)

var testTimestamp = time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)

func newTestEvent() audit.Event {
	postID := testPostID
	return audit.Event{
		ID:                   "evt-123",
		Timestamp:            testTimestamp,
		DurationMS:           87,
		RequestID:            "req-456",
		Username:             "vendor",
		Role:                 "outsource",
		Title:                "Spring launch",
		PublishType:          "normal",
		ModerationConclusion: "compliant",
		PostID:               &postID,
		CMSStatus:            "pending",
		Success:              true,
	}
}

func eventRow(e audit.Event) []driver.Value {
	var postID any
	if e.PostID != nil {
		postID = *e.PostID
	}
	return []driver.Value{
		e.ID, e.Timestamp, e.DurationMS, e.RequestID, e.Username, e.Role,
		e.Title, e.PublishType, e.ModerationConclusion, e.ModerationBypassed,
		postID, e.CMSStatus, e.Success, e.ErrorKind, e.ErrorMessage,
	}
}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, Config{}), mock
}

func TestNew_DefaultRetention(t *testing.T) {
	store, _ := newMock(t)
	assert.Equal(t, defaultRetentionDays, store.retentionDays)
}

func TestLog(t *testing.T) {
	store, mock := newMock(t)
	e := newTestEvent()

	mock.ExpectExec("INSERT INTO publish_audit").
		WithArgs(
			e.ID, e.Timestamp, e.DurationMS, e.RequestID, e.Username, e.Role,
			e.Title, e.PublishType, e.ModerationConclusion, e.ModerationBypassed,
			sqlmock.AnyArg(), e.CMSStatus, e.Success, e.ErrorKind, e.ErrorMessage,
			"2026-06-15",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Log(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLog_DBError(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec("INSERT INTO publish_audit").WillReturnError(errors.New("disk full"))

	err := store.Log(context.Background(), newTestEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inserting audit event")
}

func TestQuery_WithFilter(t *testing.T) {
	store, mock := newMock(t)
	success := true
	e := newTestEvent()
	failed := newTestEvent()
	failed.ID = "evt-124"
	failed.PostID = nil
	failed.Success = false
	failed.ErrorKind = "moderation_rejected"

	mock.ExpectQuery(`SELECT .* FROM publish_audit WHERE username = \$1 AND success = \$2 ORDER BY timestamp DESC LIMIT 10 OFFSET 5`).
		WithArgs("vendor", true).
		WillReturnRows(sqlmock.NewRows(auditColumns).AddRow(eventRow(e)...).AddRow(eventRow(failed)...))

	got, err := store.Query(context.Background(), audit.QueryFilter{
		Username: "vendor",
		Success:  &success,
		Limit:    10,
		Offset:   5,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].PostID)
	assert.Equal(t, testPostID, *got[0].PostID)
	assert.Nil(t, got[1].PostID)
	assert.Equal(t, "moderation_rejected", got[1].ErrorKind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_TimeRange(t *testing.T) {
	store, mock := newMock(t)
	start := testTimestamp.Add(-time.Hour)
	end := testTimestamp

	mock.ExpectQuery(`WHERE timestamp >= \$1 AND timestamp <= \$2`).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows(auditColumns))

	got, err := store.Query(context.Background(), audit.QueryFilter{StartTime: &start, EndTime: &end})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_DBError(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("timeout"))

	_, err := store.Query(context.Background(), audit.QueryFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying audit events")
}

func TestCount(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM publish_audit WHERE username = \$1`).
		WithArgs("vendor").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(testCountResult))

	n, err := store.Count(context.Background(), audit.QueryFilter{Username: "vendor"})
	require.NoError(t, err)
	assert.Equal(t, testCountResult, n)
}

func TestCleanup(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectExec(`DELETE FROM publish_audit WHERE timestamp < \$1`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 12))

	require.NoError(t, store.Cleanup(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseWithoutRoutine(t *testing.T) {
	store, _ := newMock(t)
	assert.NoError(t, store.Close())
}
