package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"parking-reservation-backend/internal/booking"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestGormStore_UpdateSpotStatus(t *testing.T) {
	now := time.Now()
	openColumns := []string{"spot_id", "observed_at", "status"}

	testCases := []struct {
		name              string
		spots             []booking.Spot
		mockExpectations  func(mock sqlmock.Sqlmock)
		expectedNotifyIDs []string
		expectedErr       bool
	}{
		{
			name:  "Spot becomes available, should notify",
			spots: []booking.Spot{{ID: "A-1", Status: booking.SpotAvailable}},
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "spot_status_opens"`)).
					WillReturnRows(sqlmock.NewRows(openColumns).AddRow("A-1", now.Add(-10*time.Minute), "occupied"))

				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "spot_status_histories"`)).
					WithArgs("A-1", Any{}, "occupied", Any{}, Any{}).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "spot_status_opens" WHERE spot_id = $1`)).
					WithArgs("A-1").
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
			expectedNotifyIDs: []string{"A-1"},
		},
		{
			name:  "Spot changes status but not to available, should not notify",
			spots: []booking.Spot{{ID: "A-2", Status: booking.SpotMaintenance}},
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "spot_status_opens"`)).
					WillReturnRows(sqlmock.NewRows(openColumns).AddRow("A-2", now.Add(-10*time.Minute), "occupied"))

				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "spot_status_histories"`)).
					WithArgs("A-2", Any{}, "occupied", Any{}, Any{}).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "spot_status_opens"`)).
					WithArgs(Any{}, "maintenance", "A-2").
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
			expectedNotifyIDs: nil,
		},
		{
			name:  "No status change, should do nothing and not notify",
			spots: []booking.Spot{{ID: "A-3", Status: booking.SpotOccupied}},
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "spot_status_opens"`)).
					WillReturnRows(sqlmock.NewRows(openColumns).AddRow("A-3", now.Add(-10*time.Minute), "occupied"))
				mock.ExpectBegin()
				mock.ExpectCommit()
			},
			expectedNotifyIDs: nil,
		},
		{
			name:  "New spot appears occupied, should create record and not notify",
			spots: []booking.Spot{{ID: "A-4", Status: booking.SpotOccupied}},
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "spot_status_opens"`)).
					WillReturnRows(sqlmock.NewRows(openColumns))

				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "spot_status_opens"`)).
					WithArgs("A-4", Any{}, "occupied").
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
			expectedNotifyIDs: nil,
		},
		{
			name:  "Spot disappears from the feed, should archive and not notify",
			spots: []booking.Spot{},
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "spot_status_opens"`)).
					WillReturnRows(sqlmock.NewRows(openColumns).AddRow("A-5", now.Add(-10*time.Minute), "occupied"))

				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "spot_status_histories"`)).
					WithArgs("A-5", Any{}, "occupied", Any{}, Any{}).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "spot_status_opens"`)).
					WithArgs("A-5").
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
			expectedNotifyIDs: nil,
		},
		{
			name:  "Archive failure rolls back",
			spots: []booking.Spot{{ID: "A-6", Status: booking.SpotAvailable}},
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "spot_status_opens"`)).
					WillReturnRows(sqlmock.NewRows(openColumns).AddRow("A-6", now.Add(-10*time.Minute), "occupied"))

				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "spot_status_histories"`)).
					WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			expectedErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			store := NewGormStore(gormDB, nil)

			tc.mockExpectations(mock)

			notifyIDs, err := store.UpdateSpotStatus(context.Background(), now, tc.spots)

			if tc.expectedErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.ElementsMatch(t, tc.expectedNotifyIDs, notifyIDs)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_GetSubscriptionNotFound(t *testing.T) {
	gormDB, mock := newTestDB(t)
	store := NewGormStore(gormDB, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "push_subscriptions" WHERE endpoint = $1`)).
		WithArgs("https://push.example/none", 1).
		WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "user_id", "created_at"}))

	_, err := store.GetSubscription(context.Background(), "https://push.example/none")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
