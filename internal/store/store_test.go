package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"restaurant-admin-backend/internal/model"
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

// newSQLiteDB returns a migrated in-memory database private to the test.
func newSQLiteDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(model.All()...))
	t.Cleanup(func() {
		sqlDB, _ := gormDB.DB()
		sqlDB.Close()
	})
	return gormDB
}

func TestGormStore_DeleteSteps(t *testing.T) {
	testCases := []struct {
		name  string
		table string
		call  func(s Store) error
	}{
		{"otp", "table_otps", func(s Store) error { return s.DeleteOTP(context.Background(), 3) }},
		{"active orders", "active_orders", func(s Store) error { return s.DeleteActiveOrders(context.Background(), 3) }},
		{"allocation", "allocations", func(s Store) error { return s.DeleteAllocation(context.Background(), 3) }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			s := NewGormStore(gormDB)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "` + tc.table + `" WHERE table_number = $1`)).
				WithArgs(3).
				WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectCommit()

			// Zero affected rows is still a success.
			assert.NoError(t, tc.call(s))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_DeleteOTP_Error(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "table_otps"`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.DeleteOTP(context.Background(), 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete otp for table 4")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_InvalidateVerification(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "verifications" SET "is_verified"=$1,"updated_at"=$2 WHERE table_number = $3`)).
		WithArgs(false, Any{}, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, s.InvalidateVerification(context.Background(), 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_CreateOrderHistory_IdempotentOnSessionKey(t *testing.T) {
	s := NewGormStore(newSQLiteDB(t))
	ctx := context.Background()

	rec := HistoryRecord{
		SessionKey:  "sess-1",
		TableNumber: 1,
		Items: []LineItem{
			{Name: "Pizza", Quantity: 2, Price: 7.5},
			{Name: "Soda", Quantity: 1, Price: 5},
		},
		Total:       20,
		PaymentMode: "Card",
		Status:      model.HistoryStatusCompleted,
	}

	first, err := s.CreateOrderHistory(ctx, rec)
	require.NoError(t, err)
	require.NotZero(t, first.ID)
	assert.Len(t, first.Items, 2)

	second, err := s.CreateOrderHistory(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, second.Items, 2)

	all, err := s.ListOrderHistory(ctx, HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGormStore_CreateOrderHistory_RetryOverwritesBill(t *testing.T) {
	s := NewGormStore(newSQLiteDB(t))
	ctx := context.Background()

	first, err := s.CreateOrderHistory(ctx, HistoryRecord{
		SessionKey:  "sess-2",
		TableNumber: 3,
		Items:       []LineItem{{Name: "A", Quantity: 2, Price: 5}},
		Total:       10,
		PaymentMode: "Cash",
		Status:      model.HistoryStatusCompleted,
	})
	require.NoError(t, err)

	second, err := s.CreateOrderHistory(ctx, HistoryRecord{
		SessionKey:  "sess-2",
		TableNumber: 3,
		Items: []LineItem{
			{Name: "Steak", Quantity: 1, Price: 30},
			{Name: "A", Quantity: 2, Price: 5},
		},
		Total:       40,
		PaymentMode: "Card",
		Status:      model.HistoryStatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 40.0, second.TotalAmount)
	assert.Equal(t, "Card", second.PaymentMode)
	assert.Len(t, second.Items, 2)

	all, err := s.ListOrderHistory(ctx, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 40.0, all[0].TotalAmount)
	assert.Equal(t, "Card", all[0].PaymentMode)
	assert.Len(t, all[0].Items, 2)

	var items int64
	require.NoError(t, s.DB().Model(&model.HistoryItem{}).Count(&items).Error)
	assert.EqualValues(t, 2, items)
}

func TestGormStore_CreateOrderHistory_RequiresSessionKey(t *testing.T) {
	s := NewGormStore(newSQLiteDB(t))
	_, err := s.CreateOrderHistory(context.Background(), HistoryRecord{TableNumber: 1})
	assert.Error(t, err)
}

func TestGormStore_ListOrderHistory(t *testing.T) {
	s := NewGormStore(newSQLiteDB(t))
	ctx := context.Background()

	for i, table := range []int{1, 2, 1} {
		_, err := s.CreateOrderHistory(ctx, HistoryRecord{
			SessionKey:  fmt.Sprintf("sess-%d", i),
			TableNumber: table,
			Items:       []LineItem{{Name: "Tea", Quantity: 1, Price: 2}},
			Total:       2,
			PaymentMode: "Cash",
			Status:      model.HistoryStatusCompleted,
		})
		require.NoError(t, err)
	}

	all, err := s.ListOrderHistory(ctx, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "sess-2", all[0].SessionKey, "newest first")
	assert.Len(t, all[0].Items, 1)

	table := 1
	filtered, err := s.ListOrderHistory(ctx, HistoryFilter{TableNumber: &table})
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	for _, h := range filtered {
		assert.Equal(t, 1, h.TableNumber)
	}
}

func TestGormStore_UpdateOrderHistory(t *testing.T) {
	s := NewGormStore(newSQLiteDB(t))
	ctx := context.Background()

	created, err := s.CreateOrderHistory(ctx, HistoryRecord{
		SessionKey:  "sess-upd",
		TableNumber: 5,
		Items:       []LineItem{{Name: "Burger", Quantity: 1, Price: 9}},
		Total:       9,
		PaymentMode: "Cash",
		Status:      model.HistoryStatusCompleted,
	})
	require.NoError(t, err)

	bookmark := true
	status := model.HistoryStatusRefunded
	items := []LineItem{
		{Name: "Burger", Quantity: 1, Price: 9},
		{Name: "Fries", Quantity: 2, Price: 3},
	}
	total := 15.0
	updated, err := s.UpdateOrderHistory(ctx, created.ID, HistoryUpdate{
		BookMark:    &bookmark,
		Status:      &status,
		TotalAmount: &total,
		Items:       &items,
	})
	require.NoError(t, err)
	assert.True(t, updated.BookMark)
	assert.Equal(t, model.HistoryStatusRefunded, updated.Status)
	assert.Equal(t, 15.0, updated.TotalAmount)
	assert.Equal(t, "Cash", updated.PaymentMode, "unset fields are left alone")
	require.Len(t, updated.Items, 2)

	var count int64
	require.NoError(t, s.DB().Model(&model.HistoryItem{}).Where("order_history_id = ?", created.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count, "old items are replaced, not appended")
}

func TestGormStore_UpdateOrderHistory_NotFound(t *testing.T) {
	s := NewGormStore(newSQLiteDB(t))
	bookmark := true
	_, err := s.UpdateOrderHistory(context.Background(), 999, HistoryUpdate{BookMark: &bookmark})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_SaveOTP_ReplacesPrevious(t *testing.T) {
	s := NewGormStore(newSQLiteDB(t))
	ctx := context.Background()

	_, err := s.SaveOTP(ctx, 2, "111111")
	require.NoError(t, err)
	otp, err := s.SaveOTP(ctx, 2, "222222")
	require.NoError(t, err)
	assert.Equal(t, "222222", otp.Code)

	var rows []model.TableOTP
	require.NoError(t, s.DB().Where("table_number = ?", 2).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "222222", rows[0].Code)
}

func TestGormStore_RecordActiveOrders(t *testing.T) {
	s := NewGormStore(newSQLiteDB(t))
	ctx := context.Background()

	require.NoError(t, s.RecordActiveOrders(ctx, 4, nil))
	require.NoError(t, s.RecordActiveOrders(ctx, 4, []LineItem{
		{Name: "Pasta", Quantity: 1, Price: 11},
		{Name: "Water", Quantity: 2, Price: 1},
	}))

	var rows []model.ActiveOrder
	require.NoError(t, s.DB().Where("table_number = ?", 4).Find(&rows).Error)
	assert.Len(t, rows, 2)

	require.NoError(t, s.DeleteActiveOrders(ctx, 4))
	require.NoError(t, s.DB().Where("table_number = ?", 4).Find(&rows).Error)
	assert.Empty(t, rows)
}

// Any is a custom sqlmock argument matcher that matches any value.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
