package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"restaurant-admin-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	// Checkout steps.
	CreateOrderHistory(ctx context.Context, rec HistoryRecord) (*model.OrderHistory, error)
	InvalidateVerification(ctx context.Context, tableNumber int) error
	DeleteOTP(ctx context.Context, tableNumber int) error
	DeleteActiveOrders(ctx context.Context, tableNumber int) error
	DeleteAllocation(ctx context.Context, tableNumber int) error

	SaveOTP(ctx context.Context, tableNumber int, code string) (*model.TableOTP, error)
	RecordActiveOrders(ctx context.Context, tableNumber int, items []LineItem) error
	ListOrderHistory(ctx context.Context, filter HistoryFilter) ([]model.OrderHistory, error)
	UpdateOrderHistory(ctx context.Context, id int64, upd HistoryUpdate) (*model.OrderHistory, error)

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// CreateOrderHistory persists a settled bill. There is one row per session
// key: a retry for the same session overwrites the row with the bill it is
// given, so the stored items, total and payment mode always match the last
// attempt.
func (s *gormStore) CreateOrderHistory(ctx context.Context, rec HistoryRecord) (*model.OrderHistory, error) {
	if rec.SessionKey == "" {
		return nil, fmt.Errorf("create order history for table %d: empty session key", rec.TableNumber)
	}

	var out model.OrderHistory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("session_key = ?", rec.SessionKey).First(&out).Error
		if err == nil {
			return rewriteHistory(tx, &out, rec)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		out = model.OrderHistory{
			SessionKey:  rec.SessionKey,
			TableNumber: rec.TableNumber,
			TotalAmount: rec.Total,
			PaymentMode: rec.PaymentMode,
			Status:      rec.Status,
			Items:       toHistoryItems(rec.Items),
		}
		return tx.Create(&out).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create order history for table %d: %w", rec.TableNumber, err)
	}
	return &out, nil
}

// InvalidateVerification clears the verified flag of a table. A table without
// a verification row is already invalid.
func (s *gormStore) InvalidateVerification(ctx context.Context, tableNumber int) error {
	err := s.db.WithContext(ctx).
		Model(&model.Verification{}).
		Where("table_number = ?", tableNumber).
		Update("is_verified", false).Error
	if err != nil {
		return fmt.Errorf("invalidate verification for table %d: %w", tableNumber, err)
	}
	return nil
}

func (s *gormStore) DeleteOTP(ctx context.Context, tableNumber int) error {
	if err := s.deleteByTable(ctx, &model.TableOTP{}, tableNumber); err != nil {
		return fmt.Errorf("delete otp for table %d: %w", tableNumber, err)
	}
	return nil
}

func (s *gormStore) DeleteActiveOrders(ctx context.Context, tableNumber int) error {
	if err := s.deleteByTable(ctx, &model.ActiveOrder{}, tableNumber); err != nil {
		return fmt.Errorf("delete active orders for table %d: %w", tableNumber, err)
	}
	return nil
}

func (s *gormStore) DeleteAllocation(ctx context.Context, tableNumber int) error {
	if err := s.deleteByTable(ctx, &model.Allocation{}, tableNumber); err != nil {
		return fmt.Errorf("delete allocation for table %d: %w", tableNumber, err)
	}
	return nil
}

// deleteByTable removes every row of the table; deleting nothing is not an error.
func (s *gormStore) deleteByTable(ctx context.Context, value any, tableNumber int) error {
	return s.db.WithContext(ctx).Where("table_number = ?", tableNumber).Delete(value).Error
}

// SaveOTP stores a fresh code for the table, replacing any previous one.
func (s *gormStore) SaveOTP(ctx context.Context, tableNumber int, code string) (*model.TableOTP, error) {
	otp := model.TableOTP{TableNumber: tableNumber, Code: code}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("table_number = ?", tableNumber).Delete(&model.TableOTP{}).Error; err != nil {
			return err
		}
		return tx.Create(&otp).Error
	})
	if err != nil {
		return nil, fmt.Errorf("save otp for table %d: %w", tableNumber, err)
	}
	return &otp, nil
}

// RecordActiveOrders appends a batch to the table's active orders.
func (s *gormStore) RecordActiveOrders(ctx context.Context, tableNumber int, items []LineItem) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]model.ActiveOrder, len(items))
	for i, it := range items {
		rows[i] = model.ActiveOrder{
			TableNumber: tableNumber,
			Name:        it.Name,
			Quantity:    it.Quantity,
			Price:       it.Price,
			CreatedAt:   now,
		}
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("record active orders for table %d: %w", tableNumber, err)
	}
	return nil
}

// ListOrderHistory returns settled bills, newest first, with their items.
func (s *gormStore) ListOrderHistory(ctx context.Context, filter HistoryFilter) ([]model.OrderHistory, error) {
	q := s.db.WithContext(ctx).Preload("Items").Order("created_at DESC").Order("id DESC")
	if filter.TableNumber != nil {
		q = q.Where("table_number = ?", *filter.TableNumber)
	}
	var out []model.OrderHistory
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list order history: %w", err)
	}
	return out, nil
}

// UpdateOrderHistory changes a settled bill in one transaction.
func (s *gormStore) UpdateOrderHistory(ctx context.Context, id int64, upd HistoryUpdate) (*model.OrderHistory, error) {
	var out model.OrderHistory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if upd.Items != nil {
			if err := tx.Where("order_history_id = ?", id).Delete(&model.HistoryItem{}).Error; err != nil {
				return err
			}
			items := toHistoryItems(*upd.Items)
			for i := range items {
				items[i].OrderHistoryID = id
			}
			if len(items) > 0 {
				if err := tx.Create(&items).Error; err != nil {
					return err
				}
			}
		}

		fields := updateFields(upd)
		if len(fields) > 0 {
			if err := tx.Model(&out).Updates(fields).Error; err != nil {
				return err
			}
		}
		return tx.Preload("Items").First(&out, id).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("order history %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("update order history %d: %w", id, err)
	}
	return &out, nil
}

// rewriteHistory replaces an existing row's bill with rec.
func rewriteHistory(tx *gorm.DB, out *model.OrderHistory, rec HistoryRecord) error {
	if err := tx.Where("order_history_id = ?", out.ID).Delete(&model.HistoryItem{}).Error; err != nil {
		return err
	}
	items := toHistoryItems(rec.Items)
	for i := range items {
		items[i].OrderHistoryID = out.ID
	}
	if len(items) > 0 {
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
	}
	err := tx.Model(out).Updates(map[string]any{
		"table_number": rec.TableNumber,
		"total_amount": rec.Total,
		"payment_mode": rec.PaymentMode,
		"status":       rec.Status,
	}).Error
	if err != nil {
		return err
	}
	return tx.Preload("Items").First(out, out.ID).Error
}

func updateFields(upd HistoryUpdate) map[string]any {
	fields := make(map[string]any)
	if upd.TableNumber != nil {
		fields["table_number"] = *upd.TableNumber
	}
	if upd.TotalAmount != nil {
		fields["total_amount"] = *upd.TotalAmount
	}
	if upd.PaymentMode != nil {
		fields["payment_mode"] = *upd.PaymentMode
	}
	if upd.Status != nil {
		fields["status"] = *upd.Status
	}
	if upd.BookMark != nil {
		fields["book_mark"] = *upd.BookMark
	}
	return fields
}

func toHistoryItems(items []LineItem) []model.HistoryItem {
	out := make([]model.HistoryItem, len(items))
	for i, it := range items {
		out[i] = model.HistoryItem{Name: it.Name, Quantity: it.Quantity, Price: it.Price}
	}
	return out
}
