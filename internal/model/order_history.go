package model

import "time"

// Order history status values.
const (
	HistoryStatusCompleted = "Completed"
	HistoryStatusPending   = "Pending"
	HistoryStatusRefunded  = "Refunded"
	HistoryStatusCancelled = "Cancelled"
)

// OrderHistory is the settled bill of one seating session.
type OrderHistory struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	SessionKey  string    `gorm:"uniqueIndex;size:64;not null" json:"sessionKey"`
	TableNumber int       `gorm:"index;not null" json:"tableNumber"`
	TotalAmount float64   `gorm:"not null" json:"totalAmount"`
	PaymentMode string    `gorm:"size:16;not null" json:"paymentMode"`
	Status      string    `gorm:"size:16;not null" json:"status"`
	BookMark    bool      `gorm:"not null;default:false" json:"bookMark"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Associations
	Items []HistoryItem `gorm:"foreignKey:OrderHistoryID;constraint:OnDelete:CASCADE" json:"items"`
}

// HistoryItem is one aggregated line of a settled bill.
type HistoryItem struct {
	ID             int64   `gorm:"primaryKey" json:"id"`
	OrderHistoryID int64   `gorm:"index;not null" json:"orderHistoryId"`
	Name           string  `gorm:"size:128;not null" json:"name"`
	Quantity       int     `gorm:"not null" json:"quantity"`
	Price          float64 `gorm:"not null" json:"price"`
}
