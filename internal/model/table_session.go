package model

import "time"

// TableOTP is the one-time code guests use to open a session at a table.
type TableOTP struct {
	ID          int64     `gorm:"primaryKey"`
	TableNumber int       `gorm:"index;not null"`
	Code        string    `gorm:"size:16;not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

// ActiveOrder is an order line placed during the current session of a table.
type ActiveOrder struct {
	ID          int64     `gorm:"primaryKey"`
	TableNumber int       `gorm:"index;not null"`
	Name        string    `gorm:"size:128;not null"`
	Quantity    int       `gorm:"not null"`
	Price       float64   `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

// Allocation binds a guest to a table for the current session.
type Allocation struct {
	ID          int64     `gorm:"primaryKey"`
	TableNumber int       `gorm:"index;not null"`
	GuestRef    string    `gorm:"size:64;not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

// Verification records whether a table's guest passed the OTP check.
type Verification struct {
	ID          int64     `gorm:"primaryKey"`
	TableNumber int       `gorm:"uniqueIndex;not null"`
	IsVerified  bool      `gorm:"not null;default:false"`
	UpdatedAt   time.Time `gorm:"not null"`
}
