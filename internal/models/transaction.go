package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Valid reports whether t is a supported transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Transaction represents a single income or expense record.
type Transaction struct {
	Base
	UserID     string          `gorm:"size:36;not null;index:idx_transactions_user_date,priority:1" json:"user_id"`
	CategoryID string          `gorm:"size:36;not null;index" json:"category_id"`
	Type       TransactionType `gorm:"not null" json:"type"`
	Amount     decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Date       time.Time       `gorm:"not null;index:idx_transactions_user_date,priority:2" json:"date"`
	Note       string          `json:"note"`
	Tags       []string        `gorm:"type:text;serializer:json" json:"tags"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// BeforeSave normalizes the date to UTC so range comparisons behave the same
// on every driver.
func (t *Transaction) BeforeSave(tx *gorm.DB) error {
	t.Date = t.Date.UTC()
	return nil
}
