package models

import (
	"time"

	"fintrack/internal/uuid"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MonthlySnapshot is the stored income/expense rollup for one user and month.
// Rows are always recomputed from the transaction history, never patched.
// No soft deletes: (user_id, month, year) must stay unique.
type MonthlySnapshot struct {
	ID             string          `gorm:"size:36;primaryKey" json:"id"`
	UserID         string          `gorm:"size:36;not null;uniqueIndex:uq_monthly_snapshots_user_month,priority:1" json:"user_id"`
	Month          int             `gorm:"not null;uniqueIndex:uq_monthly_snapshots_user_month,priority:3" json:"month"`
	Year           int             `gorm:"not null;uniqueIndex:uq_monthly_snapshots_user_month,priority:2" json:"year"`
	Income         decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"income"`
	Expense        decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"expense"`
	Savings        decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"savings"`
	CurrentBalance decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"current_balance"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (m *MonthlySnapshot) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New()
	}
	return nil
}

// BeforeSave keeps savings consistent with income and expense.
func (m *MonthlySnapshot) BeforeSave(tx *gorm.DB) error {
	m.Savings = m.Income.Sub(m.Expense)
	return nil
}
