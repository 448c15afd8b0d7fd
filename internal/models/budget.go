package models

import (
	"github.com/shopspring/decimal"
)

// BudgetPeriod represents the period type for a budget
type BudgetPeriod string

const (
	BudgetPeriodWeekly  BudgetPeriod = "week"
	BudgetPeriodMonthly BudgetPeriod = "month"
	BudgetPeriodYearly  BudgetPeriod = "year"
)

// Valid reports whether p is a supported budget period.
func (p BudgetPeriod) Valid() bool {
	switch p {
	case BudgetPeriodWeekly, BudgetPeriodMonthly, BudgetPeriodYearly:
		return true
	}
	return false
}

// Budget is a spending limit for one category over a rolling period.
// Month and Year pin a monthly budget to a specific calendar month.
type Budget struct {
	Base
	UserID      string          `gorm:"size:36;not null;uniqueIndex:uq_budgets_user_category_period,priority:1" json:"user_id"`
	CategoryID  string          `gorm:"size:36;not null;uniqueIndex:uq_budgets_user_category_period,priority:2" json:"category_id"`
	LimitAmount decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"limit_amount"`
	Period      BudgetPeriod    `gorm:"size:16;not null;default:'month';uniqueIndex:uq_budgets_user_category_period,priority:3" json:"period"`
	Month       *int            `json:"month,omitempty"`
	Year        *int            `json:"year,omitempty"`

	// Relationships
	Category Category `gorm:"foreignKey:CategoryID" json:"category"`
}
