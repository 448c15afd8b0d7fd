package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/models"
	"fintrack/internal/period"
)

// uncategorizedName labels sums whose category no longer exists.
const uncategorizedName = "Uncategorized"

// aggregationService sums transactions with grouped queries.
type aggregationService struct {
	db *gorm.DB
}

// NewAggregationService creates a new AggregationServicer.
func NewAggregationService(db *gorm.DB) AggregationServicer {
	return &aggregationService{db: db}
}

type kindRow struct {
	Type    models.TransactionType
	Total   decimal.Decimal
	TxCount int64
}

type categoryRow struct {
	CategoryID   string
	CategoryName string
	Total        decimal.Decimal
	TxCount      int64
}

// within restricts a transactions query to a window. Dates are stored in UTC.
func within(w period.Window) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("transactions.date >= ? AND transactions.date <= ?", w.Start.UTC(), w.End.UTC())
	}
}

// SumByKind totals income and expense inside window, or over all time when window is nil.
func (s *aggregationService) SumByKind(userID string, window *period.Window) (KindTotals, error) {
	q := s.db.Model(&models.Transaction{}).Where("transactions.user_id = ?", userID)
	if window != nil {
		q = q.Scopes(within(*window))
	}
	return s.groupByKind(q)
}

// SumBefore totals income and expense strictly before the given instant.
func (s *aggregationService) SumBefore(userID string, before time.Time) (KindTotals, error) {
	q := s.db.Model(&models.Transaction{}).
		Where("transactions.user_id = ? AND transactions.date < ?", userID, before.UTC())
	return s.groupByKind(q)
}

func (s *aggregationService) groupByKind(q *gorm.DB) (KindTotals, error) {
	var rows []kindRow
	err := q.Select("transactions.type AS type, COALESCE(SUM(transactions.amount), 0) AS total, COUNT(*) AS tx_count").
		Group("transactions.type").
		Scan(&rows).Error
	if err != nil {
		return KindTotals{}, storeError(err)
	}

	totals := KindTotals{Income: decimal.Zero, Expense: decimal.Zero}
	for _, r := range rows {
		switch r.Type {
		case models.TransactionTypeIncome:
			totals.Income = r.Total
			totals.IncomeCount = r.TxCount
		case models.TransactionTypeExpense:
			totals.Expense = r.Total
			totals.ExpenseCount = r.TxCount
		}
	}
	return totals, nil
}

// SumForCategory totals one category's transactions of kind inside window.
func (s *aggregationService) SumForCategory(userID, categoryID string, kind models.TransactionType, window period.Window) (Aggregate, error) {
	var row kindRow
	err := s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(transactions.amount), 0) AS total, COUNT(*) AS tx_count").
		Where("transactions.user_id = ? AND transactions.category_id = ? AND transactions.type = ?", userID, categoryID, kind).
		Scopes(within(window)).
		Scan(&row).Error
	if err != nil {
		return Aggregate{}, storeError(err)
	}
	return Aggregate{Total: row.Total, Count: row.TxCount}, nil
}

// SumByCategory totals transactions of kind per category, largest total first.
func (s *aggregationService) SumByCategory(userID string, kind models.TransactionType, window *period.Window) ([]CategoryAggregate, error) {
	q := s.db.Model(&models.Transaction{}).
		Select("transactions.category_id AS category_id, COALESCE(MAX(categories.name), ?) AS category_name, "+
			"COALESCE(SUM(transactions.amount), 0) AS total, COUNT(*) AS tx_count", uncategorizedName).
		Joins("LEFT JOIN categories ON categories.id = transactions.category_id").
		Where("transactions.user_id = ? AND transactions.type = ?", userID, kind)
	if window != nil {
		q = q.Scopes(within(*window))
	}

	var rows []categoryRow
	if err := q.Group("transactions.category_id").Order("total DESC, category_name ASC").Scan(&rows).Error; err != nil {
		return nil, storeError(err)
	}

	result := make([]CategoryAggregate, 0, len(rows))
	for _, r := range rows {
		result = append(result, CategoryAggregate{
			CategoryID:   r.CategoryID,
			CategoryName: r.CategoryName,
			Total:        r.Total,
			Count:        r.TxCount,
		})
	}
	return result, nil
}
