package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/metrics"
	"fintrack/internal/models"
	"fintrack/internal/period"
)

// Consumption thresholds, in whole percent.
const (
	nearLimitPercent = 80
	overLimitPercent = 100
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db  *gorm.DB
	agg AggregationServicer
	loc *time.Location
	now Clock
}

// NewBudgetService creates a new BudgetServicer. Budget windows are resolved
// around now() in loc.
func NewBudgetService(db *gorm.DB, agg AggregationServicer, loc *time.Location, now Clock) BudgetServicer {
	return &budgetService{
		db:  db,
		agg: agg,
		loc: locationOrLocal(loc),
		now: systemClock(now),
	}
}

// EvaluateBudget derives the consumption of budget given what was spent in
// window. A zero limit yields 0 percent.
func EvaluateBudget(budget *models.Budget, spent decimal.Decimal, window period.Window) BudgetEvaluation {
	var percentage int64
	if !budget.LimitAmount.IsZero() {
		percentage = spent.Mul(hundred).Div(budget.LimitAmount).Round(0).IntPart()
	}

	return BudgetEvaluation{
		BudgetID:     budget.ID,
		CategoryID:   budget.CategoryID,
		CategoryName: budget.Category.Name,
		Period:       budget.Period,
		LimitAmount:  budget.LimitAmount,
		Spent:        spent,
		Remaining:    budget.LimitAmount.Sub(spent),
		Percentage:   percentage,
		IsOverLimit:  percentage > overLimitPercent,
		IsNearLimit:  percentage > nearLimitPercent && percentage <= overLimitPercent,
		PeriodStart:  window.Start,
		PeriodEnd:    window.End,
	}
}

// window resolves the budget's current period. Only month budgets honour a
// stored month/year; week and year budgets always follow now.
func (s *budgetService) window(budget *models.Budget) period.Window {
	ref := s.now().In(s.loc)
	return period.ResolvePinned(period.Kind(budget.Period), ref, budget.Month, budget.Year)
}

func (s *budgetService) evaluate(budget *models.Budget) (BudgetEvaluation, error) {
	w := s.window(budget)
	spent, err := s.agg.SumForCategory(budget.UserID, budget.CategoryID, models.TransactionTypeExpense, w)
	if err != nil {
		return BudgetEvaluation{}, err
	}

	eval := EvaluateBudget(budget, spent.Total, w)
	switch {
	case eval.IsOverLimit:
		metrics.BudgetEvaluated(metrics.BudgetStateOver)
	case eval.IsNearLimit:
		metrics.BudgetEvaluated(metrics.BudgetStateNear)
	default:
		metrics.BudgetEvaluated(metrics.BudgetStateOK)
	}
	return eval, nil
}

// ListWithSpend evaluates every budget of the user against its current window.
func (s *budgetService) ListWithSpend(userID string) ([]BudgetEvaluation, error) {
	var budgets []models.Budget
	if err := s.db.Preload("Category").
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&budgets).Error; err != nil {
		return nil, storeError(err)
	}

	evaluations := make([]BudgetEvaluation, 0, len(budgets))
	for i := range budgets {
		eval, err := s.evaluate(&budgets[i])
		if err != nil {
			return nil, err
		}
		evaluations = append(evaluations, eval)
	}
	return evaluations, nil
}

// ListWarnings returns the evaluations at or above the near-limit threshold,
// over-limit budgets included.
func (s *budgetService) ListWarnings(userID string) ([]BudgetEvaluation, error) {
	all, err := s.ListWithSpend(userID)
	if err != nil {
		return nil, err
	}

	warnings := make([]BudgetEvaluation, 0, len(all))
	for _, eval := range all {
		if eval.Percentage >= nearLimitPercent {
			warnings = append(warnings, eval)
		}
	}
	return warnings, nil
}

// GetBudget evaluates a single budget owned by the user.
func (s *budgetService) GetBudget(userID, budgetID string) (*BudgetEvaluation, error) {
	budget, err := s.findBudget(userID, budgetID)
	if err != nil {
		return nil, err
	}
	eval, err := s.evaluate(budget)
	if err != nil {
		return nil, err
	}
	return &eval, nil
}

// CreateBudget creates a budget for one of the user's categories. Period defaults to month.
func (s *budgetService) CreateBudget(userID string, input CreateBudgetInput) (*models.Budget, error) {
	if input.Period == "" {
		input.Period = models.BudgetPeriodMonthly
	}
	if !input.Period.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period must be week, month or year")
	}
	if !input.LimitAmount.IsPositive() {
		return nil, apperrors.ErrInvalidLimit
	}
	if err := validatePin(input.Month, input.Year); err != nil {
		return nil, err
	}

	category, err := s.findCategory(userID, input.CategoryID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(userID, input.CategoryID, input.Period, ""); err != nil {
		return nil, err
	}

	budget := &models.Budget{
		UserID:      userID,
		CategoryID:  input.CategoryID,
		LimitAmount: input.LimitAmount,
		Period:      input.Period,
		Month:       input.Month,
		Year:        input.Year,
	}
	if err := s.db.Omit("Category").Create(budget).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.ErrDuplicateBudget
		}
		return nil, storeError(err)
	}

	budget.Category = *category
	return budget, nil
}

// UpdateBudget applies the non-nil fields of input.
func (s *budgetService) UpdateBudget(userID, budgetID string, input UpdateBudgetInput) (*models.Budget, error) {
	budget, err := s.findBudget(userID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	categoryID, budgetPeriod := budget.CategoryID, budget.Period

	if input.LimitAmount != nil {
		if !input.LimitAmount.IsPositive() {
			return nil, apperrors.ErrInvalidLimit
		}
		updates["limit_amount"] = *input.LimitAmount
	}
	if input.Period != nil {
		if !input.Period.Valid() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period must be week, month or year")
		}
		budgetPeriod = *input.Period
		updates["period"] = budgetPeriod
	}
	if input.CategoryID != nil && *input.CategoryID != budget.CategoryID {
		if _, err := s.findCategory(userID, *input.CategoryID); err != nil {
			return nil, err
		}
		categoryID = *input.CategoryID
		updates["category_id"] = categoryID
	}

	month, year := budget.Month, budget.Year
	if input.Month != nil {
		month = input.Month
	}
	if input.Year != nil {
		year = input.Year
	}
	if err := validatePin(month, year); err != nil {
		return nil, err
	}
	if input.Month != nil {
		updates["month"] = *input.Month
	}
	if input.Year != nil {
		updates["year"] = *input.Year
	}

	if categoryID != budget.CategoryID || budgetPeriod != budget.Period {
		if err := s.ensureUnique(userID, categoryID, budgetPeriod, budget.ID); err != nil {
			return nil, err
		}
	}

	if len(updates) > 0 {
		if err := s.db.Model(&models.Budget{}).Where("id = ?", budget.ID).Updates(updates).Error; err != nil {
			if isDuplicateKey(err) {
				return nil, apperrors.ErrDuplicateBudget
			}
			return nil, storeError(err)
		}
	}

	return s.findBudget(userID, budgetID)
}

// DeleteBudget permanently removes a budget.
func (s *budgetService) DeleteBudget(userID, budgetID string) error {
	// Hard delete: a soft-deleted row would still hold the unique
	// (user, category, period) slot.
	result := s.db.Unscoped().Where("id = ? AND user_id = ?", budgetID, userID).Delete(&models.Budget{})
	if result.Error != nil {
		return storeError(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrBudgetNotFound
	}
	return nil
}

func (s *budgetService) findBudget(userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Preload("Category").Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, storeError(err)
	}
	return &budget, nil
}

func (s *budgetService) findCategory(userID, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, storeError(err)
	}
	return &category, nil
}

// ensureUnique fails with ErrDuplicateBudget when another budget of the owner
// already covers (category, period). excludeID skips the budget being updated.
func (s *budgetService) ensureUnique(userID, categoryID string, budgetPeriod models.BudgetPeriod, excludeID string) error {
	q := s.db.Model(&models.Budget{}).
		Where("user_id = ? AND category_id = ? AND period = ?", userID, categoryID, budgetPeriod)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return storeError(err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateBudget
	}
	return nil
}

func validatePin(month, year *int) error {
	if month != nil && (*month < 1 || *month > 12) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12")
	}
	if year != nil && *year < 1 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "year must be positive")
	}
	return nil
}
