package services

import (
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/period"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, fullName, phone string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, name string, categoryType models.CategoryType, description string) (*models.Category, error)
	GetUserCategories(userID string, categoryType *models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	UpdateCategory(userID, categoryID string, name, description *string) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error
}

// TransactionInput carries the fields of a new transaction.
type TransactionInput struct {
	CategoryID string
	Type       models.TransactionType
	Amount     decimal.Decimal
	Date       time.Time
	Note       string
	Tags       []string
}

// TransactionUpdate carries the fields to change; nil leaves a field untouched.
type TransactionUpdate struct {
	CategoryID *string
	Type       *models.TransactionType
	Amount     *decimal.Decimal
	Date       *time.Time
	Note       *string
	Tags       *[]string
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.TransactionType
	CategoryID *string
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
	// Tags matches transactions carrying any of the listed tags.
	Tags []string
	// Search is a case-insensitive substring match on the note.
	Search string
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID string, input TransactionInput) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID string, update TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
}

// KindTotals splits sums and counts by transaction kind.
type KindTotals struct {
	Income       decimal.Decimal `json:"income"`
	Expense      decimal.Decimal `json:"expense"`
	IncomeCount  int64           `json:"income_count"`
	ExpenseCount int64           `json:"expense_count"`
}

// Net returns income minus expense.
func (k KindTotals) Net() decimal.Decimal {
	return k.Income.Sub(k.Expense)
}

// Count returns the number of transactions of both kinds.
func (k KindTotals) Count() int64 {
	return k.IncomeCount + k.ExpenseCount
}

// Aggregate is a sum with the number of rows that produced it.
type Aggregate struct {
	Total decimal.Decimal `json:"total"`
	Count int64           `json:"count"`
}

// CategoryAggregate is an Aggregate for one category.
type CategoryAggregate struct {
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Total        decimal.Decimal `json:"total"`
	Count        int64           `json:"count"`
}

// AggregationServicer sums transactions in the store. Every method issues a
// single grouped query and returns zero values when nothing matches.
type AggregationServicer interface {
	// SumByKind totals income and expense inside window; nil means all time.
	SumByKind(userID string, window *period.Window) (KindTotals, error)
	// SumBefore totals income and expense strictly before the given instant.
	SumBefore(userID string, before time.Time) (KindTotals, error)
	// SumForCategory totals one category and kind inside window.
	SumForCategory(userID, categoryID string, kind models.TransactionType, window period.Window) (Aggregate, error)
	// SumByCategory totals a kind per category, largest first; nil window means all time.
	SumByCategory(userID string, kind models.TransactionType, window *period.Window) ([]CategoryAggregate, error)
}

// TrendDirection is the sign of a month-over-month change.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// Trend compares the latest snapshot value with the one before it.
type Trend struct {
	Direction  TrendDirection  `json:"direction"`
	Percentage decimal.Decimal `json:"percentage"`
}

// SnapshotTrends bundles recent snapshots, newest first, with their trends.
type SnapshotTrends struct {
	Data    []models.MonthlySnapshot `json:"data"`
	Income  Trend                    `json:"income"`
	Expense Trend                    `json:"expense"`
	Savings Trend                    `json:"savings"`
}

// RollupServicer maintains the per-month snapshots.
type RollupServicer interface {
	// RecomputeMonth rebuilds one month's snapshot from the transaction history.
	RecomputeMonth(userID string, month, year int) (*models.MonthlySnapshot, error)
	// RecomputeCurrentMonth rebuilds the snapshot of the month containing now.
	RecomputeCurrentMonth(userID string) (*models.MonthlySnapshot, error)
	// OnTransactionChanged recomputes the month of date and every later stored month.
	OnTransactionChanged(userID string, date time.Time) error
	// RebuildAll recomputes every month from the first transaction to the current month.
	RebuildAll(userID string) (int, error)
	ListSnapshots(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.MonthlySnapshot], error)
	GetTrends(userID string, months int) (*SnapshotTrends, error)
	DeleteSnapshot(userID, snapshotID string) error
}

// BudgetEvaluation is a budget's consumption over its current window. It is
// derived on every read and never stored.
type BudgetEvaluation struct {
	BudgetID     string              `json:"budget_id"`
	CategoryID   string              `json:"category_id"`
	CategoryName string              `json:"category_name"`
	Period       models.BudgetPeriod `json:"period"`
	LimitAmount  decimal.Decimal     `json:"limit_amount"`
	Spent        decimal.Decimal     `json:"spent"`
	Remaining    decimal.Decimal     `json:"remaining"`
	Percentage   int64               `json:"percentage"`
	IsOverLimit  bool                `json:"is_over_limit"`
	IsNearLimit  bool                `json:"is_near_limit"`
	PeriodStart  time.Time           `json:"period_start"`
	PeriodEnd    time.Time           `json:"period_end"`
}

// CreateBudgetInput carries the fields of a new budget.
type CreateBudgetInput struct {
	CategoryID  string
	LimitAmount decimal.Decimal
	Period      models.BudgetPeriod
	Month       *int
	Year        *int
}

// UpdateBudgetInput carries the fields to change; nil leaves a field untouched.
type UpdateBudgetInput struct {
	CategoryID  *string
	LimitAmount *decimal.Decimal
	Period      *models.BudgetPeriod
	Month       *int
	Year        *int
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	ListWithSpend(userID string) ([]BudgetEvaluation, error)
	ListWarnings(userID string) ([]BudgetEvaluation, error)
	GetBudget(userID, budgetID string) (*BudgetEvaluation, error)
	CreateBudget(userID string, input CreateBudgetInput) (*models.Budget, error)
	UpdateBudget(userID, budgetID string, input UpdateBudgetInput) (*models.Budget, error)
	DeleteBudget(userID, budgetID string) error
}

// SeriesPoint is one bucket of a statistics series with the running balance.
type SeriesPoint struct {
	Label   string          `json:"label"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// Statistics is the report for one week, month or year.
type Statistics struct {
	Mode        period.Kind         `json:"mode"`
	Month       int                 `json:"month"`
	Year        int                 `json:"year"`
	Window      period.Window       `json:"window"`
	Totals      KindTotals          `json:"totals"`
	TopExpenses []CategoryAggregate `json:"top_expenses"`
	Series      []SeriesPoint       `json:"series"`
}

// Balance is the all-time position of an owner.
type Balance struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// MonthSpending is total expense for one month of the overview trend.
type MonthSpending struct {
	Month   int             `json:"month"`
	Year    int             `json:"year"`
	Expense decimal.Decimal `json:"expense"`
	Income  decimal.Decimal `json:"income"`
}

// Overview is the read-only bundle consumed by the assistant.
type Overview struct {
	Overall            KindTotals           `json:"overall"`
	CurrentBalance     decimal.Decimal      `json:"current_balance"`
	CurrentMonth       KindTotals           `json:"current_month"`
	PreviousMonth      KindTotals           `json:"previous_month"`
	ExpenseByCategory  []CategoryAggregate  `json:"expense_by_category"`
	IncomeByCategory   []CategoryAggregate  `json:"income_by_category"`
	Budgets            []BudgetEvaluation   `json:"budgets"`
	SpendingTrend      []MonthSpending      `json:"spending_trend"`
	RecentTransactions []models.Transaction `json:"recent_transactions"`
	GeneratedAt        time.Time            `json:"generated_at"`
}

// ReportServicer builds read-only reports on top of the aggregation engine.
type ReportServicer interface {
	GetStatistics(userID string, mode period.Kind, month, year *int) (*Statistics, error)
	GetBalance(userID string) (*Balance, error)
	GetOverview(userID string) (*Overview, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
