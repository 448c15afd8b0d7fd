package services

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/period"
)

const (
	defaultReportConcurrency = 4
	overviewTrendMonths      = 6
	overviewRecentLimit      = 10

	dayLabel   = "2006-01-02"
	monthLabel = "2006-01"
)

// reportService assembles read-only reports from the aggregation engine.
type reportService struct {
	db          *gorm.DB
	agg         AggregationServicer
	budgets     BudgetServicer
	loc         *time.Location
	now         Clock
	concurrency int
}

// NewReportService creates a new ReportServicer. concurrency bounds the number
// of queries GetOverview runs at once.
func NewReportService(db *gorm.DB, agg AggregationServicer, budgets BudgetServicer, loc *time.Location, now Clock, concurrency int) ReportServicer {
	if concurrency < 1 {
		concurrency = defaultReportConcurrency
	}
	return &reportService{
		db:          db,
		agg:         agg,
		budgets:     budgets,
		loc:         locationOrLocal(loc),
		now:         systemClock(now),
		concurrency: concurrency,
	}
}

// statisticsWindow picks the window a statistics report covers. Month and
// year default to the current ones; a week report covers the week holding the
// same day of the requested month, clamped to its last day.
func (s *reportService) statisticsWindow(mode period.Kind, month, year *int) (period.Window, int, int, error) {
	today := s.now().In(s.loc)
	y, m := today.Year(), today.Month()
	if year != nil {
		if *year < 1 {
			return period.Window{}, 0, 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "year must be positive")
		}
		y = *year
	}
	if month != nil {
		if *month < 1 || *month > 12 {
			return period.Window{}, 0, 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12")
		}
		m = time.Month(*month)
	}

	switch mode {
	case period.Week:
		day := today.Day()
		if last := daysIn(y, m, s.loc); day > last {
			day = last
		}
		return period.WeekWindow(time.Date(y, m, day, 12, 0, 0, 0, s.loc)), int(m), y, nil
	case period.Month:
		return period.MonthWindow(y, m, s.loc), int(m), y, nil
	case period.Year:
		return period.YearWindow(y, s.loc), int(m), y, nil
	default:
		return period.Window{}, 0, 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "mode must be week, month or year")
	}
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// GetStatistics returns totals, top expenses and a balance series for a week, month or year.
func (s *reportService) GetStatistics(userID string, mode period.Kind, month, year *int) (*Statistics, error) {
	if mode == "" {
		mode = period.Month
	}
	w, m, y, err := s.statisticsWindow(mode, month, year)
	if err != nil {
		return nil, err
	}

	totals, err := s.agg.SumByKind(userID, &w)
	if err != nil {
		return nil, err
	}
	top, err := s.topExpenses(userID, w)
	if err != nil {
		return nil, err
	}
	opening, err := s.agg.SumBefore(userID, w.Start)
	if err != nil {
		return nil, err
	}
	series, err := s.series(userID, mode, w, opening.Net())
	if err != nil {
		return nil, err
	}

	return &Statistics{
		Mode:        mode,
		Month:       m,
		Year:        y,
		Window:      w,
		Totals:      totals,
		TopExpenses: top,
		Series:      series,
	}, nil
}

// topExpenses ranks every expense category of the user by spend in w.
// Categories without spend are listed with a zero total.
func (s *reportService) topExpenses(userID string, w period.Window) ([]CategoryAggregate, error) {
	spent, err := s.agg.SumByCategory(userID, models.TransactionTypeExpense, &w)
	if err != nil {
		return nil, err
	}

	var categories []models.Category
	if err := s.db.Where("user_id = ? AND type = ?", userID, models.CategoryTypeExpense).
		Order("name ASC").
		Find(&categories).Error; err != nil {
		return nil, storeError(err)
	}

	seen := make(map[string]struct{}, len(spent))
	for _, row := range spent {
		seen[row.CategoryID] = struct{}{}
	}
	result := append(make([]CategoryAggregate, 0, len(categories)), spent...)
	for _, c := range categories {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		result = append(result, CategoryAggregate{CategoryID: c.ID, CategoryName: c.Name, Total: decimal.Zero})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if cmp := result[i].Total.Cmp(result[j].Total); cmp != 0 {
			return cmp > 0
		}
		return result[i].CategoryName < result[j].CategoryName
	})
	return result, nil
}

type seriesRow struct {
	Date   time.Time
	Type   models.TransactionType
	Amount decimal.Decimal
}

// series buckets the window by day (week and month) or by month (year) and
// carries a running balance that starts at opening.
func (s *reportService) series(userID string, mode period.Kind, w period.Window, opening decimal.Decimal) ([]SeriesPoint, error) {
	var rows []seriesRow
	if err := s.db.Model(&models.Transaction{}).
		Select("date", "type", "amount").
		Where("user_id = ?", userID).
		Scopes(within(w)).
		Order("date ASC").
		Find(&rows).Error; err != nil {
		return nil, storeError(err)
	}

	layout := dayLabel
	var buckets []time.Time
	if mode == period.Year {
		layout = monthLabel
		for m := w.Start; !m.After(w.End); m = m.AddDate(0, 1, 0) {
			buckets = append(buckets, m)
		}
	} else {
		buckets = w.Days()
	}

	points := make([]SeriesPoint, len(buckets))
	index := make(map[string]int, len(buckets))
	for i, b := range buckets {
		label := b.Format(layout)
		points[i] = SeriesPoint{Label: label, Income: decimal.Zero, Expense: decimal.Zero}
		index[label] = i
	}

	for _, row := range rows {
		i, ok := index[row.Date.In(s.loc).Format(layout)]
		if !ok {
			continue
		}
		switch row.Type {
		case models.TransactionTypeIncome:
			points[i].Income = points[i].Income.Add(row.Amount)
		case models.TransactionTypeExpense:
			points[i].Expense = points[i].Expense.Add(row.Amount)
		}
	}

	balance := opening
	for i := range points {
		balance = balance.Add(points[i].Income).Sub(points[i].Expense)
		points[i].Balance = balance
	}
	return points, nil
}

// GetBalance returns all-time income, expense and balance.
func (s *reportService) GetBalance(userID string) (*Balance, error) {
	totals, err := s.agg.SumByKind(userID, nil)
	if err != nil {
		return nil, err
	}
	return &Balance{
		Income:  totals.Income,
		Expense: totals.Expense,
		Balance: totals.Net(),
	}, nil
}

// GetOverview bundles the figures the assistant reads. The parts are
// independent queries and run concurrently, bounded by the configured limit.
func (s *reportService) GetOverview(userID string) (*Overview, error) {
	now := s.now().In(s.loc)
	current := period.Of(now, s.loc)
	currentWindow := current.Window(s.loc)
	previousWindow := current.Prev().Window(s.loc)

	overview := &Overview{GeneratedAt: now}

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	g.Go(func() error {
		totals, err := s.agg.SumByKind(userID, nil)
		if err != nil {
			return err
		}
		overview.Overall = totals
		overview.CurrentBalance = totals.Net()
		return nil
	})
	g.Go(func() (err error) {
		overview.CurrentMonth, err = s.agg.SumByKind(userID, &currentWindow)
		return err
	})
	g.Go(func() (err error) {
		overview.PreviousMonth, err = s.agg.SumByKind(userID, &previousWindow)
		return err
	})
	g.Go(func() (err error) {
		overview.ExpenseByCategory, err = s.agg.SumByCategory(userID, models.TransactionTypeExpense, &currentWindow)
		return err
	})
	g.Go(func() (err error) {
		overview.IncomeByCategory, err = s.agg.SumByCategory(userID, models.TransactionTypeIncome, &currentWindow)
		return err
	})
	g.Go(func() (err error) {
		overview.Budgets, err = s.budgets.ListWithSpend(userID)
		return err
	})
	g.Go(func() (err error) {
		overview.SpendingTrend, err = s.spendingTrend(userID, current)
		return err
	})
	g.Go(func() error {
		var recent []models.Transaction
		if err := s.db.Preload("Category").
			Where("user_id = ?", userID).
			Order("date DESC, id DESC").
			Limit(overviewRecentLimit).
			Find(&recent).Error; err != nil {
			return storeError(err)
		}
		if recent == nil {
			recent = []models.Transaction{}
		}
		overview.RecentTransactions = recent
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return overview, nil
}

// spendingTrend returns the last overviewTrendMonths months, oldest first,
// ending with the month of now.
func (s *reportService) spendingTrend(userID string, current period.YearMonth) ([]MonthSpending, error) {
	months := make([]period.YearMonth, overviewTrendMonths)
	ym := current
	for i := overviewTrendMonths - 1; i >= 0; i-- {
		months[i] = ym
		ym = ym.Prev()
	}

	trend := make([]MonthSpending, 0, len(months))
	for _, m := range months {
		w := m.Window(s.loc)
		totals, err := s.agg.SumByKind(userID, &w)
		if err != nil {
			return nil, err
		}
		trend = append(trend, MonthSpending{
			Month:   int(m.Month),
			Year:    m.Year,
			Expense: totals.Expense,
			Income:  totals.Income,
		})
	}
	return trend, nil
}
