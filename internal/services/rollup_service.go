package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/metrics"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/period"
)

const defaultTrendMonths = 6

var hundred = decimal.NewFromInt(100)

// rollupService keeps monthly snapshots in line with the transaction history.
// Every write is a full recomputation from raw transactions; a snapshot is
// never patched and never derived from another snapshot.
type rollupService struct {
	db    *gorm.DB
	agg   AggregationServicer
	loc   *time.Location
	now   Clock
	locks *ownerLocks
}

// NewRollupService creates a new RollupServicer. Month boundaries are
// evaluated in loc.
func NewRollupService(db *gorm.DB, agg AggregationServicer, loc *time.Location, now Clock) RollupServicer {
	return &rollupService{
		db:    db,
		agg:   agg,
		loc:   locationOrLocal(loc),
		now:   systemClock(now),
		locks: newOwnerLocks(),
	}
}

// RecomputeMonth rebuilds the snapshot of one month from raw transactions.
func (s *rollupService) RecomputeMonth(userID string, month, year int) (*models.MonthlySnapshot, error) {
	if !validMonthYear(month, year) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be 1-12 and year must be positive")
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	return s.recompute(userID, period.YearMonth{Year: year, Month: time.Month(month)})
}

// RecomputeCurrentMonth recomputes the month containing the clock's now.
func (s *rollupService) RecomputeCurrentMonth(userID string) (*models.MonthlySnapshot, error) {
	ym := period.Of(s.now(), s.loc)
	return s.RecomputeMonth(userID, int(ym.Month), ym.Year)
}

// recompute writes the snapshot of ym. Callers hold the owner lock.
func (s *rollupService) recompute(userID string, ym period.YearMonth) (*models.MonthlySnapshot, error) {
	window := ym.Window(s.loc)

	inMonth, err := s.agg.SumByKind(userID, &window)
	if err != nil {
		return nil, err
	}
	opening, err := s.agg.SumBefore(userID, window.Start)
	if err != nil {
		return nil, err
	}

	snapshot := &models.MonthlySnapshot{
		UserID:         userID,
		Month:          int(ym.Month),
		Year:           ym.Year,
		Income:         inMonth.Income,
		Expense:        inMonth.Expense,
		CurrentBalance: opening.Net().Add(inMonth.Net()),
	}

	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "year"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{"income", "expense", "savings", "current_balance", "updated_at"}),
	}).Create(snapshot).Error
	if err != nil {
		return nil, storeError(err)
	}

	// The insert may have hit an existing row; reload to return its id.
	var stored models.MonthlySnapshot
	if err := s.db.Where("user_id = ? AND year = ? AND month = ?", userID, ym.Year, int(ym.Month)).
		First(&stored).Error; err != nil {
		return nil, storeError(err)
	}

	metrics.RollupRecomputed()
	return &stored, nil
}

// OnTransactionChanged recomputes the month of date and every later stored month.
func (s *rollupService) OnTransactionChanged(userID string, date time.Time) error {
	start := time.Now()
	defer metrics.ObserveCascade(start)

	unlock := s.locks.lock(userID)
	defer unlock()

	from := period.Of(date, s.loc)
	if _, err := s.recompute(userID, from); err != nil {
		return err
	}

	var later []models.MonthlySnapshot
	err := s.db.Select("month", "year").
		Where("user_id = ? AND (year > ? OR (year = ? AND month >= ?))", userID, from.Year, from.Year, int(from.Month)).
		Order("year ASC, month ASC").
		Find(&later).Error
	if err != nil {
		return storeError(err)
	}

	for _, snap := range later {
		ym := period.YearMonth{Year: snap.Year, Month: time.Month(snap.Month)}
		if ym == from {
			continue
		}
		if _, err := s.recompute(userID, ym); err != nil {
			return fmt.Errorf("cascade stopped at %d-%02d: %w", ym.Year, ym.Month, err)
		}
	}

	logger.Named("rollup").Debugw("cascade complete",
		"user_id", userID,
		"from", fmt.Sprintf("%d-%02d", from.Year, from.Month),
		"months", len(later),
	)
	return nil
}

// RebuildAll recomputes every month from the user's first transaction up to
// the later of the current month and the last transaction's month.
func (s *rollupService) RebuildAll(userID string) (int, error) {
	var users int64
	if err := s.db.Model(&models.User{}).Where("id = ?", userID).Count(&users).Error; err != nil {
		return 0, storeError(err)
	}
	if users == 0 {
		return 0, apperrors.ErrUserNotFound
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	last := period.Of(s.now(), s.loc)

	first := last
	var earliest, latest models.Transaction
	err := s.db.Select("date").Where("user_id = ?", userID).Order("date ASC").Take(&earliest).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No history: only the current month gets a snapshot.
	case err != nil:
		return 0, storeError(err)
	default:
		first = period.Of(earliest.Date, s.loc)
		if err := s.db.Select("date").Where("user_id = ?", userID).Order("date DESC").Take(&latest).Error; err != nil {
			return 0, storeError(err)
		}
		if end := period.Of(latest.Date, s.loc); last.Before(end) {
			last = end
		}
	}

	count := 0
	for ym := first; !last.Before(ym); ym = next(ym) {
		if _, err := s.recompute(userID, ym); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func next(ym period.YearMonth) period.YearMonth {
	if ym.Month == time.December {
		return period.YearMonth{Year: ym.Year + 1, Month: time.January}
	}
	return period.YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

// ListSnapshots returns a page of stored snapshots, newest first unless sorted oldest.
func (s *rollupService) ListSnapshots(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.MonthlySnapshot], error) {
	page.Defaults()

	base := s.db.Model(&models.MonthlySnapshot{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, storeError(err)
	}

	order := "year DESC, month DESC"
	if page.Sort == pagination.SortOldest {
		order = "year ASC, month ASC"
	}

	var snapshots []models.MonthlySnapshot
	if err := base.Order(order).Scopes(pagination.Paginate(page)).Find(&snapshots).Error; err != nil {
		return nil, storeError(err)
	}

	result := pagination.NewPageResponse(snapshots, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetTrends returns the newest months snapshots with their income, expense and savings trends.
func (s *rollupService) GetTrends(userID string, months int) (*SnapshotTrends, error) {
	if months <= 0 {
		months = defaultTrendMonths
	}

	var snapshots []models.MonthlySnapshot
	if err := s.db.Where("user_id = ?", userID).
		Order("year DESC, month DESC").
		Limit(months).
		Find(&snapshots).Error; err != nil {
		return nil, storeError(err)
	}

	pick := func(f func(models.MonthlySnapshot) decimal.Decimal) []decimal.Decimal {
		values := make([]decimal.Decimal, len(snapshots))
		for i, snap := range snapshots {
			values[i] = f(snap)
		}
		return values
	}

	if snapshots == nil {
		snapshots = []models.MonthlySnapshot{}
	}
	return &SnapshotTrends{
		Data:    snapshots,
		Income:  trendOf(pick(func(m models.MonthlySnapshot) decimal.Decimal { return m.Income })),
		Expense: trendOf(pick(func(m models.MonthlySnapshot) decimal.Decimal { return m.Expense })),
		Savings: trendOf(pick(func(m models.MonthlySnapshot) decimal.Decimal { return m.Savings })),
	}, nil
}

// trendOf compares values[0] (latest) with values[1]. The change is relative
// to the magnitude of the previous value so the direction follows the sign of
// latest - previous even when previous is negative.
func trendOf(values []decimal.Decimal) Trend {
	stable := Trend{Direction: TrendStable, Percentage: decimal.Zero}
	if len(values) < 2 {
		return stable
	}

	latest, previous := values[0], values[1]
	if previous.IsZero() {
		if latest.IsPositive() {
			return Trend{Direction: TrendUp, Percentage: hundred}
		}
		return stable
	}

	change := latest.Sub(previous).Mul(hundred).Div(previous.Abs())
	switch change.Sign() {
	case 1:
		return Trend{Direction: TrendUp, Percentage: change.Round(2)}
	case -1:
		return Trend{Direction: TrendDown, Percentage: change.Abs().Round(2)}
	default:
		return stable
	}
}

// DeleteSnapshot removes one of the user's snapshots.
func (s *rollupService) DeleteSnapshot(userID, snapshotID string) error {
	result := s.db.Where("id = ? AND user_id = ?", snapshotID, userID).Delete(&models.MonthlySnapshot{})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return apperrors.ErrSnapshotNotFound
		}
		return storeError(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrSnapshotNotFound
	}
	return nil
}
