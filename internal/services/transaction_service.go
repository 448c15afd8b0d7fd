package services

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/metrics"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db     *gorm.DB
	rollup RollupServicer
	now    Clock
}

// NewTransactionService creates a new TransactionServicer. Every mutation is
// followed by a rollup cascade from the affected month.
func NewTransactionService(db *gorm.DB, rollup RollupServicer, now Clock) TransactionServicer {
	return &transactionService{
		db:     db,
		rollup: rollup,
		now:    systemClock(now),
	}
}

// CreateTransaction records a new income or expense for the user.
func (s *transactionService) CreateTransaction(userID string, input TransactionInput) (*models.Transaction, error) {
	if !input.Type.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if !input.Amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}
	if input.Date.IsZero() {
		input.Date = s.now()
	}
	if err := s.ensureCategory(userID, input.CategoryID); err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		UserID:     userID,
		CategoryID: input.CategoryID,
		Type:       input.Type,
		Amount:     input.Amount,
		Date:       input.Date,
		Note:       strings.TrimSpace(input.Note),
		Tags:       normalizeTags(input.Tags),
	}
	if err := s.db.Omit(clause.Associations).Create(transaction).Error; err != nil {
		return nil, storeError(err)
	}

	s.cascade(userID, transaction.Date)
	return transaction, nil
}

// GetUserTransactions lists the user's transactions matching filter, newest first
// unless the page asks otherwise.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	base = s.applyFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, storeError(err)
	}

	var transactions []models.Transaction
	if err := base.Preload("Category").
		Order(page.OrderBy("date")).
		Scopes(pagination.Paginate(page)).
		Find(&transactions).Error; err != nil {
		return nil, storeError(err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func (s *transactionService) applyFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", f.FromDate.UTC())
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", f.ToDate.UTC())
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", *f.MaxAmount)
	}
	if tags := normalizeTags(f.Tags); len(tags) > 0 {
		// Tags are stored as a JSON array; match the quoted element.
		match := s.db.Where("tags LIKE ? ESCAPE '!'", tagPattern(tags[0]))
		for _, tag := range tags[1:] {
			match = match.Or("tags LIKE ? ESCAPE '!'", tagPattern(tag))
		}
		q = q.Where(match)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		q = q.Where("LOWER(note) LIKE ? ESCAPE '!'", "%"+escapeLike(strings.ToLower(search))+"%")
	}
	return q
}

func tagPattern(tag string) string {
	quoted, _ := json.Marshal(tag)
	return "%" + escapeLike(string(quoted)) + "%"
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// escapeLike makes % and _ match literally in a LIKE ... ESCAPE '!' pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// normalizeTags trims tags and drops empty and repeated ones.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Preload("Category").
		Where("id = ? AND user_id = ?", transactionID, userID).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, storeError(err)
	}
	return &transaction, nil
}

// UpdateTransaction applies the non-nil fields of update. The cascade starts
// at the earlier of the old and new dates so the month a transaction moved
// out of is repaired as well.
func (s *transactionService) UpdateTransaction(userID, transactionID string, update TransactionUpdate) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}
	previousDate := transaction.Date

	if update.Type != nil {
		if !update.Type.Valid() {
			return nil, apperrors.ErrInvalidTransactionType
		}
		transaction.Type = *update.Type
	}
	if update.Amount != nil {
		if !update.Amount.IsPositive() {
			return nil, apperrors.ErrInvalidAmount
		}
		transaction.Amount = *update.Amount
	}
	if update.CategoryID != nil && *update.CategoryID != transaction.CategoryID {
		if err := s.ensureCategory(userID, *update.CategoryID); err != nil {
			return nil, err
		}
		transaction.CategoryID = *update.CategoryID
		transaction.Category = nil
	}
	if update.Date != nil && !update.Date.IsZero() {
		transaction.Date = *update.Date
	}
	if update.Note != nil {
		transaction.Note = strings.TrimSpace(*update.Note)
	}
	if update.Tags != nil {
		transaction.Tags = normalizeTags(*update.Tags)
	}

	if err := s.db.Omit(clause.Associations).Save(transaction).Error; err != nil {
		return nil, storeError(err)
	}

	from := transaction.Date
	if previousDate.Before(from) {
		from = previousDate
	}
	s.cascade(userID, from)

	return s.GetTransactionByID(userID, transactionID)
}

// DeleteTransaction soft-deletes a transaction and repairs the rollups from its month on.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(&models.Transaction{}, "id = ?", transaction.ID).Error; err != nil {
		return storeError(err)
	}

	s.cascade(userID, transaction.Date)
	return nil
}

func (s *transactionService) ensureCategory(userID, categoryID string) error {
	if categoryID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "category_id is required")
	}
	var count int64
	if err := s.db.Model(&models.Category{}).
		Where("id = ? AND user_id = ?", categoryID, userID).
		Count(&count).Error; err != nil {
		return storeError(err)
	}
	if count == 0 {
		return apperrors.ErrCategoryNotFound
	}
	return nil
}

// cascade runs the rollup for a mutation that is already persisted. Failures
// are logged and counted, never returned.
func (s *transactionService) cascade(userID string, from time.Time) {
	if err := s.rollup.OnTransactionChanged(userID, from); err != nil {
		metrics.CascadeFailed()
		logger.Named("transactions").Errorw("monthly rollup cascade failed",
			"user_id", userID,
			"from", from,
			"error", err,
		)
	}
}
