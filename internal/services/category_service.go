package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// categoryService handles category-related business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a new category
func (s *categoryService) CreateCategory(
	userID string,
	name string,
	categoryType models.CategoryType,
	description string,
) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if categoryType != models.CategoryTypeIncome && categoryType != models.CategoryTypeExpense {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category type must be income or expense")
	}

	if err := s.ensureUnique(userID, name, categoryType, ""); err != nil {
		return nil, err
	}

	category := &models.Category{
		UserID:      userID,
		Name:        name,
		Type:        categoryType,
		Description: strings.TrimSpace(description),
	}

	if err := s.db.Create(category).Error; err != nil {
		return nil, storeError(err)
	}

	return category, nil
}

// GetUserCategories retrieves a paginated list of categories for a user,
// optionally restricted to one type.
func (s *categoryService) GetUserCategories(userID string, categoryType *models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	page.Defaults()

	base := s.db.Model(&models.Category{}).Where("user_id = ?", userID)
	if categoryType != nil {
		base = base.Where("type = ?", *categoryType)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, storeError(err)
	}

	var categories []models.Category
	if err := base.Order("type ASC, name ASC").Scopes(pagination.Paginate(page)).Find(&categories).Error; err != nil {
		return nil, storeError(err)
	}

	result := pagination.NewPageResponse(categories, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetCategoryByID retrieves a category by ID for a specific user
func (s *categoryService) GetCategoryByID(userID, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, storeError(err)
	}
	return &category, nil
}

// UpdateCategory renames a category or changes its description. The type is
// fixed once transactions may reference it.
func (s *categoryService) UpdateCategory(userID, categoryID string, name, description *string) (*models.Category, error) {
	category, err := s.GetCategoryByID(userID, categoryID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name cannot be empty")
		}
		if trimmed != category.Name {
			if err := s.ensureUnique(userID, trimmed, category.Type, category.ID); err != nil {
				return nil, err
			}
			updates["name"] = trimmed
		}
	}
	if description != nil {
		updates["description"] = strings.TrimSpace(*description)
	}

	if len(updates) > 0 {
		if err := s.db.Model(category).Updates(updates).Error; err != nil {
			return nil, storeError(err)
		}
	}

	return category, nil
}

// DeleteCategory soft-deletes a category that no transaction references.
func (s *categoryService) DeleteCategory(userID, categoryID string) error {
	category, err := s.GetCategoryByID(userID, categoryID)
	if err != nil {
		return err
	}

	var txCount int64
	if err := s.db.Model(&models.Transaction{}).Where("category_id = ?", categoryID).Count(&txCount).Error; err != nil {
		return storeError(err)
	}
	if txCount > 0 {
		return apperrors.ErrCategoryInUse
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		// Budgets of the category lose their subject.
		if err := tx.Unscoped().Where("category_id = ? AND user_id = ?", categoryID, userID).Delete(&models.Budget{}).Error; err != nil {
			return storeError(err)
		}
		if err := tx.Delete(category).Error; err != nil {
			return storeError(err)
		}
		return nil
	})
}

// ensureUnique rejects a second category with the same name and type for the
// user. Names compare case-insensitively.
func (s *categoryService) ensureUnique(userID, name string, categoryType models.CategoryType, excludeID string) error {
	q := s.db.Model(&models.Category{}).
		Where("user_id = ? AND type = ? AND LOWER(name) = ?", userID, categoryType, strings.ToLower(name))
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return storeError(err)
	}
	if count > 0 {
		return apperrors.ErrCategoryExists
	}
	return nil
}
