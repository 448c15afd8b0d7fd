package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Category represents a transaction category. Names are unique per user and type.
type Category struct {
	Base
	UserID      string       `gorm:"size:36;not null;index" json:"user_id"`
	Name        string       `gorm:"not null" json:"name"`
	Type        CategoryType `gorm:"not null" json:"type"`
	Description string       `json:"description"`
}

// DefaultCategories are seeded for every new user.
var DefaultCategories = []Category{
	{Name: "Salary", Type: CategoryTypeIncome, Description: "Fixed salary and bonuses"},
	{Name: "Side income", Type: CategoryTypeIncome, Description: "Freelance work and small business"},
	{Name: "Transport", Type: CategoryTypeExpense, Description: "Fuel, taxis, bus and plane tickets"},
	{Name: "Entertainment", Type: CategoryTypeExpense, Description: "Movies, games, travel and hobbies"},
	{Name: "Housing", Type: CategoryTypeExpense, Description: "Rent, utilities, internet and repairs"},
	{Name: "Health", Type: CategoryTypeExpense, Description: "Doctor visits, medicine and insurance"},
	{Name: "Food", Type: CategoryTypeExpense, Description: "Groceries, eating out and coffee"},
}
