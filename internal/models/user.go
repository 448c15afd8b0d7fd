package models

// User represents the user model in the database
type User struct {
	Base
	Email    string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	FullName string `json:"full_name"`
	Phone    string `gorm:"size:32;index" json:"phone,omitempty"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}
