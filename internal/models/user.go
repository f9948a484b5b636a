package models

// User represents the user model in the database
type User struct {
	Base
	Username string `gorm:"size:255;uniqueIndex;not null" json:"username"`
	Name     string `gorm:"size:255" json:"name"`
	Password string `gorm:"not null" json:"-"`
}
