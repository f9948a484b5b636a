package models

// Category is a shared label attached to transactions. Values are unique
// across all users; categories are created on first use and never deleted.
type Category struct {
	Base
	Value     string `gorm:"size:255;not null;uniqueIndex" json:"value"`
	CreatedBy string `gorm:"size:36;not null" json:"created_by"`
}
