package models

import "github.com/shopspring/decimal"

// Account represents a financial account owned by a user. Balance is a cached
// value kept in step with the account's transaction history by the balance engine.
type Account struct {
	Base
	Name      string          `gorm:"size:255;not null" json:"name"`
	Balance   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"balance"`
	Color     string          `gorm:"size:7" json:"color"`
	CreatedBy string          `gorm:"size:36;not null;index" json:"created_by"`
}
