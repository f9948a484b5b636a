package models

import (
	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "INCOME"
	TransactionTypeExpense  TransactionType = "EXPENSE"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// IsValid reports whether t is one of the known transaction types.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer:
		return true
	}
	return false
}

// EndpointKind tags what an Endpoint's value refers to.
type EndpointKind string

const (
	EndpointKindAccount  EndpointKind = "account"
	EndpointKindExternal EndpointKind = "external"
)

// MeLabel is the external label used by system-generated transactions.
const MeLabel = "Me"

// Endpoint is one side of a transaction: either a reference to an account or
// a free-text external party such as a payer or shop.
type Endpoint struct {
	Kind  EndpointKind `gorm:"size:16;not null" json:"kind"`
	Value string       `gorm:"size:255;not null" json:"value"`
}

// AccountEndpoint returns an endpoint referencing the account with the given id.
func AccountEndpoint(accountID string) Endpoint {
	return Endpoint{Kind: EndpointKindAccount, Value: accountID}
}

// ExternalEndpoint returns an endpoint for a free-text party.
func ExternalEndpoint(label string) Endpoint {
	return Endpoint{Kind: EndpointKindExternal, Value: label}
}

// Me returns the sentinel endpoint used by initial-balance and adjustment transactions.
func Me() Endpoint {
	return ExternalEndpoint(MeLabel)
}

// IsAccount reports whether the endpoint references an account.
func (e Endpoint) IsAccount() bool {
	return e.Kind == EndpointKindAccount
}

// Refers reports whether the endpoint references the given account.
func (e Endpoint) Refers(accountID string) bool {
	return e.IsAccount() && e.Value == accountID
}

// Transaction represents a single ledger entry. Amount is always positive;
// its effect on balances follows from Type and, for transfers, from which
// endpoint an account sits on.
type Transaction struct {
	Base
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Type        TransactionType `gorm:"size:16;not null;index" json:"type"`
	From        Endpoint        `gorm:"embedded;embeddedPrefix:from_" json:"from"`
	To          Endpoint        `gorm:"embedded;embeddedPrefix:to_" json:"to"`
	AccountID   string          `gorm:"size:36;not null;index" json:"account_id"`
	CategoryID  string          `gorm:"size:36;index" json:"category_id"`
	Description string          `gorm:"size:255" json:"description"`
	Notes       string          `json:"notes"`
	CreatedBy   string          `gorm:"size:36;not null;index" json:"created_by"`
}

// IsTransfer reports whether the transaction moves funds between two accounts.
func (t *Transaction) IsTransfer() bool {
	return t.Type == TransactionTypeTransfer
}
