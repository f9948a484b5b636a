package services

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"pocketledger/internal/models"
	"pocketledger/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(username, name, password string) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(username, password string) (*models.User, error)
}

// CategoryServicer defines the contract for category lookup and creation.
type CategoryServicer interface {
	FindOrCreate(label, ownerID string) (*models.Category, error)
	GetCategories(ownerID string) ([]models.Category, int64, error)
	WithTx(tx *gorm.DB) CategoryServicer
}

// TransactionInput carries the user-editable fields of a transaction.
type TransactionInput struct {
	Amount      decimal.Decimal
	Description string
	From        models.Endpoint
	Notes       string
	To          models.Endpoint
	Type        models.TransactionType
	CategoryID  string
}

// DayGroup is one calendar day of an account's transaction history.
type DayGroup struct {
	Date         string               `json:"date"`
	Transactions []models.Transaction `json:"transactions"`
	Count        int                  `json:"count"`
	Total        decimal.Decimal      `json:"total"`
}

// TransactionServicer defines the contract for validating and persisting transactions.
// It never changes account balances; see BalanceEngine.
type TransactionServicer interface {
	CreateTransaction(input TransactionInput, account *models.Account) (*models.Transaction, error)
	UpdateTransaction(id string, input TransactionInput, account *models.Account) (*models.Transaction, error)
	CreateInitialBalanceTransaction(account *models.Account, balance decimal.Decimal, categoryID string) (*models.Transaction, error)
	CreateAccountAdjustmentTransaction(account *models.Account, newBalance decimal.Decimal, categoryID string) (*models.Transaction, error)
	GetTransaction(id string) (*models.Transaction, error)
	DeleteTransaction(id string) error
	GetTransactionsGroupedByDate(ownerID, accountID string, txType models.TransactionType, page pagination.PageRequest) ([]DayGroup, error)
	WithTx(tx *gorm.DB) TransactionServicer
}

// BalanceUpdate holds the accounts whose balances an event changed.
// Target is nil for income and expense.
type BalanceUpdate struct {
	Source *models.Account `json:"source"`
	Target *models.Account `json:"target,omitempty"`
}

// BalanceEngine keeps cached account balances in step with transaction events.
type BalanceEngine interface {
	UpdateAccountBalance(account *models.Account, transaction, oldTransaction *models.Transaction, isDelete bool) (*BalanceUpdate, error)
}

// AccountsSummary is the account list together with its aggregates.
type AccountsSummary struct {
	Accounts []models.Account `json:"accounts"`
	Total    decimal.Decimal  `json:"total"`
	Count    int64            `json:"count"`
}

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(name string, balance decimal.Decimal, color, ownerID string) (*models.Account, error)
	GetAccount(ownerID, id string) (*models.Account, error)
	GetAccounts(ownerID string, page pagination.PageRequest) ([]models.Account, error)
	GetTotalBalance(ownerID string) (decimal.Decimal, error)
	GetTotalCount(ownerID string) (int64, error)
	GetAccountsSummary(ctx context.Context, ownerID string, page pagination.PageRequest) (*AccountsSummary, error)
	UpdateAccountDetails(id, name, color string) (*models.Account, error)
	DeleteAccount(id string) error
	WithTx(tx *gorm.DB) AccountServicer
}

// AccountInput carries the fields used to open or edit an account.
// A nil Balance on update leaves the balance untouched.
type AccountInput struct {
	Name    string
	Balance *decimal.Decimal
	Color   string
}

// TransactionRequest is a transaction as submitted by a client: the owning
// account and a category label instead of a resolved category id.
type TransactionRequest struct {
	TransactionInput
	AccountID string
	Category  string
}

// TransactionResult is a persisted transaction and the balances it moved.
type TransactionResult struct {
	Transaction *models.Transaction `json:"transaction"`
	Balances    *BalanceUpdate      `json:"balances"`
}

// LedgerServicer composes accounts, transactions, categories and the balance
// engine into atomic operations.
type LedgerServicer interface {
	OpenAccount(ownerID string, input AccountInput) (*models.Account, error)
	UpdateAccount(ownerID, id string, input AccountInput) (*models.Account, error)
	CloseAccount(ownerID, id string) error
	RecordTransaction(ownerID string, req TransactionRequest) (*TransactionResult, error)
	ReviseTransaction(ownerID, id string, req TransactionRequest) (*TransactionResult, error)
	RemoveTransaction(ownerID, id string) (*TransactionResult, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]any)
	LogLedgerChange(userID, action, ipAddress string, result *TransactionResult)
}
