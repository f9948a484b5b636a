package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"pocketledger/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Dec parses s as a decimal and panics on malformed input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// CreateTestUser creates a user with a hashed password and unique username.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithUsername(t, db, fmt.Sprintf("user%d", nextID()))
}

// CreateTestUserWithUsername creates a user with the given username and password "password123".
func CreateTestUserWithUsername(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Username: username,
		Name:     "Test User",
		Password: string(hash),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAccount creates an account with zero balance.
func CreateTestAccount(t *testing.T, db *gorm.DB, ownerID string) *models.Account {
	t.Helper()
	return CreateTestAccountWithBalance(t, db, ownerID, decimal.Zero)
}

// CreateTestAccountWithBalance creates an account with the given balance.
func CreateTestAccountWithBalance(t *testing.T, db *gorm.DB, ownerID string, balance decimal.Decimal) *models.Account {
	t.Helper()

	account := &models.Account{
		Name:      fmt.Sprintf("Test Account %d", nextID()),
		Balance:   balance,
		Color:     "#336699",
		CreatedBy: ownerID,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestCategory creates a category with a unique value.
func CreateTestCategory(t *testing.T, db *gorm.DB, ownerID string) *models.Category {
	t.Helper()

	category := &models.Category{
		Value:     fmt.Sprintf("Test Category %d", nextID()),
		CreatedBy: ownerID,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction stores a transaction row directly, without touching balances.
// Transfers are sent to `to`; other types use external endpoints.
func CreateTestTransaction(t *testing.T, db *gorm.DB, account *models.Account, txType models.TransactionType, amount decimal.Decimal, to *models.Account) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		Amount:    amount,
		Type:      txType,
		From:      models.ExternalEndpoint("Payer"),
		To:        models.ExternalEndpoint("Shop"),
		AccountID: account.ID,
		CreatedBy: account.CreatedBy,
	}
	if txType == models.TransactionTypeTransfer && to != nil {
		tx.From = models.AccountEndpoint(account.ID)
		tx.To = models.AccountEndpoint(to.ID)
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// ReloadAccount reads the account's current row.
func ReloadAccount(t *testing.T, db *gorm.DB, id string) *models.Account {
	t.Helper()

	var account models.Account
	if err := db.First(&account, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload account %s: %v", id, err)
	}
	return &account
}
