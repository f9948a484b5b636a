package services

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"
	"pocketledger/internal/pagination"
)

// Descriptions of system-generated transactions.
const (
	InitialBalanceDescription    = "Initial Balance"
	AccountAdjustmentDescription = "Account Adjustments"
)

// dayLayout groups transaction history by calendar day.
const dayLayout = "2006-01-02"

// transactionService validates and persists transactions.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

// WithTx returns a service bound to tx.
func (s *transactionService) WithTx(tx *gorm.DB) TransactionServicer {
	return &transactionService{db: tx}
}

// validate checks input against the funds available on account.
func validate(input TransactionInput, account *models.Account, available decimal.Decimal) error {
	if !input.Amount.IsPositive() {
		return apperrors.ErrInvalidAmount
	}
	if !input.Type.IsValid() {
		return apperrors.ErrInvalidTransactionType
	}
	if input.Type != models.TransactionTypeTransfer {
		if input.From.IsAccount() || input.To.IsAccount() {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "only transfers may reference accounts")
		}
		return nil
	}

	if !input.From.IsAccount() || !input.To.IsAccount() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "transfer endpoints must be accounts")
	}
	if !input.From.Refers(account.ID) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "transfer must originate from its account")
	}
	if input.To.Value == input.From.Value {
		return apperrors.ErrSameAccountTransfer
	}
	if input.Amount.GreaterThan(available) {
		return apperrors.ErrInsufficientBalance
	}
	return nil
}

// CreateTransaction validates and stores a new transaction owned by account.
// Balances are left alone; the caller runs the balance engine afterwards.
func (s *transactionService) CreateTransaction(input TransactionInput, account *models.Account) (*models.Transaction, error) {
	if err := validate(input, account, account.Balance); err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		Amount:      input.Amount,
		Type:        input.Type,
		From:        input.From,
		To:          input.To,
		AccountID:   account.ID,
		CategoryID:  input.CategoryID,
		Description: input.Description,
		Notes:       input.Notes,
		CreatedBy:   account.CreatedBy,
	}
	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transaction, nil
}

// UpdateTransaction rewrites the fields of an existing transaction. For
// transfers the old amount counts as available again when the transfer
// already drew on account.
func (s *transactionService) UpdateTransaction(id string, input TransactionInput, account *models.Account) (*models.Transaction, error) {
	old, err := s.GetTransaction(id)
	if err != nil {
		return nil, err
	}

	if !input.Amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}
	if input.Type.IsValid() && old.IsTransfer() != (input.Type == models.TransactionTypeTransfer) {
		return nil, apperrors.ErrInvalidTypeChange
	}

	available := account.Balance
	if old.IsTransfer() && old.From.Refers(account.ID) {
		available = available.Add(old.Amount)
	}
	if err := validate(input, account, available); err != nil {
		return nil, err
	}

	updated := *old
	updated.Amount = input.Amount
	updated.Type = input.Type
	updated.From = input.From
	updated.To = input.To
	updated.AccountID = account.ID
	updated.CategoryID = input.CategoryID
	updated.Description = input.Description
	updated.Notes = input.Notes

	if err := s.db.Save(&updated).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &updated, nil
}

// CreateInitialBalanceTransaction records the opening balance of account as
// income. It returns nil when the balance is zero.
func (s *transactionService) CreateInitialBalanceTransaction(account *models.Account, balance decimal.Decimal, categoryID string) (*models.Transaction, error) {
	if balance.IsNegative() {
		return nil, apperrors.ErrNegativeInitialBalance
	}
	if balance.IsZero() {
		return nil, nil
	}
	return s.createSynthetic(account, balance, models.TransactionTypeIncome, InitialBalanceDescription, categoryID)
}

// CreateAccountAdjustmentTransaction records the difference between the
// account's balance and newBalance. It returns nil when they are equal.
func (s *transactionService) CreateAccountAdjustmentTransaction(account *models.Account, newBalance decimal.Decimal, categoryID string) (*models.Transaction, error) {
	if newBalance.Equal(account.Balance) {
		return nil, nil
	}

	txType := models.TransactionTypeExpense
	if newBalance.GreaterThan(account.Balance) {
		txType = models.TransactionTypeIncome
	}
	amount := newBalance.Sub(account.Balance).Abs()
	return s.createSynthetic(account, amount, txType, AccountAdjustmentDescription, categoryID)
}

func (s *transactionService) createSynthetic(account *models.Account, amount decimal.Decimal, txType models.TransactionType, description, categoryID string) (*models.Transaction, error) {
	transaction := &models.Transaction{
		Amount:      amount,
		Type:        txType,
		From:        models.Me(),
		To:          models.Me(),
		AccountID:   account.ID,
		CategoryID:  categoryID,
		Description: description,
		CreatedBy:   account.CreatedBy,
	}
	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transaction, nil
}

// GetTransaction retrieves a transaction by ID
func (s *transactionService) GetTransaction(id string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.First(&transaction, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// DeleteTransaction removes the transaction row. Reversing its effect on
// balances is the balance engine's job.
func (s *transactionService) DeleteTransaction(id string) error {
	result := s.db.Delete(&models.Transaction{}, "id = ?", id)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrTransactionNotFound
	}
	return nil
}

// GetTransactionsGroupedByDate lists transactions of ownerID that touch
// accountID, newest first, and groups the requested page by day of creation.
// An empty txType matches every type.
func (s *transactionService) GetTransactionsGroupedByDate(ownerID, accountID string, txType models.TransactionType, page pagination.PageRequest) ([]DayGroup, error) {
	query := s.db.Model(&models.Transaction{}).
		Where("created_by = ?", ownerID).
		Where(s.db.Where("account_id = ?", accountID).
			Or("from_kind = ? AND from_value = ?", models.EndpointKindAccount, accountID).
			Or("to_kind = ? AND to_value = ?", models.EndpointKindAccount, accountID))
	if txType != "" {
		query = query.Where("type = ?", txType)
	}

	var transactions []models.Transaction
	if err := query.Order("created_at DESC").Order("id DESC").
		Scopes(pagination.Paginate(page)).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return groupByDay(transactions), nil
}

func groupByDay(transactions []models.Transaction) []DayGroup {
	index := make(map[string]int)
	groups := []DayGroup{}
	for _, t := range transactions {
		day := t.CreatedAt.UTC().Format(dayLayout)
		i, ok := index[day]
		if !ok {
			i = len(groups)
			index[day] = i
			groups = append(groups, DayGroup{Date: day, Total: decimal.Zero})
		}
		groups[i].Transactions = append(groups[i].Transactions, t)
		groups[i].Count++
		groups[i].Total = groups[i].Total.Add(t.Amount)
	}

	sort.SliceStable(groups, func(a, b int) bool { return groups[a].Date > groups[b].Date })
	return groups
}
