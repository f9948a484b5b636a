package services

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/logger"
	"pocketledger/internal/models"
)

// ledgerService runs every balance-changing operation as one database
// transaction while holding the in-process locks of the accounts involved.
// Locks are always taken before the database transaction begins.
type ledgerService struct {
	db           *gorm.DB
	locks        *accountLocks
	accounts     AccountServicer
	transactions TransactionServicer
	categories   CategoryServicer
}

// NewLedgerService creates a new LedgerServicer.
func NewLedgerService(db *gorm.DB, accounts AccountServicer, transactions TransactionServicer, categories CategoryServicer) LedgerServicer {
	return &ledgerService{
		db:           db,
		locks:        newAccountLocks(),
		accounts:     accounts,
		transactions: transactions,
		categories:   categories,
	}
}

// endpointAccounts returns the account ids referenced by the given endpoints.
func endpointAccounts(endpoints ...models.Endpoint) []string {
	ids := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		if e.IsAccount() {
			ids = append(ids, e.Value)
		}
	}
	return ids
}

// OpenAccount creates an account and records its opening balance as an
// "Initial Balance" income. The account row already carries the balance, so
// the balance engine is not involved.
func (s *ledgerService) OpenAccount(ownerID string, input AccountInput) (*models.Account, error) {
	balance := decimal.Zero
	if input.Balance != nil {
		balance = *input.Balance
	}
	if balance.IsNegative() {
		return nil, apperrors.ErrInvalidBalance
	}

	// Categories are shared and never removed, so resolving one outside the
	// transaction is harmless if the rest fails.
	category, err := s.categories.FindOrCreate(AccountAdjustmentDescription, ownerID)
	if err != nil {
		return nil, err
	}

	var account *models.Account
	err = s.db.Transaction(func(tx *gorm.DB) error {
		created, err := s.accounts.WithTx(tx).CreateAccount(input.Name, balance, input.Color, ownerID)
		if err != nil {
			return err
		}
		if _, err := s.transactions.WithTx(tx).CreateInitialBalanceTransaction(created, balance, category.ID); err != nil {
			return err
		}
		account = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("account opened", "account_id", account.ID, "owner_id", ownerID)
	return account, nil
}

// UpdateAccount edits an account. A new balance is recorded as an
// "Account Adjustments" transaction and applied through the balance engine.
func (s *ledgerService) UpdateAccount(ownerID, id string, input AccountInput) (*models.Account, error) {
	var category *models.Category
	if input.Balance != nil {
		var err error
		if category, err = s.categories.FindOrCreate(AccountAdjustmentDescription, ownerID); err != nil {
			return nil, err
		}
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	var account *models.Account
	err := s.db.Transaction(func(tx *gorm.DB) error {
		accounts := s.accounts.WithTx(tx)
		current, err := accounts.GetAccount(ownerID, id)
		if err != nil {
			return err
		}

		if input.Balance != nil {
			adjustment, err := s.transactions.WithTx(tx).CreateAccountAdjustmentTransaction(current, *input.Balance, category.ID)
			if err != nil {
				return err
			}
			if adjustment != nil {
				if _, err := NewBalanceEngine(tx).UpdateAccountBalance(current, adjustment, nil, false); err != nil {
					return err
				}
			}
		}

		account, err = accounts.UpdateAccountDetails(current.ID, input.Name, input.Color)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// transfersOf lists the transfers that reference accountID on either side.
func transfersOf(db *gorm.DB, accountID string) ([]models.Transaction, error) {
	var transfers []models.Transaction
	err := db.Where("type = ?", models.TransactionTypeTransfer).
		Where(db.Where("from_kind = ? AND from_value = ?", models.EndpointKindAccount, accountID).
			Or("to_kind = ? AND to_value = ?", models.EndpointKindAccount, accountID)).
		Order("created_at ASC").
		Find(&transfers).Error
	return transfers, err
}

// errLockSetStale reports that a transfer touching an unlocked account
// appeared between the pre-read and the lock.
var errLockSetStale = errors.New("lock set is stale")

// closeAttempts bounds how often CloseAccount widens its lock set.
const closeAttempts = 3

// transferAccounts returns id plus every account on either side of transfers.
func transferAccounts(id string, transfers []models.Transaction) []string {
	ids := []string{id}
	for i := range transfers {
		ids = append(ids, endpointAccounts(transfers[i].From, transfers[i].To)...)
	}
	return ids
}

// uncovered returns the ids in want that are not in held.
func uncovered(held, want []string) []string {
	set := make(map[string]struct{}, len(held))
	for _, id := range held {
		set[id] = struct{}{}
	}
	var missing []string
	for _, id := range uniqueSorted(want) {
		if _, ok := set[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// CloseAccount deletes an account. Every transfer touching it is first
// reversed through the balance engine and removed, so counterpart accounts
// get their funds back. The lock set comes from an unlocked read of the
// transfers; if it no longer covers them once locked, the attempt rolls back
// and retries with the wider set.
func (s *ledgerService) CloseAccount(ownerID, id string) error {
	if _, err := s.accounts.GetAccount(ownerID, id); err != nil {
		return err
	}

	transfers, err := transfersOf(s.db, id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	lockIDs := transferAccounts(id, transfers)

	for attempt := 1; ; attempt++ {
		reversed, missing, err := s.closeLocked(ownerID, id, lockIDs)
		if err == nil {
			logger.Get().Infow("account closed", "account_id", id, "transfers_reversed", reversed)
			return nil
		}
		if !errors.Is(err, errLockSetStale) {
			return err
		}
		if attempt == closeAttempts {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		logger.Get().Warnw("retrying account close with a wider lock set", "account_id", id, "missing", missing)
		lockIDs = append(lockIDs, missing...)
	}
}

// closeLocked runs one close attempt while holding the locks of lockIDs. On
// errLockSetStale it returns the accounts that were missing from the set.
func (s *ledgerService) closeLocked(ownerID, id string, lockIDs []string) (reversed int, missing []string, err error) {
	unlock := s.locks.Lock(lockIDs...)
	defer unlock()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.accounts.WithTx(tx).GetAccount(ownerID, id); err != nil {
			return err
		}

		transfers, err := transfersOf(tx, id)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if missing = uncovered(lockIDs, transferAccounts(id, transfers)); len(missing) > 0 {
			return errLockSetStale
		}

		engine := NewBalanceEngine(tx)
		txs := s.transactions.WithTx(tx)
		for i := range transfers {
			transfer := &transfers[i]
			source := &models.Account{Base: models.Base{ID: transfer.From.Value}}
			if _, err := engine.UpdateAccountBalance(source, transfer, nil, true); err != nil {
				return err
			}
			if err := txs.DeleteTransaction(transfer.ID); err != nil {
				return err
			}
		}
		reversed = len(transfers)

		return s.accounts.WithTx(tx).DeleteAccount(id)
	})
	return reversed, missing, err
}

// RecordTransaction stores a new transaction on one of the owner's accounts
// and applies it to the balances it affects.
func (s *ledgerService) RecordTransaction(ownerID string, req TransactionRequest) (*TransactionResult, error) {
	category, err := s.categories.FindOrCreate(req.Category, ownerID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(append(endpointAccounts(req.From, req.To), req.AccountID)...)
	defer unlock()

	var result *TransactionResult
	err = s.db.Transaction(func(tx *gorm.DB) error {
		accounts := s.accounts.WithTx(tx)
		account, err := accounts.GetAccount(ownerID, req.AccountID)
		if err != nil {
			return err
		}

		input := req.TransactionInput
		input.CategoryID = category.ID
		transaction, err := s.transactions.WithTx(tx).CreateTransaction(input, account)
		if err != nil {
			return err
		}
		if transaction.IsTransfer() {
			if _, err := accounts.GetAccount(ownerID, transaction.To.Value); err != nil {
				return err
			}
		}

		balances, err := NewBalanceEngine(tx).UpdateAccountBalance(account, transaction, nil, false)
		if err != nil {
			return err
		}
		result = &TransactionResult{Transaction: transaction, Balances: balances}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ownedTransaction loads a transaction and hides it from anyone but its owner.
func ownedTransaction(txs TransactionServicer, ownerID, id string) (*models.Transaction, error) {
	transaction, err := txs.GetTransaction(id)
	if err != nil {
		return nil, err
	}
	if transaction.CreatedBy != ownerID {
		return nil, apperrors.ErrTransactionNotFound
	}
	return transaction, nil
}

// ReviseTransaction rewrites a transaction and moves balances from its old
// effect to its new one. A transfer's account follows its from endpoint.
func (s *ledgerService) ReviseTransaction(ownerID, id string, req TransactionRequest) (*TransactionResult, error) {
	category, err := s.categories.FindOrCreate(req.Category, ownerID)
	if err != nil {
		return nil, err
	}

	current, err := ownedTransaction(s.transactions, ownerID, id)
	if err != nil {
		return nil, err
	}
	lockIDs := append(endpointAccounts(current.From, current.To, req.From, req.To), current.AccountID)
	unlock := s.locks.Lock(lockIDs...)
	defer unlock()

	var result *TransactionResult
	err = s.db.Transaction(func(tx *gorm.DB) error {
		txs := s.transactions.WithTx(tx)
		accounts := s.accounts.WithTx(tx)

		old, err := ownedTransaction(txs, ownerID, id)
		if err != nil {
			return err
		}

		accountID := old.AccountID
		if req.Type == models.TransactionTypeTransfer && req.From.IsAccount() {
			accountID = req.From.Value
		}
		account, err := accounts.GetAccount(ownerID, accountID)
		if err != nil {
			return err
		}

		input := req.TransactionInput
		input.CategoryID = category.ID
		updated, err := txs.UpdateTransaction(id, input, account)
		if err != nil {
			return err
		}
		if updated.IsTransfer() {
			if _, err := accounts.GetAccount(ownerID, updated.To.Value); err != nil {
				return err
			}
		}

		balances, err := NewBalanceEngine(tx).UpdateAccountBalance(account, updated, old, false)
		if err != nil {
			return err
		}
		result = &TransactionResult{Transaction: updated, Balances: balances}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveTransaction deletes a transaction and reverses its effect on balances.
func (s *ledgerService) RemoveTransaction(ownerID, id string) (*TransactionResult, error) {
	current, err := ownedTransaction(s.transactions, ownerID, id)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(append(endpointAccounts(current.From, current.To), current.AccountID)...)
	defer unlock()

	var result *TransactionResult
	err = s.db.Transaction(func(tx *gorm.DB) error {
		txs := s.transactions.WithTx(tx)
		transaction, err := ownedTransaction(txs, ownerID, id)
		if err != nil {
			return err
		}

		account, err := s.accounts.WithTx(tx).GetAccount(ownerID, transaction.AccountID)
		if err != nil {
			if errors.Is(err, apperrors.ErrAccountNotFound) {
				logger.Get().Warnw("transaction references a missing account", "transaction_id", id, "account_id", transaction.AccountID)
			}
			return err
		}

		balances, err := NewBalanceEngine(tx).UpdateAccountBalance(account, transaction, nil, true)
		if err != nil {
			return err
		}
		if err := txs.DeleteTransaction(id); err != nil {
			return err
		}
		result = &TransactionResult{Transaction: transaction, Balances: balances}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
