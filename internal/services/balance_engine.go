package services

import (
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"
)

// balanceEngine is the only writer of Account.Balance for transaction events.
// It must run on a database transaction so that every account it touches
// commits or rolls back together.
type balanceEngine struct {
	db *gorm.DB
}

// NewBalanceEngine creates a BalanceEngine bound to db, normally a *gorm.DB
// handed to a db.Transaction callback.
func NewBalanceEngine(db *gorm.DB) BalanceEngine {
	return &balanceEngine{db: db}
}

// balanceDeltas accumulates per-account balance changes for one event.
type balanceDeltas map[string]decimal.Decimal

func (d balanceDeltas) add(accountID string, amount decimal.Decimal) {
	d[accountID] = d[accountID].Add(amount)
}

// effect is the signed change a non-transfer transaction makes to its account.
func effect(txType models.TransactionType, amount decimal.Decimal) decimal.Decimal {
	if txType == models.TransactionTypeExpense {
		return amount.Neg()
	}
	return amount
}

// UpdateAccountBalance applies a create, update (oldTransaction set) or delete
// of transaction to the balances it affects and persists them. It does no
// validation; the transaction service has already accepted the transaction.
func (e *balanceEngine) UpdateAccountBalance(account *models.Account, transaction, oldTransaction *models.Transaction, isDelete bool) (*BalanceUpdate, error) {
	deltas := balanceDeltas{}
	sourceID, targetID := account.ID, ""

	if transaction.IsTransfer() {
		sourceID, targetID = transferDeltas(deltas, account, transaction, oldTransaction, isDelete)
	} else {
		switch {
		case isDelete:
			deltas.add(account.ID, effect(transaction.Type, transaction.Amount).Neg())
		case oldTransaction != nil:
			// Reverse by the old type so an income/expense switch nets out.
			deltas.add(account.ID, effect(oldTransaction.Type, oldTransaction.Amount).Neg())
			deltas.add(account.ID, effect(transaction.Type, transaction.Amount))
		default:
			deltas.add(account.ID, effect(transaction.Type, transaction.Amount))
		}
	}

	accounts, err := e.apply(deltas)
	if err != nil {
		return nil, err
	}

	if updated, ok := accounts[account.ID]; ok {
		account.Balance = updated.Balance
		account.UpdatedAt = updated.UpdatedAt
	}

	result := &BalanceUpdate{Source: accounts[sourceID]}
	if targetID != "" {
		result.Target = accounts[targetID]
	}
	return result, nil
}

// transferDeltas records the two-sided effect of a transfer and returns the
// resolved source and target account ids.
func transferDeltas(deltas balanceDeltas, account *models.Account, transaction, old *models.Transaction, isDelete bool) (string, string) {
	sourceID := account.ID
	if old != nil && transaction.To.Refers(account.ID) {
		// Called with the receiving side of an existing transfer: normalize
		// to the account the funds came from.
		sourceID = transaction.From.Value
	}
	targetID := transaction.To.Value
	amount := transaction.Amount

	switch {
	case isDelete:
		deltas.add(sourceID, amount)
		deltas.add(targetID, amount.Neg())

	case old == nil:
		deltas.add(sourceID, amount.Neg())
		deltas.add(targetID, amount)

	default:
		oldSourceID := sourceID
		if old.From.IsAccount() {
			oldSourceID = old.From.Value
		}
		if oldSourceID == sourceID {
			deltas.add(sourceID, old.Amount.Sub(amount))
		} else {
			deltas.add(oldSourceID, old.Amount)
			deltas.add(sourceID, amount.Neg())
		}

		oldTargetID := targetID
		if old.To.IsAccount() {
			oldTargetID = old.To.Value
		}
		if oldTargetID == targetID {
			deltas.add(targetID, amount.Sub(old.Amount))
		} else {
			// Retargeted: take the old credit back from the stale target and
			// credit the new target with the full amount.
			deltas.add(oldTargetID, old.Amount.Neg())
			deltas.add(targetID, amount)
		}
	}

	return sourceID, targetID
}

// apply locks every affected account row in ascending id order, adds its
// delta and writes the new balance.
func (e *balanceEngine) apply(deltas balanceDeltas) (map[string]*models.Account, error) {
	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var accounts []models.Account
	if err := e.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(accounts) != len(ids) {
		return nil, apperrors.ErrAccountNotFound
	}

	byID := make(map[string]*models.Account, len(accounts))
	for i := range accounts {
		acc := &accounts[i]
		byID[acc.ID] = acc

		delta := deltas[acc.ID]
		if delta.IsZero() {
			continue
		}
		acc.Balance = acc.Balance.Add(delta)
		if err := e.db.Model(acc).Update("balance", acc.Balance).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return byID, nil
}
