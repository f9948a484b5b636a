package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"
	"pocketledger/internal/pagination"
)

// accountService handles account-related business logic.
type accountService struct {
	db *gorm.DB
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB) AccountServicer {
	return &accountService{db: db}
}

// WithTx returns a service bound to tx.
func (s *accountService) WithTx(tx *gorm.DB) AccountServicer {
	return &accountService{db: tx}
}

// CreateAccount creates a new account with the given opening balance.
func (s *accountService) CreateAccount(name string, balance decimal.Decimal, color, ownerID string) (*models.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if balance.IsNegative() {
		return nil, apperrors.ErrInvalidBalance
	}

	account := &models.Account{
		Name:      name,
		Balance:   balance,
		Color:     color,
		CreatedBy: ownerID,
	}
	if err := s.db.Create(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return account, nil
}

// GetAccount retrieves an account by ID for a specific owner
func (s *accountService) GetAccount(ownerID, id string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("id = ? AND created_by = ?", id, ownerID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// GetAccounts returns a page of the owner's accounts, oldest first.
func (s *accountService) GetAccounts(ownerID string, page pagination.PageRequest) ([]models.Account, error) {
	accounts := []models.Account{}
	if err := s.db.Where("created_by = ?", ownerID).
		Order("created_at ASC").Order("id ASC").
		Scopes(pagination.Paginate(page)).
		Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return accounts, nil
}

// GetTotalBalance sums the balances of the owner's accounts. The sum is taken
// in Go since SQLite would add NUMERIC columns as floats.
func (s *accountService) GetTotalBalance(ownerID string) (decimal.Decimal, error) {
	var balances []decimal.Decimal
	if err := s.db.Model(&models.Account{}).
		Where("created_by = ?", ownerID).
		Pluck("balance", &balances).Error; err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return decimal.Sum(decimal.Zero, balances...), nil
}

// GetTotalCount counts the owner's accounts.
func (s *accountService) GetTotalCount(ownerID string) (int64, error) {
	var count int64
	if err := s.db.Model(&models.Account{}).Where("created_by = ?", ownerID).Count(&count).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count, nil
}

// GetAccountsSummary fetches a page of accounts, the balance total and the
// account count concurrently.
func (s *accountService) GetAccountsSummary(ctx context.Context, ownerID string, page pagination.PageRequest) (*AccountsSummary, error) {
	g, gctx := errgroup.WithContext(ctx)
	scoped := &accountService{db: s.db.WithContext(gctx)}

	summary := &AccountsSummary{}
	g.Go(func() error {
		accounts, err := scoped.GetAccounts(ownerID, page)
		summary.Accounts = accounts
		return err
	})
	g.Go(func() error {
		total, err := scoped.GetTotalBalance(ownerID)
		summary.Total = total
		return err
	})
	g.Go(func() error {
		count, err := scoped.GetTotalCount(ownerID)
		summary.Count = count
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}

// UpdateAccountDetails renames or recolours an account. Empty values are left unchanged.
func (s *accountService) UpdateAccountDetails(id, name, color string) (*models.Account, error) {
	updates := make(map[string]interface{})
	if name = strings.TrimSpace(name); name != "" {
		updates["name"] = name
	}
	if color != "" {
		updates["color"] = color
	}

	if len(updates) > 0 {
		result := s.db.Model(&models.Account{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
	}

	var account models.Account
	if err := s.db.First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// DeleteAccount removes an account together with the non-transfer
// transactions it owns. Transfers must be settled by the caller first.
func (s *accountService) DeleteAccount(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ? AND type <> ?", id, models.TransactionTypeTransfer).
			Delete(&models.Transaction{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		result := tx.Delete(&models.Account{}, "id = ?", id)
		if result.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrAccountNotFound
		}
		return nil
	})
}
