package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"pocketledger/internal/logger"
	"pocketledger/internal/models"
)

// auditService appends to the audit trail. Failures are logged and dropped so
// an audit write can never undo a committed ledger change.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an event on any resource.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	s.write(&models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
	}, changes)
}

// LogLedgerChange records a transaction event together with the balances it
// left on every account it moved.
func (s *auditService) LogLedgerChange(userID, action, ipAddress string, result *TransactionResult) {
	if result == nil || result.Transaction == nil {
		return
	}
	s.write(&models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: "transaction",
		ResourceID:   result.Transaction.ID,
		IPAddress:    ipAddress,
	}, ledgerChanges(result))
}

// ledgerChanges summarizes a transaction result as
// {type, amount, account_id, balances: {account id: balance}}.
func ledgerChanges(result *TransactionResult) map[string]any {
	t := result.Transaction
	changes := map[string]any{
		"type":       t.Type,
		"amount":     t.Amount.String(),
		"account_id": t.AccountID,
	}

	balances := map[string]string{}
	if result.Balances != nil {
		for _, account := range []*models.Account{result.Balances.Source, result.Balances.Target} {
			if account != nil {
				balances[account.ID] = account.Balance.String()
			}
		}
	}
	changes["balances"] = balances
	return changes
}

func (s *auditService) write(entry *models.AuditLog, changes map[string]any) {
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Errorw("failed to encode audit changes", "error", err, "action", entry.Action)
			data = []byte("{}")
		}
		entry.Changes = string(data)
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.With("action", entry.Action, "resource_type", entry.ResourceType, "resource_id", entry.ResourceID).
			Errorw("failed to write audit entry", "error", err, "user_id", entry.UserID)
	}
}
