package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"
	"pocketledger/internal/pagination"
	"pocketledger/internal/services"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	accountService     services.AccountServicer
	ledgerService      services.LedgerServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(
	transactionService services.TransactionServicer,
	accountService services.AccountServicer,
	ledgerService services.LedgerServicer,
	auditService services.AuditServicer,
) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		accountService:     accountService,
		ledgerService:      ledgerService,
		auditService:       auditService,
	}
}

// EndpointRequest is one side of a transaction: an account id or an external label.
type EndpointRequest struct {
	Kind  models.EndpointKind `json:"kind" binding:"required,endpoint_kind"`
	Value string              `json:"value" binding:"required,max=255"`
}

func (e EndpointRequest) endpoint() models.Endpoint {
	return models.Endpoint{Kind: e.Kind, Value: e.Value}
}

// TransactionFields are the editable fields shared by create and update.
type TransactionFields struct {
	Amount      decimal.Decimal        `json:"amount" swaggertype:"string" binding:"required,money"`
	Type        models.TransactionType `json:"type" binding:"required,transaction_type"`
	From        EndpointRequest        `json:"from"`
	To          EndpointRequest        `json:"to"`
	Category    string                 `json:"category" binding:"required,max=255"`
	Description string                 `json:"description" binding:"max=255"`
	Notes       string                 `json:"notes" binding:"max=2000"`
}

// CreateTransactionRequest represents the request payload for recording a transaction.
// Transfers must name account_id as their from endpoint.
type CreateTransactionRequest struct {
	AccountID string `json:"account_id" binding:"required,uuid"`
	TransactionFields
}

// UpdateTransactionRequest represents the request payload for revising a
// transaction. The owning account is kept, except that a transfer follows its
// from endpoint.
type UpdateTransactionRequest struct {
	TransactionFields
}

// TransactionHistoryResponse is an account's history grouped by day, newest day first.
type TransactionHistoryResponse struct {
	Days []services.DayGroup `json:"days"`
}

// TransactionListQuery holds the filters of an account's transaction history.
type TransactionListQuery struct {
	pagination.PageRequest
	Type string `form:"type" binding:"omitempty,transaction_type"`
}

func (f TransactionFields) request(accountID string) services.TransactionRequest {
	return services.TransactionRequest{
		TransactionInput: services.TransactionInput{
			Amount:      f.Amount,
			Description: f.Description,
			From:        f.From.endpoint(),
			Notes:       f.Notes,
			To:          f.To.endpoint(),
			Type:        f.Type,
		},
		AccountID: accountID,
		Category:  f.Category,
	}
}

// CreateTransaction handles recording a new transaction
// @Summary     Create a transaction
// @Description Record an income, expense or transfer and update the balances it affects
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} services.TransactionResult "Transaction created with updated balances"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient balance"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	result, err := h.ledgerService.RecordTransaction(userID, req.request(req.AccountID))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.LogLedgerChange(userID, "CREATE_TRANSACTION", c.ClientIP(), result)

	c.JSON(http.StatusCreated, result)
}

// GetTransaction handles the retrieval of a single transaction
// @Summary     Get transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransaction(transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if transaction.CreatedBy != userID {
		respondWithError(c, apperrors.ErrTransactionNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// GetAccountTransactions handles listing an account's history grouped by day
// @Summary     Get account transactions
// @Description Get a page of transactions touching an account, newest first, grouped by calendar day
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string true  "Account ID"
// @Param       type  query string false "Filter by type (INCOME, EXPENSE, TRANSFER)"
// @Param       skip  query int    false "Transactions to skip"
// @Param       first query int    false "Page size (default 20, max 100)"
// @Success     200 {object} TransactionHistoryResponse "Transactions grouped by day"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts/{id}/transactions [get]
func (h *TransactionHandler) GetAccountTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query TransactionListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	if _, err := h.accountService.GetAccount(userID, accountID); err != nil {
		respondWithError(c, err)
		return
	}

	days, err := h.transactionService.GetTransactionsGroupedByDate(
		userID, accountID, models.TransactionType(query.Type), query.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, TransactionHistoryResponse{Days: days})
}

// UpdateTransaction handles revising a transaction
// @Summary     Update transaction
// @Description Rewrite a transaction and move balances from its old effect to its new one
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Transaction fields"
// @Success     200 {object} services.TransactionResult "Updated transaction with balances"
// @Failure     400 {object} ErrorResponse "Invalid input, insufficient balance or type change"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction or account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	result, err := h.ledgerService.ReviseTransaction(userID, transactionID, req.request(""))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.LogLedgerChange(userID, "UPDATE_TRANSACTION", c.ClientIP(), result)

	c.JSON(http.StatusOK, result)
}

// DeleteTransaction handles the deletion of a transaction
// @Summary     Delete transaction
// @Description Delete a transaction and reverse its effect on balances
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} services.TransactionResult "Deleted transaction with balances"
// @Failure     400 {object} ErrorResponse "Invalid transaction ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.ledgerService.RemoveTransaction(userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.LogLedgerChange(userID, "DELETE_TRANSACTION", c.ClientIP(), result)

	c.JSON(http.StatusOK, result)
}
