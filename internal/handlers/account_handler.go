package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"pocketledger/internal/pagination"
	"pocketledger/internal/services"
)

// AccountHandler handles account-related requests.
type AccountHandler struct {
	accountService services.AccountServicer
	ledgerService  services.LedgerServicer
	auditService   services.AuditServicer
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService services.AccountServicer, ledgerService services.LedgerServicer, auditService services.AuditServicer) *AccountHandler {
	return &AccountHandler{accountService: accountService, ledgerService: ledgerService, auditService: auditService}
}

// CreateAccountRequest represents the request payload for opening an account.
// A missing balance opens the account at zero.
type CreateAccountRequest struct {
	Name    string           `json:"name" binding:"required,min=1,max=255"`
	Balance *decimal.Decimal `json:"balance" swaggertype:"string" binding:"omitempty,money"`
	Color   string           `json:"color" binding:"omitempty,hex_color"`
}

// UpdateAccountRequest represents the request payload for editing an account.
// Setting balance records an adjustment for the difference.
type UpdateAccountRequest struct {
	Name    string           `json:"name" binding:"omitempty,min=1,max=255"`
	Balance *decimal.Decimal `json:"balance" swaggertype:"string" binding:"omitempty,money"`
	Color   string           `json:"color" binding:"omitempty,hex_color"`
}

// CreateAccount handles opening a new account
// @Summary     Open an account
// @Description Create an account; a positive balance is recorded as an "Initial Balance" income
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateAccountRequest true "Account details"
// @Success     201 {object} models.Account "Account created"
// @Failure     400 {object} ErrorResponse "Invalid input or negative balance"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts [post]
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	account, err := h.ledgerService.OpenAccount(userID, services.AccountInput{
		Name:    req.Name,
		Balance: req.Balance,
		Color:   req.Color,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_ACCOUNT", "account", account.ID, c.ClientIP(),
		map[string]any{"name": account.Name, "balance": account.Balance.String()})

	c.JSON(http.StatusCreated, gin.H{"account": account})
}

// GetAccounts handles listing the user's accounts
// @Summary     List accounts
// @Description Get a page of accounts together with the total balance and count of all of them
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       skip  query int false "Accounts to skip"
// @Param       first query int false "Page size (default 20, max 100)"
// @Success     200 {object} services.AccountsSummary "Accounts summary"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts [get]
func (h *AccountHandler) GetAccounts(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	summary, err := h.accountService.GetAccountsSummary(c.Request.Context(), userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetAccount handles the retrieval of a single account
// @Summary     Get account
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Account ID"
// @Success     200 {object} models.Account "Account"
// @Failure     400 {object} ErrorResponse "Invalid account ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id} [get]
func (h *AccountHandler) GetAccount(c *gin.Context) {
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

	account, err := h.accountService.GetAccount(userID, accountID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// UpdateAccount handles editing an account
// @Summary     Update account
// @Description Rename or recolor an account, or set its balance through an "Account Adjustments" transaction
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Account ID"
// @Param       request body UpdateAccountRequest true "Fields to update"
// @Success     200 {object} models.Account "Updated account"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts/{id} [put]
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
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

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	account, err := h.ledgerService.UpdateAccount(userID, accountID, services.AccountInput{
		Name:    req.Name,
		Balance: req.Balance,
		Color:   req.Color,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	changes := map[string]any{}
	if req.Name != "" {
		changes["name"] = req.Name
	}
	if req.Color != "" {
		changes["color"] = req.Color
	}
	if req.Balance != nil {
		changes["balance"] = req.Balance.String()
	}
	h.auditService.Log(userID, "UPDATE_ACCOUNT", "account", accountID, c.ClientIP(), changes)

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// DeleteAccount handles closing an account
// @Summary     Delete account
// @Description Delete an account with its history; transfers touching it are reversed on the other account
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Account ID"
// @Success     200 {object} MessageResponse "Account deleted"
// @Failure     400 {object} ErrorResponse "Invalid account ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts/{id} [delete]
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
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

	if err := h.ledgerService.CloseAccount(userID, accountID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_ACCOUNT", "account", accountID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}

// MessageResponse represents a simple message response
type MessageResponse struct {
	Message string `json:"message"`
}
