package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/shared_expense_bot/internal/core/ports/services"
	"github.com/SscSPs/shared_expense_bot/internal/dto"
	"github.com/SscSPs/shared_expense_bot/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ledgerHandler serves balance inspection and maintenance.
type ledgerHandler struct {
	ledger portssvc.LedgerSvcFacade
}

func newLedgerHandler(ledger portssvc.LedgerSvcFacade) *ledgerHandler {
	return &ledgerHandler{ledger: ledger}
}

// RegisterLedgerRoutes registers the balance and transaction routes.
func RegisterLedgerRoutes(rg *gin.RouterGroup, ledger portssvc.LedgerSvcFacade) {
	registerValidators()
	h := newLedgerHandler(ledger)

	balance := rg.Group("/balance")
	{
		balance.GET("", h.getBalance)
		balance.GET("/details", h.getDetails)
		balance.POST("/settle", h.settle)
		balance.POST("/patch", h.patch)
	}

	txns := rg.Group("/transactions")
	{
		txns.GET("", h.listTransactions)
		txns.GET("/:id", h.getTransaction)
		txns.PATCH("/:id", h.editTransaction)
		txns.DELETE("/:id", h.deleteTransaction)
	}
}

// getBalance godoc
// @Summary Outstanding balance
// @Tags balance
// @Produce json
// @Success 200 {object} dto.BalanceResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /balance [get]
func (h *ledgerHandler) getBalance(c *gin.Context) {
	bal, err := h.ledger.OutstandingBalance(c.Request.Context())
	if err != nil {
		respondError(c, err, "compute balance")
		return
	}
	c.JSON(http.StatusOK, dto.ToBalanceResponse(*bal, h.ledger.SettlementMessage(*bal)))
}

// getDetails godoc
// @Summary Detailed balance with per-participant totals
// @Tags balance
// @Produce json
// @Success 200 {object} dto.DetailedBalanceResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /balance/details [get]
func (h *ledgerHandler) getDetails(c *gin.Context) {
	detailed, err := h.ledger.DetailedBalance(c.Request.Context())
	if err != nil {
		respondError(c, err, "compute balance details")
		return
	}
	c.JSON(http.StatusOK, dto.ToDetailedBalanceResponse(*detailed, h.ledger.SettlementMessage(detailed.Balance)))
}

// settle godoc
// @Summary Settle every unsettled transaction
// @Tags balance
// @Produce json
// @Success 200 {object} dto.SettleResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /balance/settle [post]
func (h *ledgerHandler) settle(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}
	count, err := h.ledger.SettleAll(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err, "settle transactions")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Ledger settled", slog.Int64("count", count))
	c.JSON(http.StatusOK, dto.SettleResponse{Settled: count})
}

// patch godoc
// @Summary Replace the outstanding balance with a target position
// @Description Settles everything and inserts patch transactions reproducing the target. Runs once; a second call is rejected while the patch is unsettled.
// @Tags balance
// @Accept json
// @Produce json
// @Param patch body dto.PatchBalanceRequest true "Target position"
// @Success 201 {object} dto.PatchBalanceResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Patch already applied"
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /balance/patch [post]
func (h *ledgerHandler) patch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.PatchBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for PatchBalance", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	inserted, err := h.ledger.PatchBalance(c.Request.Context(), req.ToPatchTarget(), actor)
	if err != nil {
		respondError(c, err, "patch balance")
		return
	}
	logger.Info("Balance patched", slog.Int("inserted", inserted))
	c.JSON(http.StatusCreated, dto.PatchBalanceResponse{Inserted: inserted})
}

// listTransactions godoc
// @Summary List transactions, newest first
// @Tags transactions
// @Produce json
// @Param unsettled query bool false "Only unsettled transactions"
// @Param category query string false "Exact category"
// @Param payer query string false "A or B"
// @Param q query string false "Search in description and category"
// @Param limit query int false "Page size (1-100)"
// @Param nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions [get]
func (h *ledgerHandler) listTransactions(c *gin.Context) {
	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query parameters: " + err.Error()})
		return
	}
	var nextToken *string
	if params.NextToken != "" {
		nextToken = &params.NextToken
	}

	txns, next, err := h.ledger.ListTransactions(c.Request.Context(), params.ToFilter(), nextToken)
	if err != nil {
		respondError(c, err, "list transactions")
		return
	}
	c.JSON(http.StatusOK, dto.ToListTransactionsResponse(txns, next))
}

// getTransaction godoc
// @Summary Get a transaction by ID
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions/{id} [get]
func (h *ledgerHandler) getTransaction(c *gin.Context) {
	txn, err := h.ledger.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "retrieve transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(*txn))
}

// editTransaction godoc
// @Summary Edit an unsettled transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param edit body dto.EditTransactionRequest true "Fields to change"
// @Success 200 {object} dto.TransactionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions/{id} [patch]
func (h *ledgerHandler) editTransaction(c *gin.Context) {
	var req dto.EditTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}
	txn, err := h.ledger.EditTransaction(c.Request.Context(), c.Param("id"), req.ToEdit(), actor)
	if err != nil {
		respondError(c, err, "edit transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(*txn))
}

// deleteTransaction godoc
// @Summary Delete an unsettled transaction
// @Tags transactions
// @Param id path string true "Transaction ID"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /transactions/{id} [delete]
func (h *ledgerHandler) deleteTransaction(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}
	if _, err := h.ledger.DeleteTransaction(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondError(c, err, "delete transaction")
		return
	}
	c.Status(http.StatusNoContent)
}
