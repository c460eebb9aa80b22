package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"github.com/tiptop/backend/internal/logger"
	"github.com/tiptop/backend/internal/models"
	"github.com/tiptop/backend/internal/services"
	"go.uber.org/zap"
)

type CoinHandler struct {
	service *services.CoinService
}

func NewCoinHandler(service *services.CoinService) *CoinHandler {
	return &CoinHandler{service: service}
}

// HistoryResponse is the balance plus recent coin events.
type HistoryResponse struct {
	BalanceResponse
	Events []*models.CoinEvent `json:"events"`
}

// Dashboard returns the home page data
// @Summary Dashboard
// @Description Username and balances of the signed-in account
// @Tags coins
// @Produce json
// @Security BearerAuth
// @Success 200 {object} BalanceResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /dashboard [get]
func (h *CoinHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	dash, err := h.service.Dashboard(r.Context(), accountID)
	if err != nil {
		h.fail(w, accountID, "Dashboard", err)
		return
	}

	render.JSON(w, r, BalanceResponse{
		Username: dash.Username,
		Coins:    dash.Coins,
		Money:    dash.Money.StringFixed(2),
	})
}

// Earn credits ten coins
// @Summary Earn coins
// @Tags coins
// @Produce json
// @Security BearerAuth
// @Success 200 {object} BalanceResponse
// @Failure 404 {object} services.ErrorResponse "Profile missing"
// @Router /coins/earn [post]
func (h *CoinHandler) Earn(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	ledger, err := h.service.Earn(r.Context(), accountID)
	if err != nil {
		h.fail(w, accountID, "Earn", err)
		return
	}

	resp := balanceFrom(ledger)
	resp.Message = "You earned 10 coins"
	render.JSON(w, r, resp)
}

// Redeem exchanges 100 coins for $1.00
// @Summary Redeem coins
// @Tags coins
// @Produce json
// @Security BearerAuth
// @Success 200 {object} BalanceResponse
// @Failure 400 {object} services.ErrorResponse "Not enough coins"
// @Router /coins/redeem [post]
func (h *CoinHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	ledger, err := h.service.Redeem(r.Context(), accountID)
	if err != nil {
		h.fail(w, accountID, "Redeem", err)
		return
	}

	resp := balanceFrom(ledger)
	resp.Message = "Redeemed 100 coins for $1.00"
	render.JSON(w, r, resp)
}

// History lists recent coin events
// @Summary Coin history
// @Tags coins
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum number of events" default(20)
// @Success 200 {object} HistoryResponse
// @Router /coins/history [get]
func (h *CoinHandler) History(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			services.SendErrorResponse(w, "Invalid limit", http.StatusBadRequest, nil)
			return
		}
		limit = n
	}

	ledger, err := h.service.Balance(r.Context(), accountID)
	if err != nil {
		h.fail(w, accountID, "Balance", err)
		return
	}

	events, err := h.service.History(r.Context(), accountID, limit)
	if err != nil {
		h.fail(w, accountID, "History", err)
		return
	}
	if events == nil {
		events = []*models.CoinEvent{}
	}

	render.JSON(w, r, HistoryResponse{BalanceResponse: balanceFrom(ledger), Events: events})
}

func (h *CoinHandler) fail(w http.ResponseWriter, accountID int64, op string, err error) {
	if services.StatusFor(err) >= http.StatusInternalServerError {
		logger.Log.Error("Coin operation failed", zap.String("op", op), zap.Int64("account_id", accountID), zap.Error(err))
	}
	services.SendServiceError(w, err)
}
