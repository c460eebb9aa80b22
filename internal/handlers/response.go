package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tiptop/backend/internal/middleware"
	"github.com/tiptop/backend/internal/models"
	"github.com/tiptop/backend/internal/services"
)

// BalanceResponse is a ledger as shown to clients. Money is fixed to two
// decimals.
type BalanceResponse struct {
	Username string `json:"username,omitempty" example:"jane"`
	Coins    int64  `json:"coins" example:"150"`
	Money    string `json:"money" example:"2.00"`
	Message  string `json:"message,omitempty"`
}

func balanceFrom(ledger *models.Ledger) BalanceResponse {
	return BalanceResponse{Coins: ledger.Coins, Money: ledger.Money.StringFixed(2)}
}

func requireAccountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return 0, false
	}
	return accountID, true
}

func urlID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		services.SendErrorResponse(w, "Invalid "+param, http.StatusBadRequest, nil)
		return 0, false
	}
	return id, true
}
