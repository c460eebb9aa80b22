package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/tiptop/backend/internal/logger"
	"github.com/tiptop/backend/internal/models"
	"github.com/tiptop/backend/internal/repository"
	"github.com/tiptop/backend/internal/services"
	"go.uber.org/zap"
)

const multipartMemory = 8 << 20

type AdminHandler struct {
	accounts services.AccountStore
	coins    *services.CoinService
	ads      *services.AdService
}

func NewAdminHandler(accounts services.AccountStore, coins *services.CoinService, ads *services.AdService) *AdminHandler {
	return &AdminHandler{accounts: accounts, coins: coins, ads: ads}
}

type AdminOverview struct {
	Users []*models.Account `json:"users"`
	Ads   []*models.Ad      `json:"ads"`
}

type UserProfile struct {
	Account *models.Account `json:"account"`
	Coins   int64           `json:"coins"`
	Money   string          `json:"money" example:"1.00"`
}

// Overview lists users and ads
// @Summary Admin overview
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AdminOverview
// @Failure 403 {object} services.ErrorResponse
// @Router /admin [get]
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.List(r.Context())
	if err != nil {
		h.fail(w, "ListUsers", err)
		return
	}

	ads, err := h.ads.AllAds(r.Context())
	if err != nil {
		h.fail(w, "ListAds", err)
		return
	}

	render.JSON(w, r, AdminOverview{Users: nonNilAccounts(users), Ads: nonNilAds(ads)})
}

// ListAds lists every ad
// @Summary All ads
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Ad
// @Router /admin/ads [get]
func (h *AdminHandler) ListAds(w http.ResponseWriter, r *http.Request) {
	ads, err := h.ads.AllAds(r.Context())
	if err != nil {
		h.fail(w, "ListAds", err)
		return
	}
	render.JSON(w, r, nonNilAds(ads))
}

// CreateAd uploads a new ad
// @Summary Create ad
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Ad title"
// @Param link formData string true "Target link"
// @Param image formData file true "Ad image (png, jpg, jpeg, gif)"
// @Success 201 {object} models.Ad
// @Failure 400 {object} services.ErrorResponse
// @Router /admin/ads [post]
func (h *AdminHandler) CreateAd(w http.ResponseWriter, r *http.Request) {
	if limit := h.ads.MaxUploadBytes(); limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartMemory)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		logger.Log.Info("Invalid ad upload", zap.Error(err))
		services.SendErrorResponse(w, "Invalid upload", http.StatusBadRequest, nil)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	link := strings.TrimSpace(r.FormValue("link"))
	file, header, err := r.FormFile("image")
	if err != nil || title == "" || link == "" {
		services.SendErrorResponse(w, "All fields are required", http.StatusBadRequest, nil)
		return
	}
	defer file.Close()

	ad, err := h.ads.CreateAd(r.Context(), title, link, header.Filename, file)
	if err != nil {
		h.fail(w, "CreateAd", err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, ad)
}

// ToggleAd flips an ad between active and inactive
// @Summary Toggle ad
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param adID path int true "Ad ID"
// @Success 200 {object} models.Ad
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/ads/{adID}/toggle [post]
func (h *AdminHandler) ToggleAd(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "adID")
	if !ok {
		return
	}

	ad, err := h.ads.ToggleAd(r.Context(), id)
	if err != nil {
		h.fail(w, "ToggleAd", err)
		return
	}
	render.JSON(w, r, ad)
}

// DeleteAd removes an ad and its image
// @Summary Delete ad
// @Tags admin
// @Security BearerAuth
// @Param adID path int true "Ad ID"
// @Success 204
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/ads/{adID} [delete]
func (h *AdminHandler) DeleteAd(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "adID")
	if !ok {
		return
	}

	if err := h.ads.DeleteAd(r.Context(), id); err != nil {
		h.fail(w, "DeleteAd", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUsers lists every account
// @Summary All users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Account
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.List(r.Context())
	if err != nil {
		h.fail(w, "ListUsers", err)
		return
	}
	render.JSON(w, r, nonNilAccounts(users))
}

// UserProfile shows one account with its balances
// @Summary User profile
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param userID path int true "Account ID"
// @Success 200 {object} UserProfile
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/users/{userID}/profile [get]
func (h *AdminHandler) UserProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "userID")
	if !ok {
		return
	}

	account, err := h.accounts.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		services.SendServiceError(w, services.ErrNotFound)
		return
	}
	if err != nil {
		h.fail(w, "GetAccount", err)
		return
	}

	ledger, err := h.coins.Balance(r.Context(), id)
	if err != nil {
		h.fail(w, "Balance", err)
		return
	}

	render.JSON(w, r, UserProfile{Account: account, Coins: ledger.Coins, Money: ledger.Money.StringFixed(2)})
}

func (h *AdminHandler) fail(w http.ResponseWriter, op string, err error) {
	if services.StatusFor(err) >= http.StatusInternalServerError {
		logger.Log.Error("Admin operation failed", zap.String("op", op), zap.Error(err))
	}
	services.SendServiceError(w, err)
}

func nonNilAds(ads []*models.Ad) []*models.Ad {
	if ads == nil {
		return []*models.Ad{}
	}
	return ads
}

func nonNilAccounts(accounts []*models.Account) []*models.Account {
	if accounts == nil {
		return []*models.Account{}
	}
	return accounts
}
