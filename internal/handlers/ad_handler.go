package handlers

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/tiptop/backend/internal/logger"
	"github.com/tiptop/backend/internal/models"
	"github.com/tiptop/backend/internal/services"
	"go.uber.org/zap"
)

type AdHandler struct {
	service *services.AdService
}

func NewAdHandler(service *services.AdService) *AdHandler {
	return &AdHandler{service: service}
}

// List returns the active ads
// @Summary Active ads
// @Description Newest active ads, at most ten
// @Tags ads
// @Produce json
// @Success 200 {array} models.Ad
// @Router /ads [get]
func (h *AdHandler) List(w http.ResponseWriter, r *http.Request) {
	ads, err := h.service.ActiveAds(r.Context())
	if err != nil {
		logger.Log.Error("Failed to list ads", zap.Error(err))
		services.SendServiceError(w, err)
		return
	}
	if ads == nil {
		ads = []*models.Ad{}
	}

	render.JSON(w, r, ads)
}
