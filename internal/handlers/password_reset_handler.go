package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tiptop/backend/internal/logger"
	"github.com/tiptop/backend/internal/services"
	"github.com/tiptop/backend/internal/session"
	"go.uber.org/zap"
)

type PasswordResetHandler struct {
	service   *services.PasswordResetService
	validator *services.ValidationHelper
}

func NewPasswordResetHandler(service *services.PasswordResetService) *PasswordResetHandler {
	return &PasswordResetHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email" example:"jane@example.com"`
}

type VerifyCodeRequest struct {
	Code string `json:"code" validate:"required" example:"482913"`
}

type ResetPasswordRequest struct {
	NewPassword     string `json:"new_password" validate:"required" example:"n3w-password"`
	ConfirmPassword string `json:"confirm_password" validate:"required" example:"n3w-password"`
}

// ForgotPassword emails a verification code
// @Summary Request a password reset code
// @Description Send a six-digit verification code to the account email
// @Tags password-reset
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Account email"
// @Success 200 {object} object{message=string,expiresIn=int}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse "Email not found"
// @Failure 429 {object} services.ErrorResponse
// @Failure 502 {object} services.ErrorResponse "Email delivery failed"
// @Router /auth/forgot-password [post]
func (h *PasswordResetHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req ForgotPasswordRequest
	if !h.validator.DecodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.RequestCode(r.Context(), sess, req.Email); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			services.SendErrorResponse(w, "Email not found in our system", http.StatusNotFound, nil)
			return
		}
		h.fail(w, "RequestCode", err)
		return
	}

	render.JSON(w, r, map[string]any{
		"message":   "Verification code has been sent to your email",
		"expiresIn": int(h.service.CodeTimeout().Seconds()),
	})
}

// VerifyCode checks the emailed code
// @Summary Verify a reset code
// @Tags password-reset
// @Accept json
// @Produce json
// @Param request body VerifyCodeRequest true "Verification code"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} services.ErrorResponse "Invalid code"
// @Failure 410 {object} services.ErrorResponse "Code expired"
// @Router /auth/verify-code [post]
func (h *PasswordResetHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req VerifyCodeRequest
	if !h.validator.DecodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.VerifyCode(r.Context(), sess, req.Code); err != nil {
		h.fail(w, "VerifyCode", err)
		return
	}

	render.JSON(w, r, map[string]string{"message": "Code verified, you can now set a new password"})
}

// ResetPassword sets the new password
// @Summary Reset the password
// @Tags password-reset
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "New password"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} services.ErrorResponse "Passwords do not match"
// @Failure 401 {object} services.ErrorResponse "Reset session expired"
// @Router /auth/reset-password [post]
func (h *PasswordResetHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req ResetPasswordRequest
	if !h.validator.DecodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), sess, req.NewPassword, req.ConfirmPassword); err != nil {
		h.fail(w, "ResetPassword", err)
		return
	}

	render.JSON(w, r, map[string]string{"message": "Password has been reset successfully"})
}

func (h *PasswordResetHandler) session(w http.ResponseWriter, r *http.Request) (*session.Context, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		logger.Log.Error("Session middleware not installed", zap.String("path", r.URL.Path))
		services.SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
		return nil, false
	}
	return sess, true
}

func (h *PasswordResetHandler) fail(w http.ResponseWriter, op string, err error) {
	status := services.StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Log.Error("Password reset failed", zap.String("op", op), zap.Error(err))
	} else {
		logger.Log.Info("Password reset rejected", zap.String("op", op), zap.Error(err))
	}
	services.SendServiceError(w, err)
}
