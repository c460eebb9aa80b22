package services

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrMismatch            = errors.New("passwords do not match")
	ErrInvalidCode         = errors.New("invalid verification code")
	ErrCodeExpired         = errors.New("verification code expired")
	ErrSessionExpired      = errors.New("reset session expired")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrProfileMissing      = errors.New("profile missing")
	ErrDeliveryFailure     = errors.New("email delivery failed")
	ErrTooManyRequests     = errors.New("too many requests")
	ErrInvalidFile         = errors.New("invalid file")
)

const internalErrorMessage = "An Internal Error Occurred"

type errorMapping struct {
	err     error
	message string
	status  int
}

var errorTable = []errorMapping{
	{ErrNotFound, "Not found", http.StatusNotFound},
	{ErrAlreadyExists, "Username or email already exists", http.StatusConflict},
	{ErrInvalidCredentials, "Invalid credentials", http.StatusUnauthorized},
	{ErrMismatch, "Passwords do not match", http.StatusBadRequest},
	{ErrInvalidCode, "Invalid verification code", http.StatusBadRequest},
	{ErrCodeExpired, "Verification code has expired, please request a new one", http.StatusGone},
	{ErrSessionExpired, "Session expired, please request a new code", http.StatusUnauthorized},
	{ErrInsufficientBalance, "Not enough coins to redeem", http.StatusBadRequest},
	{ErrProfileMissing, "Profile not found", http.StatusNotFound},
	{ErrDeliveryFailure, "Failed to send email, please try again", http.StatusBadGateway},
	{ErrTooManyRequests, "Too many reset requests, please try again later", http.StatusTooManyRequests},
	{ErrInvalidFile, "Invalid file type", http.StatusBadRequest},
}

// UserMessage returns the user-facing text for err. Errors outside the
// taxonomy get a generic message so storage details never leak.
func UserMessage(err error) string {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.message
		}
	}
	return internalErrorMessage
}

func StatusFor(err error) int {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// SendServiceError writes err using the JSON error envelope.
func SendServiceError(w http.ResponseWriter, err error) {
	SendErrorResponse(w, UserMessage(err), StatusFor(err), nil)
}
