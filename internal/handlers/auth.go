package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"codetime-backend/internal/middleware"
	"codetime-backend/internal/models"
	"codetime-backend/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	user, tokens, err := h.authService.Register(r.Context(), req, r.RemoteAddr)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user":   user,
		"tokens": tokens,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	tokens, err := h.authService.Login(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tokens": tokens})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	tokens, err := h.authService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tokens": tokens})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if err := h.authService.Logout(r.Context(), req.RefreshToken); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// UserHandler serves the authenticated user's own profile surface.
type UserHandler struct {
	authService     *services.AuthService
	trackingService *services.TrackingService
}

func NewUserHandler(authService *services.AuthService, trackingService *services.TrackingService) *UserHandler {
	return &UserHandler{authService: authService, trackingService: trackingService}
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.authService.Me(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	steps, err := h.trackingService.CodingTime(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":        user,
		"coding_time": steps,
	})
}

func (h *UserHandler) GetFriendCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.authService.FriendCode(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"friend_code": code})
}

func (h *UserHandler) RegenerateFriendCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.authService.RegenerateFriendCode(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"friend_code": code})
}

func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if err := h.authService.DeleteAccount(r.Context(), middleware.GetUserID(r.Context()), req.Password); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Account deleted"})
}

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
		return
	}

	status := http.StatusInternalServerError
	switch svcErr.Kind {
	case services.KindInvalidLength, services.KindBadUsername, services.KindCurrentUser,
		services.KindBadID, services.KindBadCode:
		status = http.StatusBadRequest
	case services.KindInvalidCredentials, services.KindUnauthorized:
		status = http.StatusUnauthorized
	case services.KindNotMember:
		status = http.StatusForbidden
	case services.KindUserNotFound, services.KindLeaderboardNotFound:
		status = http.StatusNotFound
	case services.KindUserExists, services.KindAlreadyMember, services.KindAlreadyExists,
		services.KindLeaderboardExists:
		status = http.StatusConflict
	case services.KindTooManyRegisters:
		status = http.StatusTooManyRequests
	}

	message := svcErr.Message
	if svcErr.Kind == services.KindInternal {
		message = "An unexpected error occurred"
	}
	writeJSON(w, status, errorResp(string(svcErr.Kind), message, r))
}
