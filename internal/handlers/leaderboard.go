package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"codetime-backend/internal/middleware"
	"codetime-backend/internal/services"
)

type LeaderboardHandler struct {
	lbService *services.LeaderboardService
}

func NewLeaderboardHandler(lbService *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{lbService: lbService}
}

func (h *LeaderboardHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	invite, err := h.lbService.Create(r.Context(), userID, req.Name)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"invite": invite})
}

func (h *LeaderboardHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		Invite string `json:"invite"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	lb, err := h.lbService.Join(r.Context(), userID, req.Invite)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"name": lb.Name})
}

func (h *LeaderboardHandler) List(w http.ResponseWriter, r *http.Request) {
	listings, err := h.lbService.ListMine(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboards": listings})
}

func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	standings, err := h.lbService.Standings(r.Context(), userID, chi.URLParam(r, "name"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, standings)
}

func (h *LeaderboardHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.lbService.Leave(r.Context(), userID, chi.URLParam(r, "name")); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Left leaderboard"})
}

func (h *LeaderboardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.lbService.Delete(r.Context(), userID, chi.URLParam(r, "name")); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Leaderboard deleted"})
}

func (h *LeaderboardHandler) RegenerateInvite(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	invite, err := h.lbService.RegenerateInvite(r.Context(), userID, chi.URLParam(r, "name"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"invite": invite})
}

func (h *LeaderboardHandler) Promote(w http.ResponseWriter, r *http.Request) {
	h.setAdmin(w, r, true)
}

func (h *LeaderboardHandler) Demote(w http.ResponseWriter, r *http.Request) {
	h.setAdmin(w, r, false)
}

func (h *LeaderboardHandler) setAdmin(w http.ResponseWriter, r *http.Request, admin bool) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if err := h.lbService.SetAdmin(r.Context(), userID, chi.URLParam(r, "name"), req.Username, admin); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Membership updated"})
}
