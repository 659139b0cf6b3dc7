package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"codetime-backend/internal/middleware"
	"codetime-backend/internal/models"
	"codetime-backend/internal/services"
	"codetime-backend/internal/worker"
)

type ActivityHandler struct {
	trackingService *services.TrackingService
	redis           *redis.Client
}

func NewActivityHandler(trackingService *services.TrackingService, redisClient *redis.Client) *ActivityHandler {
	return &ActivityHandler{trackingService: trackingService, redis: redisClient}
}

// Update ingests one heartbeat and responds with the elapsed seconds of the
// active session (0 when a session was just started or rotated).
func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var hb models.Heartbeat
	if err := json.NewDecoder(r.Body).Decode(&hb); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	elapsed, err := h.trackingService.Heartbeat(r.Context(), userID, hb)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"elapsed": elapsed})
}

// Flush queues the user's session for finalization. The queue keeps the
// persistence write off the request path; if Redis is unavailable the flush
// runs inline instead so the client contract (flush always succeeds) holds.
func (h *ActivityHandler) Flush(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.redis.LPush(r.Context(), worker.FlushQueue, userID.String()).Err(); err != nil {
		log.Printf("Failed to queue flush for %s, flushing inline: %v", userID, err)
		if err := h.trackingService.Flush(r.Context(), userID); err != nil {
			handleServiceError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Flushed"})
}

func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if err := h.trackingService.Delete(r.Context(), userID, req.ID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Activity deleted"})
}

func (h *ActivityHandler) Rename(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	affected, err := h.trackingService.RenameProject(r.Context(), userID, req.From, req.To)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"affected": affected})
}

func (h *ActivityHandler) Hide(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		ProjectName string `json:"project_name"`
		Hidden      bool   `json:"hidden"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	affected, err := h.trackingService.HideProject(r.Context(), userID, req.ProjectName, req.Hidden)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"affected": affected})
}

// Data serves activity history for "@me" or a friend's username, with the
// all-optional AND-combined filters from the query string.
func (h *ActivityHandler) Data(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	owner := chi.URLParam(r, "who")

	filter, err := parseActivityFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", err.Error(), r))
		return
	}

	activities, err := h.trackingService.Data(r.Context(), userID, owner, filter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"activities": activities})
}

func parseActivityFilter(r *http.Request) (models.ActivityFilter, error) {
	var f models.ActivityFilter
	q := r.URL.Query()

	if v := q.Get("from"); v != "" {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, fmt.Errorf("from must be a Unix timestamp")
		}
		t := time.Unix(ts, 0)
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, fmt.Errorf("to must be a Unix timestamp")
		}
		t := time.Unix(ts, 0)
		f.To = &t
	}
	if v := q.Get("min_duration"); v != "" {
		d, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, fmt.Errorf("min_duration must be an integer")
		}
		f.MinDuration = &d
	}
	for param, dst := range map[string]**string{
		"editor_name":  &f.EditorName,
		"language":     &f.Language,
		"hostname":     &f.Hostname,
		"project_name": &f.ProjectName,
	} {
		if v := q.Get(param); v != "" {
			s := v
			*dst = &s
		}
	}
	return f, nil
}
