package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/repsnrecord/apiserver/internal/services"
	"github.com/repsnrecord/apiserver/internal/store"
	"github.com/repsnrecord/apiserver/types"
)

// TrainerHandler provides HTTP handlers for the trainer-client relationship:
// rosters, consent flags, connection requests, and the share inbox.
type TrainerHandler struct {
	trainerService *services.TrainerService
}

func NewTrainerHandler(trainerService *services.TrainerService) *TrainerHandler {
	return &TrainerHandler{trainerService: trainerService}
}

// TrainerRouter registers trainer routes on the given router.
func TrainerRouter(r chi.Router, trainerService *services.TrainerService, resolver *IdentityResolver) {
	handler := NewTrainerHandler(trainerService)

	r.Use(resolver.RequireIdentity)
	r.Get("/clients", handler.ListClients)
	r.Post("/clients", handler.AddClient)
	r.Delete("/clients/{clientID}", handler.RemoveClient)
	r.Get("/clients/{clientID}/workouts", handler.ClientWorkouts)
	r.Get("/status", handler.Status)

	r.Get("/permissions", handler.GetPermissions)
	r.Put("/permissions", handler.SetPermission)
	r.Delete("/permissions", handler.RevokePermission)

	r.Get("/share", handler.Inbox)
	r.Post("/share", handler.Share)
	r.Put("/share/{shareID}/read", handler.MarkRead)
}

// ConnectionRouter registers connection-request routes on the given router.
func ConnectionRouter(r chi.Router, trainerService *services.TrainerService, resolver *IdentityResolver) {
	handler := NewTrainerHandler(trainerService)

	r.Use(resolver.RequireIdentity)
	r.Get("/", handler.SentRequests)
	r.Get("/pending", handler.PendingRequests)
	r.Post("/", handler.RequestConnection)
	r.Put("/{requestID}", handler.RespondToRequest)
}

func (h *TrainerHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	trainerID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	clients, err := h.trainerService.Clients(r.Context(), trainerID)
	if err != nil {
		h.writeTrainerError(w, err, "failed to list clients")
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (h *TrainerHandler) AddClient(w http.ResponseWriter, r *http.Request) {
	trainerID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		ClientID string `json:"clientId"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.ClientID) == "" {
		writeError(w, http.StatusBadRequest, "clientId is required")
		return
	}

	link, err := h.trainerService.AddClient(r.Context(), trainerID, strings.TrimSpace(req.ClientID))
	if err != nil {
		h.writeTrainerError(w, err, "failed to add client")
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (h *TrainerHandler) RemoveClient(w http.ResponseWriter, r *http.Request) {
	trainerID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	clientID := strings.TrimSpace(chi.URLParam(r, "clientID"))
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "client id is required")
		return
	}

	if err := h.trainerService.RemoveClient(r.Context(), trainerID, clientID); err != nil {
		h.writeTrainerError(w, err, "failed to remove client")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClientWorkouts returns an assigned client's workout log, date-bounded by
// startDate/endDate.
func (h *TrainerHandler) ClientWorkouts(w http.ResponseWriter, r *http.Request) {
	trainerID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	clientID := strings.TrimSpace(chi.URLParam(r, "clientID"))
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "client id is required")
		return
	}

	query := r.URL.Query()
	workouts, err := h.trainerService.ClientWorkouts(
		r.Context(),
		trainerID,
		clientID,
		strings.TrimSpace(query.Get("startDate")),
		strings.TrimSpace(query.Get("endDate")),
	)
	if err != nil {
		h.writeTrainerError(w, err, "failed to load client workouts")
		return
	}
	if workouts == nil {
		workouts = []types.Workout{}
	}
	writeJSON(w, http.StatusOK, workouts)
}

// Status reports whether the caller has an active trainer.
func (h *TrainerHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	has, trainerID, err := h.trainerService.HasTrainer(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check trainer")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hasTrainer": has, "trainerId": trainerID})
}

// GetPermissions returns permission rows for a client. Only the client
// themselves or the named trainer may view them.
func (h *TrainerHandler) GetPermissions(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	query := r.URL.Query()
	clientID := strings.TrimSpace(query.Get("clientId"))
	trainerID := strings.TrimSpace(query.Get("trainerId"))
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "clientId is required")
		return
	}
	if identity != clientID && (trainerID == "" || identity != trainerID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	perms, err := h.trainerService.Permissions(r.Context(), clientID, trainerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load permissions")
		return
	}
	writeJSON(w, http.StatusOK, perms)
}

// SetPermission records consent flags. Only the client may set their own.
func (h *TrainerHandler) SetPermission(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		ClientID    string `json:"clientId"`
		TrainerID   string `json:"trainerId"`
		AllowExport bool   `json:"allowExport"`
		AllowPhotos bool   `json:"allowPhotos"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.TrainerID = strings.TrimSpace(req.TrainerID)
	if req.ClientID == "" || req.TrainerID == "" {
		writeError(w, http.StatusBadRequest, "clientId and trainerId are required")
		return
	}
	if identity != req.ClientID {
		writeError(w, http.StatusForbidden, "only the client may change their permissions")
		return
	}

	perm, err := h.trainerService.SetPermission(r.Context(), req.ClientID, req.TrainerID, req.AllowExport, req.AllowPhotos)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save permission")
		return
	}
	writeJSON(w, http.StatusOK, perm)
}

// RevokePermission deletes the caller's permission row for a trainer,
// reverting the pair to the defaults.
func (h *TrainerHandler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	clientID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	trainerID := strings.TrimSpace(r.URL.Query().Get("trainerId"))
	if trainerID == "" {
		writeError(w, http.StatusBadRequest, "trainerId is required")
		return
	}

	if err := h.trainerService.RevokePermission(r.Context(), clientID, trainerID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to revoke permission")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TrainerHandler) SentRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	requests, err := h.trainerService.SentRequests(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

func (h *TrainerHandler) PendingRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	requests, err := h.trainerService.PendingRequests(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

func (h *TrainerHandler) RequestConnection(w http.ResponseWriter, r *http.Request) {
	fromUserID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		ToUserID string `json:"toUserId"`
		Message  string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.ToUserID) == "" {
		writeError(w, http.StatusBadRequest, "toUserId is required")
		return
	}

	err = h.trainerService.RequestConnection(r.Context(), fromUserID, strings.TrimSpace(req.ToUserID), strings.TrimSpace(req.Message))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSelfConnection):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrDuplicateRequest):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create request")
		}
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *TrainerHandler) RespondToRequest(w http.ResponseWriter, r *http.Request) {
	recipientID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	requestID, err := strconv.Atoi(chi.URLParam(r, "requestID"))
	if err != nil || requestID < 1 {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var req struct {
		Action string `json:"action"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	action := strings.ToLower(strings.TrimSpace(req.Action))
	if action != "accept" && action != "decline" {
		writeError(w, http.StatusBadRequest, "action must be accept or decline")
		return
	}

	err = h.trainerService.RespondToRequest(r.Context(), recipientID, requestID, action == "accept")
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "request not found")
		case errors.Is(err, services.ErrRequestResolved):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to respond to request")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": action + "d"})
}

// Share pushes a progress snapshot to the caller's trainer.
func (h *TrainerHandler) Share(w http.ResponseWriter, r *http.Request) {
	clientID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		ExportType string `json:"exportType"`
		Message    string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	err = h.trainerService.Share(r.Context(), clientID, strings.TrimSpace(req.ExportType), strings.TrimSpace(req.Message))
	if err != nil {
		if errors.Is(err, services.ErrNoTrainer) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to share progress")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// Inbox returns the trainer's received snapshots.
func (h *TrainerHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	trainerID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	inbox, err := h.trainerService.Inbox(r.Context(), trainerID, limit)
	if err != nil {
		h.writeTrainerError(w, err, "failed to load inbox")
		return
	}
	writeJSON(w, http.StatusOK, inbox)
}

func (h *TrainerHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	trainerID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	shareID, err := strconv.Atoi(chi.URLParam(r, "shareID"))
	if err != nil || shareID < 1 {
		writeError(w, http.StatusBadRequest, "invalid share id")
		return
	}

	if err := h.trainerService.MarkRead(r.Context(), trainerID, shareID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "share not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to mark share read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TrainerHandler) writeTrainerError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrNotATrainer),
		errors.Is(err, services.ErrExportNotPermitted):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
