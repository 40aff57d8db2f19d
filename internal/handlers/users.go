package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/repsnrecord/apiserver/internal/services"
	"github.com/repsnrecord/apiserver/internal/store"
	"github.com/repsnrecord/apiserver/types"
)

// UserHandler provides HTTP handlers for roles, preferences, and user
// search.
type UserHandler struct {
	userService    *services.UserService
	trainerService *services.TrainerService
}

func NewUserHandler(userService *services.UserService, trainerService *services.TrainerService) *UserHandler {
	return &UserHandler{userService: userService, trainerService: trainerService}
}

// UserRouter registers role, preference, and search routes on the given
// router.
func UserRouter(r chi.Router, userService *services.UserService, trainerService *services.TrainerService, resolver *IdentityResolver) {
	handler := NewUserHandler(userService, trainerService)

	r.Use(resolver.RequireIdentity)
	r.Get("/me", handler.Me)
	r.Get("/roles", handler.GetRole)
	r.Put("/roles", handler.SetRole)
	r.Get("/preferences", handler.GetPreferences)
	r.Put("/preferences", handler.SetPreferences)
	r.Get("/users/search", handler.SearchUsers)
}

// Me returns the caller's account row.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GetRole returns the caller's effective role.
func (h *UserHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	role, err := h.userService.Role(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load role")
		return
	}
	writeJSON(w, http.StatusOK, types.UserRole{UserID: userID, Role: role})
}

// SetRole assigns the caller's role.
func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	assigned, err := h.userService.SetRole(r.Context(), userID, strings.TrimSpace(req.Role))
	if err != nil {
		if errors.Is(err, services.ErrInvalidRole) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to save role")
		return
	}
	writeJSON(w, http.StatusOK, assigned)
}

// GetPreferences returns the caller's preferences, or the defaults when none
// have been saved.
func (h *UserHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	prefs, err := h.userService.Preferences(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// SetPreferences saves the caller's preferences. Preferences are self-only;
// the user id in the body is ignored.
func (h *UserHandler) SetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var prefs types.UserPreferences
	if err := decodeJSON(r, &prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	prefs.UserID = userID

	saved, err := h.userService.SavePreferences(r.Context(), prefs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// SearchUsers finds candidate users for a connection request.
func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	userID, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ids, err := h.trainerService.SearchUsers(r.Context(), userID, r.URL.Query().Get("q"))
	if err != nil {
		if errors.Is(err, services.ErrQueryTooShort) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to search users")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"users": ids})
}
