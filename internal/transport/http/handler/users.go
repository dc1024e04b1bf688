package handler

import (
	"context"
	"net/http"

	"github.com/barter-api/internal/domain"
	"github.com/go-chi/chi/v5"
)

// UserGetter is the minimal lookup surface the profile endpoint needs.
type UserGetter interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// UserHandler handles profile endpoints.
type UserHandler struct {
	users UserGetter
}

func NewUserHandler(users UserGetter) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSafeUser(u))
}
