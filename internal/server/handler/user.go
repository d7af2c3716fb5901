package handler

import (
	"context"
	"log/slog"
	"net/http"

	"predictd/internal/service"
)

// UserService defines the methods the user handler requires from the service
// layer.
type UserService interface {
	CreateUser(ctx context.Context, id string) (service.UserView, error)
	ListUsers(ctx context.Context) ([]service.UserView, error)
	GetUser(ctx context.Context, id string) (service.UserDetail, error)
}

// UserHandler serves user-related HTTP endpoints.
type UserHandler struct {
	users  UserService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler with the given service and logger.
func NewUserHandler(users UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

type createUserRequest struct {
	UserID string `json:"userId"`
}

// CreateUser registers a new user.
// POST /api/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.users.CreateUser(r.Context(), req.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// ListUsers returns the public projection of every user.
// GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	views, err := h.users.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": views})
}

// GetUser returns the "me" projection with balance and positions.
// GET /api/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	detail, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
