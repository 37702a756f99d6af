package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/postboard/internal/domain/user"
	"github.com/geocoder89/postboard/internal/http/middlewares"
)

type UserService interface {
	List(ctx context.Context) ([]user.User, error)
	Search(ctx context.Context, q user.Lookup) (user.User, error)
	Filter(ctx context.Context, f user.Filter) ([]user.User, error)
	UpdateProfile(ctx context.Context, current user.User, upd user.ProfileUpdate) (user.User, error)
	Delete(ctx context.Context, current user.User) error
}

type UsersHandler struct {
	users UserService
}

func NewUsersHandler(users UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// UpdateUserRequest is partial: omitted fields keep their stored value.
type UpdateUserRequest struct {
	FullName *string `json:"full_name" binding:"omitempty,max=100"`
	Password *string `json:"password" binding:"omitempty,max=72"`
}

func (h *UsersHandler) Me(ctx *gin.Context) {
	current, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Could not validate credentials")
		return
	}
	ctx.JSON(http.StatusOK, current)
}

func (h *UsersHandler) UpdateMe(ctx *gin.Context) {
	current, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Could not validate credentials")
		return
	}

	var req UpdateUserRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := h.users.UpdateProfile(cctx, current, user.ProfileUpdate{
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		RespondDomainError(ctx, err, "Could not update user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) DeleteMe(ctx *gin.Context) {
	current, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Could not validate credentials")
		return
	}

	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := h.users.Delete(cctx, current); err != nil {
		RespondDomainError(ctx, err, "Could not delete user")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *UsersHandler) List(ctx *gin.Context) {
	cctx, cancel := withTimeout(ctx, 2*time.Second)
	defer cancel()

	users, err := h.users.List(cctx)
	if err != nil {
		RespondDomainError(ctx, err, "Could not list users")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, users)
}

// Search finds exactly one user by id or by email.
func (h *UsersHandler) Search(ctx *gin.Context) {
	q := queryParams{ctx: ctx}
	lookup := user.Lookup{
		ID:    q.id("id"),
		Email: q.str("email"),
	}
	if !q.ok() {
		return
	}

	cctx, cancel := withTimeout(ctx, 2*time.Second)
	defer cancel()

	u, err := h.users.Search(cctx, lookup)
	if err != nil {
		RespondDomainError(ctx, err, "Could not search users")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) Filter(ctx *gin.Context) {
	q := queryParams{ctx: ctx}
	f := user.Filter{
		ID:         q.id("id"),
		Email:      q.str("email"),
		FullName:   q.str("full_name"),
		LoginAfter: q.timestamp("last_login"),
	}
	if !q.ok() {
		return
	}

	cctx, cancel := withTimeout(ctx, 2*time.Second)
	defer cancel()

	users, err := h.users.Filter(cctx, f)
	if err != nil {
		RespondDomainError(ctx, err, "Could not filter users")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, users)
}
