package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/postboard/internal/domain"
	"github.com/geocoder89/postboard/internal/domain/user"
	"github.com/geocoder89/postboard/internal/http/middlewares"
)

type AccountService interface {
	Register(ctx context.Context, email, password string, fullName *string) (user.User, error)
	Authenticate(ctx context.Context, email, password string) (user.User, error)
	RecordLogout(ctx context.Context, current user.User) error
}

type TokenIssuer interface {
	Issue(subject, email string) (string, error)
	TTL() time.Duration
}

type LoginObserver interface {
	ObserveLogin(result string)
}

type AuthHandler struct {
	accounts AccountService
	tokens   TokenIssuer
	metrics  LoginObserver
}

func NewAuthHandler(accounts AccountService, tokens TokenIssuer, metrics LoginObserver) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		tokens:   tokens,
		metrics:  metrics,
	}
}

type RegisterRequest struct {
	Email    string  `json:"email" binding:"required,email,max=255"`
	Password string  `json:"password" binding:"required,max=72"`
	FullName *string `json:"full_name" binding:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := h.accounts.Register(cctx, req.Email, req.Password, req.FullName)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email already registered")
			return
		}
		RespondDomainError(ctx, err, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, u)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := withTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := h.accounts.Authenticate(cctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			h.observe("rejected")
			RespondUnAuthorized(ctx, "invalid_credentials", "Incorrect email or password")
			return
		}
		h.observe("error")
		RespondDomainError(ctx, err, "Could not log in")
		return
	}

	token, err := h.tokens.Issue(strconv.FormatInt(u.ID, 10), u.Email)
	if err != nil {
		h.observe("error")
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.observe("ok")
	ctx.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(h.tokens.TTL().Seconds()),
	})
}

// Logout stamps last_logout. Access tokens are stateless and stay valid
// until they expire.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	current, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Could not validate credentials")
		return
	}

	cctx, cancel := withTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.accounts.RecordLogout(cctx, current); err != nil {
		RespondDomainError(ctx, err, "Could not log out")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

func (h *AuthHandler) observe(result string) {
	if h.metrics != nil {
		h.metrics.ObserveLogin(result)
	}
}

func withTimeout(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), d)
}
