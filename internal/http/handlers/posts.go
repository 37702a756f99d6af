package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/postboard/internal/domain/post"
	"github.com/geocoder89/postboard/internal/domain/user"
	"github.com/geocoder89/postboard/internal/http/middlewares"
)

type PostService interface {
	Create(ctx context.Context, owner user.User, text string) (post.Post, error)
	ListByUser(ctx context.Context, userID int64) ([]post.Post, error)
	Update(ctx context.Context, current user.User, postID int64, text string) (post.Post, error)
	Delete(ctx context.Context, current user.User, postID int64) error
}

type PostsHandler struct {
	posts PostService
}

func NewPostsHandler(posts PostService) *PostsHandler {
	return &PostsHandler{posts: posts}
}

func (h *PostsHandler) Create(ctx *gin.Context) {
	current, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Could not validate credentials")
		return
	}

	var req post.CreatePostRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := withTimeout(ctx, 2*time.Second)
	defer cancel()

	p, err := h.posts.Create(cctx, current, req.Text)
	if err != nil {
		RespondDomainError(ctx, err, "Could not create post")
		return
	}

	ctx.JSON(http.StatusCreated, p)
}

// ListByUser is public.
func (h *PostsHandler) ListByUser(ctx *gin.Context) {
	userID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	cctx, cancel := withTimeout(ctx, 2*time.Second)
	defer cancel()

	posts, err := h.posts.ListByUser(cctx, userID)
	if err != nil {
		RespondDomainError(ctx, err, "Could not list posts")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, posts)
}

func (h *PostsHandler) Update(ctx *gin.Context) {
	current, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Could not validate credentials")
		return
	}

	postID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req post.UpdatePostRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := withTimeout(ctx, 2*time.Second)
	defer cancel()

	p, err := h.posts.Update(cctx, current, postID, req.Text)
	if err != nil {
		RespondDomainError(ctx, err, "Could not update post")
		return
	}

	ctx.JSON(http.StatusOK, p)
}

func (h *PostsHandler) Delete(ctx *gin.Context) {
	current, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Could not validate credentials")
		return
	}

	postID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	cctx, cancel := withTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.posts.Delete(cctx, current, postID); err != nil {
		RespondDomainError(ctx, err, "Could not delete post")
		return
	}

	ctx.Status(http.StatusNoContent)
}
