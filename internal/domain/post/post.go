package post

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/geocoder89/postboard/internal/domain"
)

const MaxTextLength = 1000

type Post struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrNotFound    = fmt.Errorf("post not found: %w", domain.ErrNotFound)
	ErrNotOwner    = fmt.Errorf("post belongs to another user: %w", domain.ErrForbidden)
	ErrInvalidText = fmt.Errorf("post text must be 1-%d characters: %w", MaxTextLength, domain.ErrBadRequest)
)

type CreatePostRequest struct {
	Text string `json:"text" binding:"required,max=1000"`
}

type UpdatePostRequest struct {
	Text string `json:"text" binding:"required,max=1000"`
}

// ValidateText enforces the body bounds independently of transport validation.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" || utf8.RuneCountInString(text) > MaxTextLength {
		return ErrInvalidText
	}
	return nil
}
