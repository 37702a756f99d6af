package auth

import (
	"context"
	"errors"
	"strconv"

	"github.com/geocoder89/postboard/internal/domain"
	"github.com/geocoder89/postboard/internal/domain/user"
)

// TokenVerifier is the slice of Manager the authenticator needs.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type UserResolver interface {
	GetByID(ctx context.Context, id int64) (user.User, error)
}

// Authenticator turns a raw bearer token into the current user. It is the only
// path by which an identity reaches protected operations.
type Authenticator struct {
	tokens TokenVerifier
	users  UserResolver
}

func NewAuthenticator(tokens TokenVerifier, users UserResolver) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate fails with domain.ErrUnauthorized for a missing or invalid token
// and for a subject that no longer resolves to a user. Store failures are
// returned as-is.
func (a *Authenticator) Authenticate(ctx context.Context, rawToken string) (user.User, error) {
	if rawToken == "" {
		return user.User{}, domain.ErrUnauthorized
	}

	subject, err := a.tokens.Verify(rawToken)
	if err != nil {
		return user.User{}, domain.ErrUnauthorized
	}

	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || id <= 0 {
		return user.User{}, domain.ErrUnauthorized
	}

	u, err := a.users.GetByID(ctx, id)
	if err != nil {
		// account deleted after the token was issued
		if errors.Is(err, domain.ErrNotFound) {
			return user.User{}, domain.ErrUnauthorized
		}
		return user.User{}, err
	}

	return u, nil
}
