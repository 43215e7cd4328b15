// Package user is the identity provider: accounts, password login and token
// issuance.
package user

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-ecom/internal/apperr"
	"github.com/MikeMC777/tienda-ecom/internal/identity"
	"github.com/MikeMC777/tienda-ecom/internal/logging"
)

type Issuer interface {
	Issue(id identity.Identity) (string, error)
}

type Service struct {
	repo   Repository
	tokens Issuer
}

func NewService(repo Repository, tokens Issuer) *Service {
	return &Service{repo: repo, tokens: tokens}
}

func (s *Service) Register(ctx context.Context, in RegisterRequest) (*User, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return nil, apperr.Invalid("All fields are required")
	}
	if in.Password != in.ConfirmPassword {
		return nil, apperr.Invalid("Passwords do not match")
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internalf(err, "hash password")
	}
	u := &User{
		ID:           uuid.NewString(),
		Username:     in.Name,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrAlreadyExist) {
			return nil, apperr.Invalid("User already exists")
		}
		return nil, apperr.Internalf(err, "create user")
	}
	logging.FromContext(ctx).Info("user_created", zap.String("user_id", u.ID))
	return u, nil
}

// Login checks the password and returns a signed token. Unknown email and
// wrong password look the same to the caller.
func (s *Service) Login(ctx context.Context, in LoginRequest) (string, *User, error) {
	if in.Email == "" || in.Password == "" {
		return "", nil, apperr.Invalid("Email and password are required")
	}
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(in.Email))
	if errors.Is(err, ErrNotFound) {
		return "", nil, apperr.Invalid("Invalid credentials")
	}
	if err != nil {
		return "", nil, apperr.Internalf(err, "load user")
	}
	if !CheckPassword(u.PasswordHash, in.Password) {
		logging.FromContext(ctx).Info("login_failed", zap.String("user_id", u.ID))
		return "", nil, apperr.Invalid("Invalid credentials")
	}
	token, err := s.tokens.Issue(identity.Identity{UserID: u.ID, IsAdmin: u.IsAdmin})
	if err != nil {
		return "", nil, apperr.Internalf(err, "issue token")
	}
	return token, u, nil
}
