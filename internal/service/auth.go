package service

import (
	"context"

	"github.com/utilityops/ums-backend/internal/domain"
	"github.com/utilityops/ums-backend/internal/store"
)

// AuthService is a username lookup, not a credential check: no password is
// verified and no token is issued.
type AuthService struct {
	store store.Store
}

func (s *AuthService) Login(ctx context.Context, username string) (*domain.User, error) {
	return s.store.FindUser(ctx, username)
}
