package services

import (
	"context"
	"strings"

	"authcore/internal/models"
	"authcore/internal/repositories"
)

// UserService is the read side used by authenticated endpoints.
type UserService interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type userService struct {
	repo repositories.UserRepository
}

func NewUserService(repo repositories.UserRepository) UserService {
	return &userService{repo: repo}
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, repositories.ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}
