package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"gearshed/internal/domain"
	"gearshed/internal/repository"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrRoleChangeDenied = errors.New("role change requires an equipment manager")
)

type UpdateUserInput struct {
	Email      *string
	FirstName  *string
	MiddleName *string
	LastName   *string
	AvatarURL  *string
	Role       *domain.Role
}

type UserService struct {
	userRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.userRepo.List()
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Update applies the provided fields. Only equipment managers may
// change anyone's role.
func (s *UserService) Update(ctx context.Context, actor *domain.User, id uuid.UUID, input UpdateUserInput) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Role != nil && *input.Role != user.Role {
		if actor == nil || actor.Role != domain.RoleEquipmentManager {
			return nil, ErrRoleChangeDenied
		}
		user.Role = *input.Role
	}

	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.MiddleName != nil {
		user.MiddleName = input.MiddleName
	}
	if input.LastName != nil {
		user.LastName = input.LastName
	}
	if input.AvatarURL != nil {
		user.AvatarURL = input.AvatarURL
	}

	if err := s.userRepo.Update(user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}
	return user, nil
}
