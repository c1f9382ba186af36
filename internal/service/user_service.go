package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"clientbook/internal/auth"
	apperrors "clientbook/internal/errors"
	"clientbook/internal/model"
	"clientbook/internal/repository"
	"clientbook/internal/storage"
)

const bcryptCost = 10

// Allowed targets for UpdateField. The wire format lets the caller name the
// field to patch; anything outside this list is rejected so a request can
// never overwrite id, token or any other column.
const (
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldSenha    = "senha"
)

// UserService exposes user account operations.
type UserService interface {
	Register(ctx context.Context, username, email, senha string) (*model.User, string, error)
	Login(ctx context.Context, username, senha string) (*model.User, string, error)
	List(ctx context.Context) ([]model.User, error)
	UpdateField(ctx context.Context, id uint, field, value string) (*model.User, error)
	Delete(ctx context.Context, id uint) (*model.User, error)
}

type userService struct {
	users    repository.UserRepository
	clients  repository.ClientRepository
	photos   storage.PhotoStore
	jwt      *auth.JWTService
	sessions auth.SessionStoreInterface
}

// NewUserService builds a UserService. The client repository and photo store
// are needed because deleting a user cascades to their clients.
func NewUserService(
	users repository.UserRepository,
	clients repository.ClientRepository,
	photos storage.PhotoStore,
	jwt *auth.JWTService,
	sessions auth.SessionStoreInterface,
) UserService {
	return &userService{
		users:    users,
		clients:  clients,
		photos:   photos,
		jwt:      jwt,
		sessions: sessions,
	}
}

// Register creates a user with a hashed password and issues a session token.
func (s *userService) Register(ctx context.Context, username, email, senha string) (*model.User, string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || strings.TrimSpace(senha) == "" {
		return nil, "", apperrors.ErrValidation
	}

	existing, err := s.users.FindByUsername(ctx, username)
	if err == nil && existing != nil {
		return nil, "", apperrors.ErrDuplicateUser
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", fmt.Errorf("check username: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(senha), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.issueToken(ctx, user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login verifies the password and issues a fresh session token. The stored
// token is only mutated after the password check succeeds.
func (s *userService) Login(ctx context.Context, username, senha string) (*model.User, string, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apperrors.ErrUserNotFound
		}
		return nil, "", fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(senha)); err != nil {
		return nil, "", apperrors.ErrInvalidCredentials
	}

	token, err := s.issueToken(ctx, user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// issueToken signs a token, persists it on the user row and mirrors it in the
// session store.
func (s *userService) issueToken(ctx context.Context, user *model.User) (string, error) {
	token, err := s.jwt.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	user.Token = &token
	if err := s.users.Update(ctx, user); err != nil {
		return "", fmt.Errorf("persist token: %w", err)
	}
	_ = s.sessions.StoreSession(ctx, user.ID, token, auth.TokenExpiry)
	return token, nil
}

func (s *userService) List(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

// UpdateField patches a single profile field named by the caller. Only
// username, email and senha are accepted; senha is re-hashed before storage.
func (s *userService) UpdateField(ctx context.Context, id uint, field, value string) (*model.User, error) {
	field = strings.TrimSpace(field)
	if field == "" || strings.TrimSpace(value) == "" {
		return nil, apperrors.ErrValidation
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	switch field {
	case FieldUsername:
		user.Username = strings.TrimSpace(value)
	case FieldEmail:
		user.Email = strings.TrimSpace(value)
	case FieldSenha:
		hashed, err := bcrypt.GenerateFromPassword([]byte(value), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hashed)
	default:
		return nil, apperrors.ErrValidation
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// Delete removes a user and cascades to their clients, including each
// client's photo file. Photo cleanup is best-effort.
func (s *userService) Delete(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	owned, err := s.clients.ListByOwner(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list owned clients: %w", err)
	}
	for _, client := range owned {
		if client.FotoCaminho != nil {
			if err := s.photos.Remove(ctx, *client.FotoCaminho); err != nil {
				log.Printf("remove photo %s: %v", *client.FotoCaminho, err)
			}
		}
		if err := s.clients.Delete(ctx, client.ID); err != nil {
			return nil, fmt.Errorf("delete owned client %d: %w", client.ID, err)
		}
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}
	_ = s.sessions.DeleteSession(ctx, id)
	return user, nil
}
