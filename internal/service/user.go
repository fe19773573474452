package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agrohub/marketplace/internal/hash"
	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/mykafka"
	"github.com/agrohub/marketplace/internal/repo"
	"github.com/agrohub/marketplace/internal/tokens"
)

const minPasswordLen = 6

type UserService struct {
	Users  repo.Users
	Tokens *tokens.Issuer
	Events mykafka.Publisher
}

func NewUserService(users repo.Users, iss *tokens.Issuer, events mykafka.Publisher) *UserService {
	return &UserService{Users: users, Tokens: iss, Events: events}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
	Img      string
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	if in.Name == "" {
		return nil, fmt.Errorf("name is required: %w", ErrValidation)
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return nil, fmt.Errorf("invalid email: %w", ErrValidation)
	}
	if len(in.Password) < minPasswordLen {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLen, ErrValidation)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("role must be farmer or businessman: %w", ErrValidation)
	}

	hashed, err := hash.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hashed,
		Role:         in.Role,
		Img:          in.Img,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, fmt.Errorf("email %s already registered: %w", in.Email, ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	mykafka.Emit(ctx, s.Events, mykafka.TopicUserEvents, u.ID, map[string]any{
		"type":  "user_registered",
		"id":    u.ID,
		"email": u.Email,
		"role":  u.Role,
	})
	return u, nil
}

type LoginResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required: %w", ErrValidation)
	}

	u, err := s.Users.GetUserByEmail(ctx, email)
	if errors.Is(err, repo.ErrUserNotFound) {
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !hash.CheckPassword(u.PasswordHash, password) {
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}

	token, exp, err := s.Tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: u, Token: token, ExpiresAt: exp}, nil
}

func (s *UserService) Profile(ctx context.Context, email string) (*models.User, error) {
	u, err := s.Users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repo.ErrUserNotFound) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return u, err
}

func (s *UserService) ByID(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, fmt.Errorf("malformed user id: %w", ErrValidation)
	}
	u, err := s.Users.GetUserByID(ctx, id)
	if errors.Is(err, repo.ErrUserNotFound) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return u, err
}
