package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agrohub/marketplace/internal/models"
	"github.com/agrohub/marketplace/internal/mykafka"
	"github.com/agrohub/marketplace/internal/repo"
)

type SchemeService struct {
	Schemes repo.Schemes
	Events  mykafka.Publisher
}

func NewSchemeService(schemes repo.Schemes, events mykafka.Publisher) *SchemeService {
	return &SchemeService{Schemes: schemes, Events: events}
}

type SchemeInput struct {
	Title       string
	Description string
	Ministry    string
	Benefit     string
}

func (s *SchemeService) Create(ctx context.Context, in SchemeInput) (*models.Scheme, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("title is required: %w", ErrValidation)
	}

	sc := &models.Scheme{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Ministry:    in.Ministry,
		Benefit:     in.Benefit,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Schemes.CreateScheme(ctx, sc); err != nil {
		return nil, fmt.Errorf("create scheme: %w", err)
	}
	return sc, nil
}

func (s *SchemeService) List(ctx context.Context) ([]models.Scheme, error) {
	return s.Schemes.ListSchemes(ctx)
}

// Apply records a pending application. A user applies to a scheme at most once.
func (s *SchemeService) Apply(ctx context.Context, email, schemeID string) error {
	if strings.TrimSpace(email) == "" || schemeID == "" {
		return fmt.Errorf("email and scheme id are required: %w", ErrValidation)
	}
	if !validID(schemeID) {
		return fmt.Errorf("malformed scheme id %q: %w", schemeID, ErrValidation)
	}

	if _, err := s.Schemes.GetScheme(ctx, schemeID); err != nil {
		if errors.Is(err, repo.ErrSchemeNotFound) {
			return fmt.Errorf("scheme %s: %w", schemeID, ErrNotFound)
		}
		return fmt.Errorf("get scheme: %w", err)
	}

	err := s.Schemes.ApplyScheme(ctx, email, schemeID, time.Now().UTC())
	switch {
	case errors.Is(err, repo.ErrUserNotFound):
		return fmt.Errorf("user %s: %w", email, ErrNotFound)
	case errors.Is(err, repo.ErrDuplicate):
		return fmt.Errorf("already applied to scheme %s: %w", schemeID, ErrConflict)
	case err != nil:
		return fmt.Errorf("apply scheme: %w", err)
	}

	mykafka.Emit(ctx, s.Events, mykafka.TopicUserEvents, email, map[string]any{
		"type":     "scheme_applied",
		"email":    email,
		"schemeId": schemeID,
	})
	return nil
}
