package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/agrohub/marketplace/internal/models"
)

var (
	ErrValidation   = errors.New("validation")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream")
	ErrUnavailable  = errors.New("unavailable")
)

// ProductLookup is satisfied by the repository and by the cached cache.ProductReader.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
