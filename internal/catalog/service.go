package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chanmoly/khmart-backend/pkg/db/models"
	"github.com/chanmoly/khmart-backend/pkg/errors"
)

// Service answers catalog lookups for the API and validates variants for
// cart and checkout flows.
type Service interface {
	ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error)
	GetProduct(ctx context.Context, slug string) (*models.Product, error)
	GetActiveVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
}

type service struct {
	repo Repository
}

// NewService wires a catalog service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	return s.repo.ListProducts(ctx, true, limit, offset)
}

func (s *service) GetProduct(ctx context.Context, slug string) (*models.Product, error) {
	if slug == "" {
		return nil, errors.New(errors.CodeValidation, "product slug is required")
	}
	product, err := s.repo.FindProductBySlug(ctx, slug)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.CodeNotFound, "product not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading product")
	}
	return product, nil
}

func (s *service) GetActiveVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	if id == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "variant id is required")
	}
	variant, err := s.repo.FindVariantByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.CodeNotFound, "variant not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading variant")
	}
	if !variant.IsActive {
		return nil, errors.New(errors.CodeStateConflict, "variant is inactive")
	}
	return variant, nil
}
