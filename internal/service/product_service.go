package service

import (
	"context"
	"fmt"
	"time"

	"marketplace-api/internal/domain"
	"marketplace-api/internal/repository"

	"github.com/google/uuid"
)

// ProductService defines the interface for catalog business logic.
// Write operations are seller-scoped: a seller can only touch their own
// products.
type ProductService interface {
	ListForSale(ctx context.Context) ([]*domain.Product, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Product, error)
	ListByCategory(ctx context.Context, category string) ([]*domain.Product, error)
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	Register(ctx context.Context, sellerID uuid.UUID, name, description, category string, price float64, stock int) (*domain.Product, error)
	Update(ctx context.Context, id int64, sellerID uuid.UUID, upd domain.ProductUpdate) (*domain.Product, error)
	Delete(ctx context.Context, id int64, sellerID uuid.UUID) error
}

type productService struct {
	productRepo repository.ProductRepository
}

// NewProductService creates a new instance of ProductService
func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

// ListForSale returns every product currently available to buyers.
func (s *productService) ListForSale(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.productRepo.ListForSale(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products for sale: %w", err)
	}
	return products, nil
}

// ListBySeller returns the products offered by a seller.
func (s *productService) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Product, error) {
	products, err := s.productRepo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seller products: %w", err)
	}
	return products, nil
}

// ListByCategory returns the products in a category.
func (s *productService) ListByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	return s.productRepo.ListByCategory(ctx, category)
}

// FindByID returns a single product.
func (s *productService) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, nil, id)
}

// Register puts a new product on sale for the given seller.
func (s *productService) Register(ctx context.Context, sellerID uuid.UUID, name, description, category string, price float64, stock int) (*domain.Product, error) {
	now := time.Now()
	product := &domain.Product{
		Name:        name,
		Description: description,
		Price:       price,
		Category:    category,
		Stock:       stock,
		SellerID:    sellerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to register product: %w", err)
	}

	return product, nil
}

// Update applies a partial update to one of the seller's products.
func (s *productService) Update(ctx context.Context, id int64, sellerID uuid.UUID, upd domain.ProductUpdate) (*domain.Product, error) {
	return s.productRepo.Update(ctx, id, sellerID, upd)
}

// Delete removes one of the seller's products from sale.
func (s *productService) Delete(ctx context.Context, id int64, sellerID uuid.UUID) error {
	return s.productRepo.SoftDelete(ctx, id, sellerID)
}
