package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketplace-api/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrOutOfStock      = errors.New("insufficient stock")
)

// ProductRepository defines the interface for product data access.
// Methods taking a Querier participate in the caller's transaction when
// one is passed; with a nil Querier they run against the pool directly.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, id int64, sellerID uuid.UUID, upd domain.ProductUpdate) (*domain.Product, error)
	SoftDelete(ctx context.Context, id int64, sellerID uuid.UUID) error
	FindByID(ctx context.Context, q Querier, id int64) (*domain.Product, error)
	DecrementStock(ctx context.Context, q Querier, id int64, amount int) error
	ListForSale(ctx context.Context) ([]*domain.Product, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Product, error)
	ListByCategory(ctx context.Context, category string) ([]*domain.Product, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = "id, name, description, price, category, stock, seller_id, created_at, updated_at"

func scanProduct(row interface{ Scan(...interface{}) error }) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Category,
		&product.Stock,
		&product.SellerID,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Create inserts a new product and fills in its generated identifier.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (name, description, price, category, stock, seller_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.Name,
		product.Description,
		product.Price,
		product.Category,
		product.Stock,
		product.SellerID,
		product.CreatedAt,
		product.UpdatedAt,
	).Scan(&product.ID)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update applies a partial update to a product owned by the given
// seller. Nil fields of upd keep their current values.
func (r *productRepository) Update(ctx context.Context, id int64, sellerID uuid.UUID, upd domain.ProductUpdate) (*domain.Product, error) {
	query := `
		UPDATE products
		SET name        = COALESCE($3, name),
		    description = COALESCE($4, description),
		    price       = COALESCE($5, price),
		    category    = COALESCE($6, category),
		    stock       = COALESCE($7, stock),
		    updated_at  = $8
		WHERE id = $1 AND seller_id = $2 AND deleted_at IS NULL
		RETURNING ` + productColumns

	product, err := scanProduct(r.db.QueryRowContext(
		ctx,
		query,
		id,
		sellerID,
		upd.Name,
		upd.Description,
		upd.Price,
		upd.Category,
		upd.Stock,
		time.Now(),
	))

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// SoftDelete marks a seller's product as deleted without removing the row.
func (r *productRepository) SoftDelete(ctx context.Context, id int64, sellerID uuid.UUID) error {
	query := `
		UPDATE products
		SET deleted_at = $3
		WHERE id = $1 AND seller_id = $2 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, sellerID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a live product by ID.
func (r *productRepository) FindByID(ctx context.Context, q Querier, id int64) (*domain.Product, error) {
	if q == nil {
		q = r.db
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1 AND deleted_at IS NULL
	`

	product, err := scanProduct(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// DecrementStock conditionally subtracts amount from a product's stock.
// The availability check and the write are a single statement, so two
// checkouts racing on the same product serialize on the row lock and
// the loser observes the already-reduced stock.
func (r *productRepository) DecrementStock(ctx context.Context, q Querier, id int64, amount int) error {
	if q == nil {
		q = r.db
	}

	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = $3
		WHERE id = $1 AND stock >= $2 AND deleted_at IS NULL
	`

	result, err := q.ExecContext(ctx, query, id, amount, time.Now())
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrOutOfStock
	}

	return nil
}

// ListForSale retrieves every live product with stock available.
func (r *productRepository) ListForSale(ctx context.Context) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE stock > 0 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`

	return r.queryProducts(ctx, query)
}

// ListBySeller retrieves the live products offered by a seller.
func (r *productRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE seller_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`

	return r.queryProducts(ctx, query, sellerID)
}

// ListByCategory retrieves the live products in a category. An empty
// result is reported as ErrProductNotFound.
func (r *productRepository) ListByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE category = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`

	products, err := r.queryProducts(ctx, query, category)
	if err != nil {
		return nil, err
	}

	if len(products) == 0 {
		return nil, ErrProductNotFound
	}

	return products, nil
}

func (r *productRepository) queryProducts(ctx context.Context, query string, args ...interface{}) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}
