package repository

import (
	"context"
	"database/sql"
	"fmt"

	"marketplace-api/internal/domain"

	"github.com/google/uuid"
)

// PurchaseRepository defines the interface for purchase data access.
// The create methods take a Querier because purchase rows are only ever
// written inside a checkout transaction.
type PurchaseRepository interface {
	CreatePurchase(ctx context.Context, q Querier, purchase *domain.Purchase) error
	CreateLineItem(ctx context.Context, q Querier, item *domain.PurchasedProduct) error
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Purchase, error)
}

type purchaseRepository struct {
	db *sql.DB
}

// NewPurchaseRepository creates a new instance of PurchaseRepository
func NewPurchaseRepository(db *sql.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

// CreatePurchase inserts a purchase header and fills in its generated
// identifier. Line items are inserted separately within the same
// transaction.
func (r *purchaseRepository) CreatePurchase(ctx context.Context, q Querier, purchase *domain.Purchase) error {
	if q == nil {
		q = r.db
	}

	query := `
		INSERT INTO purchases (payment_method, discount_percentage, interest_percentage, buyer_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := q.QueryRowContext(
		ctx,
		query,
		purchase.PaymentMethod,
		purchase.DiscountPercentage,
		purchase.InterestPercentage,
		purchase.BuyerID,
		purchase.CreatedAt,
	).Scan(&purchase.ID)

	if err != nil {
		return fmt.Errorf("failed to create purchase: %w", err)
	}

	return nil
}

// CreateLineItem inserts one purchased product and fills in its
// generated identifier.
func (r *purchaseRepository) CreateLineItem(ctx context.Context, q Querier, item *domain.PurchasedProduct) error {
	if q == nil {
		q = r.db
	}

	query := `
		INSERT INTO purchased_products (product_amount, unit_price, product_id, purchase_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := q.QueryRowContext(
		ctx,
		query,
		item.Amount,
		item.UnitPrice,
		item.ProductID,
		item.PurchaseID,
		item.CreatedAt,
	).Scan(&item.ID)

	if err != nil {
		return fmt.Errorf("failed to create purchased product: %w", err)
	}

	return nil
}

// ListByBuyer retrieves a buyer's non-deleted purchases, newest first,
// with their line items attached.
func (r *purchaseRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Purchase, error) {
	query := `
		SELECT id, payment_method, discount_percentage, interest_percentage, buyer_id, created_at
		FROM purchases
		WHERE buyer_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	purchases := []*domain.Purchase{}
	byID := map[int64]*domain.Purchase{}
	for rows.Next() {
		purchase := &domain.Purchase{Products: []domain.PurchasedProduct{}}
		err := rows.Scan(
			&purchase.ID,
			&purchase.PaymentMethod,
			&purchase.DiscountPercentage,
			&purchase.InterestPercentage,
			&purchase.BuyerID,
			&purchase.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, purchase)
		byID[purchase.ID] = purchase
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchases: %w", err)
	}

	if len(purchases) == 0 {
		return purchases, nil
	}

	itemsQuery := `
		SELECT pp.id, pp.product_amount, pp.unit_price, pp.product_id, pp.purchase_id, pp.created_at
		FROM purchased_products pp
		JOIN purchases p ON p.id = pp.purchase_id
		WHERE p.buyer_id = $1 AND p.deleted_at IS NULL AND pp.deleted_at IS NULL
		ORDER BY pp.id
	`

	itemRows, err := r.db.QueryContext(ctx, itemsQuery, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchased products: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		item := domain.PurchasedProduct{}
		err := itemRows.Scan(
			&item.ID,
			&item.Amount,
			&item.UnitPrice,
			&item.ProductID,
			&item.PurchaseID,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchased product: %w", err)
		}

		if purchase, ok := byID[item.PurchaseID]; ok {
			purchase.Products = append(purchase.Products, item)
		}
	}

	if err = itemRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchased products: %w", err)
	}

	return purchases, nil
}
