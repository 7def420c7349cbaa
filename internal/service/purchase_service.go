package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-api/internal/domain"
	"marketplace-api/internal/pricing"
	"marketplace-api/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrEmptyPurchase is returned for a checkout with no line items.
	ErrEmptyPurchase = errors.New("a purchase must contain at least one product")
)

// LineItemRequest is one (product, amount) pair of a checkout request.
type LineItemRequest struct {
	ProductID int64
	Amount    int
}

// PurchaseWithTotal is a purchase annotated with its computed charge.
// The total is derived from the snapshot prices and the percentages
// stored on the purchase, never from current catalog prices.
type PurchaseWithTotal struct {
	*domain.Purchase
	Total float64 `json:"total"`
}

// PurchaseService defines the interface for checkout and purchase history
type PurchaseService interface {
	Checkout(ctx context.Context, buyerID uuid.UUID, method pricing.PaymentMethod, items []LineItemRequest) (*PurchaseWithTotal, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]*PurchaseWithTotal, error)
}

type purchaseService struct {
	tx           repository.TxRunner
	productRepo  repository.ProductRepository
	purchaseRepo repository.PurchaseRepository
	logger       *zap.Logger
}

// NewPurchaseService creates a new instance of PurchaseService
func NewPurchaseService(
	tx repository.TxRunner,
	productRepo repository.ProductRepository,
	purchaseRepo repository.PurchaseRepository,
	logger *zap.Logger,
) PurchaseService {
	return &purchaseService{
		tx:           tx,
		productRepo:  productRepo,
		purchaseRepo: purchaseRepo,
		logger:       logger,
	}
}

// Checkout converts a cart of line-item requests into a committed
// purchase. The purchase header, every line item, and every stock
// decrement happen inside one transaction: either the whole purchase
// commits or nothing is written. Stock decrements are conditional
// writes, so concurrent checkouts cannot oversell a product.
func (s *purchaseService) Checkout(ctx context.Context, buyerID uuid.UUID, method pricing.PaymentMethod, items []LineItemRequest) (*PurchaseWithTotal, error) {
	if len(items) == 0 {
		return nil, ErrEmptyPurchase
	}

	terms, err := pricing.TermsFor(method)
	if err != nil {
		// Validation restricts the payment method before the request
		// reaches checkout; getting here means a caller skipped it.
		s.logger.Error("unvalidated payment method reached checkout",
			zap.String("payment_method", string(method)),
			zap.String("buyer_id", buyerID.String()),
		)
		return nil, err
	}

	purchase := &domain.Purchase{
		PaymentMethod:      string(method),
		DiscountPercentage: terms.DiscountPercentage,
		InterestPercentage: terms.InterestPercentage,
		BuyerID:            buyerID,
		CreatedAt:          time.Now(),
		Products:           []domain.PurchasedProduct{},
	}

	err = s.tx.WithinTx(ctx, func(tx repository.Querier) error {
		if err := s.purchaseRepo.CreatePurchase(ctx, tx, purchase); err != nil {
			return err
		}

		for _, req := range items {
			product, err := s.productRepo.FindByID(ctx, tx, req.ProductID)
			if err != nil {
				if errors.Is(err, repository.ErrProductNotFound) {
					return fmt.Errorf("product %d not found: %w", req.ProductID, repository.ErrProductNotFound)
				}
				return err
			}

			if err := s.productRepo.DecrementStock(ctx, tx, product.ID, req.Amount); err != nil {
				if errors.Is(err, repository.ErrOutOfStock) {
					return fmt.Errorf("insufficient stock for product %q: %w", product.Name, repository.ErrOutOfStock)
				}
				return err
			}

			item := domain.PurchasedProduct{
				Amount:     req.Amount,
				UnitPrice:  product.Price,
				ProductID:  product.ID,
				PurchaseID: purchase.ID,
				CreatedAt:  time.Now(),
			}

			if err := s.purchaseRepo.CreateLineItem(ctx, tx, &item); err != nil {
				return err
			}

			purchase.Products = append(purchase.Products, item)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase committed",
		zap.Int64("purchase_id", purchase.ID),
		zap.String("buyer_id", buyerID.String()),
		zap.Int("line_items", len(purchase.Products)),
	)

	return &PurchaseWithTotal{
		Purchase: purchase,
		Total:    pricing.PurchaseTotal(purchase),
	}, nil
}

// ListForBuyer returns a buyer's purchases with their line items and
// computed totals. Read-only.
func (s *purchaseService) ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]*PurchaseWithTotal, error) {
	purchases, err := s.purchaseRepo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}

	result := make([]*PurchaseWithTotal, 0, len(purchases))
	for _, purchase := range purchases {
		result = append(result, &PurchaseWithTotal{
			Purchase: purchase,
			Total:    pricing.PurchaseTotal(purchase),
		})
	}

	return result, nil
}
