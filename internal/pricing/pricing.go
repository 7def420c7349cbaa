package pricing

import (
	"errors"

	"marketplace-api/internal/domain"
)

// ErrInvalidPaymentMethod is returned when a payment method reaches the
// pricing policy without being one of the accepted constants. Request
// validation rejects unknown methods before checkout, so seeing this
// error means a caller bypassed validation.
var ErrInvalidPaymentMethod = errors.New("invalid payment method")

// PaymentMethod is the accepted payment method enumeration.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentDebit  PaymentMethod = "debit"
	PaymentCredit PaymentMethod = "credit"
)

// Terms are the surcharge and discount applied to a purchase, both
// expressed as percentages of the subtotal.
type Terms struct {
	InterestPercentage float64
	DiscountPercentage float64
}

// TermsFor resolves the pricing terms for a payment method. Cash buys a
// small discount, card payments carry interest.
func TermsFor(method PaymentMethod) (Terms, error) {
	switch method {
	case PaymentCash:
		return Terms{InterestPercentage: 0, DiscountPercentage: 2}, nil
	case PaymentDebit:
		return Terms{InterestPercentage: 1, DiscountPercentage: 0}, nil
	case PaymentCredit:
		return Terms{InterestPercentage: 2, DiscountPercentage: 0}, nil
	default:
		return Terms{}, ErrInvalidPaymentMethod
	}
}

// Total computes the final charge for a set of committed line items:
// the subtotal of snapshot prices times quantities, plus interest and
// minus discount as stored on the purchase.
func Total(items []domain.PurchasedProduct, interestPercentage, discountPercentage float64) float64 {
	var subtotal float64
	for _, item := range items {
		subtotal += item.UnitPrice * float64(item.Amount)
	}

	return subtotal + subtotal*interestPercentage/100 - subtotal*discountPercentage/100
}

// PurchaseTotal computes the total of a purchase from its own line
// items and stored percentages.
func PurchaseTotal(p *domain.Purchase) float64 {
	return Total(p.Products, p.InterestPercentage, p.DiscountPercentage)
}
