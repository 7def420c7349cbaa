package domain

import (
	"time"

	"github.com/google/uuid"
)

// Purchase is one committed checkout. The interest and discount
// percentages are resolved from the payment method when the purchase is
// created and are never recomputed, so later pricing changes cannot
// alter historical totals.
type Purchase struct {
	ID                 int64              `json:"purchase_id" db:"id"`
	PaymentMethod      string             `json:"payment_method" db:"payment_method"`
	DiscountPercentage float64            `json:"discount_percentage" db:"discount_percentage"`
	InterestPercentage float64            `json:"interest_percentage" db:"interest_percentage"`
	BuyerID            uuid.UUID          `json:"buyer_id" db:"buyer_id"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	DeletedAt          *time.Time         `json:"-" db:"deleted_at"`
	Products           []PurchasedProduct `json:"products,omitempty"`
}

// PurchasedProduct is one line item of a purchase. UnitPrice is a
// snapshot of the product price at purchase time and is never re-read
// from the catalog.
type PurchasedProduct struct {
	ID         int64      `json:"purchased_product_id" db:"id"`
	Amount     int        `json:"amount" db:"product_amount"`
	UnitPrice  float64    `json:"unit_price" db:"unit_price"`
	ProductID  int64      `json:"product_id" db:"product_id"`
	PurchaseID int64      `json:"purchase_id" db:"purchase_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	DeletedAt  *time.Time `json:"-" db:"deleted_at"`
}
