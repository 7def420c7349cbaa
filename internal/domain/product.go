package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry offered by a seller. Stock is the only field
// mutated after creation: sellers restock it and checkouts decrement it.
type Product struct {
	ID          int64      `json:"product_id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Price       float64    `json:"price" db:"price"`
	Category    string     `json:"category" db:"category"`
	Stock       int        `json:"stock" db:"stock"`
	SellerID    uuid.UUID  `json:"seller_id" db:"seller_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"-" db:"deleted_at"`
}

// ProductUpdate carries the optional fields of a seller-issued product
// update. Nil fields keep the current value.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *float64
	Category    *string
	Stock       *int
}
