package orders

import (
	"time"

	"github.com/google/uuid"
)

// OrderSummary is one row of an account's order history.
type OrderSummary struct {
	ID         uuid.UUID `json:"id"`
	TotalCents int64     `json:"total_cents"`
	Total      string    `json:"total"`
	ItemCount  int       `json:"item_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// OrderPage wraps the paginated orders plus the next page cursor.
type OrderPage struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderDetail is an order with its snapshot lines.
type OrderDetail struct {
	ID         uuid.UUID    `json:"id"`
	AccountID  uuid.UUID    `json:"account_id"`
	TotalCents int64        `json:"total_cents"`
	Total      string       `json:"total"`
	CreatedAt  time.Time    `json:"created_at"`
	Lines      []DetailLine `json:"lines"`
}

// DetailLine prices from the snapshot taken at checkout, never the live catalog.
type DetailLine struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	UnitPrice      string    `json:"unit_price"`
	SubtotalCents  int64     `json:"subtotal_cents"`
	Subtotal       string    `json:"subtotal"`
}

type summaryRow struct {
	ID         uuid.UUID
	TotalCents int64
	CreatedAt  time.Time
	ItemCount  int
}

type lineRow struct {
	ProductID      uuid.UUID
	Name           string
	Quantity       int
	UnitPriceCents int64
}
