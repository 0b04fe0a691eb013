package cart

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	pkgdb "github.com/angelmondragon/storefront-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/google/uuid"
)

// Service exposes cart line mutations and the priced view.
type Service interface {
	AddLine(ctx context.Context, cartID, productID uuid.UUID, qty int) error
	SetLineQuantity(ctx context.Context, cartID, productID uuid.UUID, qty int) error
	RemoveLine(ctx context.Context, cartID, productID uuid.UUID) error
	GetLines(ctx context.Context, cartID uuid.UUID) (*View, error)
}

type stockChecker interface {
	CheckAvailable(ctx context.Context, productID uuid.UUID, qty int) (*catalog.Product, error)
}

// View is the cart as priced right now.
type View struct {
	CartID     uuid.UUID  `json:"cart_id"`
	Lines      []LineView `json:"lines"`
	ItemCount  int        `json:"item_count"`
	TotalCents int64      `json:"total_cents"`
	Total      string     `json:"total"`
}

type LineView struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	UnitPrice      string    `json:"unit_price"`
	SubtotalCents  int64     `json:"subtotal_cents"`
	Subtotal       string    `json:"subtotal"`
}

type service struct {
	repo  LineRepository
	stock stockChecker
}

// NewService builds a cart service.
func NewService(repo LineRepository, stock stockChecker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock checker required")
	}
	return &service{repo: repo, stock: stock}, nil
}

func (s *service) AddLine(ctx context.Context, cartID, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"quantity": qty})
	}
	return s.writeLine(ctx, cartID, productID, qty)
}

func (s *service) SetLineQuantity(ctx context.Context, cartID, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return s.RemoveLine(ctx, cartID, productID)
	}
	return s.writeLine(ctx, cartID, productID, qty)
}

func (s *service) RemoveLine(ctx context.Context, cartID, productID uuid.UUID) error {
	if err := s.requireCart(ctx, cartID); err != nil {
		return err
	}
	if err := s.repo.DeleteLine(ctx, cartID, productID); err != nil {
		return pkgdb.ClassifyError(err)
	}
	return nil
}

func (s *service) GetLines(ctx context.Context, cartID uuid.UUID) (*View, error) {
	if err := s.requireCart(ctx, cartID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListPriced(ctx, cartID)
	if err != nil {
		return nil, pkgdb.ClassifyError(err)
	}
	return BuildView(cartID, rows), nil
}

// BuildView prices rows into a View; subtotal is unit price times quantity.
func BuildView(cartID uuid.UUID, rows []PricedLine) *View {
	view := &View{CartID: cartID, Lines: make([]LineView, 0, len(rows))}
	for _, row := range rows {
		subtotal := money.Multiply(row.UnitPriceCents, row.Quantity)
		view.Lines = append(view.Lines, LineView{
			ProductID:      row.ProductID,
			Name:           row.Name,
			Quantity:       row.Quantity,
			UnitPriceCents: row.UnitPriceCents,
			UnitPrice:      money.Format(row.UnitPriceCents),
			SubtotalCents:  subtotal,
			Subtotal:       money.Format(subtotal),
		})
		view.ItemCount += row.Quantity
		view.TotalCents += subtotal
	}
	view.Total = money.Format(view.TotalCents)
	return view
}

func (s *service) writeLine(ctx context.Context, cartID, productID uuid.UUID, qty int) error {
	if err := s.requireCart(ctx, cartID); err != nil {
		return err
	}
	if _, err := s.stock.CheckAvailable(ctx, productID, qty); err != nil {
		return pkgdb.ClassifyError(err)
	}
	if err := s.repo.ReplaceLine(ctx, cartID, productID, qty); err != nil {
		return pkgdb.ClassifyError(err)
	}
	return nil
}

func (s *service) requireCart(ctx context.Context, cartID uuid.UUID) error {
	ok, err := s.repo.CartExists(ctx, cartID)
	if err != nil {
		return pkgdb.ClassifyError(err)
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found").
			WithDetails(map[string]any{"cart_id": cartID.String()})
	}
	return nil
}
