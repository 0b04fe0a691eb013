package orders

import (
	"context"
	"fmt"

	pkgdb "github.com/angelmondragon/storefront-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
)

// Service reads an account's order history.
type Service interface {
	List(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*OrderPage, error)
	Detail(ctx context.Context, accountID, orderID uuid.UUID) (*OrderDetail, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*OrderPage, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListByAccount(ctx, accountID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgdb.ClassifyError(err)
	}

	rows, next := pagination.Trim(rows, params.Limit, func(row summaryRow) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	page := &OrderPage{Orders: make([]OrderSummary, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		page.Orders = append(page.Orders, OrderSummary{
			ID:         row.ID,
			TotalCents: row.TotalCents,
			Total:      money.Format(row.TotalCents),
			ItemCount:  row.ItemCount,
			CreatedAt:  row.CreatedAt,
		})
	}
	return page, nil
}

func (s *service) Detail(ctx context.Context, accountID, orderID uuid.UUID) (*OrderDetail, error) {
	order, err := s.repo.FindForAccount(ctx, accountID, orderID)
	if err != nil {
		return nil, pkgdb.ClassifyError(err)
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	rows, err := s.repo.ListLines(ctx, order.ID)
	if err != nil {
		return nil, pkgdb.ClassifyError(err)
	}

	detail := &OrderDetail{
		ID:         order.ID,
		AccountID:  order.AccountID,
		TotalCents: order.TotalCents,
		Total:      money.Format(order.TotalCents),
		CreatedAt:  order.CreatedAt,
		Lines:      make([]DetailLine, 0, len(rows)),
	}
	for _, row := range rows {
		subtotal := money.Multiply(row.UnitPriceCents, row.Quantity)
		detail.Lines = append(detail.Lines, DetailLine{
			ProductID:      row.ProductID,
			Name:           row.Name,
			Quantity:       row.Quantity,
			UnitPriceCents: row.UnitPriceCents,
			UnitPrice:      money.Format(row.UnitPriceCents),
			SubtotalCents:  subtotal,
			Subtotal:       money.Format(subtotal),
		})
	}
	return detail, nil
}
