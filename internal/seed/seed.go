// Package seed provisions accounts and catalog rows from a JSON fixture.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/accounts"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgdb "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/security"
	"gorm.io/gorm"
)

// File is the fixture layout.
type File struct {
	Accounts []Account `json:"accounts"`
	Products []Product `json:"products"`
}

type Account struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Product prices are decimal strings such as "10.00".
type Product struct {
	SKU   string `json:"sku"`
	Name  string `json:"name"`
	Price string `json:"price"`
	Stock int    `json:"stock"`
}

// Summary counts what Apply wrote.
type Summary struct {
	AccountsCreated int
	AccountsSkipped int
	Products        int
}

// Decode parses and validates a fixture.
func Decode(r io.Reader) (*File, error) {
	var f File
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	for i, a := range f.Accounts {
		if accounts.NormalizeEmail(a.Email) == "" || a.Password == "" {
			return nil, fmt.Errorf("accounts[%d]: email and password are required", i)
		}
	}
	for i, p := range f.Products {
		if strings.TrimSpace(p.SKU) == "" || strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("products[%d]: sku and name are required", i)
		}
		if p.Stock < 0 {
			return nil, fmt.Errorf("products[%d]: stock must not be negative", i)
		}
		cents, err := money.ParseCents(p.Price)
		if err != nil {
			return nil, fmt.Errorf("products[%d]: invalid price %q: %w", i, p.Price, err)
		}
		if cents < 0 {
			return nil, fmt.Errorf("products[%d]: price must not be negative", i)
		}
	}
	return &f, nil
}

// Apply writes the fixture in one transaction. Existing accounts are left
// untouched; products are upserted by SKU.
func Apply(ctx context.Context, tx pkgdb.TxRunner, f *File, pwCfg config.PasswordConfig) (Summary, error) {
	var summary Summary
	err := tx.WithTx(ctx, func(tx *gorm.DB) error {
		accountRepo := accounts.NewRepository(tx)
		productRepo := catalog.NewRepository(tx)

		for _, a := range f.Accounts {
			existing, err := accountRepo.FindByEmail(ctx, a.Email)
			if err != nil {
				return err
			}
			if existing != nil {
				summary.AccountsSkipped++
				continue
			}
			hash, err := security.HashPassword(a.Password, pwCfg)
			if err != nil {
				return fmt.Errorf("hash password for %s: %w", a.Email, err)
			}
			if _, err := accountRepo.Create(ctx, a.Email, hash); err != nil {
				return err
			}
			summary.AccountsCreated++
		}

		for _, p := range f.Products {
			cents, err := money.ParseCents(p.Price)
			if err != nil {
				return err
			}
			row := &models.Product{
				SKU:        strings.TrimSpace(p.SKU),
				Name:       strings.TrimSpace(p.Name),
				PriceCents: cents,
				Stock:      p.Stock,
			}
			if err := productRepo.UpsertBySKU(ctx, row); err != nil {
				return err
			}
			summary.Products++
		}
		return nil
	})
	return summary, err
}
