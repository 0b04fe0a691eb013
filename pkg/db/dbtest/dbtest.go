// Package dbtest opens isolated in-memory SQLite stores carrying the real
// migration set, plus seed helpers for repository and engine tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns a migrated client. The pool is capped at one connection so
// concurrent transactions serialize instead of failing with SQLITE_LOCKED.
func Open(t testing.TB) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:storefront_%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), db.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	if _, err := migrate.Up(context.Background(), sqlDB, goose.DialectSQLite3); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	client, err := db.Attach(conn, config.DBConfig{Driver: config.DriverSQLite})
	if err != nil {
		t.Fatalf("attach client: %v", err)
	}
	return client
}

// SeedAccount inserts an active account.
func SeedAccount(t testing.TB, client *db.Client) models.Account {
	t.Helper()
	account := models.Account{
		Email:        fmt.Sprintf("shopper_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		IsActive:     true,
	}
	if err := client.DB().Create(&account).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

// SeedProduct inserts a product with the given price and stock.
func SeedProduct(t testing.TB, client *db.Client, name string, priceCents int64, stock int) models.Product {
	t.Helper()
	product := models.Product{
		SKU:        fmt.Sprintf("SKU-%s", uuid.NewString()),
		Name:       name,
		PriceCents: priceCents,
		Stock:      stock,
	}
	if err := client.DB().Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// Stock reads the current stock of a product.
func Stock(t testing.TB, client *db.Client, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := client.DB().First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Stock
}

// Count returns the number of rows in the model's table matching the optional condition.
func Count(t testing.TB, client *db.Client, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := client.DB().Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}
