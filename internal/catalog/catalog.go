// Package catalog resolves product identifiers to display names and base
// prices. A Catalog is a read-only snapshot built once per billing operation;
// if the product source cannot be read the snapshot is empty and every lookup
// is absent, the caller never fails.
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"pos-server/internal/logger"
	"pos-server/internal/models"
)

// Source lists the product catalog. Implemented by the billing stores.
type Source interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// Item is a resolved catalog entry.
type Item struct {
	Name      string
	BasePrice float64
}

// Catalog is an immutable snapshot of the product catalog.
type Catalog struct {
	items map[string]Item
}

// Build loads the catalog from src. Load or parse failures degrade to an
// empty (or partial) snapshot and are logged, never returned.
func Build(ctx context.Context, src Source, log *logger.Logger) *Catalog {
	c := &Catalog{items: make(map[string]Item)}

	products, err := src.ListProducts(ctx)
	if err != nil {
		log.Error("catalog_load_failed", "Failed to load product catalog, pricing with empty catalog", "", err, nil)
		return c
	}

	for _, p := range products {
		base, err := ParsePrice(p.Price)
		if err != nil {
			log.Error("catalog_price_invalid",
				fmt.Sprintf("Skipping product %s with unparseable price", p.ID),
				"", err, map[string]interface{}{
					"product_id": p.ID,
					"price":      p.Price,
				})
			continue
		}
		c.items[p.ID] = Item{Name: p.Name, BasePrice: base}
	}

	return c
}

// New builds a catalog snapshot directly from product records.
func New(products []models.Product) *Catalog {
	c := &Catalog{items: make(map[string]Item, len(products))}
	for _, p := range products {
		base, err := ParsePrice(p.Price)
		if err != nil {
			continue
		}
		c.items[p.ID] = Item{Name: p.Name, BasePrice: base}
	}
	return c
}

// Resolve looks up a product id. The second return is false when the id is
// unknown.
func (c *Catalog) Resolve(productID string) (Item, bool) {
	item, ok := c.items[productID]
	return item, ok
}

// Len returns the number of resolvable products.
func (c *Catalog) Len() int {
	return len(c.items)
}

// ParsePrice converts a currency display string like "$3.00" to its numeric
// value.
func ParsePrice(price string) (float64, error) {
	trimmed := strings.TrimSpace(price)
	trimmed = strings.TrimPrefix(trimmed, "$")
	trimmed = strings.ReplaceAll(trimmed, ",", "")

	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", price, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid price %q: negative value", price)
	}
	return value, nil
}
