// Package pricing computes authoritative line and grand totals for an order.
// Client-submitted prices never enter here; every close re-prices from the
// catalog.
package pricing

import (
	"pos-server/internal/catalog"
	"pos-server/internal/models"
)

// Price resolves and prices each line item in input order. Small is charged
// at base price, every other size at double. An unknown product degrades to a
// zero-priced line named "Unknown Product" and contributes nothing to the
// grand total. The output is 1:1 with the input: same count, same order.
func Price(cat *catalog.Catalog, items []models.LineItem) ([]models.LineItem, float64) {
	priced := make([]models.LineItem, 0, len(items))
	var grandTotal float64

	for _, item := range items {
		entry, ok := cat.Resolve(item.ProductID)
		if !ok {
			item.ProductName = models.UnknownProductName
			item.UnitPrice = 0
			item.ItemTotal = 0
		} else {
			unit := entry.BasePrice
			if item.Size != models.SizeSmall {
				unit *= 2
			}
			item.ProductName = entry.Name
			item.UnitPrice = unit
			item.ItemTotal = unit * float64(item.Quantity)
		}
		grandTotal += item.ItemTotal
		priced = append(priced, item)
	}

	return priced, grandTotal
}
