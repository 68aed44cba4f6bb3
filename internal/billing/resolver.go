package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/billhive/billhive/internal/masterdata"
	"github.com/billhive/billhive/internal/platform/httpx"
)

// Catalogue looks up products during line item resolution. Inside a document
// transaction this is the TxRepository, so snapshots and stock adjustments
// read the same rows.
type Catalogue interface {
	ProductByID(ctx context.Context, userID, id int64) (*masterdata.Product, error)
	ProductByName(ctx context.Context, userID int64, name string) (*masterdata.Product, error)
}

// ResolveItems turns requested rows into priced line items. A row naming a
// product id must match; a productName is matched against the catalogue and
// silently falls through to an ad-hoc line when absent. Request fields win
// over catalogue snapshots wherever both are present.
func ResolveItems(ctx context.Context, cat Catalogue, userID int64, inputs []LineItemInput) ([]LineItem, error) {
	items := make([]LineItem, 0, len(inputs))
	for i, in := range inputs {
		var product *masterdata.Product
		switch {
		case in.ProductID != nil:
			p, err := cat.ProductByID(ctx, userID, *in.ProductID)
			if err != nil {
				if errors.Is(err, httpx.ErrNotFound) {
					return nil, fmt.Errorf("%w: item %d references unknown product %d", httpx.ErrValidation, i+1, *in.ProductID)
				}
				return nil, err
			}
			product = p
		case strings.TrimSpace(in.ProductName) != "":
			p, err := cat.ProductByName(ctx, userID, strings.TrimSpace(in.ProductName))
			if err != nil && !errors.Is(err, httpx.ErrNotFound) {
				return nil, err
			}
			product = p
		}

		item := LineItem{
			Name:        strings.TrimSpace(in.ProductName),
			Description: in.Description,
			HSNCode:     strings.TrimSpace(in.HSNCode),
			PartNo:      strings.TrimSpace(in.PartNo),
			Tool:        strings.TrimSpace(in.Tool),
			Quantity:    decimal.NewFromInt(1),
			Unit:        strings.ToUpper(strings.TrimSpace(in.Unit)),
			UnitPrice:   in.UnitPrice,
			GSTRate:     18,
		}
		if in.Quantity != nil {
			if in.Quantity.LessThanOrEqual(decimal.Zero) {
				return nil, fmt.Errorf("%w: item %d quantity must be positive", httpx.ErrValidation, i+1)
			}
			item.Quantity = *in.Quantity
		}
		if product != nil {
			id := product.ID
			item.ProductID = &id
			if item.Name == "" {
				item.Name = product.Name
			}
			if item.Description == "" {
				item.Description = product.Description
			}
			if item.HSNCode == "" {
				item.HSNCode = product.HSNCode
			}
			if item.PartNo == "" {
				item.PartNo = product.PartNo
			}
			if item.Unit == "" {
				item.Unit = string(product.Unit)
			}
			if item.UnitPrice.IsZero() {
				item.UnitPrice = product.Price
			}
			item.GSTRate = product.GSTRate
		}
		switch {
		case in.GSTRate != nil:
			item.GSTRate = *in.GSTRate
		case in.TaxRate != nil:
			item.GSTRate = *in.TaxRate
		}
		if !masterdata.ValidGSTRate(item.GSTRate) {
			return nil, fmt.Errorf("%w: item %d gst rate %d not in %v", httpx.ErrValidation, i+1, item.GSTRate, masterdata.GSTRates)
		}
		if item.Unit == "" {
			item.Unit = string(masterdata.UnitPCS)
		}
		if !masterdata.ValidUnit(masterdata.Unit(item.Unit)) {
			return nil, fmt.Errorf("%w: item %d unknown unit %q", httpx.ErrValidation, i+1, item.Unit)
		}
		if item.Name == "" {
			return nil, fmt.Errorf("%w: item %d needs a product or a name", httpx.ErrValidation, i+1)
		}

		for _, p := range in.Processes {
			if p.Amount.IsNegative() {
				return nil, fmt.Errorf("%w: item %d process %q has a negative amount", httpx.ErrValidation, i+1, p.Name)
			}
			item.Processes = append(item.Processes, Process{Name: p.Name, Amount: p.Amount})
		}
		item.UnitPrice = linePrice(item.UnitPrice, item.Processes)
		if item.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: item %d has a negative price", httpx.ErrValidation, i+1)
		}
		item.Amount = item.UnitPrice.Mul(item.Quantity).Round(2)
		items = append(items, item)
	}
	return items, nil
}
