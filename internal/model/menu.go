package model

import (
	"time"

	"github.com/dineflow/api/internal/enum"
)

// Price holds the independently priced portion variants of a menu item.
// Full is mandatory; Half and Qtr are absent when the item is not sold in
// that portion.
type Price struct {
	Full float64  `json:"full" bson:"full"`
	Half *float64 `json:"half,omitempty" bson:"half,omitempty"`
	Qtr  *float64 `json:"qtr,omitempty" bson:"qtr,omitempty"`
}

// For returns the price of the given variant and whether it is offered.
func (p Price) For(variant string) (float64, bool) {
	switch variant {
	case enum.VariantFull:
		return p.Full, true
	case enum.VariantHalf:
		if p.Half != nil {
			return *p.Half, true
		}
	case enum.VariantQtr:
		if p.Qtr != nil {
			return *p.Qtr, true
		}
	}
	return 0, false
}

// ServingLabels describe portion sizes, e.g. "4 pcs" or "500 ml".
type ServingLabels struct {
	Full string `json:"full,omitempty" bson:"full,omitempty"`
	Half string `json:"half,omitempty" bson:"half,omitempty"`
	Qtr  string `json:"qtr,omitempty" bson:"qtr,omitempty"`
}

// InventoryLink ties a menu item to the stock it consumes per unit sold.
type InventoryLink struct {
	InventoryItemID string  `json:"inventoryItemId" bson:"inventoryItemId"`
	QuantityPerUnit float64 `json:"quantityPerUnit" bson:"quantityPerUnit"`
}

type MenuItem struct {
	ID              string          `json:"id" bson:"_id"`
	OutletID        string          `json:"outletId" bson:"outletId"`
	Name            string          `json:"name" bson:"name"`
	Description     string          `json:"description,omitempty" bson:"description,omitempty"`
	Category        string          `json:"category" bson:"category"`
	Price           Price           `json:"price" bson:"price"`
	Servings        ServingLabels   `json:"servings" bson:"servings"`
	ImageURL        string          `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	Available       bool            `json:"available" bson:"available"`
	SpiceLevel      string          `json:"spiceLevel" bson:"spiceLevel"`
	FoodType        string          `json:"foodType" bson:"foodType"`
	DiscountPercent float64         `json:"discountPercent,omitempty" bson:"discountPercent,omitempty"`
	Inventory       []InventoryLink `json:"inventory,omitempty" bson:"inventory,omitempty"`
	CreatedAt       time.Time       `json:"createdAt" bson:"createdAt"`
}
