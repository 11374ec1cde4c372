package model

import "time"

type InventoryItem struct {
	ID        string    `json:"id" bson:"_id"`
	OutletID  string    `json:"outletId" bson:"outletId"`
	Name      string    `json:"name" bson:"name"`
	Stock     float64   `json:"stock" bson:"stock"`
	MinStock  float64   `json:"minStock" bson:"minStock"`
	Unit      string    `json:"unit" bson:"unit"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Adjust changes the stock by delta, never letting it drop below zero.
func (i *InventoryItem) Adjust(delta float64) {
	i.Stock += delta
	if i.Stock < 0 {
		i.Stock = 0
	}
}

// IsLow reports whether the stock is at or below the minimum threshold.
func (i InventoryItem) IsLow() bool {
	return i.Stock <= i.MinStock
}

// StockDeduction is a pending reduction of one inventory item, written
// together with the order that caused it.
type StockDeduction struct {
	InventoryItemID string
	Quantity        float64
}
