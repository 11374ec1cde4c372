// Package cart keeps a customer's pending order lines until checkout.
package cart

import (
	"errors"
	"fmt"

	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/model"
	"github.com/dineflow/api/internal/pricing"
)

var (
	ErrUnavailable    = errors.New("menu item is not available")
	ErrInvalidVariant = errors.New("invalid variant")
	ErrOutletMismatch = errors.New("cart already holds items from another outlet")
)

// Cart is the set of lines keyed by (menu item, variant). Quantities are
// always positive; a line that reaches zero is removed.
type Cart struct {
	OutletID string            `json:"outletId"`
	Lines    []model.OrderItem `json:"lines"`
}

func (c *Cart) find(menuItemID, variant string) int {
	for i, l := range c.Lines {
		if l.MenuItemID == menuItemID && l.Variant == variant {
			return i
		}
	}
	return -1
}

// Add puts one unit of the item's variant into the cart. An existing line
// is incremented; a new line snapshots the discounted variant price, or the
// full price if the variant has none.
func (c *Cart) Add(item model.MenuItem, variant string) error {
	if !enum.IsVariant(variant) {
		return fmt.Errorf("%w: %q", ErrInvalidVariant, variant)
	}
	if !item.Available {
		return ErrUnavailable
	}
	if c.OutletID != "" && len(c.Lines) > 0 && c.OutletID != item.OutletID {
		return ErrOutletMismatch
	}
	c.OutletID = item.OutletID

	if i := c.find(item.ID, variant); i >= 0 {
		c.Lines[i].Quantity++
		return nil
	}

	price, ok := item.Price.For(variant)
	if !ok {
		price = item.Price.Full
	}
	c.Lines = append(c.Lines, model.OrderItem{
		MenuItemID: item.ID,
		Name:       item.Name,
		Variant:    variant,
		Price:      pricing.DisplayPrice(price, item.DiscountPercent),
		Quantity:   1,
	})
	return nil
}

// UpdateQuantity adjusts a line by delta. The quantity never goes below
// zero and a line at zero is dropped. Unknown lines are ignored.
func (c *Cart) UpdateQuantity(menuItemID, variant string, delta int) {
	i := c.find(menuItemID, variant)
	if i < 0 {
		return
	}
	q := c.Lines[i].Quantity + delta
	if q <= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		if len(c.Lines) == 0 {
			c.OutletID = ""
		}
		return
	}
	c.Lines[i].Quantity = q
}

// Remove drops a line regardless of its quantity.
func (c *Cart) Remove(menuItemID, variant string) {
	if i := c.find(menuItemID, variant); i >= 0 {
		c.UpdateQuantity(menuItemID, variant, -c.Lines[i].Quantity)
	}
}

func (c *Cart) Clear() {
	c.Lines = nil
	c.OutletID = ""
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Count is the total number of units across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Items returns a copy of the lines, safe to embed in an order.
func (c *Cart) Items() []model.OrderItem {
	out := make([]model.OrderItem, len(c.Lines))
	copy(out, c.Lines)
	return out
}
