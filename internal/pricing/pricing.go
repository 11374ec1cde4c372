// Package pricing computes order totals from cart lines and the global
// delivery/tax configuration.
package pricing

import (
	"sort"

	"github.com/dineflow/api/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Totals is the price breakdown of a cart or order.
// Total is always Subtotal + Tax + DeliveryCharge.
type Totals struct {
	Subtotal       decimal.Decimal
	Tax            decimal.Decimal
	DeliveryCharge decimal.Decimal
	Total          decimal.Decimal
}

// Calculate prices the given lines. A nil distance means the delivery
// charge cannot be computed yet and is reported as zero; callers must not
// place an order in that state.
func Calculate(items []model.OrderItem, s model.GlobalSettings, distanceKm *float64) Totals {
	if len(items) == 0 {
		return Totals{
			Subtotal:       decimal.Zero,
			Tax:            decimal.Zero,
			DeliveryCharge: decimal.Zero,
			Total:          decimal.Zero,
		}
	}

	subtotal := Subtotal(items)
	tax := subtotal.Mul(decimal.NewFromFloat(s.GSTPercentage)).Div(hundred).Round(2)

	delivery := decimal.Zero
	if distanceKm != nil {
		delivery = DeliveryCharge(s, *distanceKm)
		if qualifiesForFreeDelivery(s, subtotal, *distanceKm) {
			delivery = decimal.Zero
		}
	}

	return Totals{
		Subtotal:       subtotal,
		Tax:            tax,
		DeliveryCharge: delivery,
		Total:          subtotal.Add(tax).Add(delivery),
	}
}

// Subtotal is the sum of unit price times quantity. Lines with a
// non-positive quantity contribute nothing.
func Subtotal(items []model.OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		sum = sum.Add(line)
	}
	return sum.Round(2)
}

// DeliveryCharge selects the first tier, ascending by UpToKm, whose ceiling
// covers the distance. Past the last tier the linear base + per-km formula
// applies.
func DeliveryCharge(s model.GlobalSettings, distanceKm float64) decimal.Decimal {
	tiers := make([]model.DeliveryTier, len(s.DeliveryTiers))
	copy(tiers, s.DeliveryTiers)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].UpToKm < tiers[j].UpToKm })

	for _, t := range tiers {
		if t.UpToKm >= distanceKm {
			return decimal.NewFromFloat(t.Charge).Round(2)
		}
	}

	base := decimal.NewFromFloat(s.DeliveryBaseCharge)
	perKm := decimal.NewFromFloat(s.DeliveryChargePerKm)
	return base.Add(perKm.Mul(decimal.NewFromFloat(distanceKm))).Round(2)
}

// qualifiesForFreeDelivery applies the optional free-delivery rule. A zero
// threshold disables it; a zero distance cap means any distance.
func qualifiesForFreeDelivery(s model.GlobalSettings, subtotal decimal.Decimal, distanceKm float64) bool {
	if s.FreeDeliveryThreshold <= 0 {
		return false
	}
	if subtotal.LessThan(decimal.NewFromFloat(s.FreeDeliveryThreshold)) {
		return false
	}
	return s.FreeDeliveryDistanceKm <= 0 || distanceKm <= s.FreeDeliveryDistanceKm
}

// DisplayPrice applies a menu discount percentage to a unit price. This is
// the price shown while browsing and the one snapshotted into a cart.
func DisplayPrice(price, discountPercent float64) float64 {
	if discountPercent <= 0 {
		return price
	}
	if discountPercent > 100 {
		discountPercent = 100
	}
	p := decimal.NewFromFloat(price)
	off := p.Mul(decimal.NewFromFloat(discountPercent)).Div(hundred)
	return p.Sub(off).Round(2).InexactFloat64()
}

// Money rounds each part to two places for storage. The total is the sum
// of the rounded parts, so the stored breakdown always adds up.
func (t Totals) Money() (subtotal, tax, delivery, total model.Money) {
	subtotal = model.NewMoney(t.Subtotal)
	tax = model.NewMoney(t.Tax)
	delivery = model.NewMoney(t.DeliveryCharge)
	return subtotal, tax, delivery, subtotal.Plus(tax).Plus(delivery)
}
