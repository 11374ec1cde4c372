package model

import "time"

// OrderItem is a cart line or an order line. Price is the unit price
// captured when the line was first added.
type OrderItem struct {
	MenuItemID string  `json:"menuItemId" bson:"menuItemId"`
	Name       string  `json:"name" bson:"name"`
	Variant    string  `json:"variant" bson:"variant"`
	Price      float64 `json:"price" bson:"price"`
	Quantity   int     `json:"quantity" bson:"quantity"`
}

// Contact is the recipient snapshot stored on orders and invoices.
type Contact struct {
	Name    string `json:"name" bson:"name"`
	Phone   string `json:"phone" bson:"phone"`
	Email   string `json:"email,omitempty" bson:"email,omitempty"`
	Address string `json:"address,omitempty" bson:"address,omitempty"`
}

type StatusEntry struct {
	Status    string    `json:"status" bson:"status"`
	Time      time.Time `json:"time" bson:"time"`
	UpdatedBy string    `json:"updatedBy" bson:"updatedBy"`
}

type Order struct {
	ID             string        `json:"id" bson:"_id"`
	OutletID       string        `json:"outletId" bson:"outletId"`
	CustomerID     string        `json:"customerId" bson:"customerId"`
	Customer       Contact       `json:"customer" bson:"customer"`
	Items          []OrderItem   `json:"items" bson:"items"`
	Subtotal       Money         `json:"subtotal" bson:"subtotal"`
	Tax            Money         `json:"tax" bson:"tax"`
	DeliveryCharge Money         `json:"deliveryCharge" bson:"deliveryCharge"`
	Total          Money         `json:"total" bson:"total"`
	DistanceKm     float64       `json:"distanceKm" bson:"distanceKm"`
	Status         string        `json:"status" bson:"status"`
	PaymentMethod  string        `json:"paymentMethod" bson:"paymentMethod"`
	CreatedAt      time.Time     `json:"createdAt" bson:"createdAt"`
	History        []StatusEntry `json:"history" bson:"history"`
}

// ManualInvoice is a staff-entered sale. It never enters the order
// lifecycle but counts toward revenue.
type ManualInvoice struct {
	ID             string      `json:"id" bson:"_id"`
	OutletID       string      `json:"outletId" bson:"outletId"`
	CustomerID     string      `json:"customerId,omitempty" bson:"customerId,omitempty"`
	Customer       Contact     `json:"customer" bson:"customer"`
	Items          []OrderItem `json:"items" bson:"items"`
	Subtotal       Money       `json:"subtotal" bson:"subtotal"`
	Tax            Money       `json:"tax" bson:"tax"`
	DeliveryCharge Money       `json:"deliveryCharge" bson:"deliveryCharge"`
	Total          Money       `json:"total" bson:"total"`
	PaymentMethod  string      `json:"paymentMethod" bson:"paymentMethod"`
	CreatedBy      string      `json:"createdBy" bson:"createdBy"`
	CreatedAt      time.Time   `json:"createdAt" bson:"createdAt"`
}
