package model

import "time"

// Reservation is a table booking submitted through the contact form.
type Reservation struct {
	ID        string    `json:"id" bson:"_id"`
	OutletID  string    `json:"outletId,omitempty" bson:"outletId,omitempty"`
	Name      string    `json:"name" bson:"name"`
	Phone     string    `json:"phone" bson:"phone"`
	Email     string    `json:"email,omitempty" bson:"email,omitempty"`
	PartySize int       `json:"partySize" bson:"partySize"`
	Time      time.Time `json:"time" bson:"time"`
	Note      string    `json:"note,omitempty" bson:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
