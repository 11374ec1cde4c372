package model

import "time"

// Coordinates is a WGS84 position in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Outlet is a physical restaurant location.
type Outlet struct {
	ID               string       `json:"id" bson:"_id"`
	Name             string       `json:"name" bson:"name"`
	Address          string       `json:"address" bson:"address"`
	Phone            string       `json:"phone" bson:"phone"`
	Email            string       `json:"email,omitempty" bson:"email,omitempty"`
	ImageURL         string       `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	Location         *Coordinates `json:"location,omitempty" bson:"location,omitempty"`
	DeliveryRadiusKm float64      `json:"deliveryRadiusKm" bson:"deliveryRadiusKm"`
	OwnerEmail       string       `json:"ownerEmail,omitempty" bson:"ownerEmail,omitempty"`
	IsActive         bool         `json:"isActive" bson:"isActive"`
	Rating           float64      `json:"rating" bson:"rating"`
	RatingCount      int          `json:"ratingCount" bson:"ratingCount"`
	CreatedAt        time.Time    `json:"createdAt" bson:"createdAt"`
}

func (o Outlet) HasCoordinates() bool {
	return o.Location != nil
}
