package model

import "time"

// GlobalSettingsID is the id of the single settings document.
const GlobalSettingsID = "global"

// DeliveryTier is a flat delivery charge for distances up to UpToKm.
type DeliveryTier struct {
	UpToKm float64 `json:"upToKm" bson:"upToKm"`
	Charge float64 `json:"charge" bson:"charge"`
}

// InvoiceSettings carries the branding printed on invoices.
type InvoiceSettings struct {
	BusinessName string `json:"businessName" bson:"businessName"`
	Address      string `json:"address" bson:"address"`
	Phone        string `json:"phone" bson:"phone"`
	Email        string `json:"email,omitempty" bson:"email,omitempty"`
	GSTIN        string `json:"gstin,omitempty" bson:"gstin,omitempty"`
	LogoURL      string `json:"logoUrl,omitempty" bson:"logoUrl,omitempty"`
	FooterNote   string `json:"footerNote,omitempty" bson:"footerNote,omitempty"`
}

type GlobalSettings struct {
	ID                     string          `json:"id" bson:"_id"`
	GSTPercentage          float64         `json:"gstPercentage" bson:"gstPercentage"`
	DeliveryBaseCharge     float64         `json:"deliveryBaseCharge" bson:"deliveryBaseCharge"`
	DeliveryChargePerKm    float64         `json:"deliveryChargePerKm" bson:"deliveryChargePerKm"`
	FreeDeliveryThreshold  float64         `json:"freeDeliveryThreshold" bson:"freeDeliveryThreshold"`
	FreeDeliveryDistanceKm float64         `json:"freeDeliveryDistanceKm" bson:"freeDeliveryDistanceKm"`
	DeliveryTiers          []DeliveryTier  `json:"deliveryTiers" bson:"deliveryTiers"`
	Invoice                InvoiceSettings `json:"invoice" bson:"invoice"`
	UpdatedAt              time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// DefaultGlobalSettings is used until a super admin saves a settings record.
func DefaultGlobalSettings() GlobalSettings {
	return GlobalSettings{
		ID:                  GlobalSettingsID,
		GSTPercentage:       5,
		DeliveryBaseCharge:  40,
		DeliveryChargePerKm: 10,
		DeliveryTiers: []DeliveryTier{
			{UpToKm: 3, Charge: 30},
			{UpToKm: 5, Charge: 50},
		},
	}
}
