package enum

// ── Order lifecycle ──

const (
	OrderStatusPending        = "PENDING"
	OrderStatusAccepted       = "ACCEPTED"
	OrderStatusPreparing      = "PREPARING"
	OrderStatusReady          = "READY"
	OrderStatusOutForDelivery = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      = "DELIVERED"
	OrderStatusRejected       = "REJECTED"
)

// ActorSystem is recorded as updatedBy for entries not made by a person.
const ActorSystem = "System"

// ── Accounts ──

const (
	RoleSuperAdmin  = "SUPER_ADMIN"
	RoleOutletOwner = "OUTLET_OWNER"
	RoleManager     = "MANAGER"
	RoleDelivery    = "DELIVERY"
	RoleCustomer    = "CUSTOMER"
)

// OutletScopeAll marks a staff account that is not bound to one outlet.
const OutletScopeAll = "all"

const (
	PermManageMenu      = "manageMenu"
	PermManageInventory = "manageInventory"
	PermViewStats       = "viewStats"
	PermManageOrders    = "manageOrders"
	PermManageOutlets   = "manageOutlets"
	PermManageManagers  = "manageManagers"
)

// ── Menu ──

const (
	VariantFull = "full"
	VariantHalf = "half"
	VariantQtr  = "qtr"
)

const (
	SpiceNone   = "None"
	SpiceMild   = "Mild"
	SpiceMedium = "Medium"
	SpiceHot    = "Hot"
)

const (
	FoodTypeVeg    = "Veg"
	FoodTypeNonVeg = "Non-Veg"
)

// ── Payments (recorded, never processed) ──

const (
	PaymentMethodUPI  = "UPI"
	PaymentMethodCard = "CARD"
	PaymentMethodCOD  = "COD"
)

func IsVariant(s string) bool {
	switch s {
	case VariantFull, VariantHalf, VariantQtr:
		return true
	}
	return false
}

func IsPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodUPI, PaymentMethodCard, PaymentMethodCOD:
		return true
	}
	return false
}

func IsRole(s string) bool {
	switch s {
	case RoleSuperAdmin, RoleOutletOwner, RoleManager, RoleDelivery, RoleCustomer:
		return true
	}
	return false
}

// IsStaffRole reports whether the role belongs to the back office.
func IsStaffRole(s string) bool {
	return IsRole(s) && s != RoleCustomer
}

func IsSpiceLevel(s string) bool {
	switch s {
	case SpiceNone, SpiceMild, SpiceMedium, SpiceHot:
		return true
	}
	return false
}

func IsFoodType(s string) bool {
	return s == FoodTypeVeg || s == FoodTypeNonVeg
}
