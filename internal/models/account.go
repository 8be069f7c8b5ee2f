package models

import (
	"time"
)

// Role identifies who is acting: an enrolled account (customer, shopkeeper)
// or a platform principal (owner, system).
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleShopkeeper Role = "shopkeeper"
	RoleOwner      Role = "owner"
	RoleSystem     Role = "system"
)

// IsAccountRole reports whether accounts can be enrolled with this role.
func (r Role) IsAccountRole() bool {
	return r == RoleCustomer || r == RoleShopkeeper
}

// Account represents a customer or a shopkeeper
type Account struct {
	ID          string    `json:"id" db:"id"`
	Role        Role      `json:"role" db:"role"`
	ShortCode   string    `json:"shortCode" db:"short_code"`
	DisplayName string    `json:"displayName" db:"display_name"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`

	// Exactly one of these is set, matching Role.
	Customer   *CustomerProfile   `json:"customer,omitempty"`
	Shopkeeper *ShopkeeperProfile `json:"shopkeeper,omitempty"`
}

// CustomerProfile holds customer-only attributes
type CustomerProfile struct {
	PhoneNumber string `json:"phoneNumber,omitempty" db:"phone_number"`
}

// ShopkeeperProfile holds shopkeeper-only attributes
type ShopkeeperProfile struct {
	ShopName string `json:"shopName,omitempty" db:"shop_name"`
	Address  string `json:"address,omitempty" db:"address"`
}

// IsCustomer reports whether the account is a customer account
func (a *Account) IsCustomer() bool { return a.Role == RoleCustomer }

// IsShopkeeper reports whether the account is a shopkeeper account
func (a *Account) IsShopkeeper() bool { return a.Role == RoleShopkeeper }
