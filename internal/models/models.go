package models

import (
	"strconv"
	"time"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
	RoleManager  = "manager"
)

func ValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleAdmin, RoleManager:
		return true
	}
	return false
}

type Tenant struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:100;not null"        json:"name"`
	Address   string    `gorm:"size:255;not null"        json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	FirstName string    `gorm:"not null"                  json:"firstName"`
	LastName  string    `gorm:"not null"                  json:"lastName"`
	Email     string    `gorm:"uniqueIndex;not null"      json:"email"`
	Password  string    `gorm:"not null"                  json:"-"`
	Role      string    `gorm:"not null"                  json:"role"`
	TenantID  *uint     `gorm:"index"                     json:"-"`
	Tenant    *Tenant   `gorm:"constraint:OnDelete:SET NULL" json:"tenant,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TenantRef is the tenant id as carried in token claims, empty when the user has none.
func (u *User) TenantRef() string {
	if u.TenantID == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*u.TenantID), 10)
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"index;not null"           json:"userId"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ExpiresAt time.Time `gorm:"not null"                 json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
