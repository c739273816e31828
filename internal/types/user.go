package types

import "time"

type Role string

const (
	RoleUser     Role = "user"
	RoleAdmin    Role = "admin"
	RoleMerchant Role = "merchant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleMerchant:
		return true
	}
	return false
}

type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Avatar       *string   `json:"avatar,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	AddressLine1 *string   `json:"address_line1,omitempty" db:"address_line1"`
	AddressLine2 *string   `json:"address_line2,omitempty" db:"address_line2"`
	City         *string   `json:"city,omitempty"`
	Region       *string   `json:"region,omitempty"`
	PostalCode   *string   `json:"postal_code,omitempty"`
	Country      *string   `json:"country,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UpdateProfileParams carries a partial profile update; nil fields are left untouched.
type UpdateProfileParams struct {
	FirstName    *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName     *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	AddressLine1 *string `json:"address_line1,omitempty"`
	AddressLine2 *string `json:"address_line2,omitempty"`
	City         *string `json:"city,omitempty"`
	Region       *string `json:"region,omitempty"`
	PostalCode   *string `json:"postal_code,omitempty" validate:"omitempty,max=20"`
	Country      *string `json:"country,omitempty"`
}

func (p UpdateProfileParams) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Phone == nil &&
		p.AddressLine1 == nil && p.AddressLine2 == nil && p.City == nil &&
		p.Region == nil && p.PostalCode == nil && p.Country == nil
}

type UserSettings struct {
	UserID  int64 `json:"user_id"`
	Email   bool  `json:"email"`
	Offers  bool  `json:"offers"`
	Updates bool  `json:"updates"`
}

type UpdateSettingsParams struct {
	Email   *bool `json:"email,omitempty"`
	Offers  *bool `json:"offers,omitempty"`
	Updates *bool `json:"updates,omitempty"`
}

type UpdateRoleRequest struct {
	Role Role `json:"role" validate:"required,oneof=user admin merchant"`
}
