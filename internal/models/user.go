package models

import "time"

// User is an identity addressable by email and/or phone. Phone-only accounts
// created by OTP login carry no password hash.
type User struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            *string    `json:"email,omitempty"`
	Phone            *string    `json:"phone,omitempty"`
	PasswordHash     *string    `json:"-"`
	TwoFactorSecret  *string    `json:"-"`
	TwoFactorEnabled bool       `json:"two_factor_enabled"`
	PhoneVerifiedAt  *time.Time `json:"phone_verified_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// EmailValue and PhoneValue return "" for absent values.
func (u *User) EmailValue() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

func (u *User) PhoneValue() string {
	if u.Phone == nil {
		return ""
	}
	return *u.Phone
}

// UserSummary is the public projection returned next to a token pair.
type UserSummary struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Email            *string `json:"email"`
	Phone            *string `json:"phone"`
	TwoFactorEnabled bool    `json:"two_factor_enabled"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Phone:            u.Phone,
		TwoFactorEnabled: u.TwoFactorEnabled,
	}
}
