package domain

import (
	"errors"
	"strings"
)

var (
	ErrMissingUser  = errors.New("user id is required")
	ErrEmptyName    = errors.New("name is required")
	ErrInvalidEmail = errors.New("email must contain '@'")
	ErrEmptyToken   = errors.New("auth token is required")
)

// Profile is the personal data a user shares with the other party of an adoption.
type Profile struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	City   string `json:"city"`
	State  string `json:"state"`
}

// Normalize trims every field.
func (p Profile) Normalize() Profile {
	return Profile{
		UserID: p.UserID,
		Name:   strings.TrimSpace(p.Name),
		Email:  strings.TrimSpace(p.Email),
		Phone:  strings.TrimSpace(p.Phone),
		City:   strings.TrimSpace(p.City),
		State:  strings.ToUpper(strings.TrimSpace(p.State)),
	}
}

// Validate checks the fields a term snapshot depends on.
func (p Profile) Validate() error {
	n := p.Normalize()
	if n.UserID <= 0 {
		return ErrMissingUser
	}
	if n.Name == "" {
		return ErrEmptyName
	}
	if !strings.Contains(n.Email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// Session is the signed-in identity of the device.
type Session struct {
	UserID int64
	Token  string
}

// Validate checks both parts of the session are present.
func (s Session) Validate() error {
	if s.UserID <= 0 {
		return ErrMissingUser
	}
	if strings.TrimSpace(s.Token) == "" {
		return ErrEmptyToken
	}
	return nil
}
