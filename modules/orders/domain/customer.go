package domain

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Address is the shipping address captured when the order is placed.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Lines returns the non-empty address lines for display.
func (a Address) Lines() []string {
	var lines []string
	for _, l := range []string{a.Line1, a.Line2, strings.TrimSpace(a.City + " " + a.PostalCode), a.State, a.Country} {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// Customer is the contact and shipping snapshot taken at order creation.
// It is never re-derived from account data afterwards.
type Customer struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone,omitempty"`
	Address Address `json:"address"`
}

// NewCustomer validates and normalizes a customer snapshot.
func NewCustomer(name, email, phone string, address Address) (Customer, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" {
		return Customer{}, ErrCustomerNameRequired
	}
	if email == "" {
		return Customer{}, ErrCustomerEmailRequired
	}
	if !emailRegex.MatchString(email) {
		return Customer{}, ErrCustomerEmailInvalid
	}
	return Customer{
		Name:    name,
		Email:   email,
		Phone:   strings.TrimSpace(phone),
		Address: address,
	}, nil
}
