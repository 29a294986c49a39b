package backend

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ID accepts identifiers the backend encodes either as numbers or strings.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Address is the structured address the backend stores per user.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"is_default"`
}

// User is the backend's user representation.
type User struct {
	ID        ID       `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Phone     string   `json:"phone"`
	UserType  string   `json:"user_type"`
	Address   *Address `json:"address"`
}

// AuthResponse is returned by the login, register and update endpoints.
type AuthResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"access_token,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
}

// RegisterRequest is the payload of POST /user/register.
type RegisterRequest struct {
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     string  `json:"phone"`
	UserType  string  `json:"user_type"`
	Address   Address `json:"address"`
	Password  string  `json:"password"`
}

// LoginRequest is the payload of POST /user/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserRequest is the payload of PUT /user/{id}. Empty fields are left untouched.
type UpdateUserRequest struct {
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Address   *Address `json:"address,omitempty"`
}

// Product is the backend catalog entry. The backend does not always send a price.
type Product struct {
	ID          ID              `json:"id"`
	Name        string          `json:"name"`
	Image       string          `json:"image"`
	Badge       string          `json:"badge,omitempty"`
	Rating      *float64        `json:"rating,omitempty"`
	Description string          `json:"description"`
	Price       json.RawMessage `json:"price,omitempty"`
	Region      string          `json:"region,omitempty"`
	Varietal    string          `json:"varietal,omitempty"`
	Altitude    string          `json:"altitude,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	Process     string          `json:"process,omitempty"`
}

// RawPrice returns the price as a string or number, or nil when absent.
func (p Product) RawPrice() any {
	raw := bytes.TrimSpace(p.Price)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return json.Number(strings.TrimSpace(string(raw)))
}

// OrderSummary is an entry of a user's order history.
type OrderSummary struct {
	ID     ID      `json:"id"`
	Date   string  `json:"date"`
	Total  float64 `json:"total"`
	Status string  `json:"status"`
}

// OrderItem is one line of an order detail.
type OrderItem struct {
	ID          ID      `json:"id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// OrderDetail is returned by GET /orders/{id}.
type OrderDetail struct {
	ID     ID          `json:"id"`
	Date   string      `json:"date"`
	Total  float64     `json:"total"`
	Status string      `json:"status"`
	Items  []OrderItem `json:"items"`
}

// OrderLine is one line of a new order.
type OrderLine struct {
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name"`
	Grind        string `json:"grind"`
	Presentation string `json:"presentation"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
	Total        string `json:"total"`
}

// CreateOrderRequest is the payload of POST /orders.
type CreateOrderRequest struct {
	UserID   string      `json:"user_id"`
	Phone    string      `json:"phone"`
	Address  string      `json:"address"`
	Items    []OrderLine `json:"items"`
	Subtotal string      `json:"subtotal"`
	Tax      string      `json:"tax"`
	Total    string      `json:"total"`
}

// CreateOrderResponse is returned by POST /orders.
type CreateOrderResponse struct {
	ID     ID     `json:"id"`
	Status string `json:"status"`
}
