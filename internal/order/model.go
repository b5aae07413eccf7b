package order

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusOnHold     OrderStatus = "on-hold"
	StatusProcessing OrderStatus = "processing"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
	StatusRefunded   OrderStatus = "refunded"
	StatusFailed     OrderStatus = "failed"
)

// Settled reports whether the order has already reached processing or a
// state that can only follow it.
func (s OrderStatus) Settled() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusRefunded:
		return true
	}
	return false
}

type Order struct {
	ID            uint
	Number        string
	Status        OrderStatus
	Total         decimal.Decimal
	ShippingTotal decimal.Decimal
	Items         []LineItem
	Billing       Address
	Shipping      Address
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type LineItem struct {
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

type Address struct {
	FirstName string
	LastName  string
	Street    string
	City      string
	Postcode  string
	Email     string
	Phone     string
}

func (a Address) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// TransitionResult classifies the outcome of a pending -> processing request.
type TransitionResult int

const (
	TransitionApplied TransitionResult = iota
	TransitionAlreadyProcessing
	TransitionStateConflict
)

func (r TransitionResult) String() string {
	switch r {
	case TransitionApplied:
		return "applied"
	case TransitionAlreadyProcessing:
		return "already_processing"
	case TransitionStateConflict:
		return "state_conflict"
	}
	return "unknown"
}
