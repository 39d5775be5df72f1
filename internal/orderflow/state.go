// Package orderflow drives a patient through the five-step medicine order flow:
// shipping, status, review, payment and result.
package orderflow

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wolfman30/clinic-order-portal/internal/gateway"
)

// StepID identifies a step of the order flow.
type StepID string

const (
	StepShipping StepID = "shipping"
	StepStatus   StepID = "status"
	StepReview   StepID = "review"
	StepPayment  StepID = "payment"
	StepResult   StepID = "result"
)

// ShippingMethod is the patient-facing delivery choice.
type ShippingMethod string

const (
	ShippingHomeDelivery ShippingMethod = "home-delivery"
	ShippingPickup       ShippingMethod = "pickup"
)

// Valid reports whether m is a known method.
func (m ShippingMethod) Valid() bool {
	return m == ShippingHomeDelivery || m == ShippingPickup
}

// Wire maps the method to the delivery-info service vocabulary.
func (m ShippingMethod) Wire() gateway.DeliveryMethod {
	if m == ShippingPickup {
		return gateway.DeliveryPickUp
	}
	return gateway.DeliveryFlash
}

// ShippingMethodFromWire is the inverse of Wire. Unknown values map to home delivery.
func ShippingMethodFromWire(m gateway.DeliveryMethod) ShippingMethod {
	if m == gateway.DeliveryPickUp {
		return ShippingPickup
	}
	return ShippingHomeDelivery
}

type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentPromptPay  PaymentMethod = "promptpay"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCreditCard || m == PaymentPromptPay
}

// Status is the backend order lifecycle status, always lowercase.
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusPaid       Status = "paid"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
)

// NormalizeStatus lowercases a backend status value.
func NormalizeStatus(s string) Status {
	return Status(strings.ToLower(strings.TrimSpace(s)))
}

type OrderItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Dosage   string          `json:"dosage,omitempty"`
	Unit     string          `json:"unit,omitempty"`
}

// LineTotal is price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Shipping struct {
	Method         ShippingMethod `json:"method"`
	Address        string         `json:"address"`
	Phone          string         `json:"phone"`
	Note           string         `json:"note,omitempty"`
	PickupLocation string         `json:"pickupLocation,omitempty"`
	DeliveryInfoID string         `json:"deliveryInfoId,omitempty"`
}

type CardDraft struct {
	CardNumber string `json:"cardNumber"`
	CardHolder string `json:"cardHolder"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv"`
}

type PromptPayDraft struct {
	PhoneNumber string `json:"phoneNumber"`
}

// Payment holds the selected method and both drafts. It is never persisted.
type Payment struct {
	Method    PaymentMethod  `json:"method"`
	Card      CardDraft      `json:"card"`
	PromptPay PromptPayDraft `json:"promptpay"`
}

type DoctorInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
	Hospital  string `json:"hospital,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// HistoryEntry is a prior order a new flow can be seeded from.
type HistoryEntry struct {
	ID          string      `json:"id"`
	OrderNumber string      `json:"orderNumber"`
	CreatedAt   string      `json:"createdAt"`
	Doctor      DoctorInfo  `json:"doctor"`
	Items       []OrderItem `json:"items"`
	Note        string      `json:"note,omitempty"`
}

// State is the whole order flow. It is only ever changed through Reduce.
type State struct {
	Steps       []StepID       `json:"steps"`
	CurrentStep StepID         `json:"currentStep"`
	OrderID     string         `json:"orderId,omitempty"`
	Items       []OrderItem    `json:"items"`
	Shipping    Shipping       `json:"shipping"`
	Payment     Payment        `json:"-"`
	Status      Status         `json:"status"`
	Note        string         `json:"note"`
	Doctor      DoctorInfo     `json:"doctor"`
	History     []HistoryEntry `json:"history"`
}

func defaultSteps() []StepID {
	return []StepID{StepShipping, StepStatus, StepReview, StepPayment, StepResult}
}

func defaultShipping() Shipping {
	return Shipping{Method: ShippingHomeDelivery}
}

func defaultPayment() Payment {
	return Payment{Method: PaymentCreditCard}
}

// DefaultState returns a fresh flow positioned on the shipping step.
func DefaultState() State {
	return State{
		Steps:       defaultSteps(),
		CurrentStep: StepShipping,
		Items:       []OrderItem{},
		Shipping:    defaultShipping(),
		Payment:     defaultPayment(),
		Status:      StatusPending,
		History:     []HistoryEntry{},
	}
}

// Clone returns a deep copy so callers never share slices with the store.
func (s State) Clone() State {
	out := s
	out.Steps = append([]StepID(nil), s.Steps...)
	out.Items = cloneItems(s.Items)
	out.History = make([]HistoryEntry, len(s.History))
	for i, entry := range s.History {
		entry.Items = cloneItems(entry.Items)
		out.History[i] = entry
	}
	return out
}

func cloneItems(items []OrderItem) []OrderItem {
	out := make([]OrderItem, len(items))
	copy(out, items)
	return out
}

// Subtotal sums the line totals of items.
func Subtotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}
