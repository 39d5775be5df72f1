package gateway

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ID accepts both JSON strings and numbers; the clinic services are not consistent.
type ID string

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

// DeliveryMethod is the wire value of a delivery method.
type DeliveryMethod string

const (
	DeliveryFlash  DeliveryMethod = "flash"
	DeliveryPickUp DeliveryMethod = "pick_up"
)

// Patient/User

type LoginRequest struct {
	HospitalID string `json:"hospital_id"`
	Password   string `json:"password"`
}

type LoginResponse struct {
	Token   string   `json:"token,omitempty"`
	Patient *Patient `json:"patient,omitempty"`
}

type RegisterRequest struct {
	HospitalID   string `json:"hospital_id"`
	Password     string `json:"password"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Gender       string `json:"gender,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	BirthDate    string `json:"birth_date,omitempty"`
	BloodType    string `json:"blood_type,omitempty"`
	IDCardNumber string `json:"id_card_number,omitempty"`
}

type Patient struct {
	ID               ID     `json:"id"`
	HospitalID       string `json:"hospital_id"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Gender           string `json:"gender"`
	PhoneNumber      string `json:"phone_number"`
	BirthDate        string `json:"birth_date"`
	BloodType        string `json:"blood_type"`
	IDCardNumber     string `json:"id_card_number"`
	Address          string `json:"address"`
	Allergies        string `json:"allergies"`
	EmergencyContact string `json:"emergency_contact"`
}

type UpdateProfileRequest struct {
	Address          string `json:"address"`
	Allergies        string `json:"allergies"`
	BirthDate        string `json:"birth_date"`
	BloodType        string `json:"blood_type"`
	EmergencyContact string `json:"emergency_contact"`
	FirstName        string `json:"first_name"`
	IDCardNumber     string `json:"id_card_number"`
	LastName         string `json:"last_name"`
	PhoneNumber      string `json:"phone_number"`
}

type Doctor struct {
	ID        ID     `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Specialty string `json:"specialty"`
	Hospital  string `json:"hospital"`
	AvatarURL string `json:"avatar_url"`
}

// FullName joins first and last name, or returns "" when either is missing.
func (d Doctor) FullName() string {
	if strings.TrimSpace(d.FirstName) == "" || strings.TrimSpace(d.LastName) == "" {
		return ""
	}
	return d.FirstName + " " + d.LastName
}

// Appointment

type Slot struct {
	DoctorID  ID     `json:"doctor_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status"`
}

type BookAppointmentRequest struct {
	DoctorID  string `json:"doctor_id"`
	StartTime string `json:"start_time"`
}

type Appointment struct {
	ID        ID     `json:"id"`
	DoctorID  ID     `json:"doctor_id"`
	PatientID ID     `json:"patient_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status"`
}

// Medicine

type Medicine struct {
	ID    ID              `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Unit  string          `json:"unit"`
}

// Order

type OrderItem struct {
	MedicineID   ID     `json:"medicine_id"`
	MedicineName string `json:"medicine_name"`
	Quantity     int    `json:"quantity"`
	Dosage       string `json:"dosage,omitempty"`
	Unit         string `json:"unit,omitempty"`
}

type Order struct {
	ID          ID                  `json:"id"`
	OrderID     ID                  `json:"order_id"`
	DoctorID    ID                  `json:"doctor_id"`
	Status      string              `json:"status"`
	Note        string              `json:"note"`
	TotalAmount decimal.NullDecimal `json:"total_amount"`
	OrderItems  []OrderItem         `json:"order_items"`
	CreatedAt   string              `json:"created_at"`
}

// Identifier returns order_id, falling back to id.
func (o Order) Identifier() string {
	if o.OrderID != "" {
		return string(o.OrderID)
	}
	return string(o.ID)
}

func (o Order) empty() bool {
	return o.Identifier() == "" && o.Status == "" && len(o.OrderItems) == 0 && o.DoctorID == ""
}

// OrderEnvelope decodes both {"orders": [...]} and flat order bodies.
type OrderEnvelope struct {
	Orders []Order `json:"orders"`
	Order
}

// First returns the first order, completed with top-level status and doctor when
// the nested record omits them.
func (e OrderEnvelope) First() (Order, bool) {
	if len(e.Orders) == 0 {
		if e.Order.empty() {
			return Order{}, false
		}
		return e.Order, true
	}
	first := e.Orders[0]
	if first.Status == "" {
		first.Status = e.Status
	}
	if first.DoctorID == "" {
		first.DoctorID = e.DoctorID
	}
	return first, true
}

type CreateOrderRequest struct {
	Note string `json:"note"`
}

type CreateOrderResponse struct {
	OrderID ID `json:"order_id"`
}

// Delivery info

type DeliveryInfo struct {
	ID             ID             `json:"id,omitempty"`
	Address        string         `json:"address"`
	PhoneNumber    string         `json:"phone_number"`
	DeliveryMethod DeliveryMethod `json:"delivery_method"`
}

type deliveryInfoEnvelope struct {
	DeliveryInfo *DeliveryInfo `json:"delivery_info"`
}

// Payment

type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentPromptPay  PaymentMethod = "promptpay"
)

type PaymentInfoRequest struct {
	ID            ID            `json:"id,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Details       string        `json:"details"`
}

type PaymentInfo struct {
	ID            ID            `json:"id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Details       string        `json:"details"`
}

// paymentInfoEnvelope accepts {"payment_info": {...}} and flat bodies.
type paymentInfoEnvelope struct {
	Nested *PaymentInfo `json:"payment_info"`
	PaymentInfo
}

func (e paymentInfoEnvelope) info() PaymentInfo {
	if e.Nested != nil {
		return *e.Nested
	}
	return e.PaymentInfo
}

type PaymentAttemptRequest struct {
	OrderID       string `json:"order_id"`
	PaymentInfoID string `json:"payment_info_id"`
}

type UpdatePaymentAttemptRequest struct {
	PaymentAttemptID string `json:"payment_attempt_id"`
	Status           string `json:"status,omitempty"`
}

type PaymentAttempt struct {
	ID            ID     `json:"id"`
	OrderID       ID     `json:"order_id"`
	PaymentInfoID ID     `json:"payment_info_id"`
	Status        string `json:"status"`
}

type paymentAttemptEnvelope struct {
	Nested *PaymentAttempt `json:"payment_attempt"`
	PaymentAttempt
}

func (e paymentAttemptEnvelope) attempt() PaymentAttempt {
	if e.Nested != nil {
		return *e.Nested
	}
	return e.PaymentAttempt
}
