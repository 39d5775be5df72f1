package orderflow

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var phonePattern = regexp.MustCompile(`^0[0-9]{8,9}$`)

// ValidPhone reports whether s is a 9-10 digit number starting with 0.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(strings.TrimSpace(s))
}

// SanitizePhone keeps only the digits of s.
func SanitizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			return r
		}
		return -1
	}, s)
}

// FieldErrors maps a field name to a message. It never reaches the network.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e FieldErrors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

const (
	msgAddressRequired = "Please enter a delivery address"
	msgPickupRequired  = "Please specify a pickup location"
	msgPhoneInvalid    = "Please enter a 9-10 digit phone number starting with 0"
	msgCardIncomplete  = "Please fill in all credit card details"
	msgPromptPayPhone  = "Please enter a valid PromptPay phone number"
)

// ValidateShipping checks the address or pickup location for the method, and the phone.
func ValidateShipping(s Shipping) error {
	errs := FieldErrors{}
	if s.Method == ShippingPickup {
		if strings.TrimSpace(s.PickupLocation) == "" {
			errs["pickupLocation"] = msgPickupRequired
		}
	} else if strings.TrimSpace(s.Address) == "" {
		errs["address"] = msgAddressRequired
	}
	if !ValidPhone(s.Phone) {
		errs["phone"] = msgPhoneInvalid
	}
	return errs.orNil()
}

// ValidatePayment checks only the draft that matches the selected method.
func ValidatePayment(p Payment) error {
	errs := FieldErrors{}
	switch p.Method {
	case PaymentPromptPay:
		if !ValidPhone(p.PromptPay.PhoneNumber) {
			errs["phoneNumber"] = msgPromptPayPhone
		}
	default:
		card := p.Card
		for field, value := range map[string]string{
			"cardNumber": card.CardNumber,
			"cardHolder": card.CardHolder,
			"expiryDate": card.ExpiryDate,
			"cvv":        card.CVV,
		} {
			if value == "" {
				errs[field] = msgCardIncomplete
			}
		}
	}
	return errs.orNil()
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
