package orderflow

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// CardDetails is the wire shape of a card payment. Field order is part of the format.
type CardDetails struct {
	CardNumber string `json:"card_number"`
	CardName   string `json:"card_name"`
	ExpiryDate string `json:"expiry_date"`
	CVV        string `json:"cvv"`
}

type PromptPayDetails struct {
	PhoneNumber string `json:"phone_number"`
}

// DetailsFor builds the detail payload for the selected method. Whitespace is stripped
// from card numbers.
func DetailsFor(p Payment) any {
	if p.Method == PaymentPromptPay {
		return PromptPayDetails{PhoneNumber: p.PromptPay.PhoneNumber}
	}
	return CardDetails{
		CardNumber: strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, p.Card.CardNumber),
		CardName:   p.Card.CardHolder,
		ExpiryDate: p.Card.ExpiryDate,
		CVV:        p.Card.CVV,
	}
}

// EncodeDetails renders details as compact JSON without HTML escaping and returns the
// standard base64 of its UTF-8 bytes.
func EncodeDetails(details any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(details); err != nil {
		return "", fmt.Errorf("encode payment details: %w", err)
	}
	raw := rawLineSeparators(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return base64.StdEncoding.EncodeToString(raw), nil
}

// rawLineSeparators turns the \u2028 and \u2029 escapes encoding/json always emits back
// into their UTF-8 bytes. An escape preceded by an escaped backslash is literal text.
func rawLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' {
			out = append(out, b[i])
			continue
		}
		if rest := b[i:]; len(rest) >= 6 && string(rest[1:5]) == "u202" && (rest[5] == '8' || rest[5] == '9') {
			out = append(out, 0xE2, 0x80, 0xA8+rest[5]-'8')
			i += 5
			continue
		}
		// keep the escaped character so a following backslash is not misread
		out = append(out, b[i])
		if i+1 < len(b) {
			i++
			out = append(out, b[i])
		}
	}
	return out
}

// DecodeDetails reverses EncodeDetails into out.
func DecodeDetails(encoded string, out any) error {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decode payment details: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode payment details: %w", err)
	}
	return nil
}
