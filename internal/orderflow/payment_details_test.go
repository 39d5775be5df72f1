package orderflow

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDetails_CardRoundTrip(t *testing.T) {
	payment := Payment{
		Method: PaymentCreditCard,
		Card:   CardDraft{CardNumber: "4111 1111 1111 1111", CardHolder: "Ann <Lee> & Co", ExpiryDate: "12/30", CVV: "123"},
	}
	encoded, err := EncodeDetails(DetailsFor(payment))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Equal(t, `{"card_number":"4111111111111111","card_name":"Ann <Lee> & Co","expiry_date":"12/30","cvv":"123"}`, string(raw))

	var decoded CardDetails
	require.NoError(t, DecodeDetails(encoded, &decoded))
	assert.Equal(t, CardDetails{CardNumber: "4111111111111111", CardName: "Ann <Lee> & Co", ExpiryDate: "12/30", CVV: "123"}, decoded)
}

func TestEncodeDetails_PromptPayRoundTrip(t *testing.T) {
	payment := Payment{Method: PaymentPromptPay, PromptPay: PromptPayDraft{PhoneNumber: "0812345678"}}
	encoded, err := EncodeDetails(DetailsFor(payment))
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte(`{"phone_number":"0812345678"}`)), encoded)

	var decoded PromptPayDetails
	require.NoError(t, DecodeDetails(encoded, &decoded))
	assert.Equal(t, "0812345678", decoded.PhoneNumber)
}

func TestEncodeDetails_NonASCIIIsUTF8(t *testing.T) {
	encoded, err := EncodeDetails(CardDetails{CardName: "สมชาย ใจดี"})
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "สมชาย ใจดี")

	var decoded CardDetails
	require.NoError(t, DecodeDetails(encoded, &decoded))
	assert.Equal(t, "สมชาย ใจดี", decoded.CardName)
}

func TestEncodeDetails_LineSeparatorsStayRaw(t *testing.T) {
	encoded, err := EncodeDetails(CardDetails{CardName: "A\u2028B\u2029C", CVV: `x\u2028`})
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Equal(t, "{\"card_number\":\"\",\"card_name\":\"A\xe2\x80\xa8B\xe2\x80\xa9C\",\"expiry_date\":\"\",\"cvv\":\"x\\\\u2028\"}", string(raw))

	var decoded CardDetails
	require.NoError(t, DecodeDetails(encoded, &decoded))
	assert.Equal(t, "A\u2028B\u2029C", decoded.CardName)
	assert.Equal(t, `x\u2028`, decoded.CVV)
}

func TestDecodeDetails_Invalid(t *testing.T) {
	var out CardDetails
	assert.Error(t, DecodeDetails("%%%", &out))
	assert.Error(t, DecodeDetails(base64.StdEncoding.EncodeToString([]byte("nope")), &out))
}
