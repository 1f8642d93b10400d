// Package pix builds and parses BR Code payment payloads, the EMV-derived
// text format read by Brazilian banking apps to initiate a PIX transfer.
package pix

import (
	"errors"
	"fmt"
	"strings"
)

// EMV field identifiers in the order they appear in the payload.
const (
	idPayloadFormat    = "00"
	idInitiationMethod = "01"
	idMerchantAccount  = "26"
	idMerchantCategory = "52"
	idCurrency         = "53"
	idAmount           = "54"
	idCountryCode      = "58"
	idMerchantName     = "59"
	idMerchantCity     = "60"
	idAdditionalData   = "62"
	idCRC              = "63"

	// Sub-fields of the merchant account template (26).
	idAccountGUI = "00"
	idAccountKey = "01"
	// Sub-field of the additional data template (62).
	idReferenceLabel = "05"
)

const (
	pixGUI = "br.gov.bcb.pix"

	// Merchant name and city are hard-limited by the BR Code spec.
	maxMerchantName = 25
	maxMerchantCity = 15

	// maxFieldLen is the largest value an EMV 2-digit decimal length can carry.
	maxFieldLen = 99
)

var (
	// ErrInvalidKey is returned when encoding is attempted without a PIX key.
	// The caller is expected to validate key presence beforehand; this guard
	// exists so a misuse fails loudly instead of emitting a zero-length field.
	ErrInvalidKey = errors.New("pix: key is required")
	// ErrInvalidAmount is returned for negative amounts.
	ErrInvalidAmount = errors.New("pix: amount must not be negative")
	// ErrFieldTooLong is returned when a value exceeds the 99-character EMV limit.
	ErrFieldTooLong = errors.New("pix: field value exceeds 99 characters")
)

// Payment carries everything needed to encode a single payment request.
// Amount is expressed in centavos. Values are immutable per checkout attempt.
type Payment struct {
	StoreName   string
	City        string
	Key         string
	Amount      int64
	TxID        string
	Description string
}

// Encode builds the complete BR Code payload for the payment, terminated by
// the CRC16 field. Output is deterministic for identical input.
func (p Payment) Encode() (string, error) {
	if strings.TrimSpace(p.Key) == "" {
		return "", ErrInvalidKey
	}
	if p.Amount < 0 {
		return "", ErrInvalidAmount
	}

	account, err := emvTemplate(
		emvPair{idAccountGUI, pixGUI},
		emvPair{idAccountKey, p.Key},
	)
	if err != nil {
		return "", err
	}
	additional, err := emvTemplate(emvPair{idReferenceLabel, p.reference()})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fields := []emvPair{
		{idPayloadFormat, "01"},
		{idInitiationMethod, "12"},
		{idMerchantAccount, account},
		{idMerchantCategory, "0000"},
		{idCurrency, "986"},
		{idAmount, FormatAmount(p.Amount)},
		{idCountryCode, "BR"},
		{idMerchantName, normalize(p.StoreName, maxMerchantName)},
		{idMerchantCity, normalize(p.City, maxMerchantCity)},
		{idAdditionalData, additional},
	}
	for _, f := range fields {
		encoded, err := emvField(f.id, f.value)
		if err != nil {
			return "", err
		}
		b.WriteString(encoded)
	}

	// The CRC is computed over the payload including its own id and length
	// header, anticipating the 4 hex digits that follow.
	b.WriteString(idCRC + "04")
	payload := b.String()
	return payload + fmt.Sprintf("%04X", ChecksumCRC16(payload)), nil
}

func (p Payment) reference() string {
	if strings.TrimSpace(p.TxID) == "" {
		return "***"
	}
	return p.TxID
}

// FormatAmount renders centavos with exactly two decimal places and a
// decimal point, the only numeric format banking apps accept in field 54.
func FormatAmount(centavos int64) string {
	if centavos < 0 {
		centavos = 0
	}
	return fmt.Sprintf("%d.%02d", centavos/100, centavos%100)
}

type emvPair struct {
	id    string
	value string
}

// emvField renders a single tag/length/value triplet. Length is the 2-digit
// decimal character count of the value.
func emvField(id, value string) (string, error) {
	if len(value) > maxFieldLen {
		return "", fmt.Errorf("%w: id %s has %d characters", ErrFieldTooLong, id, len(value))
	}
	return fmt.Sprintf("%s%02d%s", id, len(value), value), nil
}

// emvTemplate concatenates inner fields and returns them as the value of a
// composite field.
func emvTemplate(pairs ...emvPair) (string, error) {
	var b strings.Builder
	for _, p := range pairs {
		encoded, err := emvField(p.id, p.value)
		if err != nil {
			return "", err
		}
		b.WriteString(encoded)
	}
	return b.String(), nil
}

// normalize uppercases and truncates a merchant text field to its limit.
func normalize(value string, limit int) string {
	v := strings.ToUpper(strings.TrimSpace(value))
	if len(v) > limit {
		v = v[:limit]
	}
	return v
}
