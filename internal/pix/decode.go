package pix

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformedPayload indicates the payload does not parse as a sequence
	// of well-formed tag/length/value fields.
	ErrMalformedPayload = errors.New("pix: malformed payload")
	// ErrChecksumMismatch indicates the trailing CRC does not match the
	// payload contents.
	ErrChecksumMismatch = errors.New("pix: checksum mismatch")
)

// Field is a single decoded EMV tag/length/value entry.
type Field struct {
	ID    string
	Value string
}

// Decode splits a BR Code payload into its top-level fields. Composite
// templates (26, 62) are returned unparsed; use Decode again on their value
// when the inner structure is needed.
func Decode(payload string) ([]Field, error) {
	var fields []Field
	for pos := 0; pos < len(payload); {
		if pos+4 > len(payload) {
			return nil, fmt.Errorf("%w: dangling header at offset %d", ErrMalformedPayload, pos)
		}
		id := payload[pos : pos+2]
		length, err := strconv.Atoi(payload[pos+2 : pos+4])
		if err != nil {
			return nil, fmt.Errorf("%w: non-numeric length for id %s", ErrMalformedPayload, id)
		}
		pos += 4
		if pos+length > len(payload) {
			return nil, fmt.Errorf("%w: id %s declares %d characters past end", ErrMalformedPayload, id, length)
		}
		fields = append(fields, Field{ID: id, Value: payload[pos : pos+length]})
		pos += length
	}
	return fields, nil
}

// VerifyCRC recomputes the checksum over everything before the final 4 hex
// digits and compares, case-insensitively, against them.
func VerifyCRC(payload string) error {
	if len(payload) < 8 {
		return ErrMalformedPayload
	}
	body := payload[:len(payload)-4]
	want := strings.ToUpper(payload[len(payload)-4:])
	got := fmt.Sprintf("%04X", ChecksumCRC16(body))
	if got != want {
		return fmt.Errorf("%w: computed %s, payload carries %s", ErrChecksumMismatch, got, want)
	}
	return nil
}
