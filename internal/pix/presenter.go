package pix

import (
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// QRImage renders the payload as a PNG QR code with the given edge size in
// pixels. Error-correction level and version are selected by the library
// from the payload length.
func QRImage(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}

// CopyableText groups the raw payload into space-separated chunks of four
// characters for manual copy-paste. Purely cosmetic: stripping whitespace
// recovers the original payload exactly.
func CopyableText(payload string) string {
	var b strings.Builder
	for i := 0; i < len(payload); i += 4 {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + 4
		if end > len(payload) {
			end = len(payload)
		}
		b.WriteString(payload[i:end])
	}
	return b.String()
}
