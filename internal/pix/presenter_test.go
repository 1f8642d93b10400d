package pix

import (
	"bytes"
	"strings"
	"testing"
)

func TestCopyableTextRoundTrip(t *testing.T) {
	payloads := []string{
		"0002",
		"000201",
		"00020126360014br.gov.bcb.pix0114k",
		"x",
	}
	for _, p := range payloads {
		grouped := CopyableText(p)
		if strings.ReplaceAll(grouped, " ", "") != p {
			t.Fatalf("round trip failed for %q: %q", p, grouped)
		}
	}
}

func TestCopyableTextGrouping(t *testing.T) {
	if got := CopyableText("abcdefghij"); got != "abcd efgh ij" {
		t.Fatalf("unexpected grouping: %q", got)
	}
	if got := CopyableText(""); got != "" {
		t.Fatalf("empty payload must stay empty, got %q", got)
	}
}

func TestQRImageProducesPNG(t *testing.T) {
	payload, err := Payment{StoreName: "Loja", City: "Curitiba", Key: "k@x.com", Amount: 1000, TxID: "Q1"}.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	img, err := QRImage(payload, 256)
	if err != nil {
		t.Fatalf("render qr: %v", err)
	}
	if !bytes.HasPrefix(img, []byte("\x89PNG")) {
		t.Fatalf("expected PNG magic, got %x", img[:4])
	}
}
