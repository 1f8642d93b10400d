package pix

import (
	"regexp"
	"testing"
)

func TestNewTxIDShape(t *testing.T) {
	pattern := regexp.MustCompile(`^LJ\d{13}[0-9A-Z]{5}$`)
	id := NewTxID("LJ")
	if !pattern.MatchString(id) {
		t.Fatalf("unexpected txid shape: %q", id)
	}
}

func TestNewTxIDDefaultPrefix(t *testing.T) {
	id := NewTxID("")
	if id[:2] != "LJ" {
		t.Fatalf("expected default LJ prefix, got %q", id)
	}
}
