package xid

import (
	"strings"
	"testing"
)

func TestNewIsPrefixedAndUnique(t *testing.T) {
	a := New("ord")
	b := New("ord")
	if !strings.HasPrefix(a, "ord-") {
		t.Fatalf("expected ord- prefix, got %q", a)
	}
	if a == b {
		t.Fatalf("expected unique ids, got %q twice", a)
	}
	if len(strings.TrimPrefix(a, "ord-")) != 32 {
		t.Fatalf("unexpected id length for %q", a)
	}
}

func TestNewWithoutPrefix(t *testing.T) {
	if id := New(""); strings.Contains(id, "-") {
		t.Fatalf("expected bare hex id, got %q", id)
	}
}
