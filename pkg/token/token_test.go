package token

import (
	"strings"
	"testing"
)

func TestGenerateShape(t *testing.T) {
	t.Parallel()

	gen := NewGenerator()
	code, err := gen.Generate(NamespaceTracking)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(code, "trk_") {
		t.Fatalf("expected trk_ prefix, got %q", code)
	}
	body := strings.TrimPrefix(code, "trk_")
	if len(body) != 26 {
		t.Fatalf("expected 26-char body, got %d", len(body))
	}
	for _, r := range body {
		if !strings.ContainsRune(alphabet, r) {
			t.Fatalf("character %q outside the alphabet", r)
		}
	}
}

func TestGenerateRequiresNamespace(t *testing.T) {
	t.Parallel()

	gen := NewGenerator()
	if _, err := gen.Generate(""); err == nil {
		t.Fatal("expected error for empty namespace")
	}
	if _, err := gen.Generate("   "); err == nil {
		t.Fatal("expected error for blank namespace")
	}
}

func TestGenerateUnique(t *testing.T) {
	t.Parallel()

	gen := NewGenerator()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := gen.Generate(NamespaceConfirmation)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[code] {
			t.Fatalf("duplicate code %q", code)
		}
		seen[code] = true
	}
}

func TestHasNamespace(t *testing.T) {
	t.Parallel()

	valid := "trk_0123456789abcdefghjkmnpqrs"
	if !HasNamespace(valid, NamespaceTracking) {
		t.Fatalf("expected %q to validate", valid)
	}

	for _, code := range []string{
		"",
		"trk_",
		"trk_short",
		"cnf_0123456789abcdefghjkmnpqrs",
		"trk_0123456789abcdefghjkmnpqrl",
		"trk_0123456789ABCDEFGHJKMNPQRS",
		"trk_0123456789abcdefghjkmnpqrst",
	} {
		if HasNamespace(code, NamespaceTracking) {
			t.Fatalf("expected %q to be rejected", code)
		}
	}
}
