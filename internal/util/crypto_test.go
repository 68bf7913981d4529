package util

import (
	"strings"
	"testing"
)

func newTestCipher(t testing.TB) *FieldCipher {
	t.Helper()
	c, err := NewFieldCipher("unit-test-passphrase")
	if err != nil {
		t.Fatalf("NewFieldCipher failed: %v", err)
	}
	return c
}

func TestFieldCipherRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	plaintexts := []string{
		"John Smith",
		"+14155551234",
		"221B Baker Street, London",
		"short",
		strings.Repeat("long address line ", 40),
	}
	for _, plain := range plaintexts {
		enc := c.Encrypt(plain)
		if enc == plain {
			t.Errorf("Encrypt(%q) returned plaintext unchanged", plain)
		}
		if !LooksEncrypted(enc) {
			t.Errorf("Encrypt(%q) output does not look encrypted: %q", plain, enc)
		}
		if got := c.Decrypt(enc); got != plain {
			t.Errorf("round trip failed: got %q, want %q", got, plain)
		}
	}
}

func TestFieldCipherBlankPassthrough(t *testing.T) {
	c := newTestCipher(t)

	for _, s := range []string{"", "   ", "\t\n"} {
		if got := c.Encrypt(s); got != s {
			t.Errorf("Encrypt(%q) = %q, want unchanged", s, got)
		}
		if got := c.Decrypt(s); got != s {
			t.Errorf("Decrypt(%q) = %q, want unchanged", s, got)
		}
	}
}

func TestFieldCipherDistinctNonces(t *testing.T) {
	c := newTestCipher(t)

	a := c.Encrypt("same input")
	b := c.Encrypt("same input")
	if a == b {
		t.Error("two encryptions of the same input produced identical ciphertext")
	}
	if c.Decrypt(a) != "same input" || c.Decrypt(b) != "same input" {
		t.Error("distinct ciphertexts did not both decrypt to the original")
	}
}

func TestFieldCipherFailOpen(t *testing.T) {
	c := newTestCipher(t)

	// legacy plaintext rows come back untouched
	legacy := "Plain Old Name"
	if got := c.Decrypt(legacy); got != legacy {
		t.Errorf("Decrypt(plaintext) = %q, want unchanged", got)
	}

	// tampered ciphertext comes back as stored, never an error
	enc := c.Encrypt("tamper target")
	tampered := enc[:len(enc)-2] + "00"
	if tampered == enc {
		tampered = enc[:len(enc)-2] + "11"
	}
	if got := c.Decrypt(tampered); got != tampered {
		t.Errorf("Decrypt(tampered) = %q, want stored value back", got)
	}

	// ciphertext from a different passphrase comes back as stored
	other, err := NewFieldCipher("a-different-passphrase")
	if err != nil {
		t.Fatalf("NewFieldCipher failed: %v", err)
	}
	foreign := other.Encrypt("secret")
	if got := c.Decrypt(foreign); got != foreign {
		t.Errorf("Decrypt(foreign key ciphertext) = %q, want stored value back", got)
	}
}

func TestNewFieldCipherEmptyPassphrase(t *testing.T) {
	if _, err := NewFieldCipher(""); err == nil {
		t.Error("NewFieldCipher(\"\") should fail")
	}
}

func TestLooksEncrypted(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"John Smith", false},
		{"deadbeef", false},                      // too short
		{strings.Repeat("ab", 40), true},         // 80 hex chars
		{strings.Repeat("ab", 36) + "g1", false}, // non-hex char
		{strings.Repeat("AB", 40), false},        // uppercase is not our output
		{strings.Repeat("ab", 40) + "c", false},  // odd length
		{strings.Repeat("0", 74), true},          // exactly the minimum
		{strings.Repeat("0", 73), false},         // just under
	}
	for _, tc := range cases {
		if got := LooksEncrypted(tc.in); got != tc.want {
			t.Errorf("LooksEncrypted(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLooksEncryptedOnRealCiphertext(t *testing.T) {
	c := newTestCipher(t)
	if !LooksEncrypted(c.Encrypt("x y z")) {
		t.Error("real ciphertext failed the heuristic")
	}
}

func BenchmarkFieldCipherEncrypt(b *testing.B) {
	c := newTestCipher(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Encrypt("John Smith, 221B Baker Street")
	}
}

func BenchmarkFieldCipherDecrypt(b *testing.B) {
	c := newTestCipher(b)
	enc := c.Encrypt("John Smith, 221B Baker Street")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Decrypt(enc)
	}
}
