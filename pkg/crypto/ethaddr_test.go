package crypto

import (
	"encoding/hex"
	"testing"
)

func TestEIP55KnownVectors(t *testing.T) {
	// Vectors from the EIP-55 reference.
	cases := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	}
	for _, want := range cases {
		raw, err := hex.DecodeString(want[2:])
		if err != nil {
			t.Fatalf("bad vector %s: %v", want, err)
		}
		// decode is case-insensitive, EIP55 must restore the exact casing
		if got := EIP55(raw); got != want {
			t.Errorf("EIP55 = %s, want %s", got, want)
		}
	}
}

func TestNormalizeAddress(t *testing.T) {
	got, err := NormalizeAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"; got != want {
		t.Errorf("NormalizeAddress = %s, want %s", got, want)
	}

	// without prefix
	got, err = NormalizeAddress("5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"; got != want {
		t.Errorf("NormalizeAddress = %s, want %s", got, want)
	}

	if _, err := NormalizeAddress("0x1234"); err == nil {
		t.Error("expected error for short address")
	}
	if _, err := NormalizeAddress("0xzz6916095ca1df60bb79ce92ce3ea74c37c5d359"); err == nil {
		t.Error("expected error for non-hex address")
	}
}
