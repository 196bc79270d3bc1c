package hkdf

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

// RFC 5869, Appendix A.1 test case 1.
func TestExtractExpandRFC5869(t *testing.T) {
	ikm := bytes.Repeat([]byte{0x0b}, 22)
	salt := mustHex(t, "000102030405060708090a0b0c")
	info := mustHex(t, "f0f1f2f3f4f5f6f7f8f9")
	wantPRK := mustHex(t, "077709362c2e32df0ddc3f0dc47bba6390b6c73bb50f9c3122ec844ad7c2b3e5")
	wantOKM := mustHex(t, "3cb25f25faacd57a90434f64d0362f2a2d2d0a90cf1a5a4c5db02d56ecc4c5bf34007208d5b887185865")

	prk, err := Extract(sha256.New, ikm, salt)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !bytes.Equal(prk, wantPRK) {
		t.Errorf("PRK = %x, want %x", prk, wantPRK)
	}

	okm, err := Expand(sha256.New, prk, string(info), len(wantOKM))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if !bytes.Equal(okm, wantOKM) {
		t.Errorf("OKM = %x, want %x", okm, wantOKM)
	}
}

func TestExpandRejectsOversizeOutput(t *testing.T) {
	prk := make([]byte, sha256.Size)
	if _, err := Expand(sha256.New, prk, "info", 255*sha256.Size+1); err == nil {
		t.Error("expected an error for output beyond 255 blocks")
	}
}
