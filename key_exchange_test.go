// Copyright 2025 The tlscore Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tlscore

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/big"
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

// RFC 7748, Section 6.1 test vector.
func TestDeriveSharedSecretX25519Vector(t *testing.T) {
	alicePriv := mustHex(t, "77076d0a7318a57d3c16c17251b26645df4c2f87ebc0992ab177fba51db92c2a")
	alicePub := mustHex(t, "8520f0098930a754748b7ddcb43ef75a0dbf3a0d26381af4eba4a98eae05dbf9")
	bobPub := mustHex(t, "de9edb7d7b7dc1b4d35b61c2ece435373f8343c85b78674dadfc7e146f882b4f")
	shared := mustHex(t, "4a5d9d5ba4ce2de1728e3bf480350f25e07e21c947d19e3376f09b3c1e161742")

	hs := &HandshakeState{Rand: bytes.NewReader(alicePriv)}
	if err := hs.GenerateKeyShare(X25519); err != nil {
		t.Fatalf("GenerateKeyShare: %v", err)
	}
	if got := hs.PublicKeyShare(); !bytes.Equal(got, alicePub) {
		t.Errorf("public share = %x, want %x", got, alicePub)
	}
	if err := hs.DeriveSharedSecret(bobPub); err != nil {
		t.Fatalf("DeriveSharedSecret: %v", err)
	}
	if got := hs.SharedSecret(); !bytes.Equal(got, shared) {
		t.Errorf("shared secret = %x, want %x", got, shared)
	}
}

func TestKeyExchangeRoundTrip(t *testing.T) {
	tests := []struct {
		group     CurveID
		secretLen int
	}{
		{CurveP256, 32},
		{CurveP384, 48},
		{CurveP521, 66},
		{X25519, 32},
		{X448, 56},
		{CurveFFDHE2048, 256},
	}
	for _, tt := range tests {
		t.Run(tt.group.String(), func(t *testing.T) {
			a := &HandshakeState{}
			b := &HandshakeState{}
			if err := a.GenerateKeyShare(tt.group); err != nil {
				t.Fatalf("a.GenerateKeyShare: %v", err)
			}
			if err := b.GenerateKeyShare(tt.group); err != nil {
				t.Fatalf("b.GenerateKeyShare: %v", err)
			}
			if err := a.DeriveSharedSecret(b.PublicKeyShare()); err != nil {
				t.Fatalf("a.DeriveSharedSecret: %v", err)
			}
			if err := b.DeriveSharedSecret(a.PublicKeyShare()); err != nil {
				t.Fatalf("b.DeriveSharedSecret: %v", err)
			}
			if !bytes.Equal(a.SharedSecret(), b.SharedSecret()) {
				t.Error("shared secrets disagree")
			}
			if got := len(a.SharedSecret()); got != tt.secretLen {
				t.Errorf("secret length = %d, want %d", got, tt.secretLen)
			}
		})
	}
}

func TestGenerateKeyShareUnsupportedGroup(t *testing.T) {
	for _, group := range []CurveID{CurveP224, CurveID(0x4242), CurveID(0x0105)} {
		hs := &HandshakeState{}
		if err := hs.GenerateKeyShare(group); !errors.Is(err, ErrIllegalParameter) {
			t.Errorf("group %d: got %v, want ErrIllegalParameter", group, err)
		}
	}
}

func TestSupportsGroup(t *testing.T) {
	hs := &HandshakeState{}
	tests := []struct {
		group CurveID
		want  bool
	}{
		{CurveP224, false}, // class member without an implementation
		{CurveP256, true},
		{CurveP521, true},
		{X25519, true},
		{X448, true},
		{CurveFFDHE2048, true},
		{CurveFFDHE8192, true},
		{CurveID(0x0105), false},
		{CurveID(0x4242), false},
	}
	for _, tt := range tests {
		if got := hs.SupportsGroup(tt.group); got != tt.want {
			t.Errorf("SupportsGroup(%d) = %v, want %v", tt.group, got, tt.want)
		}
	}
}

func TestDeriveSharedSecretBadPeerKey(t *testing.T) {
	t.Run("no key share generated", func(t *testing.T) {
		hs := &HandshakeState{}
		if err := hs.DeriveSharedSecret(make([]byte, 32)); !errors.Is(err, ErrHandshakeFailed) {
			t.Errorf("got %v, want ErrHandshakeFailed", err)
		}
	})

	t.Run("x25519 wrong length", func(t *testing.T) {
		hs := &HandshakeState{}
		if err := hs.GenerateKeyShare(X25519); err != nil {
			t.Fatalf("GenerateKeyShare: %v", err)
		}
		if err := hs.DeriveSharedSecret(make([]byte, 31)); !errors.Is(err, ErrHandshakeFailed) {
			t.Errorf("got %v, want ErrHandshakeFailed", err)
		}
	})

	t.Run("x448 wrong length", func(t *testing.T) {
		hs := &HandshakeState{}
		if err := hs.GenerateKeyShare(X448); err != nil {
			t.Fatalf("GenerateKeyShare: %v", err)
		}
		if err := hs.DeriveSharedSecret(make([]byte, 32)); !errors.Is(err, ErrHandshakeFailed) {
			t.Errorf("got %v, want ErrHandshakeFailed", err)
		}
	})

	t.Run("p256 not on curve", func(t *testing.T) {
		hs := &HandshakeState{}
		if err := hs.GenerateKeyShare(CurveP256); err != nil {
			t.Fatalf("GenerateKeyShare: %v", err)
		}
		bogus := make([]byte, 65)
		bogus[0] = 4
		if err := hs.DeriveSharedSecret(bogus); !errors.Is(err, ErrHandshakeFailed) {
			t.Errorf("got %v, want ErrHandshakeFailed", err)
		}
	})

	t.Run("ffdhe degenerate values", func(t *testing.T) {
		hs := &HandshakeState{}
		if err := hs.GenerateKeyShare(CurveFFDHE2048); err != nil {
			t.Fatalf("GenerateKeyShare: %v", err)
		}

		params := getFFDHEGroupParams(CurveFFDHE2048)
		one := leftPad(big.NewInt(1).Bytes(), params.size)
		pMinus1 := leftPad(new(big.Int).Sub(params.p, big.NewInt(1)).Bytes(), params.size)
		oversize := make([]byte, params.size+1)

		for name, peer := range map[string][]byte{
			"one": one, "p-1": pMinus1, "oversize": oversize, "empty": nil,
		} {
			if err := hs.DeriveSharedSecret(peer); !errors.Is(err, ErrHandshakeFailed) {
				t.Errorf("%s: got %v, want ErrHandshakeFailed", name, err)
			}
		}
	})
}

func TestFFDHESecretLeftPadded(t *testing.T) {
	// Finite-field secrets carry leading zero bytes, so the derived length
	// must always equal the modulus size.
	a := &HandshakeState{}
	b := &HandshakeState{}
	if err := a.GenerateKeyShare(CurveFFDHE3072); err != nil {
		t.Fatalf("GenerateKeyShare: %v", err)
	}
	if err := b.GenerateKeyShare(CurveFFDHE3072); err != nil {
		t.Fatalf("GenerateKeyShare: %v", err)
	}
	if err := a.DeriveSharedSecret(b.PublicKeyShare()); err != nil {
		t.Fatalf("DeriveSharedSecret: %v", err)
	}
	if got := len(a.SharedSecret()); got != 384 {
		t.Errorf("ffdhe3072 secret length = %d, want 384", got)
	}
}

func TestZeroClearsSharedSecret(t *testing.T) {
	hs := &HandshakeState{}
	if err := hs.GenerateKeyShare(X25519); err != nil {
		t.Fatalf("GenerateKeyShare: %v", err)
	}
	peer := &HandshakeState{}
	if err := peer.GenerateKeyShare(X25519); err != nil {
		t.Fatalf("peer.GenerateKeyShare: %v", err)
	}
	if err := hs.DeriveSharedSecret(peer.PublicKeyShare()); err != nil {
		t.Fatalf("DeriveSharedSecret: %v", err)
	}
	if hs.SharedSecret() == nil {
		t.Fatal("no shared secret derived")
	}
	hs.Zero()
	if hs.SharedSecret() != nil {
		t.Error("shared secret survived Zero")
	}
	if hs.PublicKeyShare() != nil {
		t.Error("key share survived Zero")
	}
}
